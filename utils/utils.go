package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const CodeDigits = 6

// GenerateCode returns n random decimal digits, leading zeros included
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid code length %d", n)
	}

	var sb strings.Builder
	sb.Grow(n)

	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)

		if err != nil {
			return "", err
		}

		sb.WriteByte(byte('0' + d.Int64()))
	}

	return sb.String(), nil
}

// MaskEmail hides most of the local part, used in logs and on screen
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')

	if at <= 0 {
		return "***"
	}

	return email[:1] + "***" + email[at:]
}
