// Validation of user supplied wizard input. Every failure is a
// types.ValidationError carrying the feedback to show.
package validators

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"habitbot/constants"
	"habitbot/types"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameLength        = 64
	MaxDescriptionLength = 512
	MinPasswordLength    = 6
	MaxPasswordLength    = 64
	MaxBorder            = 3650
)

var (
	validate = validator.New()
	strict   = bluemonday.StrictPolicy()
)

// Text strips markup, normalizes to NFC and trims surrounding space
func Text(s string) string {
	return strings.TrimSpace(norm.NFC.String(html.UnescapeString(strict.Sanitize(s))))
}

func TargetName(s string) (string, error) {
	s = Text(s)

	if s == "" {
		return "", types.Invalid(constants.FeedbackNameEmpty)
	}

	if utf8.RuneCountInString(s) > MaxNameLength {
		return "", types.Invalid(constants.FeedbackNameTooLong)
	}

	return s, nil
}

// TargetDescription accepts "-" as an explicit empty description
func TargetDescription(s string) (string, error) {
	s = Text(s)

	if s == "-" {
		return "", nil
	}

	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return "", types.Invalid(constants.FeedbackDescriptionTooLong)
	}

	return s, nil
}

func Border(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))

	if err != nil {
		return 0, types.Invalid(constants.FeedbackBorderNotNumber)
	}

	if n < 1 || n > MaxBorder {
		return 0, types.Invalid(constants.FeedbackBorderRange)
	}

	return n, nil
}

func Email(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if err := validate.Var(s, "required,email"); err != nil {
		return "", types.Invalid(constants.FeedbackBadEmail)
	}

	return s, nil
}

func Password(s string) (string, error) {
	if strings.ContainsAny(s, " \t\n") {
		return "", types.Invalid(constants.FeedbackPasswordSpaces)
	}

	n := utf8.RuneCountInString(s)

	if n < MinPasswordLength || n > MaxPasswordLength {
		return "", types.Invalid(constants.FeedbackPasswordLength)
	}

	return s, nil
}

// ClockTime parses HH:MM (24 hour clock)
func ClockTime(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")

	if !ok || len(m) != 2 {
		return 0, 0, types.Invalid(constants.FeedbackBadTime)
	}

	hour, errH := strconv.Atoi(h)
	minute, errM := strconv.Atoi(m)

	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, types.Invalid(constants.FeedbackBadTime)
	}

	return hour, minute, nil
}

// Draft checks a decoded target draft before submission
func Draft(d types.TargetDraft) error {
	if err := validate.Struct(d); err != nil {
		return types.Invalid(constants.FeedbackDraftIncomplete)
	}

	return nil
}

// Code checks the shape of a verification code
func Code(s string) (string, error) {
	s = strings.TrimSpace(s)

	if err := validate.Var(s, "required,numeric,len=6"); err != nil {
		return "", types.Invalid(constants.FeedbackCodeShape)
	}

	return s, nil
}
