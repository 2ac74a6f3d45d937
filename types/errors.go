package types

import "errors"

var (
	// The token is invalid or expired, or the credentials were rejected
	ErrUnauthorized = errors.New("unauthorized")

	// The target or user does not exist
	ErrNotFound = errors.New("not found")

	// The message was already deleted on the transport side
	ErrMessageNotFound = errors.New("message not found")
)

// A validation error keeps the conversation on the same screen and shows
// Message as feedback
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return "validation: " + e.Message
}

func Invalid(msg string) error {
	return ValidationError{Message: msg}
}
