// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Budget errors.
	ErrMaxBuckets   = errors.New("maximum of 5 buckets allowed")
	ErrInvalidInput = errors.New("invalid input")

	// Access errors.
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAccessExpired = errors.New("trial expired and no purchase on record")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the message meant for the end user, falling back to
// the error text when none was attached.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}

// InvalidInput wraps a validation failure so callers can match ErrInvalidInput.
func InvalidInput(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return NewUserError(msg, ErrInvalidInput)
}
