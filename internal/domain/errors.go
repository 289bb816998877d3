package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUserNotFound is returned when a session references a user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by login when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an email that is already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrUsernameTaken is returned when registering a username that is already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrContentNotFound indicates the challenge content could not be loaded.
	ErrContentNotFound = errors.New("challenge content not found")
	// ErrInvalidArgument matches every *ValidationError via errors.Is.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistence wraps storage failures; the caller may retry.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Persistence wraps a storage error so callers can detect it with errors.Is(err, ErrPersistence).
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
