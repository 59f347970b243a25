package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the target user does not exist or is soft-deleted.
	ErrNotFound = errors.New("user not found")

	// ErrConflict is returned when the store rejects a write on a uniqueness constraint.
	ErrConflict = errors.New("user conflicts with an existing record")

	ErrInvalidQuery = errors.New("invalid query parameter")

	ErrValidation = errors.New("validation failed")
)

// ValidationError reports the first field that failed a format or presence check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
