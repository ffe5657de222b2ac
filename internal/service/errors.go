package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrModel              = errors.New("model call failed")
	ErrStorage            = errors.New("storage failure")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// UnsavedGenerationError is returned when the model produced code but the
// record could not be persisted. Code holds the output so the caller can still
// show it.
type UnsavedGenerationError struct {
	Code string
	Err  error
}

func (e *UnsavedGenerationError) Error() string {
	return fmt.Sprintf("generation not saved: %v", e.Err)
}

func (e *UnsavedGenerationError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
