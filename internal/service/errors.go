package service

import (
	"errors"
	"fmt"

	"github.com/cexll/tasksync/internal/store"
)

var (
	// ErrNotFound and ErrConflict are the store sentinels, re-exported so
	// transports only depend on this package.
	ErrNotFound = store.ErrNotFound
	ErrConflict = store.ErrConflict

	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrResetCodeInvalid   = errors.New("reset code is invalid or expired")
)

// ValidationError is a user-facing input error. It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// forbidden wraps ErrForbidden with the action that was refused.
func forbidden(action string) error {
	return fmt.Errorf("%w: you do not have permission to %s", ErrForbidden, action)
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s not found", ErrNotFound, what)
}

// wrapNotFound keeps other errors intact but names the missing entity.
func wrapNotFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(what)
	}
	return err
}
