package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("subscription not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("record violates invariant")
	ErrInvalidState      = errors.New("operation not applicable in current state")
	ErrConflict          = errors.New("concurrent modification conflict")
	ErrOperationFailed   = errors.New("operation failed")
	ErrReadDatabaseRow   = errors.New("failed to read database row")
)

// TransitionError names the current state and the requested action when a
// customer-facing transition is rejected. It unwraps to ErrInvalidTransition
// so callers can match with errors.Is.
type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s subscription", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// FieldError carries the offending field so the caller layer can render a
// precise message. kind is one of the sentinels above.
type FieldError struct {
	Field  string
	Reason string
	kind   error
}

func NewFieldError(kind error, field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason, kind: kind}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.kind }
