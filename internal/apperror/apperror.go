// Package apperror defines the domain error kinds shared by every layer.
//
// ERROR KINDS:
// Services return an *AppError wrapping one of the sentinels below. Callers
// branch on the kind with errors.Is, never on the message:
//
//	if errors.Is(err, apperror.ErrConflict) { ... already a member ... }
//
// The HTTP layer (handler/response.go) is the only place that maps kinds to
// status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. The message is caller-facing,
// e.g. "already a member of this group".
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the caller could not be identified (bad credentials,
// missing or invalid token). Distinct from Forbidden, which means the caller
// is known but not allowed.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports that an optional external collaborator (for example
// the image store) is not configured or is refusing calls.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}

// Is reports whether err carries the given kind. Shorthand for errors.Is
// that reads better at call sites in tests.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
