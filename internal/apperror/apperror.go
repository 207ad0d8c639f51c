// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// Services return *AppError values that wrap one of the sentinels below.
// Handlers never inspect messages; they classify with errors.Is and map the
// sentinel to an HTTP status (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrForbidden    = errors.New("forbidden")
	ErrReference    = errors.New("reference error")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIntegrity is a constraint violation reported by the store after a
	// write was attempted. The surrounding transaction has been rolled back.
	ErrIntegrity = errors.New("integrity violation")

	// ErrStorage is any other persistence failure. Its cause is kept for
	// logging but never shown to the caller.
	ErrStorage = errors.New("storage error")
)

type AppError struct {
	Err     error             // sentinel
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Fields  map[string]string // Optional: per-field messages for validation
	Cause   error             // Optional: underlying driver error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is works against
// either.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// ValidationFields reports several invalid fields at once.
func ValidationFields(fields map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "request validation failed",
		Fields:  fields,
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

// Reference reports a payload that points at an entity the caller does not
// own, e.g. "client not found".
func Reference(message string) *AppError {
	return &AppError{
		Err:     ErrReference,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func Integrity(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrIntegrity,
		Message: message,
		Cause:   cause,
	}
}

func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: op,
		Cause:   cause,
	}
}
