// Package apperror defines the application's error taxonomy.
//
// Repositories return these (usually wrapped with fmt.Errorf("...: %w")) and the
// stores and handlers classify them with errors.Is / errors.As:
//
//	ErrValidation → rejected before any remote call
//	ErrConflict   → uniqueness violation (Postgres code 23505)
//	ErrNotFound   → the row does not exist
//	ErrBackend    → anything else the backend reported
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBackend      = errors.New("backend error")
)

// CodeUniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const CodeUniqueViolation = "23505"

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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
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

// Unauthorized returns an AppError for a missing or rejected session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// BackendError is an error reported by the backend: a PostgREST/GoTrue error
// body, or the embedded backend's equivalent.
//
// Message is the backend's own text, suitable for showing to the user as is.
type BackendError struct {
	Status  int    // HTTP status, 0 for the embedded backend
	Code    string // SQLSTATE or auth error code, may be empty
	Message string
	Details string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	return e.Message
}

// Is lets errors.Is match the taxonomy sentinels.
func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrBackend:
		return true
	case ErrConflict:
		return e.Code == CodeUniqueViolation
	case ErrUnauthorized:
		return e.Status == 401
	case ErrForbidden:
		return e.Status == 403
	}
	return false
}

// UniqueViolation returns the BackendError the embedded backend reports for a
// violated unique constraint, shaped like the managed backend's.
func UniqueViolation(constraint string) *BackendError {
	return &BackendError{
		Status:  409,
		Code:    CodeUniqueViolation,
		Message: fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
	}
}

// Message returns the text to show a user for err: the backend's message, the
// AppError message, or err.Error() as a last resort.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
