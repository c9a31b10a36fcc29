// Package apperrors provides a standardized error taxonomy used across the
// sync pipeline, the store adapters, and the HTTP API.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents one of the six semantic error categories the system
// distinguishes between. Every error that crosses a component boundary is
// classified into exactly one of these.
type ErrorCode string

const (
	// ErrorCodeValidation indicates malformed or semantically invalid input.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeNotFound indicates the referenced entity does not exist.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeConflict indicates a state conflict (e.g. duplicate collection name).
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeDependencyUnavailable indicates a downstream dependency
	// (postgres, Qdrant, the embedding provider) could not be reached or
	// timed out — callers should treat this as transient/retryable.
	ErrorCodeDependencyUnavailable ErrorCode = "DEPENDENCY_UNAVAILABLE"
	// ErrorCodeIntegrity indicates the two stores were observed out of sync
	// in a way the caller cannot resolve on its own (surfaced by AutoGC and
	// the consistency coordinator).
	ErrorCodeIntegrity ErrorCode = "INTEGRITY_ERROR"
	// ErrorCodeInternal indicates an unexpected internal failure.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is the unified error type returned by every internal component.
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetail attaches a key/value pair to the error's Details map.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return newError(ErrorCodeValidation, message, nil)
}

// ValidationField creates a validation error scoped to a single field.
func ValidationField(field, reason string) *AppError {
	return newError(ErrorCodeValidation, fmt.Sprintf("field %q: %s", field, reason), nil).
		WithDetail("field", field).WithDetail("reason", reason)
}

// NotFound creates a not-found error for the given entity kind and id.
func NotFound(kind, id string) *AppError {
	return newError(ErrorCodeNotFound, fmt.Sprintf("%s %q not found", kind, id), nil).
		WithDetail("kind", kind).WithDetail("id", id)
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return newError(ErrorCodeConflict, message, nil)
}

// DependencyUnavailable wraps a downstream failure as a retryable
// dependency-unavailable error.
func DependencyUnavailable(dependency string, cause error) *AppError {
	return newError(ErrorCodeDependencyUnavailable, fmt.Sprintf("%s unavailable", dependency), cause).
		WithDetail("dependency", dependency)
}

// Integrity creates an integrity error describing a detected inconsistency
// between the relational and vector stores.
func Integrity(message string) *AppError {
	return newError(ErrorCodeIntegrity, message, nil)
}

// Internal wraps an unexpected error as an internal error.
func Internal(message string, cause error) *AppError {
	return newError(ErrorCodeInternal, message, cause)
}

// Is reports whether err is an *AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the ErrorCode from err, defaulting to ErrorCodeInternal
// for errors that are not *AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternal
}

// HTTPStatus maps an ErrorCode to the HTTP status code the API layer should
// respond with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeIntegrity:
		return http.StatusUnprocessableEntity
	case ErrorCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
