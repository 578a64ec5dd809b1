// Package errors provides coded domain errors for the ReadUp progress engine.
//
// Usage:
//
//	// In the ledger - wrap driver failures
//	if err != nil {
//	    return errors.Wrap(err, errors.CodePersistenceWrite, "record completion")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrPersistenceWrite) {
//	    // completion was not saved, offer a retry
//	}
//
//	// Or switch on the code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeConflict:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL"

	// CodePersistenceInit means the ledger or state store could not be
	// opened or migrated. Fatal: the app must not leave its loading state.
	CodePersistenceInit Code = "PERSISTENCE_INIT"
	// CodePersistenceWrite means a single write failed. Prior state is intact.
	CodePersistenceWrite Code = "PERSISTENCE_WRITE"
	// CodePersistenceRead means a read failed. Callers may degrade.
	CodePersistenceRead Code = "PERSISTENCE_READ"
	// CodeInconsistentState marks a disagreement between the ledger and the
	// session state found during reconciliation. The ledger wins.
	CodeInconsistentState Code = "INCONSISTENT_STATE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodePersistenceInit, CodePersistenceWrite, CodePersistenceRead:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// GetStatus reports the HTTP status, so handlers can return domain errors
// as status errors.
func (e *Error) GetStatus() int {
	return e.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
	ErrPersistenceInit   = &Error{Code: CodePersistenceInit, Message: "persistence init failed"}
	ErrPersistenceWrite  = &Error{Code: CodePersistenceWrite, Message: "persistence write failed"}
	ErrPersistenceRead   = &Error{Code: CodePersistenceRead, Message: "persistence read failed"}
	ErrInconsistentState = &Error{Code: CodeInconsistentState, Message: "inconsistent state"}
)

// IsPersistence reports whether err is any of the persistence failures.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistenceInit) ||
		errors.Is(err, ErrPersistenceWrite) ||
		errors.Is(err, ErrPersistenceRead)
}

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// PersistenceWrite wraps a failed write.
func PersistenceWrite(err error, op string) *Error {
	return &Error{Code: CodePersistenceWrite, Message: op, cause: err}
}

// PersistenceRead wraps a failed read.
func PersistenceRead(err error, op string) *Error {
	return &Error{Code: CodePersistenceRead, Message: op, cause: err}
}

// PersistenceInit wraps a failed open or migration.
func PersistenceInit(err error, op string) *Error {
	return &Error{Code: CodePersistenceInit, Message: op, cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
