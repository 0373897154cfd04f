package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wraps of a
// sentinel still match it through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Scope wraps err under kind while keeping the status and message of a typed
// cause, e.g. a NOT_FOUND collaborator failure stays a 404 inside LOAD_FAILED.
func Scope(err error, kind *Error, message string) *Error {
	status := kind.Status
	var cause *Error
	if errors.As(err, &cause) {
		if cause.Status != 0 {
			status = cause.Status
		}
		if message == "" {
			message = cause.Message
		}
	}
	if message == "" {
		message = kind.Message
	}
	return Wrap(err, kind.Code, status, message)
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTransport          = New("TRANSPORT_ERROR", http.StatusBadGateway, "upstream request failed")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Course session taxonomy.
	ErrLoad             = New("LOAD_FAILED", http.StatusBadGateway, "failed to load course")
	ErrEnrollment       = New("ENROLLMENT_FAILED", http.StatusBadGateway, "enrollment failed")
	ErrCompletion       = New("COMPLETION_FAILED", http.StatusBadGateway, "failed to record lesson completion")
	ErrAlreadyEnrolled  = New("ALREADY_ENROLLED", http.StatusConflict, "already enrolled in course")
	ErrMutationInFlight = New("MUTATION_IN_FLIGHT", http.StatusConflict, "a previous request is still in progress")
	ErrNotReady         = New("NOT_READY", http.StatusPreconditionFailed, "course is not loaded")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
