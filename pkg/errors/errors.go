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

// Is matches by code so wrapped instances compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// Write-path and lookup errors for the submission and security workflows.
var (
	// ErrBuildSQL indicates a SQL statement could not be constructed. Usually a
	// programming defect, but surfaced as a request-rejecting condition.
	ErrBuildSQL = New("BUILD_SQL", http.StatusBadRequest, "failed to build SQL statement")

	// ErrInsertFailed indicates an insert executed but returned no row or id.
	ErrInsertFailed = New("INSERT_FAILED", http.StatusBadRequest, "insert returned no row")

	// ErrUpdateRejected indicates the database accepted the statement but the
	// intended row was not produced (stale state or constraint violation).
	ErrUpdateRejected = New("UPDATE_REJECTED", http.StatusBadRequest, "update rejected by database")

	// ErrApplyFailed indicates an update matched zero rows.
	ErrApplyFailed = New("APPLY_FAILED", http.StatusBadRequest, "update affected no rows")

	// ErrMissingParameter indicates a required discriminator could not be resolved.
	ErrMissingParameter = New("MISSING_PARAMETER", http.StatusBadRequest, "required parameter missing")

	// ErrStaleRevision is raised when the revision_count trigger rejects a write.
	ErrStaleRevision = New("STALE_REVISION", http.StatusConflict, "record was modified by another user")

	// ErrSearchUnavailable indicates the security rule index could not be reached.
	ErrSearchUnavailable = New("SEARCH_UNAVAILABLE", http.StatusBadGateway, "security rule index unavailable")

	// ErrSchemaValidation indicates a driver result did not match the expected shape.
	ErrSchemaValidation = New("SCHEMA_VALIDATION", http.StatusInternalServerError, "unexpected database response shape")
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
