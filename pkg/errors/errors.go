package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the structured error surfaced to API consumers. Internal carries
// the underlying cause for logging and is never serialized.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches sentinels by code, so copies carrying an internal cause or a
// specialised message still compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of the AppError carrying the supplied cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError with a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Message = message
	return &cpy
}

// Sentinel errors shared across the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrDuplicateName covers sibling name collisions in the folder tree and
	// lost uniqueness races reported by the database backstop.
	ErrDuplicateName = &AppError{
		Code:       "DUPLICATE_NAME",
		Message:    "An item with this name already exists here",
		StatusCode: http.StatusConflict,
	}

	// ErrRootImmutable guards root folders against deletion, independent of ownership.
	ErrRootImmutable = &AppError{
		Code:       "ROOT_IMMUTABLE",
		Message:    "Root folders cannot be deleted",
		StatusCode: http.StatusBadRequest,
	}

	// ErrPartialFailure reports a create that wrote metadata but failed to
	// materialize physical storage. The metadata row is kept as the source of
	// truth so the mirror can be repaired.
	ErrPartialFailure = &AppError{
		Code:       "STORAGE_PARTIAL_FAILURE",
		Message:    "Operation partially completed; storage will be repaired",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrContainsPrivate rejects public artifacts referencing non-global content.
	ErrContainsPrivate = &AppError{
		Code:       "ARTIFACT_CONTAINS_PRIVATE",
		Message:    "Public trees and lists can only reference global pictograms",
		StatusCode: http.StatusBadRequest,
	}
)

// New builds an application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewBadRequest wraps a validation failure with a caller-facing message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// Wrap converts an arbitrary error into an AppError, keeping the cause.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError normalises any error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}
