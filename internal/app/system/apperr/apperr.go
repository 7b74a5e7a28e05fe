// Package apperr defines the error taxonomy shared by services and HTTP
// handlers. Services return (possibly wrapped) sentinels from this package;
// the respond package maps them onto the JSON envelope.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrAuthentication        = errors.New("authentication failed")
	ErrAuthorization         = errors.New("forbidden")
	ErrDuplicateRegistration = errors.New("a registration already exists for this account")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
)

// ValidationError reports a malformed or missing input field.
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

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthenticationError is an authentication failure with a fixed message.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// The only two authentication messages callers ever see.
var (
	ErrInvalidCredentials error = &AuthenticationError{Message: "invalid credentials"}
	ErrInvalidToken       error = &AuthenticationError{Message: "invalid or expired token"}
)

// ConflictError is a Conflict with a caller-safe explanation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Conflict builds a ConflictError.
func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// Status maps err onto an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRegistration), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to callers for err.
// Authentication and authorization failures are deliberately generic.
func PublicMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Message
	}
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return ae.Message
	}
	switch {
	case errors.Is(err, ErrAuthentication):
		return "authentication required"
	case errors.Is(err, ErrAuthorization):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrDuplicateRegistration):
		return ErrDuplicateRegistration.Error()
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "invalid request"
	default:
		return "internal server error"
	}
}

// Name returns the taxonomy name for err, used in the envelope's error field.
func Name(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrAuthentication):
		return "AuthenticationFailure"
	case errors.Is(err, ErrAuthorization):
		return "AuthorizationFailure"
	case errors.Is(err, ErrDuplicateRegistration):
		return "DuplicateRegistration"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	default:
		return "InternalError"
	}
}
