// Package apperror provides domain-specific error types for Forgepoint.
// These errors carry an HTTP status code, a machine-readable code and a
// user-safe message. The Echo error handler maps them to JSON responses.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes returned to API clients in the "code" field.
const (
	TypeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	TypeInvalidToken           = "INVALID_TOKEN"
	TypeTokenExpired           = "TOKEN_EXPIRED"
	TypeInvalidCredentials     = "INVALID_CREDENTIALS"
	TypeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	TypeForbidden              = "FORBIDDEN"
	TypeCSRFTokenMissing       = "CSRF_TOKEN_MISSING"
	TypeCSRFTokenInvalid       = "CSRF_TOKEN_INVALID"
	TypeRateLimited            = "RATE_LIMITED"
	TypeValidationFailed       = "VALIDATION_FAILED"
	TypeBadRequest             = "BAD_REQUEST"
	TypeNotFound               = "NOT_FOUND"
	TypeConflict               = "CONFLICT"
	TypePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	TypeInternal               = "INTERNAL_ERROR"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "NOT_FOUND").
	Type string `json:"code"`

	// Message is a human-readable description safe for the client.
	Message string `json:"error"`

	// Details carries field-level validation failures, keyed by field name.
	Details map[string]string `json:"details,omitempty"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

func newError(code int, typ, message string) *AppError {
	return &AppError{Code: code, Type: typ, Message: message}
}

// --- Constructors for common error types ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, TypeNotFound, message)
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, TypeBadRequest, message)
}

// NewValidation creates a 400 error carrying per-field validation messages.
func NewValidation(message string, details map[string]string) *AppError {
	e := newError(http.StatusBadRequest, TypeValidationFailed, message)
	e.Details = details
	return e
}

// NewAuthenticationRequired creates the 401 returned when no credential was sent.
func NewAuthenticationRequired() *AppError {
	return newError(http.StatusUnauthorized, TypeAuthenticationRequired, "Authentication required")
}

// invalidTokenMessage is shared by INVALID_TOKEN and TOKEN_EXPIRED so the
// client-visible remediation is identical.
const invalidTokenMessage = "Invalid or expired token"

// NewInvalidToken creates a 401 for a token that failed signature checks.
func NewInvalidToken() *AppError {
	return newError(http.StatusUnauthorized, TypeInvalidToken, invalidTokenMessage)
}

// NewTokenExpired creates a 401 for a correctly signed but expired token.
func NewTokenExpired() *AppError {
	return newError(http.StatusUnauthorized, TypeTokenExpired, invalidTokenMessage)
}

// NewUnauthorized creates a generic 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, TypeInvalidCredentials, message)
}

// NewInsufficientPermission creates the 403 returned by permission checks.
func NewInsufficientPermission() *AppError {
	return newError(http.StatusForbidden, TypeInsufficientPermission, "Insufficient permissions")
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, TypeForbidden, message)
}

// NewCSRFMissing creates the 403 for a request lacking either CSRF token.
func NewCSRFMissing() *AppError {
	return newError(http.StatusForbidden, TypeCSRFTokenMissing, "CSRF token missing")
}

// NewCSRFInvalid creates the 403 for a CSRF pair that failed verification.
func NewCSRFInvalid() *AppError {
	return newError(http.StatusForbidden, TypeCSRFTokenInvalid, "Invalid CSRF token")
}

// NewRateLimited creates a 429 Too Many Requests error.
func NewRateLimited() *AppError {
	return newError(http.StatusTooManyRequests, TypeRateLimited, "Too many requests. Please try again later.")
}

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, TypeConflict, message)
}

// NewPayloadTooLarge creates a 413 for request bodies over the upload limit.
func NewPayloadTooLarge(message string) *AppError {
	return newError(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, message)
}

// errMissingContext is the shared internal error for nil precondition checks.
var errMissingContext = errors.New("missing required context")

// NewMissingContext creates a 500 error for handler nil-context guards
// (identity not set, dependency not wired).
func NewMissingContext() *AppError {
	return NewInternal(errMissingContext)
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is (or wraps) a 404 AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}
