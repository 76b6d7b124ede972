package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for session guard rejections. The distinct codes exist for
// diagnosability and metrics; clients should treat any 401/403 as a signal
// to re-authenticate.
const (
	CodeMissingToken           = "MISSING_TOKEN"
	CodeInvalidOrExpiredToken  = "INVALID_OR_EXPIRED_TOKEN"
	CodeTokenNotRecognized     = "TOKEN_NOT_RECOGNIZED"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodeTokenExpiredInactivity = "TOKEN_EXPIRED_INACTIVITY"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewMissingToken rejects a request carrying no bearer token.
func NewMissingToken() error {
	return NewDomainError(CodeMissingToken, "Missing token", http.StatusUnauthorized, nil)
}

// NewInvalidOrExpiredToken rejects a token failing signature or embedded
// expiry verification. 403 per the API contract; every other token
// rejection is a 401.
func NewInvalidOrExpiredToken() error {
	return NewDomainError(CodeInvalidOrExpiredToken, "Invalid or expired token", http.StatusForbidden, nil)
}

// NewTokenNotRecognized rejects a signature-valid token the store has no
// record of, e.g. after a server data reset.
func NewTokenNotRecognized() error {
	return NewDomainError(CodeTokenNotRecognized, "Token not recognized", http.StatusUnauthorized, nil)
}

// NewTokenInvalid rejects a token whose record was invalidated.
func NewTokenInvalid() error {
	return NewDomainError(CodeTokenInvalid, "Token has been invalidated", http.StatusUnauthorized, nil)
}

// NewTokenExpiredInactivity rejects a token idle past the inactivity window.
func NewTokenExpiredInactivity() error {
	return NewDomainError(CodeTokenExpiredInactivity, "Token expired due to inactivity", http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
