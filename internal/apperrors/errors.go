package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a standardized application error carrying the HTTP status
// it should surface as.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // internal error for logging
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped internal error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a 400 error for rejected declared metadata or
// malformed request input.
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

// NotFound creates a 404 error.
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

// Upstream creates a 502 error for blob-store failures. Retrying the
// whole admission sequence from open is safe after one of these.
func Upstream(message string, err error) *AppError {
	return New(http.StatusBadGateway, message, err)
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// StatusFor returns the HTTP status and message for any error: the
// AppError's own code when it is one, otherwise 400 (core-level errors
// raised mid-protocol surface as bad request, never as 500).
func StatusFor(err error) (int, string) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code, app.Message
	}
	return http.StatusBadRequest, err.Error()
}
