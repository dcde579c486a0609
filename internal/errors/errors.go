// Package errors defines the application error type shared by the queue services and the HTTP layer.
package errors

import (
	"errors"
	"net/http"
)

// ErrorCode categorises an AppError and selects its HTTP status.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUpstream marks a failure reported by the verification engine.
	ErrCodeUpstream ErrorCode = "upstream"
	ErrCodeInternal ErrorCode = "internal"
	ErrCodeTimeout  ErrorCode = "timeout"
	ErrCodeCanceled ErrorCode = "canceled"
)

// StatusClientClosedRequest is the nginx status for a client that disconnected.
const StatusClientClosedRequest = 499

var statusByCode = map[ErrorCode]int{
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeUpstream:   http.StatusBadGateway,
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeTimeout:    http.StatusGatewayTimeout,
	ErrCodeCanceled:   StatusClientClosedRequest,
}

// AppError carries a code, a client-safe message and an optional cause.
// Field names the offending request field for validation errors.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// NotFound reports a missing resource.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Validation reports bad client input.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField reports bad client input in a named request field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Upstream wraps a failure reported by the verification engine.
func Upstream(err error, message string) *AppError {
	return &AppError{Code: ErrCodeUpstream, Message: message, Cause: err}
}

// Wrap attaches a code and message to err. It returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// HasCode reports whether any AppError in err's chain has the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }
func IsValidation(err error) bool { return HasCode(err, ErrCodeValidation) }
func IsInternal(err error) bool { return HasCode(err, ErrCodeInternal) }
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }
func IsCanceled(err error) bool { return HasCode(err, ErrCodeCanceled) }

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the offending field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// HTTPStatus maps err to a response status; anything unrecognised is a 500.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[GetCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
