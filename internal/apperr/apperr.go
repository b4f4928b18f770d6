package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the single failure type rendered into the error envelope.
// Err carries the underlying cause for logging and is never serialized.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(details any) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request data",
		Details: details,
	}
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "You do not have permission to perform this action"
	}
	return New(http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound builds a <RESOURCE>_NOT_FOUND error, e.g. NotFound("medical record")
// yields MEDICAL_RECORD_NOT_FOUND / "Medical record not found".
func NotFound(resource string) *Error {
	code := strings.ToUpper(strings.ReplaceAll(resource, " ", "_")) + "_NOT_FOUND"
	return New(http.StatusNotFound, code, capitalize(resource)+" not found")
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message)
}

// Internal wraps an unexpected failure under an <ACTION>_FAILED code.
func Internal(code, message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: code, Message: message, Err: cause}
}

// From normalizes err into an *Error. Anything that is not already an
// *Error is degraded to a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("INTERNAL_ERROR", "An unexpected error occurred", err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
