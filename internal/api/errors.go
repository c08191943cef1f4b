package api

import (
	"errors"
	"net/http"

	"github.com/good-yellow-bee/jpapi/internal/query"
)

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// Standard errors
var (
	ErrNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrUnsupportedFormat = &Error{
		Code:    ErrCodeUnsupportedFormat,
		Message: "Only json and xml formats are supported",
		Status:  http.StatusBadRequest,
	}
)

// NewBadRequest creates a bad request error with custom message.
func NewBadRequest(message string) *Error {
	return &Error{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewValidationError creates a validation error with custom message.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    ErrCodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error with custom message.
func NewNotFound(message string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// FromQueryError maps a query construction failure to a 400 response.
// Missing lookup keys are bad requests; everything else is a validation
// failure. Non-query errors become internal errors.
func FromQueryError(err error) *Error {
	var qe *query.Error
	if !errors.As(err, &qe) {
		return ErrInternalServer
	}
	if qe.Kind == query.KindMissingRequiredParameter {
		return NewBadRequest(qe.Error())
	}
	return NewValidationError(qe.Error())
}
