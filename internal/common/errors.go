package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnprocessable  = errors.New("unprocessable document")
	ErrGateway        = errors.New("upstream gateway error")
	ErrGatewayTimeout = errors.New("upstream timeout")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTP error helpers
func InvalidInputError(message string) error {
	return NewAppError("INVALID_INPUT", message, ErrInvalidInput)
}

func InvalidInputErrorf(format string, args ...interface{}) error {
	return InvalidInputError(fmt.Sprintf(format, args...))
}

func UnprocessableError(message string, cause error) error {
	return NewAppError("UNPROCESSABLE", message, errors.Join(ErrUnprocessable, cause))
}

func GatewayError(message string, cause error) error {
	return NewAppError("BAD_GATEWAY", message, errors.Join(ErrGateway, cause))
}

func GatewayTimeoutError(message string, cause error) error {
	return NewAppError("GATEWAY_TIMEOUT", message, errors.Join(ErrGatewayTimeout, cause))
}

func InternalError(message string) error {
	return NewAppError("INTERNAL", message, ErrInternal)
}

// HTTPStatus maps an error to the HTTP status the caller should see.
// Unrecognized errors are internal failures and must not leak detail.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to echo to the caller. AppError
// messages are written for external eyes; anything else collapses to a
// generic internal failure.
func PublicMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
