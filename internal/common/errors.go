package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/roster-scan/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    constants.ErrorType
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
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Error constructors
func NewAppError(code constants.ErrorType, message string, cause error) *AppError {
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

// InvalidInputError builds an invalid_input AppError.
func InvalidInputError(message string) error {
	return NewAppError(constants.ErrInvalidInput, message, ErrInvalidInput)
}

func InvalidInputErrorf(format string, args ...any) error {
	return InvalidInputError(fmt.Sprintf(format, args...))
}

// ErrorTypeOf returns the taxonomy code carried by err, or unknown.
func ErrorTypeOf(err error) constants.ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return constants.ErrUnknown
}
