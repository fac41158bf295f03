package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Protocol and validation error codes
const (
	// ErrValidation indicates malformed input: an invalid workflow
	// definition, a malformed condition expression, or an empty step id
	// on an approval request.
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	// ErrNotFound indicates an unknown approval request id or a missing
	// step reference.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrAlreadyDecided indicates an approval request mutated after its
	// terminal decision.
	ErrAlreadyDecided ErrorCode = "ALREADY_DECIDED"
)

// Evaluation error codes
const (
	// ErrMissingReference indicates a condition referencing a step with
	// no recorded output, or an output path that does not resolve.
	ErrMissingReference ErrorCode = "MISSING_REFERENCE"
	// ErrInvalidComparison indicates a type-mismatched comparison, e.g.
	// ordering a non-numeric value.
	ErrInvalidComparison ErrorCode = "INVALID_COMPARISON"
)

// Step error codes
const (
	// ErrStepFailure marks a captured business-logic failure of a step.
	// Step failures are stored as data, never thrown.
	ErrStepFailure ErrorCode = "STEP_FAILURE"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WrapError wraps an arbitrary error into a structured Error.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// AsError extracts a structured *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error chain.
// Returns the empty code for nil or unstructured errors.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
