package domain

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeWrapperNotFound   = "WRAPPER_NOT_FOUND"
	ErrCodeExecutionError    = "EXECUTION_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// Sentinel errors for errors.Is checks
var (
	// ErrWrapperNotFound is returned when a wrapper type has no registered constructor
	ErrWrapperNotFound = errors.New("wrapper type not found")

	// ErrToolTimeout is returned when a tool does not finish within its timeout
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrInvalidPlan is returned when an execution plan fails validation
	ErrInvalidPlan = errors.New("invalid execution plan")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewValidationError creates a validation error for a malformed plan
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, ErrInvalidPlan)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewWrapperNotFoundError creates an error for an unregistered wrapper type
func NewWrapperNotFoundError(wrapperType string) error {
	return NewDomainError(ErrCodeWrapperNotFound, fmt.Sprintf("wrapper type not found: %s", wrapperType), ErrWrapperNotFound)
}

// NewExecutionError creates a tool execution error
func NewExecutionError(message string, cause error) error {
	return NewDomainError(ErrCodeExecutionError, message, cause)
}

// NewTimeoutError creates a timeout error for a tool
func NewTimeoutError(tool string, timeoutMs int64) error {
	return NewDomainError(ErrCodeTimeout, fmt.Sprintf("%s timed out after %dms", tool, timeoutMs), ErrToolTimeout)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}
