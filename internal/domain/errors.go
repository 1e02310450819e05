package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeProvider   ErrorType = "provider"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeConfig     ErrorType = "config"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeInput, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func ProviderError(message string, err error) *DomainError {
	return NewError(ErrorTypeProvider, message, err)
}

func OutputError(message string, err error) *DomainError {
	return NewError(ErrorTypeOutput, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// TypeOf returns the type of the outermost DomainError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type, true
	}
	return "", false
}

// IsType reports whether err carries a DomainError of the given type
func IsType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// Process exit codes
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInput    = 2
	ExitProvider = 3
	ExitOutput   = 4
)

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	t, ok := TypeOf(err)
	if !ok {
		return ExitFailure
	}
	switch t {
	case ErrorTypeInput, ErrorTypeExtraction:
		return ExitInput
	case ErrorTypeProvider, ErrorTypeConfig:
		return ExitProvider
	case ErrorTypeOutput:
		return ExitOutput
	default:
		return ExitFailure
	}
}
