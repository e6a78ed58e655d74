package hydra

import (
	"errors"
	"fmt"
)

// =====================================
// Error Handling
// =====================================

// Error represents a hydration error.
// Entity and Field identify where the problem was detected, when known.
type Error struct {
	Type    ErrorType
	Message string
	Entity  string
	Field   string
	Cause   error
}

// Error implements the error interface
func (e Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	switch {
	case e.Entity != "" && e.Field != "":
		msg += fmt.Sprintf(" [%s.%s]", e.Entity, e.Field)
	case e.Entity != "":
		msg += fmt.Sprintf(" [%s]", e.Entity)
	case e.Field != "":
		msg += fmt.Sprintf(" [%s]", e.Field)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e Error) Is(target error) bool {
	if t, ok := target.(Error); ok {
		return e.Type == t.Type
	}
	return false
}

// NewError creates a new Error
func NewError(errorType ErrorType, message string) Error {
	return Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error with a cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) Error {
	return Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func configurationError(entity, field, format string, args ...interface{}) Error {
	return Error{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf(format, args...),
		Entity:  entity,
		Field:   field,
	}
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return IsErrorType(err, ErrorTypeConfiguration)
}

// IsParse checks if an error is a parse error
func IsParse(err error) bool {
	return IsErrorType(err, ErrorTypeParse)
}

// IsStore checks if an error was raised by an entity store
func IsStore(err error) bool {
	return IsErrorType(err, ErrorTypeStore)
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var e Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}
