package comparator

import (
	"errors"
	"fmt"
)

// Error reports a failed registration, lookup or instantiation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Comparator is the comparator name involved.
	Comparator string

	// Arg is the 1-based index of the offending argument, or 0.
	Arg int

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes comparator errors.
type ErrorCode string

const (
	// ErrCodeRegistration indicates an invalid descriptor or scorer.
	ErrCodeRegistration ErrorCode = "REGISTRATION"

	// ErrCodeLookup indicates no comparator is registered under the name.
	ErrCodeLookup ErrorCode = "LOOKUP"

	// ErrCodeArity indicates the argument count differs from the parameter count.
	ErrCodeArity ErrorCode = "ARITY"

	// ErrCodeType indicates an argument of the wrong type, staticness or side.
	ErrCodeType ErrorCode = "TYPE"

	// ErrCodeValue indicates a literal argument outside the allowed values.
	ErrCodeValue ErrorCode = "VALUE"
)

func (e *Error) Error() string {
	if e.Arg > 0 {
		return fmt.Sprintf("%s: %s argument %d: %s", e.Code, e.Comparator, e.Arg, e.Message)
	}
	if e.Comparator != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Comparator, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsRegistrationError reports whether err is a registration error.
func IsRegistrationError(err error) bool { return hasCode(err, ErrCodeRegistration) }

// IsLookupError reports whether err is an unknown-comparator error.
func IsLookupError(err error) bool { return hasCode(err, ErrCodeLookup) }

// IsArityError reports whether err is an argument count error.
func IsArityError(err error) bool { return hasCode(err, ErrCodeArity) }

// IsTypeError reports whether err is an argument type, staticness or side error.
func IsTypeError(err error) bool { return hasCode(err, ErrCodeType) }

// IsValueError reports whether err is a disallowed literal value error.
func IsValueError(err error) bool { return hasCode(err, ErrCodeValue) }
