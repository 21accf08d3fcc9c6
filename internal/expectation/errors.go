package expectation

import (
	"errors"
	"fmt"
)

// Error reports an invalid expectation. Left and Right describe the
// offending operands when the error concerns them.
type Error struct {
	Code    ErrorCode
	Left    string
	Right   string
	Message string
}

// ErrorCode categorizes expectation errors.
type ErrorCode string

const (
	// ErrCodeBothStatic indicates neither operand depends on a dataset.
	ErrCodeBothStatic ErrorCode = "BOTH_STATIC"

	// ErrCodeConflictingSides indicates two same-side operands from different datasets.
	ErrCodeConflictingSides ErrorCode = "CONFLICTING_SIDES"

	// ErrCodeInvalidOperator indicates an operator outside the accepted set.
	ErrCodeInvalidOperator ErrorCode = "INVALID_OPERATOR"

	// ErrCodeInvalidSide indicates an expectation was applied to a side it
	// has no operand on.
	ErrCodeInvalidSide ErrorCode = "INVALID_SIDE"
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsBothStatic reports whether err rejects an expectation with two static operands.
func IsBothStatic(err error) bool { return hasCode(err, ErrCodeBothStatic) }

// IsConflictingSides reports whether err rejects same-side operands from different datasets.
func IsConflictingSides(err error) bool { return hasCode(err, ErrCodeConflictingSides) }

// IsInvalidOperator reports whether err rejects an unknown operator.
func IsInvalidOperator(err error) bool { return hasCode(err, ErrCodeInvalidOperator) }

// IsInvalidSide reports whether err rejects an application side.
func IsInvalidSide(err error) bool { return hasCode(err, ErrCodeInvalidSide) }
