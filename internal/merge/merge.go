package merge

import (
	"errors"
	"fmt"

	"github.com/roach88/linkage/internal/ir"
)

// closures lists, for each base type, the type itself followed by every type
// it converts to, in the graph's declared edge order. Order is priority: the
// first type shared by two closures is the merged type.
var closures = map[ir.BaseType][]ir.BaseType{
	ir.TypeBool:     {ir.TypeBool, ir.TypeInt, ir.TypeBigInt, ir.TypeFloat, ir.TypeDecimal, ir.TypeString},
	ir.TypeInt:      {ir.TypeInt, ir.TypeBigInt, ir.TypeFloat, ir.TypeDecimal, ir.TypeString},
	ir.TypeBigInt:   {ir.TypeBigInt, ir.TypeDecimal, ir.TypeString},
	ir.TypeFloat:    {ir.TypeFloat, ir.TypeDecimal, ir.TypeString},
	ir.TypeDecimal:  {ir.TypeDecimal, ir.TypeString},
	ir.TypeString:   {ir.TypeString},
	ir.TypeDateTime: {ir.TypeDateTime},
	ir.TypeDate:     {ir.TypeDate},
	ir.TypeTime:     {ir.TypeTime},
	ir.TypeBinary:   {ir.TypeBinary},
}

// ErrorCode categorizes merge failures.
type ErrorCode string

const (
	// ErrCodeIncompatibleTypes indicates the two base types share no common type.
	ErrCodeIncompatibleTypes ErrorCode = "INCOMPATIBLE_TYPES"
)

// Error reports a failed merge, naming both operands.
type Error struct {
	Code      ErrorCode
	Left      string
	Right     string
	LeftType  ir.BaseType
	RightType ir.BaseType
}

func (e *Error) Error() string {
	if e.Left != "" || e.Right != "" {
		return fmt.Sprintf("%s: can't merge %s (%s) with %s (%s)", e.Code, e.LeftType, e.Left, e.RightType, e.Right)
	}
	return fmt.Sprintf("%s: can't merge %s with %s", e.Code, e.LeftType, e.RightType)
}

// IsIncompatibleTypes reports whether err is an incompatible-types merge error.
func IsIncompatibleTypes(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeIncompatibleTypes
	}
	return false
}

// CommonBase returns the first base type reachable from both a and b.
func CommonBase(a, b ir.BaseType) (ir.BaseType, bool) {
	if a == b {
		_, known := closures[a]
		return a, known
	}
	reachable := make(map[ir.BaseType]bool, len(closures[b]))
	for _, t := range closures[b] {
		reachable[t] = true
	}
	for _, t := range closures[a] {
		if reachable[t] {
			return t, true
		}
	}
	return ir.TypeUnknown, false
}

// Types merges two descriptors into one that can hold values of both.
func Types(a, b ir.TypeDescriptor) (ir.TypeDescriptor, error) {
	if a == b {
		return a, nil
	}

	base, ok := CommonBase(a.Base, b.Base)
	if !ok {
		return ir.TypeDescriptor{}, &Error{Code: ErrCodeIncompatibleTypes, LeftType: a.Base, RightType: b.Base}
	}

	result := ir.TypeDescriptor{
		Base:  base,
		Text:  a.Text || b.Text,
		Fixed: a.Fixed || b.Fixed,
	}

	// Text columns carry no size.
	if !result.Text {
		result.Size = mergeSizes(a, b)
	}

	if a.DB == b.DB {
		result.DB = a.DB
		if a.Collation == b.Collation {
			result.Collation = a.Collation
		}
	}

	return result, nil
}

func mergeSizes(a, b ir.TypeDescriptor) ir.SizeSpec {
	if a.Size == b.Size {
		return a.Size
	}
	switch {
	case a.Base == ir.TypeDecimal && b.Base == ir.TypeDecimal:
		return mergeDecimalSizes(a.Size, b.Size)
	case a.Base == ir.TypeString && b.Base == ir.TypeDecimal:
		return mergeStringDecimalSizes(a.Size, b.Size)
	case a.Base == ir.TypeDecimal && b.Base == ir.TypeString:
		return mergeStringDecimalSizes(b.Size, a.Size)
	default:
		return largerSize(a.Size, b.Size)
	}
}

// mergeDecimalSizes keeps the wider integer part and the wider fractional
// part. A side without a scale defers to the side that has one.
func mergeDecimalSizes(a, b ir.SizeSpec) ir.SizeSpec {
	if !a.IsSet() {
		return b
	}
	if !b.IsSet() {
		return a
	}

	result := ir.Precision(max(a.Length, b.Length))
	switch {
	case a.HasScale && b.HasScale:
		result.Scale, result.HasScale = max(a.Scale, b.Scale), true
	case a.HasScale:
		result.Scale, result.HasScale = a.Scale, true
	case b.HasScale:
		result.Scale, result.HasScale = b.Scale, true
	}
	return result
}

// mergeStringDecimalSizes sizes a string column that must also hold a
// printed decimal, which needs one extra character for the separator.
func mergeStringDecimalSizes(str, dec ir.SizeSpec) ir.SizeSpec {
	width := func(s ir.SizeSpec) int {
		if s.Kind == ir.SizeNumeric {
			return s.Length + 1
		}
		return s.Length
	}

	switch {
	case str.IsSet() && dec.IsSet():
		return ir.Length(max(width(str), width(dec)))
	case str.IsSet():
		return ir.Length(width(str))
	case dec.IsSet():
		return ir.Length(width(dec))
	}
	return ir.SizeSpec{}
}

func largerSize(a, b ir.SizeSpec) ir.SizeSpec {
	if !a.IsSet() {
		return b
	}
	if !b.IsSet() {
		return a
	}
	if a.Length != b.Length {
		if a.Length > b.Length {
			return a
		}
		return b
	}
	// Equal lengths: prefer the more specific spec so the result does not
	// depend on argument order.
	if a.Scale != b.Scale {
		if a.Scale > b.Scale {
			return a
		}
		return b
	}
	if a.HasScale || a.Kind > b.Kind {
		return a
	}
	return b
}

// Field is a synthesized column able to hold values from two source columns.
type Field struct {
	Name string            `json:"name"`
	Type ir.TypeDescriptor `json:"type"`
}

// Fields merges two named columns. The merged name is override when given,
// otherwise the shared name, otherwise both names joined by an underscore.
func Fields(nameA string, a ir.TypeDescriptor, nameB string, b ir.TypeDescriptor, override string) (Field, error) {
	t, err := Types(a, b)
	if err != nil {
		var me *Error
		if errors.As(err, &me) {
			me.Left, me.Right = nameA, nameB
		}
		return Field{}, err
	}

	name := override
	if name == "" {
		if nameA == nameB {
			name = nameA
		} else {
			name = nameA + "_" + nameB
		}
	}
	return Field{Name: name, Type: t}, nil
}
