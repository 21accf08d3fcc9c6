// Package expectation classifies linkage rules and applies them to datasets.
//
// A simple expectation compares two operands with an operator. Classify
// decides how it executes: a Filter restricts one dataset, a Match groups
// both datasets by a merged field. An Exhaustive expectation scores every
// record pair with a comparator.
package expectation

import (
	"fmt"

	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/merge"
	"github.com/roach88/linkage/internal/meta"
)

// Kind is how an expectation executes.
type Kind string

const (
	KindFilter Kind = "filter"
	KindSelf   Kind = "self"
	KindCross  Kind = "cross"
	KindDual   Kind = "dual"
)

// LinkageKind maps a match kind to the linkage kind it implies. Filters
// imply none.
func (k Kind) LinkageKind() (ir.LinkageKind, bool) {
	switch k {
	case KindSelf:
		return ir.LinkageSelf, true
	case KindCross:
		return ir.LinkageCross, true
	case KindDual:
		return ir.LinkageDual, true
	}
	return "", false
}

// Simple is a two-operand expectation. It is implemented only by *Filter
// and *Match.
type Simple interface {
	Kind() Kind
	Operands() (*meta.Object, *meta.Object)
	Operator() ir.Operator

	// Apply restricts or groups handle for the dataset on side.
	Apply(handle *dataset.Handle, side ir.Side) (*dataset.Handle, error)

	// DecollationNeeded reports whether string comparison must ignore the
	// source databases' collations.
	DecollationNeeded() bool

	// SameExceptSide reports whether other compares the same objects with
	// the same operator, regardless of side.
	SameExceptSide(other Simple) bool

	// Exactly makes the comparison byte-wise by wrapping both operands in
	// the binary function. Only the first call has an effect.
	Exactly() error

	String() string

	sealed()
}

// Classify builds the expectation "left op right" of the appropriate kind.
func Classify(left, right *meta.Object, op ir.Operator) (Simple, error) {
	if !ir.ValidOperators[op] {
		return nil, &Error{
			Code:    ErrCodeInvalidOperator,
			Left:    left.String(),
			Right:   right.String(),
			Message: fmt.Sprintf("invalid operator %q", op),
		}
	}

	switch {
	case left.Static() && right.Static():
		return nil, &Error{
			Code:    ErrCodeBothStatic,
			Left:    left.String(),
			Right:   right.String(),
			Message: fmt.Sprintf("%s %s %s compares two static values", left, op, right),
		}
	case left.Static():
		return &Filter{left: left, right: right, op: op, side: right.Side()}, nil
	case right.Static():
		return &Filter{left: left, right: right, op: op, side: left.Side()}, nil
	case left.Side() == right.Side():
		if !meta.DatasetsEqual(left, right) {
			return nil, &Error{
				Code:    ErrCodeConflictingSides,
				Left:    left.String(),
				Right:   right.String(),
				Message: fmt.Sprintf("%s and %s are on the same side but from different datasets", left, right),
			}
		}
		return &Filter{left: left, right: right, op: op, side: left.Side()}, nil
	case meta.ObjectsEqual(left, right):
		return &Match{kind: KindSelf, left: left, right: right, op: op}, nil
	case meta.DatasetsEqual(left, right):
		return &Match{kind: KindCross, left: left, right: right, op: op}, nil
	}
	return &Match{kind: KindDual, left: left, right: right, op: op}, nil
}

func sameExceptSide(a, b Simple) bool {
	al, ar := a.Operands()
	bl, br := b.Operands()
	return a.Operator() == b.Operator() && meta.ObjectsEqual(al, bl) && meta.ObjectsEqual(ar, br)
}

func wrapBinary(left, right *meta.Object) (*meta.Object, *meta.Object, error) {
	l, err := left.Wrap("binary")
	if err != nil {
		return nil, nil, err
	}
	r, err := right.Wrap("binary")
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func describe(left *meta.Object, op ir.Operator, right *meta.Object) string {
	return fmt.Sprintf("%s %s %s", left, op, right)
}

// Filter restricts the dataset on one side.
type Filter struct {
	left, right *meta.Object
	op          ir.Operator
	side        ir.Side
	exact       bool
}

func (f *Filter) sealed() {}

func (f *Filter) Kind() Kind { return KindFilter }

func (f *Filter) Operands() (*meta.Object, *meta.Object) { return f.left, f.right }

func (f *Filter) Operator() ir.Operator { return f.op }

// Side is the side of the dataset the filter restricts.
func (f *Filter) Side() ir.Side { return f.side }

// Apply adds the filter predicate when side is the filter's side and
// returns handle unchanged otherwise.
func (f *Filter) Apply(handle *dataset.Handle, side ir.Side) (*dataset.Handle, error) {
	if side != f.side {
		return handle, nil
	}
	return handle.Filter(f.left, f.op, f.right), nil
}

// DecollationNeeded is always false: filters run inside the source database.
func (f *Filter) DecollationNeeded() bool { return false }

func (f *Filter) SameExceptSide(other Simple) bool { return sameExceptSide(f, other) }

func (f *Filter) Exactly() error {
	if f.exact {
		return nil
	}
	left, right, err := wrapBinary(f.left, f.right)
	if err != nil {
		return err
	}
	f.left, f.right = left, right
	f.exact = true
	return nil
}

func (f *Filter) String() string { return describe(f.left, f.op, f.right) }

// Match groups both datasets by a value that must agree across a record pair.
type Match struct {
	kind        Kind
	left, right *meta.Object
	op          ir.Operator
	exact       bool
	merged      *merge.Field
}

func (m *Match) sealed() {}

func (m *Match) Kind() Kind { return m.kind }

func (m *Match) Operands() (*meta.Object, *meta.Object) { return m.left, m.right }

func (m *Match) Operator() ir.Operator { return m.op }

// MergedField returns the column both operands are stored under. The result
// is computed once.
func (m *Match) MergedField() (merge.Field, error) {
	if m.merged != nil {
		return *m.merged, nil
	}
	f, err := merge.Fields(m.left.Name(), m.left.Type(), m.right.Name(), m.right.Type(), "")
	if err != nil {
		return merge.Field{}, err
	}
	m.merged = &f
	return f, nil
}

// Apply groups handle by the operand on side, aliased to the merged field name.
func (m *Match) Apply(handle *dataset.Handle, side ir.Side) (*dataset.Handle, error) {
	var target *meta.Object
	switch side {
	case m.left.Side():
		target = m.left
	case m.right.Side():
		target = m.right
	default:
		return nil, &Error{Code: ErrCodeInvalidSide, Message: fmt.Sprintf("%s has no operand on side %q", m, side)}
	}

	f, err := m.MergedField()
	if err != nil {
		return nil, err
	}
	return handle.GroupBy(target, f.Name), nil
}

// DecollationNeeded reports whether the merged field is a string whose
// operands differ in collation or source database.
func (m *Match) DecollationNeeded() bool {
	f, err := m.MergedField()
	if err != nil || f.Type.Base != ir.TypeString {
		return false
	}
	lt, rt := m.left.Type(), m.right.Type()
	return lt.Collation != rt.Collation || lt.DB != rt.DB
}

func (m *Match) SameExceptSide(other Simple) bool { return sameExceptSide(m, other) }

// Exactly wraps both operands in the binary function, keeping their sides
// and datasets, and forgets the merged field.
func (m *Match) Exactly() error {
	if m.exact {
		return nil
	}
	left, right, err := wrapBinary(m.left, m.right)
	if err != nil {
		return err
	}
	m.left, m.right = left, right
	m.merged = nil
	m.exact = true
	return nil
}

// IsExact reports whether Exactly has been applied.
func (m *Match) IsExact() bool { return m.exact }

// Warnings describes string comparisons likely to behave differently than
// intended.
func (m *Match) Warnings() []string {
	lt, rt := m.left.Type(), m.right.Type()
	if lt.Base != ir.TypeString || rt.Base != ir.TypeString {
		return nil
	}
	l, r := m.left.Dataset(), m.right.Dataset()
	switch {
	case l.DatabaseKind() != r.DatabaseKind():
		return []string{fmt.Sprintf(
			"comparing string fields %s and %s from different databases (%s vs %s); consider the binary function",
			m.left, m.right, l.DatabaseKind(), r.DatabaseKind())}
	case lt.Collation != rt.Collation:
		return []string{fmt.Sprintf(
			"string fields %s and %s have different collations (%q vs %q); consider exactly",
			m.left, m.right, lt.Collation, rt.Collation)}
	}
	return nil
}

func (m *Match) String() string { return describe(m.left, m.op, m.right) }
