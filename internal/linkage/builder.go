package linkage

import (
	"fmt"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/expectation"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

// Builder declares expectations on a Configuration the way a linkage
// definition reads: "lhs.name must == rhs.name", "lhs.age must_not > 65".
type Builder struct {
	conf     *Configuration
	registry *comparator.Registry
}

// NewBuilder returns a builder adding to conf. Comparator expectations are
// resolved against registry.
func NewBuilder(conf *Configuration, registry *comparator.Registry) *Builder {
	return &Builder{conf: conf, registry: registry}
}

// Configuration returns the configuration being built.
func (b *Builder) Configuration() *Configuration { return b.conf }

// LHS references a column of the first dataset.
func (b *Builder) LHS(name string) (*meta.Object, error) {
	return meta.NewField(b.conf.dataset1, name, ir.SideLHS)
}

// RHS references a column of the second dataset.
func (b *Builder) RHS(name string) (*meta.Object, error) {
	return meta.NewField(b.conf.dataset2, name, ir.SideRHS)
}

// Option adjusts a simple expectation before it is added.
type Option func(exp expectation.Simple) error

// Exactly compares the operands byte-wise.
func Exactly() Option {
	return func(exp expectation.Simple) error {
		return exp.Exactly()
	}
}

// Must declares that "left op right" holds for linked records.
func (b *Builder) Must(left *meta.Object, op ir.Operator, right *meta.Object, opts ...Option) error {
	return b.compare(false, left, op, right, opts)
}

// MustNot declares that "left op right" does not hold for linked records.
func (b *Builder) MustNot(left *meta.Object, op ir.Operator, right *meta.Object, opts ...Option) error {
	return b.compare(true, left, op, right, opts)
}

func (b *Builder) compare(negate bool, left *meta.Object, op ir.Operator, right *meta.Object, opts []Option) error {
	if !ir.ValidOperators[op] {
		return &expectation.Error{Code: expectation.ErrCodeInvalidOperator, Message: fmt.Sprintf("invalid operator %q", op)}
	}

	// Ordering two columns from opposite sides can't be done by grouping,
	// so every pair is scored instead.
	if !left.Static() && !right.Static() && left.Side() != right.Side() && op != ir.OpEqual {
		if len(opts) > 0 {
			return fmt.Errorf("%s %s %s: options apply only to grouped or filtered comparisons", left, op, right)
		}
		c, err := b.registry.Instantiate("compare", left, meta.NewLiteral(string(op)), right)
		if err != nil {
			return err
		}
		b.conf.AddExhaustiveExpectation(expectation.NewExhaustive(c, threshold(negate), expectation.ModeEqual))
		return nil
	}

	if negate {
		op = op.Negate()
	}
	exp, err := expectation.Classify(left, right, op)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		if err := opt(exp); err != nil {
			return err
		}
	}
	return b.conf.AddSimpleExpectation(exp)
}

// MustSatisfy declares that the named comparator scores linked records 1.
// The arguments are passed to the comparator in order.
func (b *Builder) MustSatisfy(name string, args ...*meta.Object) error {
	return b.satisfy(false, name, args)
}

// MustNotSatisfy declares that the named comparator scores linked records 0.
func (b *Builder) MustNotSatisfy(name string, args ...*meta.Object) error {
	return b.satisfy(true, name, args)
}

func (b *Builder) satisfy(negate bool, name string, args []*meta.Object) error {
	c, err := b.registry.Instantiate(name, args...)
	if err != nil {
		return err
	}
	b.conf.AddExhaustiveExpectation(expectation.NewExhaustive(c, threshold(negate), expectation.ModeEqual))
	return nil
}

// CompareVisually shows lhs and rhs side by side when reviewing matches.
func (b *Builder) CompareVisually(lhs, rhs *meta.Object) error {
	return b.conf.AddVisualComparison(lhs, rhs)
}

func threshold(negate bool) float64 {
	if negate {
		return 0
	}
	return 1
}
