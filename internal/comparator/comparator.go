// Package comparator provides pluggable record comparators.
//
// A comparator is registered with a Descriptor declaring its parameters and a
// Scorer computing the score of a record pair. Instantiate checks the
// arguments against the parameters and partitions the dynamic ones by side.
package comparator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Staticness constrains whether an argument may depend on a dataset.
type Staticness uint8

const (
	StaticAny Staticness = iota
	StaticOnly
	DynamicOnly
)

// ParamSide constrains which side a dynamic argument comes from, relative to
// the order in which sides first appear among the arguments.
type ParamSide uint8

const (
	SideAny ParamSide = iota
	SideFirst
	SideSecond
)

// ParamSpec describes one comparator parameter.
type ParamSpec struct {
	// Types lists the accepted base types. Ignored when Any is set.
	Types []ir.BaseType
	Any   bool

	// Values restricts literal arguments to an allowed set. Static function
	// calls such as lower("X") are not evaluated and are not checked.
	Values []any

	// SameTypeAs, when set, is the 0-based index of a parameter whose
	// argument must have the same base type.
	SameTypeAs *int

	Static Staticness
	Side   ParamSide
}

// Index returns a pointer to i, for ParamSpec.SameTypeAs.
func Index(i int) *int { return &i }

// Descriptor declares a comparator's name and parameters.
type Descriptor struct {
	Name       string      `validate:"required"`
	Parameters []ParamSpec `validate:"min=1"`
}

// Record is one source row keyed by column name.
type Record map[string]any

// Scorer computes the linkage strength of two records.
type Scorer interface {
	Score(c *Comparator, record1, record2 Record) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(c *Comparator, record1, record2 Record) (float64, error)

func (f ScorerFunc) Score(c *Comparator, record1, record2 Record) (float64, error) {
	return f(c, record1, record2)
}

type entry struct {
	desc   Descriptor
	scorer Scorer
}

// Registry maps comparator names to their descriptors and scorers.
// A Registry is not safe for concurrent registration.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// NewDefaultRegistry returns a registry holding the built-in comparators.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range builtins() {
		if err := r.Register(b.desc, b.scorer); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a comparator, replacing any previous one with the same name.
func (r *Registry) Register(desc Descriptor, scorer Scorer) error {
	if err := validate.Struct(desc); err != nil {
		return &Error{Code: ErrCodeRegistration, Comparator: desc.Name, Message: err.Error()}
	}
	if f, ok := scorer.(ScorerFunc); scorer == nil || (ok && f == nil) {
		return &Error{Code: ErrCodeRegistration, Comparator: desc.Name, Message: "scorer is required"}
	}
	for i, p := range desc.Parameters {
		if p.SameTypeAs != nil && (*p.SameTypeAs < 0 || *p.SameTypeAs >= len(desc.Parameters) || *p.SameTypeAs == i) {
			return &Error{
				Code:       ErrCodeRegistration,
				Comparator: desc.Name,
				Message:    fmt.Sprintf("parameter %d references invalid parameter %d", i+1, *p.SameTypeAs+1),
			}
		}
	}
	r.entries[desc.Name] = entry{desc: desc, scorer: scorer}
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	e, ok := r.entries[name]
	return e.desc, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Comparator is an instantiated comparator bound to its arguments.
type Comparator struct {
	name    string
	scorer  Scorer
	args    []*meta.Object
	lhsArgs []*meta.Object
	rhsArgs []*meta.Object
}

// Instantiate binds a registered comparator to args.
func (r *Registry) Instantiate(name string, args ...*meta.Object) (*Comparator, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &Error{Code: ErrCodeLookup, Comparator: name, Message: "no comparator registered under this name"}
	}
	params := e.desc.Parameters
	if len(args) != len(params) {
		return nil, &Error{
			Code:       ErrCodeArity,
			Comparator: name,
			Message:    fmt.Sprintf("wrong number of arguments (%d for %d)", len(args), len(params)),
		}
	}

	c := &Comparator{name: name, scorer: e.scorer, args: args}
	var firstSide, secondSide ir.Side

	for i, arg := range args {
		p := params[i]
		fail := func(code ErrorCode, format string, a ...any) error {
			return &Error{Code: code, Comparator: name, Arg: i + 1, Message: fmt.Sprintf(format, a...)}
		}

		base := arg.Type().Base
		if !p.Any && !slices.Contains(p.Types, base) {
			return nil, fail(ErrCodeType, "expected type %s, got %s", typeList(p.Types), base)
		}

		if len(p.Values) > 0 && arg.Kind() == meta.KindLiteral {
			v, _ := arg.Value()
			if !containsValue(p.Values, v) {
				return nil, fail(ErrCodeValue, "%s was not one of the expected values: %s", ir.LiteralString(v), valueList(p.Values))
			}
		}

		if p.SameTypeAs != nil {
			other := args[*p.SameTypeAs].Type().Base
			if base != other {
				return nil, fail(ErrCodeType, "%s was expected to have the same type as argument %d (%s)", base, *p.SameTypeAs+1, other)
			}
		}

		switch {
		case p.Static == StaticOnly && !arg.Static():
			return nil, fail(ErrCodeType, "expected to be static")
		case p.Static == DynamicOnly && arg.Static():
			return nil, fail(ErrCodeType, "expected not to be static")
		}

		if arg.Static() {
			continue
		}

		switch {
		case firstSide == ir.SideNone:
			firstSide = arg.Side()
		case arg.Side() != firstSide && secondSide == ir.SideNone:
			secondSide = arg.Side()
		}

		switch p.Side {
		case SideFirst:
			if arg.Side() != firstSide {
				return nil, fail(ErrCodeType, "expected to be on the first side (%s)", firstSide)
			}
		case SideSecond:
			if secondSide == ir.SideNone || arg.Side() != secondSide {
				return nil, fail(ErrCodeType, "expected to be on the second side")
			}
		}

		switch arg.Side() {
		case ir.SideLHS:
			c.lhsArgs = append(c.lhsArgs, arg)
		case ir.SideRHS:
			c.rhsArgs = append(c.rhsArgs, arg)
		}
	}

	return c, nil
}

func (c *Comparator) Name() string { return c.name }

// Args returns all arguments in declaration order.
func (c *Comparator) Args() []*meta.Object { return slices.Clone(c.args) }

// LHSArgs returns the dynamic arguments on the left-hand side.
func (c *Comparator) LHSArgs() []*meta.Object { return slices.Clone(c.lhsArgs) }

// RHSArgs returns the dynamic arguments on the right-hand side.
func (c *Comparator) RHSArgs() []*meta.Object { return slices.Clone(c.rhsArgs) }

// Score returns the linkage strength of a record from the left-hand dataset
// and a record from the right-hand dataset.
func (c *Comparator) Score(record1, record2 Record) (float64, error) {
	return c.scorer.Score(c, record1, record2)
}

// Value extracts the value of arg for the record pair: dynamic arguments read
// the record of their side, literals return their constant.
func (c *Comparator) Value(arg *meta.Object, record1, record2 Record) (any, error) {
	if v, ok := arg.Value(); ok {
		return v, nil
	}
	rec := record1
	if arg.Side() == ir.SideRHS {
		rec = record2
	}
	v, ok := rec[arg.Name()]
	if !ok {
		return nil, fmt.Errorf("%s: record has no value for %s", c.name, arg)
	}
	return v, nil
}

func (c *Comparator) String() string {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = a.String()
	}
	return c.name + "(" + strings.Join(args, ", ") + ")"
}

func containsValue(values []any, v any) bool {
	s := ir.LiteralString(v)
	for _, allowed := range values {
		if ir.LiteralString(allowed) == s {
			return true
		}
	}
	return false
}

func typeList(types []ir.BaseType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, " or ")
}

func valueList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = ir.LiteralString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
