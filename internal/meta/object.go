package meta

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownFunction = errors.New("unknown function")
	ErrInvalidSide     = errors.New("invalid side")
	ErrArgumentCount   = errors.New("wrong number of function arguments")
	ErrArgumentType    = errors.New("invalid function argument type")
	ErrMixedOperands   = errors.New("function arguments span more than one dataset or side")
)

// Kind discriminates what an Object wraps.
type Kind uint8

const (
	KindField Kind = iota + 1
	KindFunction
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFunction:
		return "function"
	case KindLiteral:
		return "literal"
	}
	return "unknown"
}

// Object is an operand of a rule. Objects are immutable.
type Object struct {
	kind  Kind
	field dataset.Field
	fn    *FunctionDef
	args  []*Object
	value any

	side ir.Side
	ds   dataset.Dataset
}

// NewField wraps the named column of ds on the given side.
func NewField(ds dataset.Dataset, name string, side ir.Side) (*Object, error) {
	if side != ir.SideLHS && side != ir.SideRHS {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	f, ok := ds.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, ds.Table(), name)
	}
	return &Object{kind: KindField, field: f, side: side, ds: ds}, nil
}

// NewLiteral wraps a constant value.
func NewLiteral(v any) *Object {
	return &Object{kind: KindLiteral, value: v}
}

// NewFunction applies a derived function. The result is static when every
// argument is static; otherwise all dynamic arguments must share a side and a
// dataset, which the result inherits.
func NewFunction(name string, args ...*Object) (*Object, error) {
	def, ok := LookupFunction(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	if len(args) != def.Arity {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArgumentCount, name, def.Arity, len(args))
	}

	obj := &Object{kind: KindFunction, fn: def, args: args}
	for i, a := range args {
		if !def.accepts(a.Type().Base) {
			return nil, fmt.Errorf("%w: %s argument %d is %s", ErrArgumentType, name, i, a.Type().Base)
		}
		if a.Static() {
			continue
		}
		if obj.ds == nil {
			obj.side, obj.ds = a.side, a.ds
			continue
		}
		if a.side != obj.side || !dataset.Equal(a.ds, obj.ds) {
			return nil, fmt.Errorf("%w: %s", ErrMixedOperands, name)
		}
	}
	return obj, nil
}

// Wrap applies a single-argument function to o, keeping its side and dataset.
func (o *Object) Wrap(name string) (*Object, error) {
	return NewFunction(name, o)
}

func (o *Object) Kind() Kind { return o.kind }

// Static reports whether the object is independent of any dataset.
func (o *Object) Static() bool { return o.ds == nil }

func (o *Object) Side() ir.Side { return o.side }

func (o *Object) Dataset() dataset.Dataset { return o.ds }

// Field returns the wrapped column for field objects.
func (o *Object) Field() (dataset.Field, bool) {
	return o.field, o.kind == KindField
}

// Value returns the constant for literal objects.
func (o *Object) Value() (any, bool) {
	return o.value, o.kind == KindLiteral
}

// FunctionName returns the function name for function objects.
func (o *Object) FunctionName() (string, bool) {
	if o.kind != KindFunction {
		return "", false
	}
	return o.fn.Name, true
}

// Args returns the arguments of a function object.
func (o *Object) Args() []*Object {
	out := make([]*Object, len(o.args))
	copy(out, o.args)
	return out
}

// Name is the column name a value of this object would be stored under.
func (o *Object) Name() string {
	switch o.kind {
	case KindField:
		return o.field.Name()
	case KindFunction:
		parts := []string{o.fn.Name}
		for _, a := range o.args {
			parts = append(parts, a.Name())
		}
		return strings.Join(parts, "_")
	}
	return fmt.Sprintf("%v", o.value)
}

// Type returns the semantic type of the object's values.
func (o *Object) Type() ir.TypeDescriptor {
	switch o.kind {
	case KindField:
		return o.field.Type()
	case KindFunction:
		types := make([]ir.TypeDescriptor, len(o.args))
		for i, a := range o.args {
			types[i] = a.Type()
		}
		return o.fn.result(types)
	}
	return literalType(o.value)
}

// Key identifies the underlying object independent of side.
func (o *Object) Key() string {
	switch o.kind {
	case KindField:
		return o.field.DatasetID() + "." + o.field.Name()
	case KindFunction:
		keys := make([]string, len(o.args))
		for i, a := range o.args {
			keys[i] = a.Key()
		}
		return o.fn.Name + "(" + strings.Join(keys, ",") + ")"
	}
	return fmt.Sprintf("%T:%s", o.value, ir.LiteralString(o.value))
}

// String describes the object for plan output, e.g. lhs.name or lower(rhs.name).
func (o *Object) String() string {
	switch o.kind {
	case KindField:
		return string(o.side) + "." + o.field.Name()
	case KindFunction:
		args := make([]string, len(o.args))
		for i, a := range o.args {
			args[i] = a.String()
		}
		return o.fn.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return ir.LiteralString(o.value)
}

// SQL renders the object as a value expression.
func (o *Object) SQL(flavor sqlbuilder.Flavor, bind func(any) string) string {
	switch o.kind {
	case KindField:
		return flavor.Quote(o.field.Name())
	case KindFunction:
		args := make([]string, len(o.args))
		for i, a := range o.args {
			args[i] = a.SQL(flavor, bind)
		}
		return o.fn.render(flavor, args)
	}
	return bind(o.value)
}

// ObjectsEqual reports whether a and b wrap the same underlying object,
// ignoring side.
func ObjectsEqual(a, b *Object) bool {
	return a.Key() == b.Key()
}

// DatasetsEqual reports whether a and b are dynamic objects from the same dataset.
func DatasetsEqual(a, b *Object) bool {
	return dataset.Equal(a.ds, b.ds)
}

func literalType(v any) ir.TypeDescriptor {
	switch val := v.(type) {
	case bool:
		return ir.Type(ir.TypeBool)
	case int:
		return intType(int64(val))
	case int32, int16, int8, uint8, uint16:
		return ir.Type(ir.TypeInt)
	case int64:
		return intType(val)
	case uint32, uint64, uint:
		return ir.Type(ir.TypeBigInt)
	case float32, float64:
		return ir.Type(ir.TypeFloat)
	case string:
		return ir.Type(ir.TypeString)
	case time.Time:
		return ir.Type(ir.TypeDateTime)
	case []byte:
		return ir.Type(ir.TypeBinary)
	}
	return ir.Type(ir.TypeUnknown)
}

func intType(n int64) ir.TypeDescriptor {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return ir.Type(ir.TypeBigInt)
	}
	return ir.Type(ir.TypeInt)
}
