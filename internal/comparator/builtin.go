package comparator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/linkage/internal/ir"
)

var numericTypes = []ir.BaseType{ir.TypeInt, ir.TypeBigInt, ir.TypeFloat, ir.TypeDecimal}

// CompareOperators are the operators accepted by the compare comparator.
var CompareOperators = []any{">", ">=", "<=", "<", "!="}

type builtin struct {
	desc   Descriptor
	scorer Scorer
}

func builtins() []builtin {
	return []builtin{
		{
			desc: Descriptor{
				Name: "compare",
				Parameters: []ParamSpec{
					{Any: true, Static: DynamicOnly, Side: SideFirst},
					{Types: []ir.BaseType{ir.TypeString}, Values: CompareOperators, Static: StaticOnly},
					{Any: true, SameTypeAs: Index(0), Static: DynamicOnly, Side: SideSecond},
				},
			},
			scorer: ScorerFunc(scoreCompare),
		},
		{
			desc: Descriptor{
				Name: "within",
				Parameters: []ParamSpec{
					{Types: numericTypes, Static: DynamicOnly, Side: SideFirst},
					{Types: numericTypes, Static: StaticOnly},
					{Types: numericTypes, SameTypeAs: Index(0), Static: DynamicOnly, Side: SideSecond},
				},
			},
			scorer: ScorerFunc(scoreWithin),
		},
	}
}

// scoreCompare scores 1 when "arg0 op arg2" holds for the pair, else 0.
func scoreCompare(c *Comparator, record1, record2 Record) (float64, error) {
	args := c.args
	left, err := c.Value(args[0], record1, record2)
	if err != nil {
		return 0, err
	}
	right, err := c.Value(args[2], record1, record2)
	if err != nil {
		return 0, err
	}
	opValue, _ := args[1].Value()
	op := ir.Operator(fmt.Sprint(opValue))

	cmp, err := compareValues(left, right, op)
	if err != nil {
		return 0, fmt.Errorf("compare: %w", err)
	}

	var ok bool
	switch op {
	case ir.OpEqual:
		ok = cmp == 0
	case ir.OpNotEqual:
		ok = cmp != 0
	case ir.OpGreater:
		ok = cmp > 0
	case ir.OpGreaterEqual:
		ok = cmp >= 0
	case ir.OpLess:
		ok = cmp < 0
	case ir.OpLessEqual:
		ok = cmp <= 0
	default:
		return 0, fmt.Errorf("compare: unsupported operator %q", op)
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// scoreWithin scores 1 when the two values differ by at most arg1, else 0.
func scoreWithin(c *Comparator, record1, record2 Record) (float64, error) {
	args := c.args
	values := make([]float64, len(args))
	for i, a := range args {
		v, err := c.Value(a, record1, record2)
		if err != nil {
			return 0, err
		}
		f, ok := toFloat(v)
		if !ok {
			return 0, fmt.Errorf("within: argument %d is not numeric: %v", i+1, v)
		}
		values[i] = f
	}
	if math.Abs(values[0]-values[2]) <= values[1] {
		return 1, nil
	}
	return 0, nil
}

// compareValues orders two scalar values. Strings compare after NFC
// normalization. Booleans only support equality operators.
func compareValues(a, b any, op ir.Operator) (int, error) {
	if fa, ok := toFloat(a); ok {
		if _, isString := a.(string); !isString {
			fb, ok := toFloat(b)
			if !ok {
				return 0, fmt.Errorf("cannot compare %T with %T", a, b)
			}
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(norm.NFC.String(av), norm.NFC.String(bv)), nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Compare(bv), nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		if op != ir.OpEqual && op != ir.OpNotEqual {
			return 0, fmt.Errorf("booleans do not support %s", op)
		}
		if av == bv {
			return 0, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("cannot compare values of type %T", a)
}

// toFloat converts numeric values, and decimal strings, to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
