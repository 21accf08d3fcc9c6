package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/literal"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/linkage/internal/ir"
)

// ParseRule parses a comparison such as `lower(lhs.name) == rhs.name` or
// `lhs.age > 18`. Rules are CUE expressions: operands are side selectors
// (lhs.col, rhs.col), literals, or function calls over operands.
func ParseRule(src string) (ir.OperandSpec, ir.Operator, ir.OperandSpec, error) {
	expr, err := parser.ParseExpr("rule", src)
	if err != nil {
		return ir.OperandSpec{}, "", ir.OperandSpec{}, fmt.Errorf("parsing %q: %w", src, err)
	}

	bin, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return ir.OperandSpec{}, "", ir.OperandSpec{}, fmt.Errorf("%q is not a comparison", src)
	}
	op := ir.Operator(bin.Op.String())
	if !ir.ValidOperators[op] {
		return ir.OperandSpec{}, "", ir.OperandSpec{}, fmt.Errorf("invalid operator %q in %q", bin.Op, src)
	}

	left, err := parseOperand(bin.X)
	if err != nil {
		return ir.OperandSpec{}, "", ir.OperandSpec{}, err
	}
	right, err := parseOperand(bin.Y)
	if err != nil {
		return ir.OperandSpec{}, "", ir.OperandSpec{}, err
	}
	return left, op, right, nil
}

// ParseComparatorRule parses a comparator call such as
// `within(lhs.age, 3, rhs.age)` into the comparator name and its arguments.
func ParseComparatorRule(src string) (string, []ir.OperandSpec, error) {
	expr, err := parser.ParseExpr("rule", src)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %q: %w", src, err)
	}

	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return "", nil, fmt.Errorf("%q is not a comparator call", src)
	}
	name, ok := call.Fun.(*ast.Ident)
	if !ok {
		return "", nil, fmt.Errorf("%q: comparator must be named", src)
	}

	args := make([]ir.OperandSpec, 0, len(call.Args))
	for _, a := range call.Args {
		op, err := parseOperand(a)
		if err != nil {
			return "", nil, err
		}
		args = append(args, op)
	}
	return name.Name, args, nil
}

func parseOperand(e ast.Expr) (ir.OperandSpec, error) {
	switch x := e.(type) {
	case *ast.SelectorExpr:
		side, ok := x.X.(*ast.Ident)
		if !ok {
			return ir.OperandSpec{}, fmt.Errorf("unsupported field reference at %s", x.Pos())
		}
		s := ir.Side(side.Name)
		if s != ir.SideLHS && s != ir.SideRHS {
			return ir.OperandSpec{}, fmt.Errorf("field references must start with lhs or rhs, got %q", side.Name)
		}
		name, _, err := ast.LabelName(x.Sel)
		if err != nil {
			return ir.OperandSpec{}, fmt.Errorf("invalid field name at %s: %w", x.Pos(), err)
		}
		return ir.OperandSpec{Side: s, Field: name}, nil

	case *ast.CallExpr:
		fn, ok := x.Fun.(*ast.Ident)
		if !ok {
			return ir.OperandSpec{}, fmt.Errorf("unsupported function call at %s", x.Pos())
		}
		spec := ir.OperandSpec{Function: fn.Name}
		for _, a := range x.Args {
			arg, err := parseOperand(a)
			if err != nil {
				return ir.OperandSpec{}, err
			}
			spec.Args = append(spec.Args, arg)
		}
		return spec, nil

	case *ast.BasicLit:
		v, err := literalValue(x, false)
		if err != nil {
			return ir.OperandSpec{}, err
		}
		return ir.OperandSpec{Value: v, HasValue: true}, nil

	case *ast.UnaryExpr:
		lit, ok := x.X.(*ast.BasicLit)
		if !ok || x.Op != token.SUB {
			return ir.OperandSpec{}, fmt.Errorf("unsupported expression %s at %s", x.Op, x.Pos())
		}
		v, err := literalValue(lit, true)
		if err != nil {
			return ir.OperandSpec{}, err
		}
		return ir.OperandSpec{Value: v, HasValue: true}, nil

	case *ast.ParenExpr:
		return parseOperand(x.X)

	case *ast.Ident:
		switch x.Name {
		case "true", "false":
			return ir.OperandSpec{Value: x.Name == "true", HasValue: true}, nil
		}
		return ir.OperandSpec{}, fmt.Errorf("bare identifier %q: use lhs.%s or rhs.%s", x.Name, x.Name, x.Name)
	}
	return ir.OperandSpec{}, fmt.Errorf("unsupported operand at %s", e.Pos())
}

func literalValue(lit *ast.BasicLit, negative bool) (any, error) {
	switch lit.Kind {
	case token.INT:
		s := strings.ReplaceAll(lit.Value, "_", "")
		if negative {
			s = "-" + s
		}
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %s: %w", lit.Value, err)
		}
		return n, nil
	case token.FLOAT:
		s := strings.ReplaceAll(lit.Value, "_", "")
		if negative {
			s = "-" + s
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", lit.Value, err)
		}
		return f, nil
	case token.STRING:
		if negative {
			break
		}
		s, err := literal.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid string %s: %w", lit.Value, err)
		}
		return s, nil
	case token.TRUE, token.FALSE:
		if negative {
			break
		}
		return lit.Kind == token.TRUE, nil
	}
	return nil, fmt.Errorf("unsupported literal %s", lit.Value)
}
