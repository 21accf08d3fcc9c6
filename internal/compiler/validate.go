package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

// Validation error codes (E200-E299)
const (
	// Dataset errors (E200-E209)
	ErrDatasetIncomplete  = "E200" // missing uri, table, database or columns
	ErrUnknownDatabase    = "E201" // database kind not supported
	ErrPrimaryKeyCount    = "E202" // exactly one primary key column required
	ErrDuplicateColumn    = "E203" // column declared twice
	ErrColumnIncomplete   = "E204" // column without name or type
	ErrInvalidResultsDest = "E205" // results destination incomplete or unknown

	// Expectation errors (E210-E219)
	ErrNoExpectations     = "E210" // at least one expectation required
	ErrUnknownField       = "E211" // operand references an undeclared column
	ErrInvalidOperator    = "E212" // operator not in ==, !=, >, <, >=, <=
	ErrUnknownFunction    = "E213" // function is not registered
	ErrUnknownComparator  = "E214" // comparator is not registered
	ErrMalformedRule      = "E215" // rule neither comparison nor comparator
	ErrArgumentCount      = "E216" // wrong number of arguments
	ErrInvalidSideOperand = "E217" // operand side is neither lhs nor rhs

	// Output errors (E220-E229)
	ErrInvalidCacheSize    = "E220" // record cache size is negative
	ErrDuplicateTableName  = "E221" // two output tables share a name
	ErrEmptyTableName      = "E222" // output table name is empty
	ErrUnknownVisualColumn = "E223" // visual comparison references an undeclared column
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var structValidator = newStructValidator()

// newStructValidator reports field paths by their json names.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var builtinComparators = comparator.NewDefaultRegistry()

// Validate checks a compiled linkage against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(spec *ir.LinkageSpec) []ValidationError {
	return ValidateWith(spec, builtinComparators)
}

// ValidateWith is Validate with a custom comparator registry.
func ValidateWith(spec *ir.LinkageSpec, registry *comparator.Registry) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateDataset("lhs", &spec.LHS)...)
	rhs := &spec.LHS
	if spec.RHS != nil {
		errs = append(errs, validateDataset("rhs", spec.RHS)...)
		rhs = spec.RHS
	}
	sides := map[ir.Side]*ir.DatasetSpec{ir.SideLHS: &spec.LHS, ir.SideRHS: rhs}

	if spec.Results != nil {
		if strings.TrimSpace(spec.Results.URI) == "" || !ir.ValidDbKinds[spec.Results.Database] {
			errs = append(errs, ValidationError{
				Field:   "results",
				Message: fmt.Sprintf("results destination needs a uri and one of mysql, postgres, sqlite (got %q)", spec.Results.Database),
				Code:    ErrInvalidResultsDest,
			})
		}
	}

	// E210: at least one expectation
	if len(spec.Expectations) == 0 {
		errs = append(errs, ValidationError{
			Field:   "expectations",
			Message: "at least one expectation is required",
			Code:    ErrNoExpectations,
		})
	}
	for i, exp := range spec.Expectations {
		errs = append(errs, validateExpectation(fmt.Sprintf("expectations[%d]", i), exp, sides, registry)...)
	}

	// E220: cache size
	if spec.RecordCacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "record_cache_size",
			Message: fmt.Sprintf("record cache size must not be negative, got %d", spec.RecordCacheSize),
			Code:    ErrInvalidCacheSize,
		})
	}

	errs = append(errs, validateTables(spec.Tables)...)

	for i, vc := range spec.VisualComparison {
		field := fmt.Sprintf("visual_comparisons[%d]", i)
		if !hasColumn(&spec.LHS, vc.LHS) {
			errs = append(errs, ValidationError{
				Field:   field + ".lhs",
				Message: fmt.Sprintf("unknown lhs column %q", vc.LHS),
				Code:    ErrUnknownVisualColumn,
			})
		}
		if !hasColumn(rhs, vc.RHS) {
			errs = append(errs, ValidationError{
				Field:   field + ".rhs",
				Message: fmt.Sprintf("unknown rhs column %q", vc.RHS),
				Code:    ErrUnknownVisualColumn,
			})
		}
	}

	return errs
}

// validateDataset checks a dataset declaration.
func validateDataset(prefix string, ds *ir.DatasetSpec) []ValidationError {
	var errs []ValidationError

	if err := structValidator.Struct(ds); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				code := ErrDatasetIncomplete
				if strings.Contains(fe.Namespace(), ".columns[") {
					code = ErrColumnIncomplete
				}
				errs = append(errs, ValidationError{
					Field:   prefix + "." + namespaceField(fe.Namespace()),
					Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
					Code:    code,
				})
			}
		} else {
			errs = append(errs, ValidationError{Field: prefix, Message: err.Error(), Code: ErrDatasetIncomplete})
		}
	}

	// E201: database kind
	if ds.Database != ir.DbNone && !ir.ValidDbKinds[ds.Database] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".database",
			Message: fmt.Sprintf("unknown database %q, must be \"mysql\", \"postgres\", or \"sqlite\"", ds.Database),
			Code:    ErrUnknownDatabase,
		})
	}

	seen := make(map[string]bool)
	primaries := 0
	for i, c := range ds.Columns {
		// E203: duplicate column
		if seen[c.Name] && c.Name != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.columns[%d].name", prefix, i),
				Message: fmt.Sprintf("duplicate column name: %q", c.Name),
				Code:    ErrDuplicateColumn,
			})
		}
		seen[c.Name] = true
		if c.PrimaryKey {
			primaries++
		}
	}

	// E202: exactly one primary key
	if len(ds.Columns) > 0 && primaries != 1 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".columns",
			Message: fmt.Sprintf("exactly one primary key column is required, found %d", primaries),
			Code:    ErrPrimaryKeyCount,
		})
	}

	return errs
}

// namespaceField turns "DatasetSpec.columns[0].name" into "columns[0].name".
func namespaceField(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func validateExpectation(field string, exp ir.ExpectationSpec, sides map[ir.Side]*ir.DatasetSpec, registry *comparator.Registry) []ValidationError {
	var errs []ValidationError

	switch {
	case exp.Comparator != "" && exp.Operator == "":
		desc, ok := registry.Lookup(exp.Comparator)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".comparator",
				Message: fmt.Sprintf("unknown comparator %q", exp.Comparator),
				Code:    ErrUnknownComparator,
				Line:    exp.Line,
			})
		} else if len(exp.Args) != len(desc.Parameters) {
			errs = append(errs, ValidationError{
				Field:   field + ".args",
				Message: fmt.Sprintf("comparator %q takes %d arguments, got %d", exp.Comparator, len(desc.Parameters), len(exp.Args)),
				Code:    ErrArgumentCount,
				Line:    exp.Line,
			})
		}
		for i, a := range exp.Args {
			errs = append(errs, validateOperand(fmt.Sprintf("%s.args[%d]", field, i), a, exp.Line, sides)...)
		}

	case exp.Operator != "" && exp.Comparator == "":
		// E212: operator
		if !ir.ValidOperators[exp.Operator] {
			errs = append(errs, ValidationError{
				Field:   field + ".operator",
				Message: fmt.Sprintf("invalid operator %q", exp.Operator),
				Code:    ErrInvalidOperator,
				Line:    exp.Line,
			})
		}
		if exp.Left == nil || exp.Right == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "comparison needs two operands",
				Code:    ErrMalformedRule,
				Line:    exp.Line,
			})
			break
		}
		errs = append(errs, validateOperand(field+".left", *exp.Left, exp.Line, sides)...)
		errs = append(errs, validateOperand(field+".right", *exp.Right, exp.Line, sides)...)

	default:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "expectation must have exactly one of operator or comparator",
			Code:    ErrMalformedRule,
			Line:    exp.Line,
		})
	}

	return errs
}

func validateOperand(field string, op ir.OperandSpec, line int, sides map[ir.Side]*ir.DatasetSpec) []ValidationError {
	switch {
	case op.IsFunction():
		var errs []ValidationError
		def, ok := meta.LookupFunction(op.Function)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown function %q", op.Function),
				Code:    ErrUnknownFunction,
				Line:    line,
			})
		} else if len(op.Args) != def.Arity {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("function %q takes %d arguments, got %d", op.Function, def.Arity, len(op.Args)),
				Code:    ErrArgumentCount,
				Line:    line,
			})
		}
		for i, a := range op.Args {
			errs = append(errs, validateOperand(fmt.Sprintf("%s.args[%d]", field, i), a, line, sides)...)
		}
		return errs

	case op.IsField():
		ds, ok := sides[op.Side]
		if !ok {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("invalid side %q, must be \"lhs\" or \"rhs\"", op.Side),
				Code:    ErrInvalidSideOperand,
				Line:    line,
			}}
		}
		if !hasColumn(ds, op.Field) {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("unknown column %s.%s", op.Side, op.Field),
				Code:    ErrUnknownField,
				Line:    line,
			}}
		}
	}
	return nil
}

func hasColumn(ds *ir.DatasetSpec, name string) bool {
	for _, c := range ds.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func validateTables(t ir.TableNames) []ValidationError {
	var errs []ValidationError
	names := []struct{ field, name string }{
		{"tables.groups", t.Groups},
		{"tables.original_groups", t.OriginalGroups},
		{"tables.scores", t.Scores},
		{"tables.matches", t.Matches},
	}
	seen := make(map[string]string)
	for _, n := range names {
		if strings.TrimSpace(n.name) == "" {
			errs = append(errs, ValidationError{
				Field:   n.field,
				Message: "table name must be non-empty",
				Code:    ErrEmptyTableName,
			})
			continue
		}
		if prev, ok := seen[n.name]; ok {
			errs = append(errs, ValidationError{
				Field:   n.field,
				Message: fmt.Sprintf("table name %q already used by %s", n.name, prev),
				Code:    ErrDuplicateTableName,
			})
		}
		seen[n.name] = n.field
	}
	return errs
}
