package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/linkage/internal/ir"
)

// ruleKeys are the accepted keys of an expectation entry. Exactly one must
// be present.
var ruleKeys = []string{"must", "must_not", "must_be", "must_not_be"}

// datasetDecl is the CUE shape of a dataset.
type datasetDecl struct {
	URI      string       `json:"uri"`
	Table    string       `json:"table"`
	Database string       `json:"database"`
	Columns  []columnDecl `json:"columns"`
}

type columnDecl struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Collation  string `json:"collation"`
	PrimaryKey bool   `json:"primary_key"`
}

type resultsDecl struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// CompileLinkage parses a CUE value into a LinkageSpec.
//
// The CUE value should be the linkage struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`linkage: people: { lhs: {...}, expectations: [...] }`)
//	spec, err := CompileLinkage(v.LookupPath(cue.ParsePath("linkage.people")))
func CompileLinkage(v cue.Value) (*ir.LinkageSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.LinkageSpec{Tables: ir.DefaultTableNames()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	lhsVal := v.LookupPath(cue.ParsePath("lhs"))
	if !lhsVal.Exists() {
		return nil, &CompileError{Field: "lhs", Message: "lhs dataset is required", Pos: v.Pos()}
	}
	lhs, err := parseDataset(lhsVal)
	if err != nil {
		return nil, err
	}
	spec.LHS = lhs

	// Without rhs the dataset is linked with itself.
	if rhsVal := v.LookupPath(cue.ParsePath("rhs")); rhsVal.Exists() {
		rhs, err := parseDataset(rhsVal)
		if err != nil {
			return nil, err
		}
		spec.RHS = &rhs
	}

	if resVal := v.LookupPath(cue.ParsePath("results")); resVal.Exists() {
		var decl resultsDecl
		if err := resVal.Decode(&decl); err != nil {
			return nil, formatCUEError(err)
		}
		spec.Results = &ir.ResultsSpec{URI: decl.URI, Database: ir.DbKind(decl.Database)}
	}

	if tablesVal := v.LookupPath(cue.ParsePath("tables")); tablesVal.Exists() {
		var t ir.TableNames
		if err := tablesVal.Decode(&t); err != nil {
			return nil, formatCUEError(err)
		}
		mergeTableNames(&spec.Tables, t)
	}

	if sizeVal := v.LookupPath(cue.ParsePath("record_cache_size")); sizeVal.Exists() {
		n, err := sizeVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.RecordCacheSize = int(n)
	}

	spec.Expectations, err = parseExpectations(v)
	if err != nil {
		return nil, err
	}

	if visVal := v.LookupPath(cue.ParsePath("visual_comparisons")); visVal.Exists() {
		var visual []ir.VisualSpec
		if err := visVal.Decode(&visual); err != nil {
			return nil, formatCUEError(err)
		}
		spec.VisualComparison = visual
	}

	return spec, nil
}

func parseDataset(v cue.Value) (ir.DatasetSpec, error) {
	var decl datasetDecl
	if err := v.Decode(&decl); err != nil {
		return ir.DatasetSpec{}, formatCUEError(err)
	}

	ds := ir.DatasetSpec{
		URI:      decl.URI,
		Table:    decl.Table,
		Database: ir.DbKind(decl.Database),
	}
	for _, c := range decl.Columns {
		ds.Columns = append(ds.Columns, ir.ColumnSpec{
			Name:       c.Name,
			DbType:     c.Type,
			Collation:  c.Collation,
			PrimaryKey: c.PrimaryKey,
		})
	}
	return ds, nil
}

func mergeTableNames(dst *ir.TableNames, src ir.TableNames) {
	if src.Groups != "" {
		dst.Groups = src.Groups
	}
	if src.OriginalGroups != "" {
		dst.OriginalGroups = src.OriginalGroups
	}
	if src.Scores != "" {
		dst.Scores = src.Scores
	}
	if src.Matches != "" {
		dst.Matches = src.Matches
	}
}

// parseExpectations extracts the ordered rule list.
func parseExpectations(v cue.Value) ([]ir.ExpectationSpec, error) {
	expVal := v.LookupPath(cue.ParsePath("expectations"))
	if !expVal.Exists() {
		return nil, &CompileError{Field: "expectations", Message: "expectations are required", Pos: v.Pos()}
	}

	iter, err := expVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var exps []ir.ExpectationSpec
	for i := 0; iter.Next(); i++ {
		exp, err := parseExpectation(iter.Value(), fmt.Sprintf("expectations[%d]", i))
		if err != nil {
			return nil, err
		}
		exps = append(exps, exp)
	}
	return exps, nil
}

func parseExpectation(v cue.Value, field string) (ir.ExpectationSpec, error) {
	var key string
	var src string
	for _, k := range ruleKeys {
		kv := v.LookupPath(cue.ParsePath(k))
		if !kv.Exists() {
			continue
		}
		if key != "" {
			return ir.ExpectationSpec{}, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%q and %q are mutually exclusive", key, k),
				Pos:     kv.Pos(),
			}
		}
		s, err := kv.String()
		if err != nil {
			return ir.ExpectationSpec{}, formatCUEError(err)
		}
		key, src = k, s
	}
	if key == "" {
		return ir.ExpectationSpec{}, &CompileError{
			Field:   field,
			Message: "one of must, must_not, must_be or must_not_be is required",
			Pos:     v.Pos(),
		}
	}

	pos := v.Pos()
	exp := ir.ExpectationSpec{
		Negate: strings.HasPrefix(key, "must_not"),
		Line:   pos.Line(),
	}

	var err error
	if strings.HasSuffix(key, "_be") {
		exp.Comparator, exp.Args, err = ParseComparatorRule(src)
	} else {
		var left, right ir.OperandSpec
		left, exp.Operator, right, err = ParseRule(src)
		exp.Left, exp.Right = &left, &right
	}
	if err != nil {
		return ir.ExpectationSpec{}, &CompileError{Field: field + "." + key, Message: err.Error(), Pos: pos}
	}

	if exVal := v.LookupPath(cue.ParsePath("exactly")); exVal.Exists() {
		exact, err := exVal.Bool()
		if err != nil {
			return ir.ExpectationSpec{}, formatCUEError(err)
		}
		exp.Exactly = exact
	}

	return exp, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Report the first error that carries a position.
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
