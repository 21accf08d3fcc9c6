// Package plan turns a compiled linkage definition into a configured
// linkage and its execution summary.
//
// Operands of every declaration are resolved concurrently. Declarations are
// then added to the configuration strictly in order, because the linkage
// kind depends on the order in which filters and matches arrive.
package plan

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/expectation"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/linkage"
	"github.com/roach88/linkage/internal/meta"
	"github.com/roach88/linkage/internal/schemasql"
)

// Result is a built linkage.
type Result struct {
	Config *linkage.Configuration
	Plan   *ir.Plan

	// Warnings are non-fatal findings, e.g. decollation forced by
	// mismatched collations.
	Warnings []string

	// LHSQuery and RHSQuery select the datasets with simple expectations
	// applied, rendered with arguments inlined.
	LHSQuery string
	RHSQuery string
}

// DeclarationError reports a rule that could not be added. Nothing from the
// failing rule is committed to the configuration.
type DeclarationError struct {
	Index int
	Line  int
	Rule  string
	Err   error
}

func (e *DeclarationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("expectations[%d] (line %d) %s: %v", e.Index, e.Line, e.Rule, e.Err)
	}
	return fmt.Sprintf("expectations[%d] %s: %v", e.Index, e.Rule, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }

// declaration is a rule with its operands resolved against the datasets.
type declaration struct {
	spec  ir.ExpectationSpec
	left  *meta.Object
	right *meta.Object
	args  []*meta.Object
	err   error
}

// Build configures the linkage described by spec. Comparator rules are
// resolved against registry.
func Build(spec *ir.LinkageSpec, registry *comparator.Registry) (*Result, error) {
	ds1, err := dataset.New(spec.LHS)
	if err != nil {
		return nil, fmt.Errorf("lhs: %w", err)
	}
	var ds2 dataset.Dataset = ds1
	if spec.RHS != nil {
		rhs, err := dataset.New(*spec.RHS)
		if err != nil {
			return nil, fmt.Errorf("rhs: %w", err)
		}
		ds2 = rhs
	}

	conf := linkage.NewConfiguration(ds1, ds2)
	if spec.Results != nil {
		conf.SetResultsDestination(linkage.Destination{URI: spec.Results.URI, Database: spec.Results.Database})
	}
	conf.SetTables(spec.Tables)
	conf.SetRecordCacheSize(spec.RecordCacheSize)

	// A failed declaration commits nothing, so the remaining ones are still
	// applied and every failure is reported.
	var errs []error
	b := linkage.NewBuilder(conf, registry)
	for i, d := range resolveAll(b, spec.Expectations) {
		if err := d.apply(b); err != nil {
			errs = append(errs, &DeclarationError{Index: i, Line: d.spec.Line, Rule: describeSpec(d.spec), Err: err})
		}
	}

	for i, vc := range spec.VisualComparison {
		if err := compareVisually(b, vc); err != nil {
			errs = append(errs, fmt.Errorf("visual_comparisons[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return summarize(spec.Name, conf)
}

func compareVisually(b *linkage.Builder, vc ir.VisualSpec) error {
	lhs, err := b.LHS(vc.LHS)
	if err != nil {
		return err
	}
	rhs, err := b.RHS(vc.RHS)
	if err != nil {
		return err
	}
	return b.CompareVisually(lhs, rhs)
}

// resolveAll resolves operands of every declaration using a bounded pool of
// goroutines. The result is indexed like decls.
func resolveAll(b *linkage.Builder, decls []ir.ExpectationSpec) []declaration {
	out := make([]declaration, len(decls))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, spec := range decls {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = resolve(b, spec)
		}()
	}
	wg.Wait()
	return out
}

func resolve(b *linkage.Builder, spec ir.ExpectationSpec) declaration {
	d := declaration{spec: spec}
	if spec.Comparator != "" {
		for _, a := range spec.Args {
			obj, err := resolveOperand(b, a)
			if err != nil {
				d.err = err
				return d
			}
			d.args = append(d.args, obj)
		}
		return d
	}
	if spec.Left == nil || spec.Right == nil {
		d.err = fmt.Errorf("comparison needs two operands")
		return d
	}
	if d.left, d.err = resolveOperand(b, *spec.Left); d.err != nil {
		return d
	}
	d.right, d.err = resolveOperand(b, *spec.Right)
	return d
}

func resolveOperand(b *linkage.Builder, op ir.OperandSpec) (*meta.Object, error) {
	switch {
	case op.IsFunction():
		args := make([]*meta.Object, 0, len(op.Args))
		for _, a := range op.Args {
			obj, err := resolveOperand(b, a)
			if err != nil {
				return nil, err
			}
			args = append(args, obj)
		}
		return meta.NewFunction(op.Function, args...)
	case op.IsField():
		switch op.Side {
		case ir.SideLHS:
			return b.LHS(op.Field)
		case ir.SideRHS:
			return b.RHS(op.Field)
		}
		return nil, &expectation.Error{
			Code:    expectation.ErrCodeInvalidSide,
			Message: fmt.Sprintf("field %q has invalid side %q", op.Field, op.Side),
		}
	case op.HasValue:
		return meta.NewLiteral(op.Value), nil
	}
	return nil, fmt.Errorf("empty operand")
}

func (d declaration) apply(b *linkage.Builder) error {
	if d.err != nil {
		return d.err
	}
	if d.spec.Comparator != "" {
		if d.spec.Negate {
			return b.MustNotSatisfy(d.spec.Comparator, d.args...)
		}
		return b.MustSatisfy(d.spec.Comparator, d.args...)
	}

	var opts []linkage.Option
	if d.spec.Exactly {
		opts = append(opts, linkage.Exactly())
	}
	if d.spec.Negate {
		return b.MustNot(d.left, d.spec.Operator, d.right, opts...)
	}
	return b.Must(d.left, d.spec.Operator, d.right, opts...)
}

// summarize derives the plan from a finished configuration.
func summarize(name string, conf *linkage.Configuration) (*Result, error) {
	p := &ir.Plan{
		Name:              name,
		Kind:              conf.Kind(),
		DecollationNeeded: conf.DecollationNeeded(),
		Tables:            conf.Tables(),
		MatchesSchema:     conf.MatchesSchema(),
		PlannerVersion:    ir.PlannerVersion,
		IRVersion:         ir.IRVersion,
	}
	res := &Result{Config: conf, Plan: p}

	for _, exp := range conf.SimpleExpectations() {
		pe := ir.PlanExpectation{
			Kind:        string(exp.Kind()),
			Description: exp.String(),
			Decollate:   exp.DecollationNeeded(),
		}
		switch e := exp.(type) {
		case *expectation.Filter:
			pe.Side = e.Side()
		case *expectation.Match:
			f, err := e.MergedField()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e, err)
			}
			pe.MergedField = f.Name
			res.Warnings = append(res.Warnings, e.Warnings()...)
		}
		p.Expectations = append(p.Expectations, pe)
	}
	for _, exp := range conf.ExhaustiveExpectations() {
		p.Expectations = append(p.Expectations, ir.PlanExpectation{
			Kind:        "exhaustive",
			Description: exp.String(),
		})
	}

	ddl := schemasql.NewDDLCompiler(conf.DestinationKind())
	tables := conf.Tables()
	if conf.GroupsTableNeeded() {
		cols, err := conf.GroupsSchema()
		if err != nil {
			return nil, err
		}
		p.GroupsSchema = cols
		if err := appendDDL(p, ddl, tables.Groups, cols); err != nil {
			return nil, err
		}
		if p.DecollationNeeded {
			if err := appendDDL(p, ddl, tables.OriginalGroups, cols); err != nil {
				return nil, err
			}
		}
	}
	if conf.ScoresTableNeeded() {
		p.ScoresSchema = conf.ScoresSchema()
		if err := appendDDL(p, ddl, tables.Scores, p.ScoresSchema); err != nil {
			return nil, err
		}
	}
	if err := appendDDL(p, ddl, tables.Matches, p.MatchesSchema); err != nil {
		return nil, err
	}

	hash, err := ir.PlanHash(p)
	if err != nil {
		return nil, err
	}
	p.Hash = hash

	lhs, rhs, err := conf.DatasetsWithAppliedSimpleExpectations()
	if err != nil {
		return nil, err
	}
	res.LHSQuery, res.RHSQuery = lhs.String(), rhs.String()

	return res, nil
}

func appendDDL(p *ir.Plan, ddl *schemasql.DDLCompiler, table string, cols []ir.Column) error {
	stmt, err := ddl.CreateTable(table, cols)
	if err != nil {
		return err
	}
	p.DDL = append(p.DDL, stmt)
	return nil
}

func describeSpec(s ir.ExpectationSpec) string {
	verb := "must"
	if s.Negate {
		verb = "must_not"
	}
	if s.Comparator != "" {
		return fmt.Sprintf("%s_be %s(%s)", verb, s.Comparator, describeOperands(s.Args))
	}
	var left, right string
	if s.Left != nil {
		left = describeOperand(*s.Left)
	}
	if s.Right != nil {
		right = describeOperand(*s.Right)
	}
	return fmt.Sprintf("%s %s %s %s", verb, left, s.Operator, right)
}

func describeOperands(ops []ir.OperandSpec) string {
	s := ""
	for i, op := range ops {
		if i > 0 {
			s += ", "
		}
		s += describeOperand(op)
	}
	return s
}

func describeOperand(op ir.OperandSpec) string {
	switch {
	case op.IsFunction():
		return op.Function + "(" + describeOperands(op.Args) + ")"
	case op.IsField():
		return string(op.Side) + "." + op.Field
	}
	return ir.LiteralString(op.Value)
}
