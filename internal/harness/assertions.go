package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     AssertionType
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions runs every assertion against a built result and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertExpectationKind:
		return assertExpectationKind(result.Plan, a)
	case AssertSchemaColumns:
		return assertSchemaColumns(result.Plan, a)
	case AssertDDLContains:
		return assertContains(a, result.Plan.DDL)
	case AssertQueryContains:
		query := result.LHSQuery
		if a.Side == "rhs" {
			query = result.RHSQuery
		}
		return assertContains(a, []string{query})
	case AssertWarningContains:
		return assertContains(a, result.Warnings)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertExpectationKind(p *ir.Plan, a Assertion) error {
	if a.Index >= len(p.Expectations) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("expectation at index %d", a.Index),
			Actual:   fmt.Sprintf("%d expectations", len(p.Expectations)),
		}
	}
	got := p.Expectations[a.Index]
	if got.Kind != a.Kind {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("kind %s", a.Kind),
			Actual:   fmt.Sprintf("kind %s (%s)", got.Kind, got.Description),
		}
	}
	if a.Field != "" && got.MergedField != a.Field {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("merged field %q", a.Field),
			Actual:   fmt.Sprintf("merged field %q", got.MergedField),
		}
	}
	return nil
}

func assertSchemaColumns(p *ir.Plan, a Assertion) error {
	var cols []ir.Column
	switch a.Table {
	case "groups":
		cols = p.GroupsSchema
	case "scores":
		cols = p.ScoresSchema
	case "matches":
		cols = p.MatchesSchema
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	if strings.Join(names, ",") != strings.Join(a.Columns, ",") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s columns %v", a.Table, a.Columns),
			Actual:   fmt.Sprintf("%s columns %v", a.Table, names),
		}
	}
	return nil
}

func assertContains(a Assertion, haystack []string) error {
	for _, s := range haystack {
		if strings.Contains(s, a.Contains) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("text containing %q", a.Contains),
		Actual:   fmt.Sprintf("%q", haystack),
	}
}
