package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the parts of a result that golden files pin down: kind,
// decollation, classified expectations, warnings and DDL. The format is
// line-oriented so that diffs point at the statement that changed.
func Snapshot(result *Result) []byte {
	var buf strings.Builder
	p := result.Plan

	fmt.Fprintf(&buf, "name: %s\n", p.Name)
	fmt.Fprintf(&buf, "kind: %s\n", p.Kind)
	fmt.Fprintf(&buf, "decollation: %t\n", p.DecollationNeeded)

	buf.WriteString("expectations:\n")
	for _, e := range p.Expectations {
		fmt.Fprintf(&buf, "  %s %s", e.Kind, e.Description)
		if e.Side != "" {
			fmt.Fprintf(&buf, " [%s]", e.Side)
		}
		if e.MergedField != "" {
			fmt.Fprintf(&buf, " -> %s", e.MergedField)
		}
		buf.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		buf.WriteString("warnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&buf, "  %s\n", w)
		}
	}

	buf.WriteString("ddl:\n")
	for _, stmt := range p.DDL {
		fmt.Fprintf(&buf, "  %s\n", stmt)
	}
	return []byte(buf.String())
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/<name>.golden.
//
// To create or update golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %s", scenario.Name, strings.Join(result.Errors, "; "))
	}
	if result.Plan == nil {
		return fmt.Errorf("scenario %s built no plan", scenario.Name)
	}

	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
