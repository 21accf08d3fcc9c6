package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/plan"
	"github.com/roach88/linkage/internal/store"
	"github.com/roach88/linkage/internal/testutil"
)

// Harness runs scenarios against a comparator registry.
type Harness struct {
	registry *comparator.Registry
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry runs scenarios against a custom comparator registry.
func WithRegistry(r *comparator.Registry) Option {
	return func(h *Harness) { h.registry = r }
}

// New creates a harness using the built-in comparators unless configured
// otherwise.
func New(opts ...Option) *Harness {
	h := &Harness{registry: comparator.NewDefaultRegistry()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the scenario's CUE files
//  2. Validate the named linkage
//  3. Build its plan
//  4. Save the plan into a fresh in-memory store and read it back
//  5. Check expectations and assertions
//
// The returned error reports harness failures only. A rejected definition
// or a failed assertion is recorded in the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	built, rejection := h.build(scenario)
	if scenario.Expect.Error != "" {
		switch {
		case rejection == "":
			result.AddError(fmt.Sprintf("expected rejection containing %q, but the plan was built", scenario.Expect.Error))
		case !strings.Contains(rejection, scenario.Expect.Error):
			result.AddError(fmt.Sprintf("expected rejection containing %q, got: %s", scenario.Expect.Error, rejection))
		}
		result.Rejection = rejection
		return result, nil
	}
	if rejection != "" {
		result.Rejection = rejection
		result.AddError("definition rejected: " + rejection)
		return result, nil
	}

	result.Plan = built.Plan
	result.Warnings = built.Warnings
	result.LHSQuery = built.LHSQuery
	result.RHSQuery = built.RHSQuery

	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewStepClock()),
		store.WithIDGenerator(&testutil.SequentialIDs{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.SavePlan(ctx, built.Plan, built.Warnings); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	rec, err := st.GetPlan(ctx, built.Plan.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan back: %w", err)
	}
	result.Record = &rec
	if rec.Plan.Hash != built.Plan.Hash {
		result.AddError(fmt.Sprintf("stored plan hash %s differs from built hash %s", rec.Plan.Hash, built.Plan.Hash))
	}

	checkExpect(result, scenario.Expect)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// build loads, validates and plans the scenario's linkage. A non-empty
// rejection describes why no plan could be built.
func (h *Harness) build(scenario *Scenario) (*plan.Result, string) {
	loaded, errs := compiler.LoadFiles(scenario.Specs, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, joinErrors(errs)
	}

	spec, ok := loaded.Lookup(scenario.Linkage)
	if !ok {
		return nil, fmt.Sprintf("linkage %q not found", scenario.Linkage)
	}

	if verrs := compiler.ValidateWith(spec, h.registry); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return nil, joinErrors(errs)
	}

	built, err := plan.Build(spec, h.registry)
	if err != nil {
		return nil, err.Error()
	}
	return built, ""
}

func checkExpect(result *Result, expect Expectation) {
	p := result.Plan
	if expect.Kind != "" && string(p.Kind) != expect.Kind {
		result.AddError(fmt.Sprintf("kind: expected %s, got %s", expect.Kind, p.Kind))
	}
	if expect.Decollation != nil && p.DecollationNeeded != *expect.Decollation {
		result.AddError(fmt.Sprintf("decollation: expected %t, got %t", *expect.Decollation, p.DecollationNeeded))
	}
	if expect.Warnings != nil && len(result.Warnings) != *expect.Warnings {
		result.AddError(fmt.Sprintf("warnings: expected %d, got %d %v", *expect.Warnings, len(result.Warnings), result.Warnings))
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
