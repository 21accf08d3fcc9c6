package harness

import (
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/store"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Plan is nil when the definition was rejected.
	Plan     *ir.Plan `json:"plan,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	LHSQuery string   `json:"lhs_query,omitempty"`
	RHSQuery string   `json:"rhs_query,omitempty"`

	// Rejection is the load, validation or build error, if any.
	Rejection string `json:"rejection,omitempty"`

	// Record is the plan as read back from the store.
	Record *store.Record `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
