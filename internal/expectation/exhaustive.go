package expectation

import (
	"fmt"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

// Mode decides how a pair's score is checked against the threshold.
type Mode string

const (
	// ModeEqual requires the score to equal the threshold.
	ModeEqual Mode = "equal"

	// ModeMin requires the score to be at least the threshold.
	ModeMin Mode = "min"
)

// ValidModes lists the accepted modes.
var ValidModes = map[Mode]bool{ModeEqual: true, ModeMin: true}

// Exhaustive scores every record pair with a comparator.
type Exhaustive struct {
	comparator *comparator.Comparator
	threshold  float64
	mode       Mode
}

// NewExhaustive builds an exhaustive expectation. An empty mode means ModeEqual.
func NewExhaustive(c *comparator.Comparator, threshold float64, mode Mode) *Exhaustive {
	if mode == "" {
		mode = ModeEqual
	}
	return &Exhaustive{comparator: c, threshold: threshold, mode: mode}
}

func (e *Exhaustive) Comparator() *comparator.Comparator { return e.comparator }

func (e *Exhaustive) Threshold() float64 { return e.threshold }

func (e *Exhaustive) Mode() Mode { return e.mode }

// Kind classifies the comparator's arguments: Self when the left-hand and
// right-hand arguments wrap the same objects pairwise, Cross when all
// arguments come from one dataset, Dual otherwise.
func (e *Exhaustive) Kind() Kind {
	lhs, rhs := e.comparator.LHSArgs(), e.comparator.RHSArgs()

	if len(lhs) == len(rhs) && len(lhs) > 0 {
		self := true
		for i := range lhs {
			if !meta.ObjectsEqual(lhs[i], rhs[i]) {
				self = false
				break
			}
		}
		if self {
			return KindSelf
		}
	}

	dynamic := append(lhs, rhs...)
	for i := 1; i < len(dynamic); i++ {
		if !meta.DatasetsEqual(dynamic[0], dynamic[i]) {
			return KindDual
		}
	}
	return KindCross
}

// Apply selects the comparator's arguments on side so they can be scored.
func (e *Exhaustive) Apply(handle *dataset.Handle, side ir.Side) (*dataset.Handle, error) {
	var args []*meta.Object
	switch side {
	case ir.SideLHS:
		args = e.comparator.LHSArgs()
	case ir.SideRHS:
		args = e.comparator.RHSArgs()
	default:
		return nil, &Error{Code: ErrCodeInvalidSide, Message: fmt.Sprintf("invalid side %q", side)}
	}
	for _, a := range args {
		handle = handle.Select(a, a.Name())
	}
	return handle, nil
}

// Score scores a record pair.
func (e *Exhaustive) Score(record1, record2 comparator.Record) (float64, error) {
	return e.comparator.Score(record1, record2)
}

// Satisfied reports whether score passes the threshold.
func (e *Exhaustive) Satisfied(score float64) bool {
	if e.mode == ModeMin {
		return score >= e.threshold
	}
	return score == e.threshold
}

func (e *Exhaustive) String() string {
	return fmt.Sprintf("%s %s %g", e.comparator, e.mode, e.threshold)
}
