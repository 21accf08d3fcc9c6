// Package linkage holds the configuration of a record linkage: the two
// datasets, the expectations declared between them and the output tables
// they imply.
//
// A Configuration starts as a self-linkage when both datasets are the same
// source and as a dual linkage otherwise. Adding expectations may escalate a
// self-linkage to cross or dual; the kind is never downgraded.
package linkage

import (
	"fmt"

	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/expectation"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/meta"
)

// DefaultRecordCacheSize is the number of records held in memory while scoring.
const DefaultRecordCacheSize = 10_000

// Destination is where linkage results are written.
type Destination struct {
	URI      string
	Database ir.DbKind
}

// VisualComparison pairs two operands from opposite sides for display
// alongside matched records.
type VisualComparison struct {
	LHS *meta.Object
	RHS *meta.Object
}

// Configuration is the mutable state of one linkage. It is owned by a single
// goroutine.
type Configuration struct {
	dataset1 dataset.Dataset
	dataset2 dataset.Dataset
	kind     ir.LinkageKind

	simple     []expectation.Simple
	exhaustive []*expectation.Exhaustive
	visual     []VisualComparison

	// Filters recorded per side while the linkage is a self-linkage.
	lhsFilters []expectation.Simple
	rhsFilters []expectation.Simple

	decollationNeeded bool
	results           *Destination
	tables            ir.TableNames
	recordCacheSize   int
}

// NewConfiguration returns an empty configuration linking dataset1 with dataset2.
func NewConfiguration(dataset1, dataset2 dataset.Dataset) *Configuration {
	kind := ir.LinkageDual
	if dataset.Equal(dataset1, dataset2) {
		kind = ir.LinkageSelf
	}
	return &Configuration{
		dataset1:        dataset1,
		dataset2:        dataset2,
		kind:            kind,
		tables:          ir.DefaultTableNames(),
		recordCacheSize: DefaultRecordCacheSize,
	}
}

func (c *Configuration) Dataset1() dataset.Dataset { return c.dataset1 }

func (c *Configuration) Dataset2() dataset.Dataset { return c.dataset2 }

// Kind returns the current linkage kind.
func (c *Configuration) Kind() ir.LinkageKind { return c.kind }

// DecollationNeeded reports whether string values must be compared without
// relying on database collations.
func (c *Configuration) DecollationNeeded() bool { return c.decollationNeeded }

// SimpleExpectations returns the simple expectations in the order added.
func (c *Configuration) SimpleExpectations() []expectation.Simple {
	return append([]expectation.Simple(nil), c.simple...)
}

// ExhaustiveExpectations returns the exhaustive expectations in the order added.
func (c *Configuration) ExhaustiveExpectations() []*expectation.Exhaustive {
	return append([]*expectation.Exhaustive(nil), c.exhaustive...)
}

// VisualComparisons returns the visual comparisons in the order added.
func (c *Configuration) VisualComparisons() []VisualComparison {
	return append([]VisualComparison(nil), c.visual...)
}

// AddSimpleExpectation records exp and escalates the linkage kind if needed.
// A match whose operands cannot be merged is rejected and nothing is recorded.
func (c *Configuration) AddSimpleExpectation(exp expectation.Simple) error {
	if m, ok := exp.(*expectation.Match); ok {
		if _, err := m.MergedField(); err != nil {
			return err
		}
	}

	c.simple = append(c.simple, exp)
	if !c.decollationNeeded && c.decollationNeededFor(exp) {
		c.decollationNeeded = true
	}

	if c.kind != ir.LinkageSelf {
		return nil
	}

	switch e := exp.(type) {
	case *expectation.Filter:
		var these, others *[]expectation.Simple
		switch e.Side() {
		case ir.SideLHS:
			these, others = &c.lhsFilters, &c.rhsFilters
		case ir.SideRHS:
			these, others = &c.rhsFilters, &c.lhsFilters
		default:
			return nil
		}
		*these = append(*these, e)
		// Different filters on the two sides of a self-linkage make the
		// sides different record sets.
		for _, other := range *others {
			if !e.SameExceptSide(other) {
				c.kind = ir.LinkageCross
				break
			}
		}
	case *expectation.Match:
		if k, ok := e.Kind().LinkageKind(); ok {
			c.kind = k
		}
	}
	return nil
}

// AddExhaustiveExpectation records exp and escalates a self-linkage to the
// kind of exp's comparator arguments.
func (c *Configuration) AddExhaustiveExpectation(exp *expectation.Exhaustive) {
	c.exhaustive = append(c.exhaustive, exp)
	if c.kind == ir.LinkageSelf {
		if k, ok := exp.Kind().LinkageKind(); ok {
			c.kind = k
		}
	}
}

// AddVisualComparison records a pair of operands for display. Both must be
// dynamic and on opposite sides.
func (c *Configuration) AddVisualComparison(lhs, rhs *meta.Object) error {
	if lhs.Static() || rhs.Static() {
		return fmt.Errorf("visual comparison requires two data sources, got %s and %s", lhs, rhs)
	}
	if lhs.Side() == rhs.Side() {
		return fmt.Errorf("can't visually compare %s and %s on the same side", lhs, rhs)
	}
	if lhs.Side() == ir.SideRHS {
		lhs, rhs = rhs, lhs
	}
	c.visual = append(c.visual, VisualComparison{LHS: lhs, RHS: rhs})
	return nil
}

// SetResultsDestination sets where results are written and re-evaluates
// whether decollation is needed.
func (c *Configuration) SetResultsDestination(d Destination) {
	c.results = &d
	if c.decollationNeeded {
		return
	}
	for _, exp := range c.simple {
		if c.decollationNeededFor(exp) {
			c.decollationNeeded = true
			return
		}
	}
}

// ResultsDestination returns the results destination, if set.
func (c *Configuration) ResultsDestination() (Destination, bool) {
	if c.results == nil {
		return Destination{}, false
	}
	return *c.results, true
}

// DestinationKind is the database kind results are written to. Without a
// destination, results go to the first dataset's database.
func (c *Configuration) DestinationKind() ir.DbKind {
	if c.results != nil {
		return c.results.Database
	}
	return c.dataset1.DatabaseKind()
}

func (c *Configuration) decollationNeededFor(exp expectation.Simple) bool {
	if exp.DecollationNeeded() {
		return true
	}
	m, ok := exp.(*expectation.Match)
	if !ok || c.results == nil {
		return false
	}
	f, err := m.MergedField()
	if err != nil {
		return false
	}
	dest := c.results.Database
	differ := dest != c.dataset1.DatabaseKind() || dest != c.dataset2.DatabaseKind()
	return f.Type.Base == ir.TypeString && f.Type.Collation != "" && differ
}

// Tables returns the output table names.
func (c *Configuration) Tables() ir.TableNames { return c.tables }

// SetTables renames output tables. Empty names keep their current value.
func (c *Configuration) SetTables(t ir.TableNames) {
	if t.Groups != "" {
		c.tables.Groups = t.Groups
	}
	if t.OriginalGroups != "" {
		c.tables.OriginalGroups = t.OriginalGroups
	}
	if t.Scores != "" {
		c.tables.Scores = t.Scores
	}
	if t.Matches != "" {
		c.tables.Matches = t.Matches
	}
}

func (c *Configuration) RecordCacheSize() int { return c.recordCacheSize }

// SetRecordCacheSize sets the record cache size. Non-positive sizes are ignored.
func (c *Configuration) SetRecordCacheSize(n int) {
	if n > 0 {
		c.recordCacheSize = n
	}
}

// GroupsTableNeeded reports whether any simple expectation was added.
func (c *Configuration) GroupsTableNeeded() bool { return len(c.simple) > 0 }

// ScoresTableNeeded reports whether any exhaustive expectation was added.
func (c *Configuration) ScoresTableNeeded() bool { return len(c.exhaustive) > 0 }
