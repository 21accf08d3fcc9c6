package linkage

import (
	"github.com/roach88/linkage/internal/expectation"
	"github.com/roach88/linkage/internal/ir"
)

func idColumn() ir.Column {
	return ir.Column{Name: "id", Type: ir.Type(ir.TypeInt), PrimaryKey: true}
}

func recordIDColumns(c *Configuration) []ir.Column {
	return []ir.Column{
		{Name: "record_1_id", Type: c.dataset1.PrimaryKey().Type()},
		{Name: "record_2_id", Type: c.dataset2.PrimaryKey().Type()},
	}
}

// GroupsSchema returns the groups table columns: an id followed by one
// merged field per match. Collation is dropped from merged fields whose
// database differs from the results database.
func (c *Configuration) GroupsSchema() ([]ir.Column, error) {
	cols := []ir.Column{idColumn()}
	dest := c.DestinationKind()
	for _, exp := range c.simple {
		m, ok := exp.(*expectation.Match)
		if !ok {
			continue
		}
		f, err := m.MergedField()
		if err != nil {
			return nil, err
		}
		t := f.Type
		if t.DB != dest {
			t = t.WithoutCollation()
		}
		cols = append(cols, ir.Column{Name: f.Name, Type: t})
	}
	return cols, nil
}

// ScoresSchema returns the scores table columns.
func (c *Configuration) ScoresSchema() []ir.Column {
	cols := []ir.Column{idColumn(), {Name: "comparator_id", Type: ir.Type(ir.TypeInt)}}
	cols = append(cols, recordIDColumns(c)...)
	return append(cols, ir.Column{Name: "score", Type: ir.Type(ir.TypeInt)})
}

// MatchesSchema returns the matches table columns.
func (c *Configuration) MatchesSchema() []ir.Column {
	cols := []ir.Column{idColumn()}
	cols = append(cols, recordIDColumns(c)...)
	return append(cols, ir.Column{Name: "total_score", Type: ir.Type(ir.TypeInt)})
}
