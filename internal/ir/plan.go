package ir

// Plan is the execution-ready summary of a configured linkage.
type Plan struct {
	Name              string            `json:"name"`
	Hash              string            `json:"hash"`
	Kind              LinkageKind       `json:"kind"`
	DecollationNeeded bool              `json:"decollation_needed"`
	Expectations      []PlanExpectation `json:"expectations"`
	Tables            TableNames        `json:"tables"`
	GroupsSchema      []Column          `json:"groups_schema,omitempty"`
	ScoresSchema      []Column          `json:"scores_schema,omitempty"`
	MatchesSchema     []Column          `json:"matches_schema"`
	DDL               []string          `json:"ddl"`
	PlannerVersion    string            `json:"planner_version"`
	IRVersion         string            `json:"ir_version"`
}

// PlanExpectation describes one classified rule.
type PlanExpectation struct {
	Kind        string `json:"kind"` // filter, self, cross, dual, exhaustive
	Description string `json:"description"`
	Side        Side   `json:"side,omitempty"`
	MergedField string `json:"merged_field,omitempty"`
	Decollate   bool   `json:"decollate,omitempty"`
}

// canonical converts the plan to IR values for hashing. The hash field is
// excluded so that it can be derived from the rest.
func (p *Plan) canonical() IRObject {
	exps := make(IRArray, len(p.Expectations))
	for i, e := range p.Expectations {
		exps[i] = IRObject{
			"kind":         IRString(e.Kind),
			"description":  IRString(e.Description),
			"side":         IRString(string(e.Side)),
			"merged_field": IRString(e.MergedField),
			"decollate":    IRBool(e.Decollate),
		}
	}
	ddl := make(IRArray, len(p.DDL))
	for i, stmt := range p.DDL {
		ddl[i] = IRString(stmt)
	}
	return IRObject{
		"name":               IRString(p.Name),
		"kind":               IRString(string(p.Kind)),
		"decollation_needed": IRBool(p.DecollationNeeded),
		"expectations":       exps,
		"tables": IRObject{
			"groups":          IRString(p.Tables.Groups),
			"original_groups": IRString(p.Tables.OriginalGroups),
			"scores":          IRString(p.Tables.Scores),
			"matches":         IRString(p.Tables.Matches),
		},
		"groups_schema":   columnsToIR(p.GroupsSchema),
		"scores_schema":   columnsToIR(p.ScoresSchema),
		"matches_schema":  columnsToIR(p.MatchesSchema),
		"ddl":             ddl,
		"planner_version": IRString(p.PlannerVersion),
		"ir_version":      IRString(p.IRVersion),
	}
}

func columnsToIR(cols []Column) IRArray {
	arr := make(IRArray, len(cols))
	for i, c := range cols {
		arr[i] = IRObject{
			"name":        IRString(c.Name),
			"type":        IRString(c.Type.String()),
			"primary_key": IRBool(c.PrimaryKey),
		}
	}
	return arr
}

// Canonical returns the canonical JSON encoding of the plan without its hash.
func (p *Plan) Canonical() ([]byte, error) {
	return MarshalCanonical(p.canonical())
}
