package ir

// LinkageSpec is a compiled linkage definition: two data sources and the
// ordered rules declared between them.
type LinkageSpec struct {
	Name             string            `json:"name"`
	LHS              DatasetSpec       `json:"lhs"`
	RHS              *DatasetSpec      `json:"rhs,omitempty"` // nil links LHS with itself
	Results          *ResultsSpec      `json:"results,omitempty"`
	Tables           TableNames        `json:"tables"`
	RecordCacheSize  int               `json:"record_cache_size,omitempty"`
	Expectations     []ExpectationSpec `json:"expectations"`
	VisualComparison []VisualSpec      `json:"visual_comparisons,omitempty"`
}

// DatasetSpec declares a source table and its columns. Column order is
// declaration order.
type DatasetSpec struct {
	URI      string       `json:"uri" validate:"required"`
	Table    string       `json:"table" validate:"required"`
	Database DbKind       `json:"database" validate:"required"`
	Columns  []ColumnSpec `json:"columns" validate:"min=1,dive"`
}

// ColumnSpec declares one source column.
type ColumnSpec struct {
	Name       string `json:"name" validate:"required"`
	DbType     string `json:"db_type" validate:"required"`
	Collation  string `json:"collation,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

// ResultsSpec describes where linkage results are written.
type ResultsSpec struct {
	URI      string `json:"uri"`
	Database DbKind `json:"database"`
}

// TableNames names the four output relations.
type TableNames struct {
	Groups         string `json:"groups"`
	OriginalGroups string `json:"original_groups"`
	Scores         string `json:"scores"`
	Matches        string `json:"matches"`
}

// DefaultTableNames returns the conventional output table names.
func DefaultTableNames() TableNames {
	return TableNames{
		Groups:         "groups",
		OriginalGroups: "original_groups",
		Scores:         "scores",
		Matches:        "matches",
	}
}

// ExpectationSpec is one declared rule. Exactly one of Operator or
// Comparator is set.
type ExpectationSpec struct {
	// Simple comparison
	Left     *OperandSpec `json:"left,omitempty"`
	Operator Operator     `json:"operator,omitempty"`
	Right    *OperandSpec `json:"right,omitempty"`
	Exactly  bool         `json:"exactly,omitempty"`

	// Comparator rule
	Comparator string        `json:"comparator,omitempty"`
	Args       []OperandSpec `json:"args,omitempty"`

	// Negate turns "must" into "must not".
	Negate bool `json:"negate,omitempty"`
	Line   int  `json:"line,omitempty"`
}

// OperandSpec references a column on one side, a literal, or a function call.
type OperandSpec struct {
	Side     Side          `json:"side,omitempty"`
	Field    string        `json:"field,omitempty"`
	Value    any           `json:"value,omitempty"`
	HasValue bool          `json:"has_value,omitempty"`
	Function string        `json:"function,omitempty"`
	Args     []OperandSpec `json:"args,omitempty"`
}

// IsField reports whether the operand names a column.
func (o OperandSpec) IsField() bool {
	return o.Field != ""
}

// IsFunction reports whether the operand is a function call.
func (o OperandSpec) IsFunction() bool {
	return o.Function != ""
}

// VisualSpec pairs two columns for side-by-side review of matches.
type VisualSpec struct {
	LHS string `json:"lhs"`
	RHS string `json:"rhs"`
}
