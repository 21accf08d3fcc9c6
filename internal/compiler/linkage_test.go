package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/ir"
)

const peopleSrc = `
linkage: people: {
	lhs: {
		uri:      "mysql://localhost/crm"
		table:    "people"
		database: "mysql"
		columns: [
			{name: "id", type: "int", primary_key: true},
			{name: "first_name", type: "varchar(50)", collation: "utf8_general_ci"},
			{name: "age", type: "int"},
		]
	}
	rhs: {
		uri:      "postgres://localhost/billing"
		table:    "customers"
		database: "postgres"
		columns: [
			{name: "cid", type: "bigint", primary_key: true},
			{name: "name", type: "text"},
			{name: "age", type: "integer"},
		]
	}
	results: {uri: "sqlite://results.db", database: "sqlite"}
	tables: matches: "people_matches"
	record_cache_size: 500
	expectations: [
		{must: "lhs.first_name == rhs.name", exactly: true},
		{must_not: "lhs.age < 18"},
		{must_be: "within(lhs.age, 3, rhs.age)"},
	]
	visual_comparisons: [{lhs: "first_name", rhs: "name"}]
}
`

func compilePeople(t *testing.T, src string) (*ir.LinkageSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileLinkage(v.LookupPath(cue.ParsePath("linkage.people")))
}

// =============================================================================
// CompileLinkage Tests
// =============================================================================

func TestCompileLinkageBasic(t *testing.T) {
	spec, err := compilePeople(t, peopleSrc)
	require.NoError(t, err)

	assert.Equal(t, "people", spec.Name)
	assert.Equal(t, "people", spec.LHS.Table)
	assert.Equal(t, ir.DbMySQL, spec.LHS.Database)
	require.Len(t, spec.LHS.Columns, 3)
	assert.True(t, spec.LHS.Columns[0].PrimaryKey)
	assert.Equal(t, "varchar(50)", spec.LHS.Columns[1].DbType)
	assert.Equal(t, "utf8_general_ci", spec.LHS.Columns[1].Collation)

	require.NotNil(t, spec.RHS)
	assert.Equal(t, ir.DbPostgres, spec.RHS.Database)

	require.NotNil(t, spec.Results)
	assert.Equal(t, ir.DbSQLite, spec.Results.Database)

	assert.Equal(t, "people_matches", spec.Tables.Matches)
	assert.Equal(t, "groups", spec.Tables.Groups, "unset table names keep defaults")
	assert.Equal(t, 500, spec.RecordCacheSize)

	require.Len(t, spec.VisualComparison, 1)
	assert.Equal(t, ir.VisualSpec{LHS: "first_name", RHS: "name"}, spec.VisualComparison[0])
}

func TestCompileLinkageExpectations(t *testing.T) {
	spec, err := compilePeople(t, peopleSrc)
	require.NoError(t, err)
	require.Len(t, spec.Expectations, 3)

	must := spec.Expectations[0]
	assert.Equal(t, ir.OpEqual, must.Operator)
	assert.True(t, must.Exactly)
	assert.False(t, must.Negate)
	assert.Equal(t, ir.OperandSpec{Side: ir.SideLHS, Field: "first_name"}, *must.Left)
	assert.Equal(t, ir.OperandSpec{Side: ir.SideRHS, Field: "name"}, *must.Right)
	assert.Greater(t, must.Line, 0)

	mustNot := spec.Expectations[1]
	assert.True(t, mustNot.Negate)
	assert.Equal(t, ir.OpLess, mustNot.Operator)
	assert.Equal(t, int64(18), mustNot.Right.Value)

	within := spec.Expectations[2]
	assert.Equal(t, "within", within.Comparator)
	assert.False(t, within.Negate)
	require.Len(t, within.Args, 3)
	assert.Equal(t, int64(3), within.Args[1].Value)
}

func TestCompileLinkageSelf(t *testing.T) {
	spec, err := compilePeople(t, `
linkage: people: {
	lhs: {
		uri: "sqlite://crm.db", table: "people", database: "sqlite"
		columns: [{name: "id", type: "int", primary_key: true}, {name: "email", type: "text"}]
	}
	expectations: [{must: "lhs.email == rhs.email"}]
}
`)
	require.NoError(t, err)
	assert.Nil(t, spec.RHS)
	assert.Nil(t, spec.Results)
	assert.Equal(t, ir.DefaultTableNames(), spec.Tables)
}

func TestCompileLinkageMissingLHS(t *testing.T) {
	_, err := compilePeople(t, `linkage: people: { expectations: [] }`)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "lhs", compileErr.Field)
}

func TestCompileLinkageMissingExpectations(t *testing.T) {
	_, err := compilePeople(t, `
linkage: people: lhs: {
	uri: "sqlite://crm.db", table: "people", database: "sqlite"
	columns: [{name: "id", type: "int", primary_key: true}]
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expectations are required")
}

func TestCompileLinkageConflictingRuleKeys(t *testing.T) {
	_, err := compilePeople(t, `
linkage: people: {
	lhs: {
		uri: "sqlite://crm.db", table: "people", database: "sqlite"
		columns: [{name: "id", type: "int", primary_key: true}]
	}
	expectations: [{must: "lhs.id == rhs.id", must_not: "lhs.id > 3"}]
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestCompileLinkageMissingRuleKey(t *testing.T) {
	_, err := compilePeople(t, `
linkage: people: {
	lhs: {
		uri: "sqlite://crm.db", table: "people", database: "sqlite"
		columns: [{name: "id", type: "int", primary_key: true}]
	}
	expectations: [{exactly: true}]
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of must")
}

func TestCompileLinkageBadRule(t *testing.T) {
	_, err := compilePeople(t, `
linkage: people: {
	lhs: {
		uri: "sqlite://crm.db", table: "people", database: "sqlite"
		columns: [{name: "id", type: "int", primary_key: true}]
	}
	expectations: [{must: "lhs.id + rhs.id"}]
}
`)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "expectations[0].must", compileErr.Field)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "lhs", Message: "lhs dataset is required"}
	assert.Equal(t, "lhs: lhs dataset is required", err.Error())
}
