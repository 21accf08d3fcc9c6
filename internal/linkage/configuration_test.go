package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/comparator"
	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/expectation"
	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/merge"
	"github.com/roach88/linkage/internal/meta"
)

func newDataset(t *testing.T, uri, table string, db ir.DbKind, pkType string) *dataset.Static {
	t.Helper()
	ds, err := dataset.New(ir.DatasetSpec{
		URI:      uri,
		Table:    table,
		Database: db,
		Columns: []ir.ColumnSpec{
			{Name: "id", DbType: pkType, PrimaryKey: true},
			{Name: "name", DbType: "varchar(50)", Collation: "utf8_bin"},
			{Name: "surname", DbType: "varchar(80)", Collation: "utf8_bin"},
			{Name: "age", DbType: "integer"},
			{Name: "born", DbType: "date"},
		},
	})
	require.NoError(t, err)
	return ds
}

func people(t *testing.T) *dataset.Static {
	return newDataset(t, "mysql://crm", "people", ir.DbMySQL, "integer")
}

func customers(t *testing.T) *dataset.Static {
	return newDataset(t, "postgres://shop", "customers", ir.DbPostgres, "bigint")
}

func obj(t *testing.T, ds dataset.Dataset, name string, side ir.Side) *meta.Object {
	t.Helper()
	o, err := meta.NewField(ds, name, side)
	require.NoError(t, err)
	return o
}

func classify(t *testing.T, left, right *meta.Object, op ir.Operator) expectation.Simple {
	t.Helper()
	exp, err := expectation.Classify(left, right, op)
	require.NoError(t, err)
	return exp
}

// =============================================================================
// Linkage kind
// =============================================================================

func TestNewConfigurationKind(t *testing.T) {
	assert.Equal(t, ir.LinkageSelf, NewConfiguration(people(t), people(t)).Kind())
	assert.Equal(t, ir.LinkageDual, NewConfiguration(people(t), customers(t)).Kind())
}

func TestNewConfigurationDefaults(t *testing.T) {
	conf := NewConfiguration(people(t), people(t))
	assert.Equal(t, DefaultRecordCacheSize, conf.RecordCacheSize())
	assert.Equal(t, ir.DefaultTableNames(), conf.Tables())
	assert.False(t, conf.DecollationNeeded())
	assert.False(t, conf.GroupsTableNeeded())
	assert.False(t, conf.ScoresTableNeeded())
	_, ok := conf.ResultsDestination()
	assert.False(t, ok)
	assert.Equal(t, ir.DbMySQL, conf.DestinationKind())
}

func TestIdenticalOppositeFiltersKeepSelf(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(18), ir.OpGreater)))
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds2, "age", ir.SideRHS), meta.NewLiteral(18), ir.OpGreater)))

	assert.Equal(t, ir.LinkageSelf, conf.Kind())
}

func TestDifferingOppositeFiltersEscalateToCross(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(18), ir.OpGreater)))
	assert.Equal(t, ir.LinkageSelf, conf.Kind(), "a filter on one side alone keeps self")

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds2, "age", ir.SideRHS), meta.NewLiteral(30), ir.OpGreater)))
	assert.Equal(t, ir.LinkageCross, conf.Kind())
}

func TestMatchEscalation(t *testing.T) {
	ds1, ds2 := people(t), people(t)

	conf := NewConfiguration(ds1, ds2)
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "name", ir.SideRHS), ir.OpEqual)))
	assert.Equal(t, ir.LinkageSelf, conf.Kind())

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "surname", ir.SideRHS), ir.OpEqual)))
	assert.Equal(t, ir.LinkageCross, conf.Kind())

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), obj(t, ds2, "age", ir.SideRHS), ir.OpEqual)))
	assert.Equal(t, ir.LinkageCross, conf.Kind(), "never downgraded")
}

func TestExhaustiveEscalation(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)

	c, err := comparator.NewDefaultRegistry().Instantiate("within",
		obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(2), obj(t, ds2, "id", ir.SideRHS))
	require.NoError(t, err)
	conf.AddExhaustiveExpectation(expectation.NewExhaustive(c, 1, expectation.ModeEqual))

	assert.Equal(t, ir.LinkageCross, conf.Kind())
	assert.True(t, conf.ScoresTableNeeded())
	assert.Len(t, conf.ExhaustiveExpectations(), 1)
}

func TestRejectedMatchCommitsNothing(t *testing.T) {
	ds1, ds2 := people(t), customers(t)
	conf := NewConfiguration(ds1, ds2)

	err := conf.AddSimpleExpectation(classify(t, obj(t, ds1, "born", ir.SideLHS), obj(t, ds2, "name", ir.SideRHS), ir.OpEqual))
	require.Error(t, err)
	assert.True(t, merge.IsIncompatibleTypes(err))
	assert.Empty(t, conf.SimpleExpectations())
	assert.False(t, conf.GroupsTableNeeded())
}

// =============================================================================
// Decollation
// =============================================================================

func TestDecollationFromExpectation(t *testing.T) {
	ds1, ds2 := people(t), customers(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "name", ir.SideRHS), ir.OpEqual)))
	assert.True(t, conf.DecollationNeeded())
}

func TestDecollationFromResultsDestination(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "name", ir.SideRHS), ir.OpEqual)))
	assert.False(t, conf.DecollationNeeded())

	conf.SetResultsDestination(Destination{URI: "mysql://results", Database: ir.DbMySQL})
	assert.False(t, conf.DecollationNeeded(), "same database keeps collation semantics")

	conf.SetResultsDestination(Destination{URI: "postgres://results", Database: ir.DbPostgres})
	assert.True(t, conf.DecollationNeeded())
	assert.Equal(t, ir.DbPostgres, conf.DestinationKind())
}

func TestFiltersIgnoreResultsDestination(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)
	conf.SetResultsDestination(Destination{URI: "sqlite://results.db", Database: ir.DbSQLite})

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), meta.NewLiteral("Ann"), ir.OpEqual)))
	assert.False(t, conf.DecollationNeeded())
}

// =============================================================================
// Schemas
// =============================================================================

func TestGroupsSchema(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(18), ir.OpGreater)))
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "surname", ir.SideRHS), ir.OpEqual)))

	cols, err := conf.GroupsSchema()
	require.NoError(t, err)
	require.Len(t, cols, 2, "filters add no columns")
	assert.Equal(t, ir.Column{Name: "id", Type: ir.Type(ir.TypeInt), PrimaryKey: true}, cols[0])
	assert.Equal(t, "name_surname", cols[1].Name)
	assert.Equal(t, "utf8_bin", cols[1].Type.Collation)

	conf.SetResultsDestination(Destination{URI: "sqlite://out.db", Database: ir.DbSQLite})
	cols, err = conf.GroupsSchema()
	require.NoError(t, err)
	assert.Empty(t, cols[1].Type.Collation, "collation stripped for another database")
}

func TestScoresAndMatchesSchema(t *testing.T) {
	conf := NewConfiguration(people(t), customers(t))

	scores := conf.ScoresSchema()
	names := make([]string, len(scores))
	for i, c := range scores {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "comparator_id", "record_1_id", "record_2_id", "score"}, names)
	assert.Equal(t, ir.TypeInt, scores[2].Type.Base)
	assert.Equal(t, ir.TypeBigInt, scores[3].Type.Base)

	matches := conf.MatchesSchema()
	require.Len(t, matches, 4)
	assert.True(t, matches[0].PrimaryKey)
	assert.Equal(t, "record_1_id", matches[1].Name)
	assert.Equal(t, "record_2_id", matches[2].Name)
	assert.Equal(t, ir.Column{Name: "total_score", Type: ir.Type(ir.TypeInt)}, matches[3])
}

// =============================================================================
// Applied datasets
// =============================================================================

func TestDatasetsWithAppliedSimpleExpectationsSelf(t *testing.T) {
	ds1, ds2 := people(t), people(t)
	conf := NewConfiguration(ds1, ds2)
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(18), ir.OpGreater)))
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "name", ir.SideLHS), obj(t, ds2, "name", ir.SideRHS), ir.OpEqual)))

	h1, h2, err := conf.DatasetsWithAppliedSimpleExpectations()
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	query, args := h1.Build()
	assert.Equal(t, "SELECT `name` AS `name` FROM `people` WHERE `age` > ? GROUP BY `name`", query)
	assert.Equal(t, []any{18}, args)
}

func TestDatasetsWithAppliedSimpleExpectationsDual(t *testing.T) {
	ds1, ds2 := people(t), customers(t)
	conf := NewConfiguration(ds1, ds2)
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds2, "age", ir.SideRHS), meta.NewLiteral(18), ir.OpGreater)))
	require.NoError(t, conf.AddSimpleExpectation(classify(t, obj(t, ds1, "age", ir.SideLHS), obj(t, ds2, "age", ir.SideRHS), ir.OpEqual)))

	h1, h2, err := conf.DatasetsWithAppliedSimpleExpectations()
	require.NoError(t, err)
	assert.Equal(t, 0, h1.Conditions())
	assert.Equal(t, 1, h2.Conditions())
	assert.Equal(t, []string{"age"}, h1.GroupAliases())
	assert.Equal(t, []string{"age"}, h2.GroupAliases())
}

func TestDatasetsWithAppliedExhaustiveExpectations(t *testing.T) {
	ds1, ds2 := people(t), customers(t)
	conf := NewConfiguration(ds1, ds2)

	c, err := comparator.NewDefaultRegistry().Instantiate("compare",
		obj(t, ds1, "age", ir.SideLHS), meta.NewLiteral(">"), obj(t, ds2, "age", ir.SideRHS))
	require.NoError(t, err)
	conf.AddExhaustiveExpectation(expectation.NewExhaustive(c, 1, expectation.ModeEqual))

	h1, h2, err := conf.DatasetsWithAppliedExhaustiveExpectations()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "age"}, h1.SelectAliases())
	assert.Equal(t, []string{"id", "age"}, h2.SelectAliases())

	query, _ := h2.Build()
	assert.Equal(t, `SELECT "id" AS "id", "age" AS "age" FROM "customers"`, query)
}

// =============================================================================
// Settings
// =============================================================================

func TestVisualComparisons(t *testing.T) {
	ds1, ds2 := people(t), customers(t)
	conf := NewConfiguration(ds1, ds2)

	require.NoError(t, conf.AddVisualComparison(obj(t, ds2, "name", ir.SideRHS), obj(t, ds1, "surname", ir.SideLHS)))
	vc := conf.VisualComparisons()
	require.Len(t, vc, 1)
	assert.Equal(t, ir.SideLHS, vc[0].LHS.Side(), "normalized to lhs first")

	assert.Error(t, conf.AddVisualComparison(obj(t, ds1, "name", ir.SideLHS), obj(t, ds1, "surname", ir.SideLHS)))
	assert.Error(t, conf.AddVisualComparison(obj(t, ds1, "name", ir.SideLHS), meta.NewLiteral("x")))
	assert.Len(t, conf.VisualComparisons(), 1)
}

func TestTablesAndCacheSize(t *testing.T) {
	conf := NewConfiguration(people(t), people(t))

	conf.SetTables(ir.TableNames{Groups: "person_groups", Matches: "person_matches"})
	assert.Equal(t, ir.TableNames{
		Groups:         "person_groups",
		OriginalGroups: "original_groups",
		Scores:         "scores",
		Matches:        "person_matches",
	}, conf.Tables())

	conf.SetRecordCacheSize(500)
	assert.Equal(t, 500, conf.RecordCacheSize())
	conf.SetRecordCacheSize(0)
	assert.Equal(t, 500, conf.RecordCacheSize())
}
