package dataset

import (
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/ir"
)

func peopleSpec(db ir.DbKind) ir.DatasetSpec {
	return ir.DatasetSpec{
		URI:      "postgres://localhost/crm",
		Table:    "people",
		Database: db,
		Columns: []ir.ColumnSpec{
			{Name: "id", DbType: "integer", PrimaryKey: true},
			{Name: "name", DbType: "varchar(100)", Collation: "C"},
			{Name: "age", DbType: "int"},
		},
	}
}

// col renders as a quoted column reference.
type col string

func (c col) SQL(flavor sqlbuilder.Flavor, _ func(any) string) string {
	return flavor.Quote(string(c))
}

// lit renders as a bound argument.
type lit struct{ v any }

func (l lit) SQL(_ sqlbuilder.Flavor, bind func(any) string) string {
	return bind(l.v)
}

// =============================================================================
// Static datasets
// =============================================================================

func TestNewStatic(t *testing.T) {
	ds, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/crm#people", ds.ID())
	assert.Equal(t, "people", ds.Table())
	assert.Equal(t, ir.DbPostgres, ds.DatabaseKind())
	assert.Equal(t, "id", ds.PrimaryKey().Name())
	assert.Equal(t, []string{"id", "name", "age"}, ds.FieldNames())

	f, ok := ds.Field("name")
	require.True(t, ok)
	assert.Equal(t, ir.Type(ir.TypeString).WithSize(ir.Length(100)).WithCollation("C").WithDB(ir.DbPostgres), f.Type())
	assert.Equal(t, ds.ID(), f.DatasetID())
	assert.Equal(t, ir.DbPostgres, f.DatabaseKind())

	_, ok = ds.Field("missing")
	assert.False(t, ok)
}

func TestNewStaticErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.DatasetSpec)
		want   string
	}{
		{"missing table", func(s *ir.DatasetSpec) { s.Table = "" }, "Table"},
		{"missing uri", func(s *ir.DatasetSpec) { s.URI = "" }, "URI"},
		{"no columns", func(s *ir.DatasetSpec) { s.Columns = nil }, "Columns"},
		{"unknown database", func(s *ir.DatasetSpec) { s.Database = "oracle" }, "unknown database"},
		{"duplicate column", func(s *ir.DatasetSpec) {
			s.Columns = append(s.Columns, ir.ColumnSpec{Name: "age", DbType: "int"})
		}, "duplicate column"},
		{"no primary key", func(s *ir.DatasetSpec) { s.Columns[0].PrimaryKey = false }, "no primary key"},
		{"two primary keys", func(s *ir.DatasetSpec) { s.Columns[1].PrimaryKey = true }, "more than one primary key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := peopleSpec(ir.DbMySQL)
			tt.mutate(&spec)
			_, err := New(spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEqual(t *testing.T) {
	a, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)
	b, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)

	other := peopleSpec(ir.DbPostgres)
	other.Table = "customers"
	c, err := New(other)
	require.NoError(t, err)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, nil))
}

// =============================================================================
// Handles
// =============================================================================

func TestHandleIsImmutable(t *testing.T) {
	ds, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)

	h := NewHandle(ds)
	filtered := h.Filter(col("age"), ir.OpGreater, lit{18})

	assert.Equal(t, 0, h.Conditions())
	assert.Equal(t, 1, filtered.Conditions())
	assert.NotSame(t, h, filtered)
}

func TestHandleBuildPostgres(t *testing.T) {
	ds, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)

	h := NewHandle(ds).
		Filter(col("age"), ir.OpGreaterEqual, lit{18}).
		Filter(col("name"), ir.OpNotEqual, lit{"unknown"})

	query, args := h.Build()
	assert.Equal(t, `SELECT * FROM "people" WHERE "age" >= $1 AND "name" <> $2`, query)
	assert.Equal(t, []any{18, "unknown"}, args)
}

func TestHandleBuildGrouped(t *testing.T) {
	ds, err := New(peopleSpec(ir.DbMySQL))
	require.NoError(t, err)

	h := NewHandle(ds).
		Filter(col("age"), ir.OpEqual, lit{30}).
		GroupBy(col("name"), "full_name")

	query, args := h.Build()
	assert.Equal(t, "SELECT `name` AS `full_name` FROM `people` WHERE `age` = ? GROUP BY `name`", query)
	assert.Equal(t, []any{30}, args)
	assert.Equal(t, []string{"full_name"}, h.GroupAliases())
}

func TestFlavorFor(t *testing.T) {
	assert.Equal(t, sqlbuilder.MySQL, FlavorFor(ir.DbMySQL))
	assert.Equal(t, sqlbuilder.PostgreSQL, FlavorFor(ir.DbPostgres))
	assert.Equal(t, sqlbuilder.SQLite, FlavorFor(ir.DbSQLite))
	assert.Equal(t, sqlbuilder.DefaultFlavor, FlavorFor(ir.DbNone))
}

func TestHandleBuildSelected(t *testing.T) {
	ds, err := New(peopleSpec(ir.DbPostgres))
	require.NoError(t, err)

	h := NewHandle(ds).Select(col("id"), "id").Select(col("age"), "age")

	query, _ := h.Build()
	assert.Equal(t, `SELECT "id" AS "id", "age" AS "age" FROM "people"`, query)
	assert.Equal(t, []string{"id", "age"}, h.SelectAliases())
	assert.Empty(t, h.GroupAliases())
}
