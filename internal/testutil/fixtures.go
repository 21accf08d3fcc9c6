// Package testutil provides deterministic fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
)

// PeopleSpec is a MySQL table of people with a case-insensitive name column.
func PeopleSpec() ir.DatasetSpec {
	return ir.DatasetSpec{
		URI:      "mysql://localhost/crm",
		Table:    "people",
		Database: ir.DbMySQL,
		Columns: []ir.ColumnSpec{
			{Name: "id", DbType: "int", PrimaryKey: true},
			{Name: "first_name", DbType: "varchar(50)", Collation: "utf8_general_ci"},
			{Name: "last_name", DbType: "varchar(80)", Collation: "utf8_general_ci"},
			{Name: "age", DbType: "int"},
			{Name: "zip", DbType: "char(5)"},
		},
	}
}

// CustomersSpec is a PostgreSQL table of customers.
func CustomersSpec() ir.DatasetSpec {
	return ir.DatasetSpec{
		URI:      "postgres://localhost/billing",
		Table:    "customers",
		Database: ir.DbPostgres,
		Columns: []ir.ColumnSpec{
			{Name: "cid", DbType: "bigint", PrimaryKey: true},
			{Name: "first_name", DbType: "varchar(60)"},
			{Name: "surname", DbType: "text"},
			{Name: "age", DbType: "integer"},
			{Name: "zip", DbType: "varchar(10)"},
		},
	}
}

// Dataset builds a dataset from spec, failing the test on error.
func Dataset(t *testing.T, spec ir.DatasetSpec) *dataset.Static {
	t.Helper()
	ds, err := dataset.New(spec)
	require.NoError(t, err)
	return ds
}

// LHS references a first-dataset column.
func LHS(name string) ir.OperandSpec {
	return ir.OperandSpec{Side: ir.SideLHS, Field: name}
}

// RHS references a second-dataset column.
func RHS(name string) ir.OperandSpec {
	return ir.OperandSpec{Side: ir.SideRHS, Field: name}
}

// Literal is a constant operand.
func Literal(v any) ir.OperandSpec {
	return ir.OperandSpec{Value: v, HasValue: true}
}

// Call applies a derived function to operands.
func Call(name string, args ...ir.OperandSpec) ir.OperandSpec {
	return ir.OperandSpec{Function: name, Args: args}
}

// Must declares "left op right".
func Must(left ir.OperandSpec, op ir.Operator, right ir.OperandSpec) ir.ExpectationSpec {
	return ir.ExpectationSpec{Left: &left, Operator: op, Right: &right}
}

// MustNot declares that "left op right" does not hold.
func MustNot(left ir.OperandSpec, op ir.Operator, right ir.OperandSpec) ir.ExpectationSpec {
	exp := Must(left, op, right)
	exp.Negate = true
	return exp
}

// MustBe declares a comparator expectation.
func MustBe(comparator string, args ...ir.OperandSpec) ir.ExpectationSpec {
	return ir.ExpectationSpec{Comparator: comparator, Args: args}
}

// DualSpec links people with customers using the given expectations.
func DualSpec(exps ...ir.ExpectationSpec) *ir.LinkageSpec {
	rhs := CustomersSpec()
	return &ir.LinkageSpec{
		Name:         "people_customers",
		LHS:          PeopleSpec(),
		RHS:          &rhs,
		Tables:       ir.DefaultTableNames(),
		Expectations: exps,
	}
}

// SelfSpec links people with themselves using the given expectations.
func SelfSpec(exps ...ir.ExpectationSpec) *ir.LinkageSpec {
	return &ir.LinkageSpec{
		Name:         "people_dedupe",
		LHS:          PeopleSpec(),
		Tables:       ir.DefaultTableNames(),
		Expectations: exps,
	}
}
