// Package schemasql renders output table schemas as CREATE TABLE statements
// for the results database.
package schemasql

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/linkage/internal/dataset"
	"github.com/roach88/linkage/internal/ir"
)

// defaultStringLength is used for VARCHAR columns without a recorded size.
const defaultStringLength = 255

// DDLCompiler renders column lists as DDL for one database kind.
type DDLCompiler struct {
	db     ir.DbKind
	flavor sqlbuilder.Flavor
}

// NewDDLCompiler creates a compiler for the given results database.
func NewDDLCompiler(db ir.DbKind) *DDLCompiler {
	return &DDLCompiler{db: db, flavor: dataset.FlavorFor(db)}
}

// CreateTable returns a CREATE TABLE IF NOT EXISTS statement for the table.
func (c *DDLCompiler) CreateTable(table string, cols []ir.Column) (string, error) {
	if table == "" {
		return "", fmt.Errorf("table name is required")
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("table %q has no columns", table)
	}

	ctb := c.flavor.NewCreateTableBuilder()
	ctb.CreateTable(c.flavor.Quote(table)).IfNotExists()
	for _, col := range cols {
		typ, err := c.ColumnType(col.Type)
		if err != nil {
			return "", fmt.Errorf("column %s.%s: %w", table, col.Name, err)
		}
		def := []string{c.flavor.Quote(col.Name), typ}
		if col.PrimaryKey {
			def = append(def, "NOT NULL", "PRIMARY KEY")
		}
		ctb.Define(def...)
	}

	sql, _ := ctb.Build()
	return sql, nil
}

// ColumnType maps a type descriptor onto a native column type. Collations
// are emitted only when they originate from the same database kind.
func (c *DDLCompiler) ColumnType(t ir.TypeDescriptor) (string, error) {
	var typ string
	switch t.Base {
	case ir.TypeBool:
		typ = c.pick("TINYINT(1)", "BOOLEAN", "BOOLEAN")
	case ir.TypeInt:
		typ = c.pick("INT", "INTEGER", "INTEGER")
	case ir.TypeBigInt:
		typ = "BIGINT"
	case ir.TypeFloat:
		typ = c.pick("DOUBLE", "DOUBLE PRECISION", "REAL")
	case ir.TypeDecimal:
		typ = c.pick("DECIMAL", "NUMERIC", "NUMERIC") + numericSize(t.Size)
	case ir.TypeString:
		typ = c.stringType(t)
	case ir.TypeDateTime:
		typ = c.pick("DATETIME", "TIMESTAMP", "DATETIME")
	case ir.TypeDate:
		typ = "DATE"
	case ir.TypeTime:
		typ = "TIME"
	case ir.TypeBinary:
		typ = c.binaryType(t)
	default:
		return "", fmt.Errorf("no column type for %s", t)
	}

	if t.Collation != "" && t.DB == c.db {
		typ += " COLLATE " + c.collation(t.Collation)
	}
	return typ, nil
}

// pick chooses between MySQL, PostgreSQL and SQLite spellings.
func (c *DDLCompiler) pick(mysql, postgres, sqlite string) string {
	switch c.db {
	case ir.DbMySQL:
		return mysql
	case ir.DbPostgres:
		return postgres
	}
	return sqlite
}

func (c *DDLCompiler) stringType(t ir.TypeDescriptor) string {
	if c.db == ir.DbSQLite || c.db == ir.DbNone {
		return "TEXT"
	}
	if t.Text {
		return "TEXT"
	}
	n := defaultStringLength
	if t.Size.IsSet() {
		n = t.Size.Length
	}
	if t.Fixed {
		return fmt.Sprintf("CHAR(%d)", n)
	}
	return fmt.Sprintf("VARCHAR(%d)", n)
}

func (c *DDLCompiler) binaryType(t ir.TypeDescriptor) string {
	switch c.db {
	case ir.DbMySQL:
		if t.Size.IsSet() {
			return fmt.Sprintf("VARBINARY(%d)", t.Size.Length)
		}
		return "BLOB"
	case ir.DbPostgres:
		return "BYTEA"
	}
	return "BLOB"
}

func (c *DDLCompiler) collation(name string) string {
	if c.db == ir.DbPostgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func numericSize(s ir.SizeSpec) string {
	if !s.IsSet() {
		return ""
	}
	return "(" + s.String() + ")"
}
