package dataset

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/linkage/internal/ir"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrNoPrimaryKey is returned when a dataset declares no primary key column.
var ErrNoPrimaryKey = errors.New("dataset has no primary key column")

// Dataset is a source table.
type Dataset interface {
	// ID identifies the dataset. Two datasets with equal IDs are the same source.
	ID() string
	Table() string
	PrimaryKey() Field
	Field(name string) (Field, bool)
	DatabaseKind() ir.DbKind
}

// Field is one column of a Dataset.
type Field interface {
	Name() string
	Type() ir.TypeDescriptor
	DatasetID() string
	DatabaseKind() ir.DbKind
}

// Equal reports whether a and b are the same source. Nil datasets are never equal.
func Equal(a, b Dataset) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

// Static is a Dataset built from a declaration rather than by introspecting
// a live database.
type Static struct {
	id      string
	uri     string
	table   string
	db      ir.DbKind
	fields  map[string]*column
	order   []string
	primary *column
}

// New builds a Static dataset from its declaration.
func New(spec ir.DatasetSpec) (*Static, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid dataset %q: %w", spec.Table, err)
	}
	if !ir.ValidDbKinds[spec.Database] {
		return nil, fmt.Errorf("invalid dataset %q: unknown database %q", spec.Table, spec.Database)
	}

	ds := &Static{
		id:     spec.URI + "#" + spec.Table,
		uri:    spec.URI,
		table:  spec.Table,
		db:     spec.Database,
		fields: make(map[string]*column, len(spec.Columns)),
	}

	for _, c := range spec.Columns {
		if _, dup := ds.fields[c.Name]; dup {
			return nil, fmt.Errorf("invalid dataset %q: duplicate column %q", spec.Table, c.Name)
		}
		col := &column{
			name: c.Name,
			typ:  ir.ParseColumnType(c.DbType, spec.Database).WithCollation(c.Collation),
			ds:   ds,
		}
		ds.fields[c.Name] = col
		ds.order = append(ds.order, c.Name)
		if c.PrimaryKey {
			if ds.primary != nil {
				return nil, fmt.Errorf("invalid dataset %q: more than one primary key", spec.Table)
			}
			ds.primary = col
		}
	}

	if ds.primary == nil {
		return nil, fmt.Errorf("invalid dataset %q: %w", spec.Table, ErrNoPrimaryKey)
	}
	return ds, nil
}

// ID returns the URI and table joined by '#'.
func (d *Static) ID() string { return d.id }

// URI returns the connection URI the dataset was declared with.
func (d *Static) URI() string { return d.uri }

func (d *Static) Table() string { return d.table }

func (d *Static) DatabaseKind() ir.DbKind { return d.db }

func (d *Static) PrimaryKey() Field { return d.primary }

// Field looks up a column by name.
func (d *Static) Field(name string) (Field, bool) {
	c, ok := d.fields[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// FieldNames returns the column names in declaration order.
func (d *Static) FieldNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

type column struct {
	name string
	typ  ir.TypeDescriptor
	ds   *Static
}

func (c *column) Name() string            { return c.name }
func (c *column) Type() ir.TypeDescriptor { return c.typ }
func (c *column) DatasetID() string       { return c.ds.id }
func (c *column) DatabaseKind() ir.DbKind { return c.ds.db }
