package dataset

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/linkage/internal/ir"
)

// Expr is a value expression that can be rendered into a query. bind adds a
// query argument and returns its placeholder.
type Expr interface {
	SQL(flavor sqlbuilder.Flavor, bind func(any) string) string
}

// FlavorFor returns the SQL flavor used to render queries for db.
func FlavorFor(db ir.DbKind) sqlbuilder.Flavor {
	switch db {
	case ir.DbMySQL:
		return sqlbuilder.MySQL
	case ir.DbPostgres:
		return sqlbuilder.PostgreSQL
	case ir.DbSQLite:
		return sqlbuilder.SQLite
	}
	return sqlbuilder.DefaultFlavor
}

type condition struct {
	left  Expr
	op    ir.Operator
	right Expr
}

func (c condition) render(flavor sqlbuilder.Flavor, bind func(any) string) string {
	l := c.left.SQL(flavor, bind)
	r := c.right.SQL(flavor, bind)
	switch c.op {
	case ir.OpEqual:
		return l + " = " + r
	case ir.OpNotEqual:
		return l + " <> " + r
	}
	return fmt.Sprintf("%s %s %s", l, c.op, r)
}

type projection struct {
	expr  Expr
	alias string
}

func (c projection) render(flavor sqlbuilder.Flavor, sb *sqlbuilder.SelectBuilder) (expr, selected string) {
	expr = c.expr.SQL(flavor, sb.Var)
	return expr, sb.As(expr, flavor.Quote(c.alias))
}

// Handle is an immutable restricted view of a dataset.
type Handle struct {
	ds         Dataset
	conditions []condition
	selects    []projection
	groups     []projection
}

// NewHandle returns an unrestricted handle over ds.
func NewHandle(ds Dataset) *Handle {
	return &Handle{ds: ds}
}

// Dataset returns the dataset the handle reads from.
func (h *Handle) Dataset() Dataset { return h.ds }

// Filter returns a handle further restricted by "left op right".
func (h *Handle) Filter(left Expr, op ir.Operator, right Expr) *Handle {
	next := h.clone()
	next.conditions = append(next.conditions, condition{left: left, op: op, right: right})
	return next
}

// Select returns a handle that additionally selects expr as alias.
func (h *Handle) Select(expr Expr, alias string) *Handle {
	next := h.clone()
	next.selects = append(next.selects, projection{expr: expr, alias: alias})
	return next
}

// GroupBy returns a handle that additionally groups by expr, selected as alias.
func (h *Handle) GroupBy(expr Expr, alias string) *Handle {
	next := h.clone()
	next.groups = append(next.groups, projection{expr: expr, alias: alias})
	return next
}

// Conditions returns the number of filter predicates on the handle.
func (h *Handle) Conditions() int { return len(h.conditions) }

// SelectAliases returns the aliases of the selected columns in application order.
func (h *Handle) SelectAliases() []string {
	return aliases(h.selects)
}

// GroupAliases returns the aliases of the group keys in application order.
func (h *Handle) GroupAliases() []string {
	return aliases(h.groups)
}

func aliases(cols []projection) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.alias
	}
	return out
}

func (h *Handle) clone() *Handle {
	return &Handle{
		ds:         h.ds,
		conditions: append(make([]condition, 0, len(h.conditions)+1), h.conditions...),
		selects:    append(make([]projection, 0, len(h.selects)+1), h.selects...),
		groups:     append(make([]projection, 0, len(h.groups)+1), h.groups...),
	}
}

// Build renders the handle as a SELECT statement with its arguments.
// Selected columns come first, then group keys. A handle with neither
// selects every column.
func (h *Handle) Build() (string, []any) {
	flavor := FlavorFor(h.ds.DatabaseKind())
	sb := flavor.NewSelectBuilder()

	var cols, keys []string
	for _, c := range h.selects {
		_, selected := c.render(flavor, sb)
		cols = append(cols, selected)
	}
	for _, g := range h.groups {
		key, selected := g.render(flavor, sb)
		cols = append(cols, selected)
		keys = append(keys, key)
	}
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	sb.Select(cols...)
	sb.From(flavor.Quote(h.ds.Table()))

	if len(h.conditions) > 0 {
		where := make([]string, len(h.conditions))
		for i, c := range h.conditions {
			where[i] = c.render(flavor, sb.Var)
		}
		sb.Where(where...)
	}
	if len(keys) > 0 {
		sb.GroupBy(keys...)
	}

	return sb.Build()
}

// String renders the handle's query with arguments interpolated, for display.
func (h *Handle) String() string {
	query, args := h.Build()
	flavor := FlavorFor(h.ds.DatabaseKind())
	s, err := flavor.Interpolate(query, args)
	if err != nil {
		return query
	}
	return s
}
