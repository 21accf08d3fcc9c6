package meta

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/linkage/internal/ir"
)

// FunctionDef describes a derived function that can be applied to operands.
type FunctionDef struct {
	Name  string
	Arity int

	// ArgTypes restricts argument base types. Empty accepts any type.
	ArgTypes []ir.BaseType

	result func(args []ir.TypeDescriptor) ir.TypeDescriptor
	render func(flavor sqlbuilder.Flavor, args []string) string
}

var functions = map[string]*FunctionDef{
	"binary": {
		Name:  "binary",
		Arity: 1,
		result: func(args []ir.TypeDescriptor) ir.TypeDescriptor {
			return ir.Type(ir.TypeBinary).WithDB(args[0].DB)
		},
		render: func(flavor sqlbuilder.Flavor, args []string) string {
			switch flavor {
			case sqlbuilder.MySQL:
				return "BINARY " + args[0]
			case sqlbuilder.PostgreSQL:
				return "CAST(" + args[0] + " AS BYTEA)"
			}
			return "CAST(" + args[0] + " AS BLOB)"
		},
	},
	"lower": stringFunction("lower"),
	"upper": stringFunction("upper"),
	"trim":  stringFunction("trim"),
}

// stringFunction builds a single-argument string transform that keeps the
// argument's type.
func stringFunction(name string) *FunctionDef {
	return &FunctionDef{
		Name:     name,
		Arity:    1,
		ArgTypes: []ir.BaseType{ir.TypeString},
		result: func(args []ir.TypeDescriptor) ir.TypeDescriptor {
			return args[0]
		},
		render: func(_ sqlbuilder.Flavor, args []string) string {
			return strings.ToUpper(name) + "(" + args[0] + ")"
		},
	}
}

// LookupFunction returns the definition of a derived function.
func LookupFunction(name string) (*FunctionDef, bool) {
	def, ok := functions[name]
	return def, ok
}

// FunctionNames lists the available derived functions.
func FunctionNames() []string {
	return []string{"binary", "lower", "trim", "upper"}
}

func (d *FunctionDef) accepts(t ir.BaseType) bool {
	if len(d.ArgTypes) == 0 {
		return true
	}
	for _, at := range d.ArgTypes {
		if at == t {
			return true
		}
	}
	return false
}
