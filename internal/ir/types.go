package ir

import "fmt"

// BaseType is the semantic type of a column, independent of the source database.
type BaseType uint8

const (
	TypeUnknown BaseType = iota
	TypeBool
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal
	TypeString
	TypeDateTime
	TypeDate
	TypeTime
	TypeBinary
)

var baseTypeNames = map[BaseType]string{
	TypeUnknown:  "unknown",
	TypeBool:     "bool",
	TypeInt:      "int",
	TypeBigInt:   "bigint",
	TypeFloat:    "float",
	TypeDecimal:  "decimal",
	TypeString:   "string",
	TypeDateTime: "datetime",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeBinary:   "binary",
}

func (t BaseType) String() string {
	if name, ok := baseTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("BaseType(%d)", uint8(t))
}

// ParseBaseType is the inverse of BaseType.String.
func ParseBaseType(s string) (BaseType, bool) {
	for t, name := range baseTypeNames {
		if name == s && t != TypeUnknown {
			return t, true
		}
	}
	return TypeUnknown, false
}

// MarshalText encodes the type by name.
func (t BaseType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *BaseType) UnmarshalText(b []byte) error {
	parsed, ok := ParseBaseType(string(b))
	if !ok {
		return fmt.Errorf("unknown base type %q", string(b))
	}
	*t = parsed
	return nil
}

// IsNumeric reports whether values of the type can be compared arithmetically.
func (t BaseType) IsNumeric() bool {
	switch t {
	case TypeInt, TypeBigInt, TypeFloat, TypeDecimal:
		return true
	}
	return false
}

// DbKind identifies the database product a column or table lives in.
// The zero value means "unknown or mixed".
type DbKind string

const (
	DbNone     DbKind = ""
	DbMySQL    DbKind = "mysql"
	DbPostgres DbKind = "postgres"
	DbSQLite   DbKind = "sqlite"
)

// ValidDbKinds lists the accepted database kinds.
var ValidDbKinds = map[DbKind]bool{
	DbMySQL:    true,
	DbPostgres: true,
	DbSQLite:   true,
}

// SizeKind discriminates the forms a SizeSpec can take.
type SizeKind uint8

const (
	SizeNone    SizeKind = iota // no size recorded
	SizeLength                  // single length, e.g. varchar(255)
	SizeNumeric                 // precision with optional scale, e.g. decimal(10,2)
)

// SizeSpec is either a single length or a (precision, scale) pair.
// The zero value carries no size. SizeSpec is comparable with ==.
type SizeSpec struct {
	Kind     SizeKind `json:"kind"`
	Length   int      `json:"length"` // length, or precision for SizeNumeric
	Scale    int      `json:"scale,omitempty"`
	HasScale bool     `json:"has_scale,omitempty"`
}

// Length returns a single-length size.
func Length(n int) SizeSpec {
	return SizeSpec{Kind: SizeLength, Length: n}
}

// Precision returns a numeric size without a scale.
func Precision(p int) SizeSpec {
	return SizeSpec{Kind: SizeNumeric, Length: p}
}

// Numeric returns a (precision, scale) size.
func Numeric(p, s int) SizeSpec {
	return SizeSpec{Kind: SizeNumeric, Length: p, Scale: s, HasScale: true}
}

// IsSet reports whether a size was recorded.
func (s SizeSpec) IsSet() bool {
	return s.Kind != SizeNone
}

func (s SizeSpec) String() string {
	switch s.Kind {
	case SizeLength:
		return fmt.Sprintf("%d", s.Length)
	case SizeNumeric:
		if s.HasScale {
			return fmt.Sprintf("%d,%d", s.Length, s.Scale)
		}
		return fmt.Sprintf("%d", s.Length)
	}
	return ""
}

// TypeDescriptor is the canonical description of a column's semantic type.
// It is an immutable value type; two descriptors are structurally equal iff ==.
type TypeDescriptor struct {
	Base      BaseType `json:"base"`
	Text      bool     `json:"text,omitempty"`
	Fixed     bool     `json:"fixed,omitempty"`
	Size      SizeSpec `json:"size"`
	Collation string   `json:"collation,omitempty"`
	DB        DbKind   `json:"db,omitempty"`
}

// Type returns a bare descriptor of the given base type.
func Type(base BaseType) TypeDescriptor {
	return TypeDescriptor{Base: base}
}

// WithSize returns a copy of t with the size replaced.
func (t TypeDescriptor) WithSize(s SizeSpec) TypeDescriptor {
	t.Size = s
	return t
}

// WithCollation returns a copy of t with the collation replaced.
func (t TypeDescriptor) WithCollation(c string) TypeDescriptor {
	t.Collation = c
	return t
}

// WithDB returns a copy of t tagged with the source database kind.
func (t TypeDescriptor) WithDB(db DbKind) TypeDescriptor {
	t.DB = db
	return t
}

// WithoutCollation strips collation metadata.
func (t TypeDescriptor) WithoutCollation() TypeDescriptor {
	t.Collation = ""
	return t
}

func (t TypeDescriptor) String() string {
	s := t.Base.String()
	if t.Size.IsSet() {
		s += "(" + t.Size.String() + ")"
	}
	if t.Text {
		s += " text"
	}
	if t.Fixed {
		s += " fixed"
	}
	if t.Collation != "" {
		s += " collate " + t.Collation
	}
	if t.DB != DbNone {
		s += " @" + string(t.DB)
	}
	return s
}

// Side identifies which half of a linkage a value belongs to.
type Side string

const (
	SideNone Side = ""
	SideLHS  Side = "lhs"
	SideRHS  Side = "rhs"
)

// Opposite returns the other side. SideNone has no opposite.
func (s Side) Opposite() Side {
	switch s {
	case SideLHS:
		return SideRHS
	case SideRHS:
		return SideLHS
	}
	return SideNone
}

// Operator is a comparison operator used by expectations.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// ValidOperators defines the accepted expectation operators.
var ValidOperators = map[Operator]bool{
	OpEqual:        true,
	OpNotEqual:     true,
	OpGreater:      true,
	OpLess:         true,
	OpGreaterEqual: true,
	OpLessEqual:    true,
}

// operatorOpposites maps each operator to its negation.
var operatorOpposites = map[Operator]Operator{
	OpEqual:        OpNotEqual,
	OpNotEqual:     OpEqual,
	OpGreater:      OpLessEqual,
	OpLessEqual:    OpGreater,
	OpLess:         OpGreaterEqual,
	OpGreaterEqual: OpLess,
}

// Negate returns the operator that holds exactly when op does not.
func (op Operator) Negate() Operator {
	return operatorOpposites[op]
}

// LinkageKind describes how the two sides of a linkage relate.
type LinkageKind string

const (
	LinkageSelf  LinkageKind = "self"
	LinkageCross LinkageKind = "cross"
	LinkageDual  LinkageKind = "dual"
)

// Column is one column of a generated output table.
type Column struct {
	Name       string         `json:"name"`
	Type       TypeDescriptor `json:"type"`
	PrimaryKey bool           `json:"primary_key,omitempty"`
}
