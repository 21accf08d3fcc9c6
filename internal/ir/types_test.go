package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		dbType   string
		expected TypeDescriptor
	}{
		{"integer", Type(TypeInt)},
		{"int(11) unsigned", Type(TypeInt)},
		{"smallint", Type(TypeInt)},
		{"tinyint(1)", Type(TypeBool)},
		{"tinyint(4)", Type(TypeInt)},
		{"bigint(20)", Type(TypeBigInt)},
		{"double precision", Type(TypeFloat)},
		{"real", Type(TypeFloat)},
		{"boolean", Type(TypeBool)},
		{"text", TypeDescriptor{Base: TypeString, Text: true}},
		{"LONGTEXT", TypeDescriptor{Base: TypeString, Text: true}},
		{"date", Type(TypeDate)},
		{"datetime", Type(TypeDateTime)},
		{"timestamp(6) without time zone", Type(TypeDateTime).WithSize(Length(6))},
		{"time", Type(TypeTime)},
		{"char(2)", TypeDescriptor{Base: TypeString, Fixed: true, Size: Length(2)}},
		{"varchar(255)", Type(TypeString).WithSize(Length(255))},
		{"character varying", Type(TypeString)},
		{"money", Type(TypeDecimal).WithSize(Numeric(19, 2))},
		{"decimal(10,2)", Type(TypeDecimal).WithSize(Numeric(10, 2))},
		{"numeric(8, 4)", Type(TypeDecimal).WithSize(Numeric(8, 4))},
		{"decimal(12)", Type(TypeDecimal).WithSize(Precision(12))},
		{"decimal", Type(TypeDecimal)},
		{"bytea", Type(TypeBinary)},
		{"varbinary(16)", Type(TypeBinary).WithSize(Length(16))},
		{"year", Type(TypeInt)},
		{"geometry", Type(TypeString)},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			got := ParseColumnType(tt.dbType, DbMySQL)
			assert.Equal(t, tt.expected.WithDB(DbMySQL), got)
		})
	}
}

func TestTypeDescriptorIsComparable(t *testing.T) {
	a := Type(TypeString).WithSize(Length(10)).WithCollation("utf8_bin").WithDB(DbMySQL)
	b := Type(TypeString).WithSize(Length(10)).WithCollation("utf8_bin").WithDB(DbMySQL)
	assert.True(t, a == b)
	assert.False(t, a == b.WithoutCollation())
}

func TestTypeDescriptorString(t *testing.T) {
	d := TypeDescriptor{Base: TypeDecimal, Size: Numeric(10, 2), DB: DbPostgres}
	assert.Equal(t, "decimal(10,2) @postgres", d.String())

	s := TypeDescriptor{Base: TypeString, Fixed: true, Size: Length(3), Collation: "C"}
	assert.Equal(t, "string(3) fixed collate C", s.String())
}

func TestBaseTypeTextRoundTrip(t *testing.T) {
	for _, bt := range []BaseType{TypeBool, TypeInt, TypeBigInt, TypeFloat, TypeDecimal,
		TypeString, TypeDateTime, TypeDate, TypeTime, TypeBinary} {
		data, err := json.Marshal(bt)
		require.NoError(t, err)

		var decoded BaseType
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, bt, decoded)
	}

	var bad BaseType
	assert.Error(t, json.Unmarshal([]byte(`"money"`), &bad))
}

func TestOperatorNegate(t *testing.T) {
	assert.Equal(t, OpNotEqual, OpEqual.Negate())
	assert.Equal(t, OpLessEqual, OpGreater.Negate())
	assert.Equal(t, OpGreater, OpLessEqual.Negate())
	assert.Equal(t, OpGreaterEqual, OpLess.Negate())
	assert.Equal(t, OpLess, OpGreaterEqual.Negate())

	for op := range ValidOperators {
		assert.Equal(t, op, op.Negate().Negate(), "double negation of %s", op)
	}
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideRHS, SideLHS.Opposite())
	assert.Equal(t, SideLHS, SideRHS.Opposite())
	assert.Equal(t, SideNone, SideNone.Opposite())
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, TypeInt.IsNumeric())
	assert.True(t, TypeDecimal.IsNumeric())
	assert.False(t, TypeString.IsNumeric())
	assert.False(t, TypeBool.IsNumeric())
}
