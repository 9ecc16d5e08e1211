package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		want string
	}{
		{"void", VoidType, "void"},
		{"time", TimeType, "time"},
		{"int", IntType(32), "i32"},
		{"signal", SignalType(IntType(1)), "i1$"},
		{"pointer", PointerType(IntType(8)), "i8*"},
		{"array", ArrayType(4, IntType(8)), "[4 x i8]"},
		{"struct", StructType(IntType(1), TimeType), "{i1, time}"},
		{"empty struct", StructType(), "{}"},
		{"nested", SignalType(ArrayType(2, StructType(IntType(3)))), "[2 x {i3}]$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestParseType_RoundTrip(t *testing.T) {
	for _, src := range []string{
		"void", "time", "i1", "i64$", "i8*", "[4 x i8]", "{i1, time}",
		"[2 x {i3, [1 x i1$]}]$", "i32$*",
	} {
		t.Run(src, func(t *testing.T) {
			typ, err := ParseType(src)
			require.NoError(t, err)
			assert.Equal(t, src, typ.String())
		})
	}
}

func TestParseType_Errors(t *testing.T) {
	for _, src := range []string{"", "i", "[4 i8]", "{i1", "i8 x", "float"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseType(src)
			assert.Error(t, err)
		})
	}
}

func TestTypeEqual(t *testing.T) {
	assert.True(t, IntType(8).Equal(IntType(8)))
	assert.False(t, IntType(8).Equal(IntType(9)))
	assert.True(t, SignalType(IntType(1)).Equal(SignalType(IntType(1))))
	assert.False(t, SignalType(IntType(1)).Equal(PointerType(IntType(1))))
	assert.True(t, StructType(IntType(1), TimeType).Equal(StructType(IntType(1), TimeType)))
	assert.False(t, StructType(IntType(1)).Equal(StructType(IntType(1), TimeType)))
	assert.True(t, (*Type)(nil).Equal(VoidType), "nil is void")
}
