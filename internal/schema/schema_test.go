package schema

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/term"
)

func TestRegistry_Bijection(t *testing.T) {
	reg := DefaultRegistry()
	require.Equal(t, len(ir.Opcodes()), reg.Len())

	seen := map[string]bool{}
	for _, op := range reg.Opcodes() {
		sym, err := reg.SymbolOf(op)
		require.NoError(t, err)
		assert.False(t, seen[sym], "symbol %s assigned twice", sym)
		seen[sym] = true

		back, err := reg.OperationOf(sym)
		require.NoError(t, err)
		assert.Equal(t, op, back)
	}
}

func TestSymbolName(t *testing.T) {
	tests := map[ir.Opcode]string{
		ir.OpAdd:          "Add",
		ir.OpConstInt:     "ConstInt",
		ir.OpConstTime:    "ConstTime",
		ir.OpExtField:     "ExtField",
		ir.OpArrayUniform: "ArrayUniform",
		ir.OpDrv:          "Drv",
		ir.OpDrvCond:      "DrvCond",
		ir.OpRetValue:     "RetValue",
		ir.OpBrCond:       "BrCond",
		ir.OpWaitTime:     "WaitTime",
	}
	for op, want := range tests {
		assert.Equal(t, want, SymbolName(op))
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg, err := NewRegistry([]ir.Opcode{ir.OpAdd, ir.OpAdd, ir.OpPrb})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len(), "duplicates are ignored")

	_, err = reg.SymbolOf(ir.OpSub)
	assert.True(t, IsUnknownOperation(err))

	_, err = reg.OperationOf("Sub")
	assert.True(t, IsUnknownSymbol(err))

	_, err = reg.OperationOf("Root")
	assert.True(t, IsUnknownSymbol(err), "auxiliaries are not operations")

	_, err = NewRegistry([]ir.Opcode{ir.OpInvalid})
	assert.True(t, IsUnknownOperation(err))
}

func TestBuild_ConstructorCountMatchesRegistry(t *testing.T) {
	for _, ops := range [][]ir.Opcode{
		ir.Opcodes(),
		{ir.OpAdd, ir.OpPrb, ir.OpConstInt},
		nil,
	} {
		reg, err := NewRegistry(ops)
		require.NoError(t, err)
		s, err := Build(reg)
		require.NoError(t, err)
		assert.Equal(t, reg.Len(), s.OperationConstructors())
	}
}

func TestBuild_ChildSorts(t *testing.T) {
	s := MustBuild(DefaultRegistry())

	tests := []struct {
		sym  string
		sort term.Sort
		args []term.Sort
	}{
		{"Halt", term.SortExpr, nil},
		{"Not", term.SortExpr, []term.Sort{"Expr"}},
		{"Add", term.SortExpr, []term.Sort{"Expr", "Expr"}},
		{"Drv", term.SortExpr, []term.Sort{"Expr", "Expr", "Expr"}},
		{"DrvCond", term.SortExpr, []term.Sort{"Expr", "Expr", "Expr", "Expr"}},
		{"ConstInt", term.SortExpr, []term.Sort{"String"}},
		{"ExtSlice", term.SortExpr, []term.Sort{"Expr", "i64", "i64"}},
		{"InsSlice", term.SortExpr, []term.Sort{"Expr", "Expr", "i64", "i64"}},
		{"Inst", term.SortExpr, []term.Sort{"String", "VecExpr", "VecExpr"}},
		{"Reg", term.SortExpr, []term.Sort{"Expr", "Expr", "TriggerMode", "Expr"}},
		{"Phi", term.SortExpr, []term.Sort{"VecExpr", "VecBlock"}},
		{"Root", SortTop, []term.Sort{"Expr"}},
		{"Block", SortBlockRef, []term.Sort{"i64"}},
		{"Rise", SortTriggerMode, nil},
	}
	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			c, ok := s.Constructor(tt.sym)
			require.True(t, ok)
			assert.Equal(t, tt.sort, c.Sort)
			assert.Equal(t, tt.args, c.Args)
		})
	}

	vec, ok := s.Constructor("VecExpr")
	require.True(t, ok)
	assert.True(t, vec.Variadic)
}

func TestChildSorts_Unsupported(t *testing.T) {
	_, err := ChildSorts(ir.ShapeInvalid)
	assert.True(t, IsUnsupportedShape(err))
}

func TestSchema_Check(t *testing.T) {
	s := MustBuild(DefaultRegistry())
	ok := term.New("Root", term.New("Add",
		term.New("ConstInt", term.Str(`{"kind":"int","value":"1","width":32}`)),
		term.New("Prb", term.Ref(0))))
	require.NoError(t, s.Check(ok))

	bad := term.New("Root", term.New("Add", term.Ref(0)))
	assert.Error(t, s.Check(bad))

	assert.Error(t, s.Check(term.New("Add", term.Ref(0), term.Ref(1))), "root must be wrapped")
}

func TestSchema_ProgramParses(t *testing.T) {
	s := MustBuild(DefaultRegistry())
	p, err := program.Parse(s.String())
	require.NoError(t, err)
	assert.True(t, p.Equal(s.Program()))
	assert.Len(t, p.Category(program.CategorySchema), 6)
}

func TestSchema_Golden(t *testing.T) {
	s := MustBuild(DefaultRegistry())
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_schema", []byte(s.String()))
}

func TestTriggerSymbols(t *testing.T) {
	for _, m := range ir.TriggerModes() {
		sym := TriggerSymbol(m)
		back, ok := TriggerOf(sym)
		require.True(t, ok, sym)
		assert.Equal(t, m, back)
	}
	_, ok := TriggerOf("Sideways")
	assert.False(t, ok)
}
