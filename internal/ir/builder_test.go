package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTop(t *testing.T) (*Unit, *Builder) {
	t.Helper()
	u := NewUnit(Entity, "@top", Signature{Inputs: []*Type{SignalType(IntType(32))}})
	return u, NewBuilder(u)
}

func TestBuilder_ValueNumbering(t *testing.T) {
	u, b := newTop(t)

	c1 := b.ConstInt(NewIntValue(32, 1))
	c2 := b.ConstInt(NewIntValue(32, 2))
	sum := b.Binary(OpAdd, c1, c2)
	p := b.Prb(0)
	out := b.Binary(OpAdd, sum, p)
	require.NoError(t, b.Err())

	assert.Equal(t, []Value{1, 2, 3, 4, 5}, []Value{c1, c2, sum, p, out})
	assert.True(t, u.IsArg(0))
	assert.False(t, u.IsArg(1))
	assert.Equal(t, "i32", u.TypeOf(p).String())
	assert.Equal(t, OpAdd, u.Root().Op)
	assert.Same(t, u.Insts[2], u.Def(sum))
	assert.Nil(t, u.Def(0))
	require.NoError(t, Verify(u))
}

func TestBuilder_TypeInference(t *testing.T) {
	u, b := newTop(t)
	c := b.ConstInt(NewIntValue(8, 3))
	cmp := b.Binary(OpUlt, c, c)
	arr := b.ArrayUniform(c, 4)
	elem := b.Mux(arr, c)
	s := b.Struct([]Value{c, cmp})
	f := b.ExtField(s, 1)
	sl := b.ExtSlice(c, 2, 3)
	sig := b.Sig(c)
	v := b.Var(c)
	ld := b.Ld(v)
	require.NoError(t, b.Err())

	assert.Equal(t, "i1", u.TypeOf(cmp).String())
	assert.Equal(t, "[4 x i8]", u.TypeOf(arr).String())
	assert.Equal(t, "i8", u.TypeOf(elem).String())
	assert.Equal(t, "{i8, i1}", u.TypeOf(s).String())
	assert.Equal(t, "i1", u.TypeOf(f).String())
	assert.Equal(t, "i3", u.TypeOf(sl).String())
	assert.Equal(t, "i8$", u.TypeOf(sig).String())
	assert.Equal(t, "i8", u.TypeOf(ld).String())
	require.NoError(t, Verify(u))
}

func TestBuilder_VoidInstructions(t *testing.T) {
	u, b := newTop(t)
	one := b.ConstInt(NewIntValue(32, 1))
	delay := b.ConstTime(NewTimeValue(0, 1, 1, 0))
	assert.Equal(t, NoValue, b.Drv(0, one, delay))
	require.NoError(t, b.Err())
	assert.Equal(t, 3, u.NumValues(), "drv defines no value")
	require.NoError(t, Verify(u))
}

func TestBuilder_StickyError(t *testing.T) {
	_, b := newTop(t)
	assert.Equal(t, NoValue, b.Binary(OpAdd, 7, 8))
	require.Error(t, b.Err())
	first := b.Err()

	assert.Equal(t, NoValue, b.ConstInt(NewIntValue(1, 0)))
	assert.Equal(t, first, b.Err(), "first error is kept")
}

func TestBuilder_ShapeMismatch(t *testing.T) {
	_, b := newTop(t)
	c := b.ConstInt(NewIntValue(1, 0))
	b.Unary(OpAdd, c)
	assert.ErrorContains(t, b.Err(), "not a unary opcode")
}

func TestBuilder_ProcessControlFlow(t *testing.T) {
	u := NewUnit(Process, "@clk", Signature{Inputs: []*Type{SignalType(IntType(1))}})
	b := NewBuilder(u)
	loop := b.Block("loop")
	b.Br(loop)
	b.SetBlock(loop)
	p := b.Prb(0)
	b.Wait(loop, []Value{0})
	require.NoError(t, b.Err())
	require.NoError(t, Verify(u))

	assert.Equal(t, BlockID(1), u.Insts[1].Block)
	assert.Equal(t, Value(1), p)
	assert.Contains(t, u.String(), "loop:\n")
}

func TestVerify_EntityRejectsControlFlow(t *testing.T) {
	u, b := newTop(t)
	b.Halt()
	require.NoError(t, b.Err())

	err := Verify(u)
	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems[0], "control flow in entity")
}

func TestVerify_TypeMismatch(t *testing.T) {
	u, b := newTop(t)
	a := b.ConstInt(NewIntValue(8, 1))
	c := b.ConstInt(NewIntValue(16, 1))
	b.Binary(OpAdd, a, c)
	require.NoError(t, b.Err(), "the builder does not type check operands")

	err := Verify(u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operand types i8 and i16 differ")
}

func TestVerify_UseBeforeDefinition(t *testing.T) {
	u, b := newTop(t)
	b.ConstInt(NewIntValue(8, 1))
	b.ConstInt(NewIntValue(8, 2))
	// An instruction consuming its own result.
	u.appendInst(&Inst{Op: OpAdd, Type: IntType(8), Args: []Value{1, 3}})

	err := Verify(u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "used before definition")
}

func TestUnitString(t *testing.T) {
	u, b := newTop(t)
	c1 := b.ConstInt(NewIntValue(32, 1))
	p := b.Prb(0)
	b.Binary(OpAdd, c1, p)
	require.NoError(t, b.Err())

	want := "entity @top (i32$ %0) -> () {\n" +
		"  %1 = const i32 1\n" +
		"  %2 = prb i32 %0\n" +
		"  %3 = add i32 %1, %2\n" +
		"}\n"
	assert.Equal(t, want, u.String())
}

func TestUnitHash(t *testing.T) {
	build := func(n int64) *Unit {
		u := NewUnit(Entity, "@top", Signature{})
		b := NewBuilder(u)
		b.ConstInt(NewIntValue(32, n))
		return u
	}
	assert.Equal(t, MustUnitHash(build(1)), MustUnitHash(build(1)))
	assert.NotEqual(t, MustUnitHash(build(1)), MustUnitHash(build(2)))
	assert.Len(t, MustUnitHash(build(1)), 64)
}

func TestOpcodeCatalog(t *testing.T) {
	seen := map[string]Opcode{}
	for _, op := range Opcodes() {
		assert.True(t, op.Valid())
		assert.NotEqual(t, ShapeInvalid, op.Shape(), "%s", op)
		if prev, dup := seen[op.String()]; dup {
			t.Fatalf("%s and %s share a printed name", prev, op)
		}
		seen[op.String()] = op

		back, err := ParseOpcode(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, back)
	}
	assert.Equal(t, "drv.Cond", OpDrvCond.String())
	assert.True(t, OpUge.IsComparison())
	assert.True(t, OpBrCond.IsTerminator())
	assert.False(t, OpInvalid.Valid())
}
