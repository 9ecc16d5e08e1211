package logicsyn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/store"
)

// sharedAnds builds (a∧b) ∨ (a∧c) over three i1 arguments.
func sharedAnds(t *testing.T) *ir.Unit {
	t.Helper()
	i1 := ir.IntType(1)
	u := ir.NewUnit(ir.Function, "@f", ir.Signature{Inputs: []*ir.Type{i1, i1, i1}, Return: i1})
	b := ir.NewBuilder(u)
	l := b.Binary(ir.OpAnd, 0, 1)
	r := b.Binary(ir.OpAnd, 0, 2)
	g := b.Binary(ir.OpOr, l, r)
	b.Unary(ir.OpNot, g)
	require.NoError(t, b.Err())
	return u
}

func TestGatesFromUnit(t *testing.T) {
	gates := GatesFromUnit(sharedAnds(t), nil)
	assert.Equal(t, []store.Gate{and(3, 0, 1, 5), and(4, 0, 2, 5), or(5, 3, 4, 2)}, gates)

	wide := GatesFromUnit(sharedAnds(t), CostModel{ir.OpAnd: 1})
	assert.Equal(t, int64(1), wide[0].Cost)
	assert.Equal(t, int64(0), wide[2].Cost, "unpriced opcodes cost nothing")
}

func TestGatesFromUnit_Width(t *testing.T) {
	i8 := ir.IntType(8)
	u := ir.NewUnit(ir.Function, "@w", ir.Signature{Inputs: []*ir.Type{i8, i8}, Return: i8})
	b := ir.NewBuilder(u)
	b.Binary(ir.OpAnd, 0, 1)
	b.Binary(ir.OpAdd, 0, 1)
	require.NoError(t, b.Err())

	assert.Equal(t, []store.Gate{and(2, 0, 1, 40)}, GatesFromUnit(u, nil))
}

// TestGatesFromUnit_EndToEnd factors a unit's gates and proves the result.
func TestGatesFromUnit_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, openStore(t))
	_, err := e.Load(ctx, GatesFromUnit(sharedAnds(t), nil))
	require.NoError(t, err)

	rep, err := e.Run(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Proposals, 1)
	assert.Equal(t, int64(5), rep.Proposals[0].Root)

	ok, err := Verify(rep.Proposals[0])
	require.NoError(t, err)
	assert.True(t, ok)
}
