package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/term"
)

func add(a, b term.Term) term.Term { return term.New("Add", a, b) }

func mustAdd(t *testing.T, g *EGraph, tm term.Term) ClassID {
	t.Helper()
	id, err := g.Add(tm)
	require.NoError(t, err)
	return id
}

func TestAdd_HashConsing(t *testing.T) {
	g := New()
	a := mustAdd(t, g, add(term.Ref(0), term.Ref(1)))
	b := mustAdd(t, g, add(term.Ref(0), term.Ref(1)))
	assert.Equal(t, a, b)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 3, g.NumClasses())

	v := g.Version()
	mustAdd(t, g, add(term.Ref(0), term.Ref(1)))
	assert.Equal(t, v, g.Version(), "re-adding changes nothing")
}

func TestAdd_RejectsVariables(t *testing.T) {
	_, err := New().Add(add(term.Var("x"), term.Ref(0)))
	assert.Error(t, err)
}

func TestUnion_Congruence(t *testing.T) {
	g := New()
	fa := mustAdd(t, g, term.New("F", term.Ref(0)))
	fb := mustAdd(t, g, term.New("F", term.Ref(1)))
	a, _ := g.Lookup(term.Ref(0))
	b, _ := g.Lookup(term.Ref(1))
	require.NotEqual(t, g.Find(fa), g.Find(fb))

	assert.True(t, g.Union(a, b))
	assert.False(t, g.Union(a, b))
	g.Rebuild()

	assert.Equal(t, g.Find(fa), g.Find(fb), "F(a) = F(b) once a = b")
	assert.Equal(t, 2, g.NumClasses())
	assert.Equal(t, 3, g.NumNodes(), "two leaves, one F node")
}

func TestUnion_NestedCongruence(t *testing.T) {
	g := New()
	x := mustAdd(t, g, term.New("G", term.New("F", term.Ref(0))))
	y := mustAdd(t, g, term.New("G", term.New("F", term.Ref(1))))
	a, _ := g.Lookup(term.Ref(0))
	b, _ := g.Lookup(term.Ref(1))

	g.Union(a, b)
	g.Rebuild()
	assert.Equal(t, g.Find(x), g.Find(y))
}

func TestLookup(t *testing.T) {
	g := New()
	id := mustAdd(t, g, add(term.Ref(0), term.I64(2)))
	got, ok := g.Lookup(add(term.Ref(0), term.I64(2)))
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = g.Lookup(add(term.Ref(0), term.I64(3)))
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	g := New()
	mustAdd(t, g, add(add(term.Ref(0), term.Ref(1)), term.Ref(0)))

	matches := g.Search(add(term.Var("a"), term.Var("b")))
	require.Len(t, matches, 2)

	// Nonlinear pattern: neither Add has equal operands.
	assert.Empty(t, g.Search(add(term.Var("a"), term.Var("a"))))

	inner := g.Search(add(add(term.Var("a"), term.Var("b")), term.Var("a")))
	require.Len(t, inner, 1)
	ref0, _ := g.Lookup(term.Ref(0))
	assert.Equal(t, ref0, inner[0].Subst["a"])
}

func TestSearch_LiteralLeaves(t *testing.T) {
	g := New()
	mustAdd(t, g, add(term.Ref(0), term.Str("one")))
	assert.Len(t, g.Search(add(term.Var("x"), term.Str("one"))), 1)
	assert.Empty(t, g.Search(add(term.Var("x"), term.Str("two"))))
}

func TestInstantiate(t *testing.T) {
	g := New()
	root := mustAdd(t, g, add(term.Ref(0), term.Ref(1)))
	m := g.Search(add(term.Var("a"), term.Var("b")))
	require.Len(t, m, 1)

	swapped, err := g.Instantiate(add(term.Var("b"), term.Var("a")), m[0].Subst)
	require.NoError(t, err)
	g.Union(root, swapped)
	g.Rebuild()
	assert.Equal(t, g.Find(root), g.Find(swapped))
	assert.Len(t, g.Class(root).Nodes, 2)

	_, err = g.Instantiate(term.Var("zzz"), m[0].Subst)
	assert.Error(t, err)
}

func TestExtract_IdentityBeforeRewrites(t *testing.T) {
	g := New()
	tm := term.New("Root", add(term.New("C", term.Str("1")), term.New("Prb", term.Ref(0))))
	id := mustAdd(t, g, tm)

	got, err := NewExtractor(g, nil).Extract(id)
	require.NoError(t, err)
	assert.True(t, term.Equal(tm, got))
}

func TestExtract_PicksCheaper(t *testing.T) {
	g := New()
	big := mustAdd(t, g, term.New("Neg", term.New("Neg", term.Ref(0))))
	small, _ := g.Lookup(term.Ref(0))
	g.Union(big, small)
	g.Rebuild()

	e := NewExtractor(g, nil)
	got, err := e.Extract(big)
	require.NoError(t, err)
	assert.Equal(t, term.Ref(0), got)
	cost, ok := e.Cost(big)
	require.True(t, ok)
	assert.Equal(t, 0.0, cost)
}

func TestExtract_Deterministic(t *testing.T) {
	build := func() term.Term {
		g := New()
		ab := mustAdd(t, g, add(term.Ref(0), term.Ref(1)))
		ba := mustAdd(t, g, add(term.Ref(1), term.Ref(0)))
		g.Union(ab, ba)
		g.Rebuild()
		got, err := NewExtractor(g, nil).Extract(ab)
		require.NoError(t, err)
		return got
	}
	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first.String(), build().String())
	}
}
