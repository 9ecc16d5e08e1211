package logicsyn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/querysql"
	"github.com/eqhdl/eqhdl/internal/store"
)

func TestRule_String(t *testing.T) {
	assert.Equal(t,
		"factor-or: or(g, l, r, cg), and(l, x, y, cl), and(r, x, z, cr), l != r, cg + cl + cr > 2*cg + cl"+
			" => or(#n1, y, z, cg), and(#n2, x, #n1, cl), or(g, #n2, #n2, cg)",
		FactorOr().String())
	assert.True(t, strings.HasPrefix(FactorAnd().String(), "factor-and: and(g, l, r, cg), or(l, x, y, cl)"))
}

func TestRule_Validate(t *testing.T) {
	require.NoError(t, FactorOr().Validate())
	require.NoError(t, FactorAnd().Validate())

	tests := []struct {
		name   string
		mutate func(r *Rule)
		want   string
	}{
		{"no name", func(r *Rule) { r.Name = "" }, "rule has no name"},
		{"no head", func(r *Rule) { r.Head = nil }, "needs a body and a head"},
		{"fresh in body", func(r *Rule) { r.Body[0].ID = Fresh("k") }, "variables only"},
		{"unknown relation", func(r *Rule) { r.Body[1].Rel = "xor_gates" }, `unknown relation "xor_gates"`},
		{"commutative out of range", func(r *Rule) { r.Commutative = []int{3} }, "out of range"},
		{"unbound disequality", func(r *Rule) { r.Distinct = [][2]string{{"l", "q"}} }, "unbound variables"},
		{"unbound guard", func(r *Rule) { r.Guard.Left = append(r.Guard.Left, Coef{1, "q"}) }, "guard variable q"},
		{"zero coefficient", func(r *Rule) { r.Guard.Right[0].N = 0 }, "coefficient of cg is zero"},
		{"unbound head", func(r *Rule) { r.Head[0].A = V("q") }, `unbound variable "q"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FactorOr()
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalidRule(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestRule_Clauses checks the four shared-operand positions, in clause
// order: l.a = r.a, l.a = r.b, l.b = r.a, l.b = r.b.
func TestRule_Clauses(t *testing.T) {
	clauses, err := FactorOr().Clauses()
	require.NoError(t, err)
	require.Len(t, clauses, 4)

	want := []string{
		"t2.a = t1.a",
		"t2.b = t1.a",
		"t2.a = t1.b",
		"t2.b = t1.b",
	}
	compiler := querysql.NewSQLCompiler()
	for i, q := range clauses {
		stmt, err := compiler.Compile(q)
		require.NoError(t, err)
		assert.Contains(t, stmt.SQL, "ON t2.id = t0.b AND "+want[i]+" AND t0.a <> t0.b AND (t0.cost + t1.cost + t2.cost) > (? * t0.cost + t1.cost)", "clause %d", i+1)
		assert.Equal(t, []string{"cg", "cl", "cr", "g", "l", "r", "x", "y", "z"}, stmt.Columns)
		assert.Equal(t, []any{int64(2)}, stmt.Params)
	}
}

func TestRule_SingleAtomBody(t *testing.T) {
	r := Rule{
		Name: "self",
		Body: []Atom{{Rel: store.AndGates, ID: V("g"), A: V("x"), B: V("x"), Cost: V("c")}},
		Head: []Atom{{Rel: store.OrGates, ID: V("g"), A: V("x"), B: V("x"), Cost: V("c")}},
	}
	clauses, err := r.Clauses()
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	stmt, err := querysql.NewSQLCompiler().Compile(clauses[0])
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "FROM and_gates AS t0 WHERE t0.b = t0.a")
}

func TestInstantiate(t *testing.T) {
	binding := map[string]int64{"g": 3, "x": 10, "y": 11, "z": 12, "cg": 2, "cl": 5}
	next := int64(100)
	ids := map[string]int64{}
	fresh := func(role string) (int64, error) {
		if id, ok := ids[role]; ok {
			return id, nil
		}
		next++
		ids[role] = next
		return next, nil
	}

	gates, err := instantiate(FactorOr().Head, binding, fresh)
	require.NoError(t, err)
	assert.Equal(t, []store.Gate{or(101, 11, 12, 2), and(102, 10, 101, 5), or(3, 102, 102, 2)}, gates)

	_, err = instantiate(FactorOr().Head, binding, nil)
	assert.ErrorContains(t, err, "fresh #n1")
}
