package compiler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/engine"
	"github.com/eqhdl/eqhdl/internal/logicsyn"
	"github.com/eqhdl/eqhdl/internal/store"
)

const sharedNetwork = `
	network: shared: {
		and: [{id: 1, a: 10, b: 11, cost: 5}, {id: 2, a: 10, b: 12, cost: 5}]
		or: [{id: 3, a: 1, b: 2, cost: 2}]
	}
`

func TestCompileNetwork(t *testing.T) {
	spec, err := CompileNetwork(compileCUE(t, sharedNetwork, "network.shared"))
	require.NoError(t, err)

	assert.Equal(t, "shared", spec.Name)
	assert.Equal(t, []store.Gate{
		{Rel: store.AndGates, ID: 1, A: 10, B: 11, Cost: 5},
		{Rel: store.AndGates, ID: 2, A: 10, B: 12, Cost: 5},
		{Rel: store.OrGates, ID: 3, A: 1, B: 2, Cost: 2},
	}, spec.Gates)
	assert.Empty(t, spec.Rules)
	assert.Zero(t, spec.MaxRounds)

	rules, err := spec.RuleSet()
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCompileNetwork_RulesAndRounds(t *testing.T) {
	v := compileCUE(t, `
		network: n: {
			or: [{id: 3, a: 1, b: 2, cost: 2}]
			rules: ["factor-and"]
			max_rounds: 4
		}
	`, "network.n")
	spec, err := CompileNetwork(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"factor-and"}, spec.Rules)
	assert.Equal(t, 4, spec.MaxRounds)

	rules, err := spec.RuleSet()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "factor-and", rules[0].Name)

	opts, err := spec.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	spec.Rules = []string{"factor-xor"}
	_, err = spec.RuleSet()
	assert.ErrorContains(t, err, `unknown rule "factor-xor"`)
}

func TestCompileNetwork_Errors(t *testing.T) {
	_, err := CompileNetwork(compileCUE(t, `network: n: { and: [{id: 1, a: 2, b: 3}] }`, "network.n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "and[0].cost")

	_, err = CompileNetwork(compileCUE(t, `network: n: { or: [{id: "x", a: 2, b: 3, cost: 1}] }`, "network.n"))
	assert.Error(t, err)
}

// TestCompileNetwork_Synthesize runs a compiled network through the engine.
func TestCompileNetwork_Synthesize(t *testing.T) {
	spec, err := CompileNetwork(compileCUE(t, sharedNetwork, "network.shared"))
	require.NoError(t, err)
	opts, err := spec.Options()
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "net.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	e := logicsyn.New(st, append(opts, logicsyn.WithIDGenerator(engine.NewFixedGenerator("net-1")))...)
	_, err = e.Load(ctx, spec.Gates)
	require.NoError(t, err)
	rep, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[store.Relation]int{store.AndGates: 3, store.OrGates: 3}, rep.Counts)
}
