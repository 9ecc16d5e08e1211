package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Testdata(t *testing.T) {
	for _, name := range []string{"factor_or", "factor_and", "guard_blocks", "double_not"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_SynthResult(t *testing.T) {
	result, err := Run(loadTestdata(t, "factor_or"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"and_gates": 3, "or_gates": 3}, result.Counts)
	assert.Equal(t, 2, result.Rounds)
	require.Len(t, result.Proposals, 1)
	require.Len(t, result.Trace, 3)
	for i, ev := range result.Trace {
		assert.Equal(t, EventDerive, ev.Type)
		assert.Equal(t, int64(4+i), ev.Seq, "loading used seq 1..3")
		assert.Equal(t, "factor-or#1", ev.Rule)
	}
}

func TestRun_RewriteResult(t *testing.T) {
	result, err := Run(loadTestdata(t, "double_not"))
	require.NoError(t, err)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "@f", result.Trace[0].Unit, "units run in name order")
	assert.Equal(t, "@g", result.Trace[1].Unit)

	f := result.Units["@f"]
	assert.Equal(t, "(Root (RetValue (Not (Not %0))))", f.Before)
	assert.True(t, f.Improved)
	assert.Empty(t, f.Err)
}

// TestRun_Deterministic runs a scenario twice and compares everything the
// golden file would see.
func TestRun_Deterministic(t *testing.T) {
	s := loadTestdata(t, "factor_and")
	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, r1.Trace, r2.Trace)
	assert.Equal(t, r1.Proposals, r2.Proposals)
}

func TestRun_FailingAssertions(t *testing.T) {
	s := loadTestdata(t, "factor_or")
	s.Assertions = []Assertion{
		{Type: AssertRelationCount, Relation: "and_gates", Count: 2},
		{Type: AssertRounds, Count: 2},
		{Type: AssertGateExists, Relation: "or_gates", Gate: &GateSpec{ID: 99, A: 1, B: 2, Cost: 2}},
	}
	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "Expected: 2 tuples in and_gates")
	assert.Contains(t, result.Errors[1], "assertions[2]")
	assert.Contains(t, result.Errors[1], "or(99, 1, 2, 2)")
}

func TestRun_MissingDefinitions(t *testing.T) {
	s := loadTestdata(t, "factor_or")
	s.Synth.Network = "absent"
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `network "absent" not found`)

	r := loadTestdata(t, "double_not")
	r.Rewrite.Units = []string{"@missing"}
	_, err = Run(r)
	assert.ErrorContains(t, err, `unit "@missing" not found`)

	r.Rewrite.Pipeline = "absent"
	_, err = Run(r)
	assert.ErrorContains(t, err, `pipeline "absent" not found`)
}

func TestRun_BadSpecs(t *testing.T) {
	path := writeScenario(t, `
name: bad
description: d
specs: [net.cue]
synth: { network: n }
assertions: [{type: rounds, count: 1}]
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	s.Specs = []string{filepath.Join("testdata", "specs", "logic.cue"), filepath.Join(filepath.Dir(path), "extra.cue")}
	_, err = Run(s)
	assert.ErrorContains(t, err, "failed to load specs")
}

func TestRunContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunContext(ctx, loadTestdata(t, "guard_blocks"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
