package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/store"
)

// synthDB runs synthesis over the shared network into a fresh database.
func synthDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "synth.db")
	_, err := runCommand(NewSynthCommand(textOpts()), specsDir, "--network", "shared", "--db", db)
	require.NoError(t, err)
	return db
}

func decodeTrace(t *testing.T, out string) TraceResult {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := runCommand(NewTraceCommand(textOpts()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := runCommand(NewTraceCommand(textOpts()), "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceUnknownRelation(t *testing.T) {
	_, err := runCommand(NewTraceCommand(textOpts()), "--db", synthDB(t), "--relation", "xor_gates")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown relation "xor_gates"`)
}

func TestTraceEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	empty, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, empty.Close())

	out, err := runCommand(NewTraceCommand(textOpts()), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No derivations found")
}

func TestTraceTimeline(t *testing.T) {
	out, err := runCommand(NewTraceCommand(jsonOpts()), "--db", synthDB(t))
	require.NoError(t, err)

	res := decodeTrace(t, out)
	require.Len(t, res.Timeline, 3)
	for i, ev := range res.Timeline {
		assert.Equal(t, "factor-or", ev.Rule)
		assert.Equal(t, 1, ev.Clause)
		assert.Equal(t, 1, ev.Round)
		assert.NotEmpty(t, ev.MatchHash)
		assert.Equal(t, int64(10), ev.Binding["x"], "every tuple comes from the same firing")
		if i > 0 {
			assert.Greater(t, ev.Seq, res.Timeline[i-1].Seq)
		}
	}
	assert.Equal(t, 3, res.Stats.Derivations)
	assert.Equal(t, 1, res.Stats.Rounds)
	assert.Equal(t, map[string]int{"factor-or": 3}, res.Stats.PerRule)
	assert.Equal(t, map[string]int{"and_gates": 3, "or_gates": 3}, res.Stats.Counts)
}

func TestTraceFilters(t *testing.T) {
	db := synthDB(t)

	out, err := runCommand(NewTraceCommand(jsonOpts()), "--db", db, "--relation", "and_gates")
	require.NoError(t, err)
	res := decodeTrace(t, out)
	require.Len(t, res.Timeline, 1)
	assert.Equal(t, "and_gates", res.Timeline[0].Relation)

	out, err = runCommand(NewTraceCommand(jsonOpts()), "--db", db, "--rule", "factor-and")
	require.NoError(t, err)
	assert.Empty(t, decodeTrace(t, out).Timeline)
}

func TestTraceText(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text", Verbose: true})
	out, err := runCommand(cmd, "--db", synthDB(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Timeline:")
	assert.Contains(t, out, "round 1")
	assert.Contains(t, out, "factor-or#1")
	assert.Contains(t, out, "x = 10")
	assert.Contains(t, out, "derivations: 3 over 1 round(s)")
}
