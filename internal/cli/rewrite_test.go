package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteText(t *testing.T) {
	out, err := runCommand(NewRewriteCommand(textOpts()), specsDir, "--pipeline", "cleanup")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ @f (4 → 2 nodes)")
	assert.Contains(t, out, "after:  (Root (RetValue %0))")
	assert.Contains(t, out, "✓ @shared (unchanged)")
	assert.Contains(t, out, "Pipeline cleanup:")
}

func TestRewriteJSON(t *testing.T) {
	out, err := runCommand(NewRewriteCommand(jsonOpts()), specsDir, "--pipeline", "cleanup", "--unit", "@f", "--emit-ir")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   RewriteResult `json:"data"`
		RunID  string        `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, resp.Data.Session)

	require.Len(t, resp.Data.Units, 1)
	u := resp.Data.Units[0]
	assert.Equal(t, "@f", u.Unit)
	assert.Equal(t, "(Root (RetValue (Not (Not %0))))", u.Before)
	assert.Equal(t, "(Root (RetValue %0))", u.After)
	assert.True(t, u.Improved)
	assert.Less(t, u.SizeAfter, u.SizeBefore)
	assert.Contains(t, u.IR, "@f")
	assert.Positive(t, resp.Data.Matches["double-not"])
	assert.Empty(t, resp.Data.Stopped)
}

func TestRewriteRequiresPipeline(t *testing.T) {
	_, err := runCommand(NewRewriteCommand(textOpts()), specsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "pipeline" not set`)
}

func TestRewriteUnknownPipeline(t *testing.T) {
	out, err := runCommand(NewRewriteCommand(textOpts()), specsDir, "--pipeline", "tidy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `pipeline "tidy" not found`)
}

func TestRewriteBadSchedule(t *testing.T) {
	_, err := runCommand(NewRewriteCommand(textOpts()), invalidDir, "--pipeline", "broken")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
