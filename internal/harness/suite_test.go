package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"double_not.yaml", "factor_and.yaml", "factor_or.yaml", "guard_blocks.yaml"}, names)
}

func TestDiscoverScenarios_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := DiscoverScenarios(dir)
	var nse *NoScenariosError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, dir, nse.Dir)

	_, err = DiscoverScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "x.yaml")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = DiscoverScenarios(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestRunSuite(t *testing.T) {
	entries, err := RunSuite(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.True(t, e.Passed(), "%s: %v %v", e.Path, e.Err, e.Result)
	}
}

func TestRunSuite_BadScenarioDoesNotStop(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "specs"), 0o755))

	spec, err := os.ReadFile(filepath.Join("testdata", "specs", "logic.cue"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "specs", "logic.cue"), spec, 0o644))
	good, err := os.ReadFile(filepath.Join("testdata", "scenarios", "guard_blocks.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), good, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: [\n"), 0o644))

	entries, err := RunSuite(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Passed())
	assert.Error(t, entries[0].Err)
	assert.True(t, entries[1].Passed(), "%v", entries[1].Err)
}

func TestRunSuite_Filter(t *testing.T) {
	entries, err := RunSuite(filepath.Join("testdata", "scenarios"), WithFilter("factor_*"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
		assert.True(t, e.Passed(), "%s: %v", e.Path, e.Err)
	}
	assert.Equal(t, []string{"factor_and", "factor_or"}, names)

	entries, err = RunSuite(filepath.Join("testdata", "scenarios"), WithFilter("nothing_*"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = RunSuite(filepath.Join("testdata", "scenarios"), WithFilter("["))
	assert.ErrorContains(t, err, "invalid filter pattern")
}

// TestRunSuite_SpecsDir tests that spec paths resolve against the given
// directory instead of the scenario file's.
func TestRunSuite_SpecsDir(t *testing.T) {
	dir := t.TempDir()
	scenario := "name: relocated\nspecs:\n  - logic.cue\nsynth:\n  network: cheap\nassertions:\n  - type: proposals_verify\n    count: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relocated.yaml"), []byte(scenario), 0o644))

	specs, err := filepath.Abs(filepath.Join("testdata", "specs"))
	require.NoError(t, err)
	entries, err := RunSuite(dir, WithSpecsDir(specs))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Passed(), "%v", entries[0].Err)
	require.NotNil(t, entries[0].Scenario)
	assert.Equal(t, filepath.Join(specs, "logic.cue"), entries[0].Scenario.Specs[0])

	entries, err = RunSuite(dir)
	require.NoError(t, err)
	assert.False(t, entries[0].Passed())
}

func TestScenarioBase(t *testing.T) {
	assert.Equal(t, "factor_or", ScenarioBase(filepath.Join("a", "factor_or.yaml")))
	assert.Equal(t, "x", ScenarioBase("x.yml"))
}
