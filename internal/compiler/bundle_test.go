package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFiles_Unifies(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "net.cue", sharedNetwork)
	b := writeFile(t, dir, "pipe.cue", cleanupPipeline)

	v, err := LoadFiles(a, b)
	require.NoError(t, err)

	bundle, errs := CompileBundle(v, testSchema())
	require.Empty(t, errs)
	assert.False(t, bundle.Empty())
	require.NotNil(t, bundle.Network("shared"))
	require.NotNil(t, bundle.Pipeline("cleanup"))
	assert.Nil(t, bundle.Network("cleanup"))
	assert.Nil(t, bundle.Unit("@f"))
}

func TestLoadFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFiles(filepath.Join(dir, "missing.cue"))
	assert.ErrorContains(t, err, "missing.cue")

	bad := writeFile(t, dir, "bad.cue", "network: {")
	_, err = LoadFiles(bad)
	assert.Error(t, err)

	x := writeFile(t, dir, "x.cue", "pipeline: p: max_iterations: 1")
	y := writeFile(t, dir, "y.cue", "pipeline: p: max_iterations: 2")
	_, err = LoadFiles(x, y)
	assert.Error(t, err, "conflicting values do not unify")
}

func TestCompileBundle_CollectsAll(t *testing.T) {
	v := cuecontext.New().CompileString(`
		unit: "@ok": {
			kind:   "func"
			inputs: ["i1"]
			insts: [{op: "not", args: [0]}]
		}
		unit: "@bad": {kind: "module", insts: []}
		network: n: {or: [{id: 3, a: 1, b: 2}]}
		pipeline: p: {schedule: "(run 1)"}
	`)
	require.NoError(t, v.Err())

	b, errs := CompileBundle(v, testSchema())
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "unit.@bad")
	assert.Contains(t, errs[1].Error(), "network.n")
	assert.Contains(t, errs[2].Error(), "pipeline.p")

	var ce *CompileError
	assert.ErrorAs(t, errs[0], &ce)
	assert.Equal(t, "kind", ce.Field)

	require.Len(t, b.Units, 1)
	assert.Equal(t, "@ok", b.Units[0].Name)
}
