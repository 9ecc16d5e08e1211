package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/schema"
)

func compileCUE(t *testing.T, src, path string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func testSchema() *schema.Schema { return schema.MustBuild(schema.DefaultRegistry()) }

func TestCompileUnit_Insts(t *testing.T) {
	v := compileCUE(t, `
		unit: "@f": {
			kind:   "func"
			inputs: ["i1", "i1", "i1"]
			return: "i1"
			insts: [
				{op: "and", args: [0, 1]},
				{op: "and", args: [0, 2]},
				{op: "or", args: [3, 4]},
				{op: "ret.Value", args: [5]},
			]
		}
	`, `unit."@f"`)

	u, err := CompileUnit(v, testSchema())
	require.NoError(t, err)

	assert.Equal(t, "@f", u.Name)
	assert.Equal(t, ir.Function, u.Kind)
	require.Len(t, u.Insts, 4)
	assert.Equal(t, ir.OpOr, u.Insts[2].Op)
	assert.Equal(t, []ir.Value{3, 4}, u.Insts[2].Args)
	assert.NoError(t, ir.Verify(u))
}

func TestCompileUnit_Constants(t *testing.T) {
	v := compileCUE(t, `
		unit: add: {
			kind:   "entity"
			inputs: ["i8$"]
			insts: [
				{op: "const.Int", value: 3, width: 8},
				{op: "const.Int", value: 1},
				{op: "prb", args: [0]},
				{op: "add", args: [1, 3]},
			]
		}
	`, "unit.add")

	u, err := CompileUnit(v, testSchema())
	require.NoError(t, err)
	require.Len(t, u.Insts, 4)
	assert.Equal(t, ir.NewIntValue(8, 3), u.Insts[0].Int)
	assert.Equal(t, DefaultConstWidth, u.Insts[1].Int.Width)
}

func TestCompileUnit_Term(t *testing.T) {
	v := compileCUE(t, `
		unit: "@top": {
			kind:   "entity"
			inputs: ["i32$"]
			term:   "(Root (Add (Prb %0) (Prb %0)))"
		}
	`, `unit."@top"`)

	u, err := CompileUnit(v, testSchema())
	require.NoError(t, err)
	assert.Equal(t, ir.Entity, u.Kind)
	assert.Equal(t, ir.OpAdd, u.Root().Op)
	assert.NoError(t, ir.Verify(u))
}

func TestCompileUnit_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing kind", `insts: []`, "kind is required"},
		{"bad kind", `kind: "module", insts: []`, `unknown unit kind "module"`},
		{"bad input type", `kind: "func", inputs: ["q7"], insts: []`, "inputs[0]"},
		{"bad return type", `kind: "func", return: "i", insts: []`, "return"},
		{"no body", `kind: "func"`, "insts or term is required"},
		{"both bodies", `kind: "func", term: "(Root (Ret))", insts: []`, "mutually exclusive"},
		{"unknown op", `kind: "func", insts: [{op: "frob"}]`, `unknown opcode "frob"`},
		{"missing op", `kind: "func", insts: [{args: [0]}]`, "op is required"},
		{"arity", `kind: "func", inputs: ["i1"], insts: [{op: "not", args: [0, 0]}]`, "not takes 1 operands, got 2"},
		{"irregular shape", `kind: "func", inputs: ["i1"], insts: [{op: "ext_field", args: [0]}]`, "describe the unit as a term"},
		{"undefined operand", `kind: "func", insts: [{op: "not", args: [9]}]`, "insts[0]"},
		{"bad term", `kind: "func", term: "(Root"`, "term"},
		{"undecodable term", `kind: "func", term: "(Root (Frob))"`, "term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileCUE(t, "unit: u: {"+tt.body+"}", "unit.u")
			_, err := CompileUnit(v, testSchema())
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
