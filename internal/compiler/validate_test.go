package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/store"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Unit(t *testing.T) {
	i1 := ir.IntType(1)
	u := ir.NewUnit(ir.Function, "@f", ir.Signature{Inputs: []*ir.Type{i1}, Return: i1})
	b := ir.NewBuilder(u)
	n := b.Unary(ir.OpNot, 0)
	b.RetValue(b.Unary(ir.OpNot, n))
	require.NoError(t, b.Err())

	assert.Empty(t, Validate(u))

	// Point the first not at the second one.
	u.Insts[0].Args = []ir.Value{2}
	errs := Validate(u)
	require.NotEmpty(t, errs)
	for _, e := range errs {
		assert.Equal(t, ErrUnitVerify, e.Code)
		assert.Equal(t, "@f", e.Field)
	}
	assert.Contains(t, errs[0].Message, "used before definition")
}

func TestValidate_EmptyUnit(t *testing.T) {
	errs := Validate(ir.NewUnit(ir.Entity, "@e", ir.Signature{}))
	assert.Equal(t, []string{ErrUnitEmpty}, codes(errs))
}

func TestValidate_Network(t *testing.T) {
	ok := &NetworkSpec{Name: "ok", Gates: []store.Gate{and(1, 10, 11), and(2, 10, 12), or(3, 1, 2)}}
	assert.Empty(t, Validate(ok))
	assert.Empty(t, Validate(*ok), "value and pointer validate alike")
}

func TestValidate_NetworkCollectsAll(t *testing.T) {
	bad := and(2, 10, 12)
	bad.Cost = 0
	spec := NetworkSpec{
		Name:      "bad",
		Gates:     []store.Gate{and(1, 1, 11), bad, or(2, 10, 11)},
		Rules:     []string{"factor-or", "factor-xor"},
		MaxRounds: -1,
	}
	errs := Validate(spec)
	assert.Equal(t, []string{
		ErrGateCost,
		ErrGateRedefined,
		ErrCombinationalLoop,
		ErrUnknownRule,
		ErrNegativeLimit,
	}, codes(errs))
	assert.Equal(t, "gates[2].id", errs[1].Field)
	assert.Equal(t, "gate 1 reads its own output", errs[2].Message)
}

func TestValidate_EmptyNetwork(t *testing.T) {
	assert.Equal(t, []string{ErrNetworkEmpty}, codes(Validate(&NetworkSpec{Name: "none"})))
}

func TestValidate_Pipeline(t *testing.T) {
	ok := &PipelineSpec{
		Name:     "p",
		Rules:    `(rewrite (Not (Not a)) a)`,
		Schedule: "(saturate (run 1))",
	}
	assert.Empty(t, Validate(ok))

	tests := []struct {
		name string
		spec PipelineSpec
		want []string
	}{
		{"bad rules", PipelineSpec{Name: "p", Rules: `(rewrite (Not`}, []string{ErrRulesParse}},
		{"bad schedule", PipelineSpec{Name: "p", Rules: "", Schedule: "(saturate"}, []string{ErrScheduleParse}},
		{"negative limits", PipelineSpec{
			Name:          "p",
			MaxIterations: -1,
			NodeLimit:     -2,
			Workers:       -3,
			Timeout:       -time.Second,
		}, []string{ErrNegativeLimit, ErrNegativeLimit, ErrNegativeLimit, ErrNegativeLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.spec)))
		})
	}
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
	assert.Equal(t, "[E100] type: unsupported type: int", errs[0].Error())
}
