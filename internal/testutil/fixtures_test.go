package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/store"
)

func TestOpenStore_Fresh(t *testing.T) {
	st := OpenStore(t)
	counts, err := st.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[store.Relation]int{store.AndGates: 0, store.OrGates: 0}, counts)
}

func TestSharedOperandDual(t *testing.T) {
	net, dual := SharedOperandNetwork(), SharedOperandDual()
	require.Len(t, dual, len(net))
	for i := range net {
		assert.NotEqual(t, net[i].Rel, dual[i].Rel)
		assert.Equal(t, net[i].ID, dual[i].ID)
	}
	assert.Equal(t, store.OrGates, SharedOperandDual()[0].Rel, "fixtures are fresh copies")
}
