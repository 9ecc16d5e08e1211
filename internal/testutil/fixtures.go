package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/store"
)

// OpenStore opens a fresh store under t.TempDir and closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "eqhdl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// SharedOperandNetwork is a·b + a·c over inputs a=10, b=11, c=12: two and
// gates sharing an operand feed one or gate. Factoring rewrites it to
// a·(b + c).
func SharedOperandNetwork() []store.Gate {
	return []store.Gate{
		{Rel: store.AndGates, ID: 1, A: 10, B: 11, Cost: 5},
		{Rel: store.AndGates, ID: 2, A: 10, B: 12, Cost: 5},
		{Rel: store.OrGates, ID: 3, A: 1, B: 2, Cost: 2},
	}
}

// SharedOperandDual is SharedOperandNetwork with and and or swapped.
func SharedOperandDual() []store.Gate {
	gates := SharedOperandNetwork()
	for i := range gates {
		if gates[i].Rel == store.AndGates {
			gates[i].Rel = store.OrGates
		} else {
			gates[i].Rel = store.AndGates
		}
	}
	return gates
}
