package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func andGate(id, a, b, cost int64) Gate { return Gate{Rel: AndGates, ID: id, A: a, B: b, Cost: cost} }

func orGate(id, a, b, cost int64) Gate { return Gate{Rel: OrGates, ID: id, A: a, B: b, Cost: cost} }
