package store

import (
	"context"
	"testing"
)

func TestInsertGate_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inserted, err := s.InsertGate(ctx, andGate(4, 1, 2, 5), 0, 1)
	if err != nil {
		t.Fatalf("InsertGate() failed: %v", err)
	}
	if !inserted {
		t.Error("first insert reported no row")
	}

	inserted, err = s.InsertGate(ctx, andGate(4, 1, 2, 5), 3, 2)
	if err != nil {
		t.Fatalf("second InsertGate() failed: %v", err)
	}
	if inserted {
		t.Error("duplicate insert reported a new row")
	}

	n, err := s.Count(ctx, AndGates)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("and_gates count = %d, want 1", n)
	}
}

func TestInsertGate_SameIDDifferentOperands(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, g := range []Gate{orGate(6, 4, 5, 2), orGate(6, 8, 8, 2)} {
		if _, err := s.InsertGate(ctx, g, 0, 1); err != nil {
			t.Fatalf("InsertGate(%s) failed: %v", g, err)
		}
	}

	gates, err := s.Gates(ctx, OrGates)
	if err != nil {
		t.Fatalf("Gates() failed: %v", err)
	}
	if len(gates) != 2 {
		t.Fatalf("got %d gates, want 2", len(gates))
	}
	if gates[0] != orGate(6, 4, 5, 2) || gates[1] != orGate(6, 8, 8, 2) {
		t.Errorf("gates not ordered by (id, a, b, cost): %v", gates)
	}
}

func TestInsertGate_UnknownRelation(t *testing.T) {
	s := createTestStore(t)

	_, err := s.InsertGate(context.Background(), Gate{Rel: "xor_gates; DROP TABLE and_gates"}, 0, 1)
	if err == nil {
		t.Fatal("expected error for unknown relation")
	}
	if _, err := s.Count(context.Background(), AndGates); err != nil {
		t.Errorf("and_gates damaged: %v", err)
	}
}

func TestInsertDerived_RecordsFirstFiringOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d := Derivation{
		Seq:       10,
		Round:     1,
		Rule:      "factor-or",
		Clause:    0,
		MatchHash: "h1",
		Binding:   map[string]int64{"g": 6, "l": 4, "r": 5},
		Gate:      orGate(7, 2, 3, 2),
	}
	inserted, err := s.InsertDerived(ctx, d)
	if err != nil {
		t.Fatalf("InsertDerived() failed: %v", err)
	}
	if !inserted {
		t.Fatal("first derivation not inserted")
	}

	again := d
	again.Seq, again.Round, again.MatchHash = 11, 2, "h2"
	inserted, err = s.InsertDerived(ctx, again)
	if err != nil {
		t.Fatalf("second InsertDerived() failed: %v", err)
	}
	if inserted {
		t.Error("re-derived tuple reported as new")
	}

	ds, err := s.Derivations(ctx)
	if err != nil {
		t.Fatalf("Derivations() failed: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("got %d derivations, want 1", len(ds))
	}
	got := ds[0]
	if got.Seq != 10 || got.Round != 1 || got.MatchHash != "h1" || got.Gate != d.Gate {
		t.Errorf("derivation = %+v, want the first firing", got)
	}
	if got.Binding["g"] != 6 || len(got.Binding) != 3 {
		t.Errorf("binding = %v", got.Binding)
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 10 {
		t.Errorf("LastSeq() = %d, want 10", last)
	}
}

func TestSkolem_StableAndFresh(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertGate(ctx, orGate(6, 4, 5, 2), 0, 1); err != nil {
		t.Fatalf("InsertGate() failed: %v", err)
	}

	n1, err := s.Skolem(ctx, "factor-or", "h1", "n1")
	if err != nil {
		t.Fatalf("Skolem() failed: %v", err)
	}
	if n1 != 7 {
		t.Errorf("first skolem = %d, want 7 (above max id 6)", n1)
	}

	n2, err := s.Skolem(ctx, "factor-or", "h1", "n2")
	if err != nil {
		t.Fatalf("Skolem() failed: %v", err)
	}
	if n2 != 8 {
		t.Errorf("second skolem = %d, want 8", n2)
	}

	again, err := s.Skolem(ctx, "factor-or", "h1", "n1")
	if err != nil {
		t.Fatalf("Skolem() failed: %v", err)
	}
	if again != n1 {
		t.Errorf("repeated request = %d, want %d", again, n1)
	}

	maxID, err := s.MaxID(ctx)
	if err != nil {
		t.Fatalf("MaxID() failed: %v", err)
	}
	if maxID != 8 {
		t.Errorf("MaxID() = %d, want 8", maxID)
	}
}

func TestBindingHash_OrderIndependent(t *testing.T) {
	a, err := BindingHash(map[string]int64{"x": 1, "y": 2})
	if err != nil {
		t.Fatalf("BindingHash() failed: %v", err)
	}
	b, err := BindingHash(map[string]int64{"y": 2, "x": 1})
	if err != nil {
		t.Fatalf("BindingHash() failed: %v", err)
	}
	c, err := BindingHash(map[string]int64{"x": 2, "y": 1})
	if err != nil {
		t.Fatalf("BindingHash() failed: %v", err)
	}
	if a != b {
		t.Error("hash depends on map order")
	}
	if a == c {
		t.Error("different bindings share a hash")
	}
}
