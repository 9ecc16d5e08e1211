package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Relation names a gate relation. Relations double as table names.
type Relation string

const (
	AndGates Relation = "and_gates"
	OrGates  Relation = "or_gates"
)

// Relations returns every gate relation in a fixed order.
func Relations() []Relation { return []Relation{AndGates, OrGates} }

// Valid reports whether r is a known relation. Relation names are spliced
// into SQL, so every method checks this first.
func (r Relation) Valid() bool { return r == AndGates || r == OrGates }

// Gate is one tuple of a gate relation.
type Gate struct {
	Rel  Relation
	ID   int64
	A    int64
	B    int64
	Cost int64
}

func (g Gate) String() string {
	op := "and"
	if g.Rel == OrGates {
		op = "or"
	}
	return fmt.Sprintf("%s(%d, %d, %d, %d)", op, g.ID, g.A, g.B, g.Cost)
}

// Derivation records the rule firing that first produced a gate tuple.
type Derivation struct {
	Seq       int64
	Round     int
	Rule      string
	Clause    int
	MatchHash string
	Binding   map[string]int64
	Gate      Gate
}

// InsertGate appends a tuple. Uses ON CONFLICT DO NOTHING for idempotency;
// inserted is false when the tuple already existed.
func (s *Store) InsertGate(ctx context.Context, g Gate, round int, seq int64) (inserted bool, err error) {
	if !g.Rel.Valid() {
		return false, fmt.Errorf("insert gate: unknown relation %q", g.Rel)
	}
	return insertGate(ctx, s.db, g, round, seq)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertGate(ctx context.Context, db execer, g Gate, round int, seq int64) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO `+string(g.Rel)+`
		(id, a, b, cost, round, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, g.ID, g.A, g.B, g.Cost, round, seq)
	if err != nil {
		return false, fmt.Errorf("insert gate %s: %w", g, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert gate %s: rows affected: %w", g, err)
	}
	return n > 0, nil
}

// InsertDerived atomically appends a derived tuple and its provenance.
//
// If the tuple already existed, nothing is written and inserted is false:
// provenance always names the first firing that produced a tuple.
func (s *Store) InsertDerived(ctx context.Context, d Derivation) (inserted bool, err error) {
	if !d.Gate.Rel.Valid() {
		return false, fmt.Errorf("insert derived: unknown relation %q", d.Gate.Rel)
	}
	binding, err := marshalBinding(d.Binding)
	if err != nil {
		return false, fmt.Errorf("insert derived: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert derived: begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted, err = insertGate(ctx, tx, d.Gate, d.Round, d.Seq)
	if err != nil {
		return false, fmt.Errorf("insert derived: %w", err)
	}
	if !inserted {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("insert derived: commit (existing): %w", err)
		}
		return false, nil
	}

	g := d.Gate
	_, err = tx.ExecContext(ctx, `
		INSERT INTO derivations
		(seq, round, rule, clause, match_hash, binding, relation, gate_id, a, b, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, d.Seq, d.Round, d.Rule, d.Clause, d.MatchHash, binding, string(g.Rel), g.ID, g.A, g.B, g.Cost)
	if err != nil {
		return false, fmt.Errorf("insert derived: write provenance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("insert derived: commit: %w", err)
	}
	return true, nil
}

// Skolem returns the fresh id for (rule, matchHash, role), allocating one
// above every id in use on first request. Allocation order therefore
// decides the ids; callers that need stable ids must ask in a stable order.
func (s *Store) Skolem(ctx context.Context, rule, matchHash, role string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("skolem: begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM skolems
		WHERE rule = ? AND match_hash = ? AND role = ?
	`, rule, matchHash, role).Scan(&id)
	switch {
	case err == nil:
		return id, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("skolem: select existing: %w", err)
	}

	if err := tx.QueryRowContext(ctx, maxIDQuery).Scan(&id); err != nil {
		return 0, fmt.Errorf("skolem: max id: %w", err)
	}
	id++

	_, err = tx.ExecContext(ctx, `
		INSERT INTO skolems (rule, match_hash, role, id)
		VALUES (?, ?, ?, ?)
	`, rule, matchHash, role, id)
	if err != nil {
		return 0, fmt.Errorf("skolem: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("skolem: commit: %w", err)
	}
	return id, nil
}
