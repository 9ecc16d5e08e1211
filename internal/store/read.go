package store

import (
	"context"
	"fmt"
)

// maxIDQuery finds the largest id mentioned anywhere: gate ids, operands
// and skolems. Fresh ids are allocated above it.
const maxIDQuery = `
	SELECT COALESCE(MAX(m), 0) FROM (
		SELECT MAX(id) AS m FROM and_gates
		UNION ALL SELECT MAX(a) FROM and_gates
		UNION ALL SELECT MAX(b) FROM and_gates
		UNION ALL SELECT MAX(id) FROM or_gates
		UNION ALL SELECT MAX(a) FROM or_gates
		UNION ALL SELECT MAX(b) FROM or_gates
		UNION ALL SELECT MAX(id) FROM skolems
	)
`

// Gates returns every tuple of rel ordered by (id, a, b, cost).
//
// Returns an empty slice (not nil) if the relation is empty.
func (s *Store) Gates(ctx context.Context, rel Relation) ([]Gate, error) {
	if !rel.Valid() {
		return nil, fmt.Errorf("read gates: unknown relation %q", rel)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, a, b, cost FROM `+string(rel)+`
		ORDER BY id ASC, a ASC, b ASC, cost ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", rel, err)
	}
	defer rows.Close()

	gates := []Gate{}
	for rows.Next() {
		g := Gate{Rel: rel}
		if err := rows.Scan(&g.ID, &g.A, &g.B, &g.Cost); err != nil {
			return nil, fmt.Errorf("scan %s: %w", rel, err)
		}
		gates = append(gates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", rel, err)
	}
	return gates, nil
}

// Count returns the number of tuples in rel.
func (s *Store) Count(ctx context.Context, rel Relation) (int, error) {
	if !rel.Valid() {
		return 0, fmt.Errorf("count: unknown relation %q", rel)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(rel)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", rel, err)
	}
	return n, nil
}

// Counts returns the size of every relation.
func (s *Store) Counts(ctx context.Context) (map[Relation]int, error) {
	out := make(map[Relation]int, len(Relations()))
	for _, rel := range Relations() {
		n, err := s.Count(ctx, rel)
		if err != nil {
			return nil, err
		}
		out[rel] = n
	}
	return out, nil
}

// MaxID returns the largest id in use, or 0 for an empty store.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, maxIDQuery).Scan(&id); err != nil {
		return 0, fmt.Errorf("max id: %w", err)
	}
	return id, nil
}

// LastSeq returns the largest seq written so far, so a logical clock can
// resume after a reopen.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(m), 0) FROM (
			SELECT MAX(seq) AS m FROM and_gates
			UNION ALL SELECT MAX(seq) FROM or_gates
			UNION ALL SELECT MAX(seq) FROM derivations
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Derivations returns provenance records ordered by seq.
//
// Returns an empty slice (not nil) if nothing was derived.
func (s *Store) Derivations(ctx context.Context) ([]Derivation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, round, rule, clause, match_hash, binding, relation, gate_id, a, b, cost
		FROM derivations
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query derivations: %w", err)
	}
	defer rows.Close()

	out := []Derivation{}
	for rows.Next() {
		var (
			d       Derivation
			binding string
			rel     string
		)
		err := rows.Scan(&d.Seq, &d.Round, &d.Rule, &d.Clause, &d.MatchHash, &binding,
			&rel, &d.Gate.ID, &d.Gate.A, &d.Gate.B, &d.Gate.Cost)
		if err != nil {
			return nil, fmt.Errorf("scan derivation: %w", err)
		}
		d.Gate.Rel = Relation(rel)
		if d.Binding, err = unmarshalBinding(binding); err != nil {
			return nil, fmt.Errorf("derivation %d: %w", d.Seq, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate derivations: %w", err)
	}
	return out, nil
}
