// Package store keeps the relations of the logic-synthesis engine in SQLite.
//
// The store is append-only:
//   - Gate relations: and_gates and or_gates, one tuple (id, a, b, cost) per
//     row, unique per relation
//   - Skolems: fresh ids keyed by (rule, match, role)
//   - Derivations: which rule firing first produced a derived tuple
//
// # Invariants
//
// Idempotent appends
//   - Every insert is ON CONFLICT DO NOTHING and reports whether a row was
//     added, which is how the engine detects its fixpoint
//
// Logical time
//   - Ordering uses the seq column, assigned by the caller's logical clock,
//     never wall time
//
// Deterministic reads
//   - Every read has a total ORDER BY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
