// Package queryir is the query algebra that Datalog rule bodies are written
// in.
//
// A rule body is a conjunctive query over gate relations: one Select per
// body atom, combined with inner Joins, filtered by column equalities,
// disequalities and linear cost guards. Backends compile it; the only
// backend is SQL (package querysql).
//
//	[rule body] → [Query IR] → [SQL Backend]
//
// FRAGMENT:
//
// The fragment includes:
//   - Select(from, as, filter, bindings) - relation access under an alias
//   - Join(left, right, on) - inner joins only
//   - Predicates: Equals, FieldEquals, FieldNotEquals, Greater, And
//   - Explicit variable bindings (no SELECT *)
//
// The fragment EXCLUDES:
//   - NULLs (every gate column is NOT NULL)
//   - Outer joins
//   - Aggregations
//   - Subqueries and OR predicates (write one rule clause per disjunct)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	    // Handle select
//	case *Join:
//	    // Handle join
//	}
//
// Values are int64 only: gate ids, operands and costs.
package queryir
