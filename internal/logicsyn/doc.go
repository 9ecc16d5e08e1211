// Package logicsyn is a stratified, cost-driven Datalog engine over gate
// relations.
//
// Facts are (id, a, b, cost) tuples of the and_gates and or_gates relations
// held in a store.Store. Rules are positive Horn clauses whose bodies join
// gate atoms under disequalities and a linear cost guard, and whose heads
// derive new gate tuples. Head ids that do not occur in the body are skolem
// ids: allocated once per (rule, match, role) above every id in use, so a
// rule firing twice on the same match derives the same tuples.
//
// Evaluation is naive bottom-up per stratum: every rule of the stratum is
// evaluated against the current relations, then every derived tuple is
// inserted. A stratum ends when a round inserts nothing. Relations only
// grow; a round that shrinks a relation aborts the run with
// MONOTONICITY_VIOLATION.
//
// The engine never touches IR. It proposes restructurings (see Proposal)
// and records the first firing that produced each tuple; Verify checks a
// proposal with a SAT miter. Committing a proposal is left to the caller.
package logicsyn
