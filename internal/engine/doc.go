// Package engine drives equality saturation over encoded IR terms.
//
// A Session owns one e-graph. It is fed a program in four kinds of
// commands: schema declarations (sorts and constructors), facts (let
// bindings of encoded units), rules (rewrites grouped into rulesets) and
// schedules. Running a schedule searches every rule of a ruleset against the
// current e-graph, applies all matches, then restores congruence; that is
// one iteration. Extraction returns the cheapest term equivalent to a bound
// fact.
//
// LIFECYCLE:
//
// Empty -> SchemaLoaded -> RulesLoaded -> FactsLoaded -> Saturated -> Extracted
//
// The state only moves forward. Rules and facts may arrive in either order
// once a schema is present; schema commands after that are rejected.
//
// BUDGETS:
//
// A run stops with BUDGET_EXCEEDED when the iteration quota is used up, when
// the e-graph grows past the node limit, or when the context expires. The
// report of a stopped run still carries the counts reached so far.
//
// A Session is not safe for concurrent use. Run independent sessions in
// parallel instead.
package engine
