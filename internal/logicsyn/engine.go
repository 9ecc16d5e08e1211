package logicsyn

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/eqhdl/eqhdl/internal/engine"
	"github.com/eqhdl/eqhdl/internal/querysql"
	"github.com/eqhdl/eqhdl/internal/store"
)

// DefaultMaxRounds is the default round quota of one Run, over all strata.
const DefaultMaxRounds = 64

// Clock issues the sequence numbers stamped on inserted tuples.
// testutil.DeterministicClock implements it.
type Clock interface {
	Next() int64
}

// storeClock continues after the last sequence number in the store.
type storeClock struct{ seq int64 }

func (c *storeClock) Next() int64 {
	c.seq++
	return c.seq
}

// Engine evaluates rules over one store. An Engine is not safe for
// concurrent use; it owns its store for the duration of Run.
type Engine struct {
	store     *store.Store
	rules     []Rule
	maxRounds int
	clock     Clock
	ids       engine.SessionIDGenerator

	compiled []compiledRule
	compErr  error
}

type compiledRule struct {
	rule    Rule
	clauses []*querysql.Statement
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces DefaultRules.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithMaxRounds sets the round quota of each Run.
func WithMaxRounds(n int) Option {
	return func(e *Engine) { e.maxRounds = n }
}

// WithClock sets the sequence source. Without one, sequence numbers
// continue from the store's last.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(g engine.SessionIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// New creates an engine over st. Rule errors are reported by Run.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		rules:     DefaultRules(),
		maxRounds: DefaultMaxRounds,
		ids:       engine.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.compiled, e.compErr = compileRules(e.rules)
	return e
}

// compileRules validates every rule and compiles its clauses, ordered by
// stratum. Rules of equal stratum keep their given order.
func compileRules(rules []Rule) ([]compiledRule, error) {
	compiler := querysql.NewSQLCompiler()
	names := map[string]bool{}
	out := make([]compiledRule, 0, len(rules))

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if names[r.Name] {
			e := newError(ErrCodeInvalidRule, nil, "duplicate rule name")
			e.Rule = r.Name
			return nil, e
		}
		names[r.Name] = true

		queries, err := r.Clauses()
		if err != nil {
			return nil, err
		}
		cr := compiledRule{rule: r}
		for i, q := range queries {
			stmt, err := compiler.Compile(q)
			if err != nil {
				e := newError(ErrCodeInvalidRule, err, "compile clause %d", i+1)
				e.Rule = r.Name
				return nil, e
			}
			cr.clauses = append(cr.clauses, stmt)
		}
		out = append(out, cr)
	}

	slices.SortStableFunc(out, func(a, b compiledRule) int { return a.rule.Stratum - b.rule.Stratum })
	return out, nil
}

// Rules returns the engine's rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.compiled))
	for i, cr := range e.compiled {
		out[i] = cr.rule
	}
	return out
}

// Load inserts input tuples at round 0 and returns how many were new.
func (e *Engine) Load(ctx context.Context, gates []store.Gate) (int, error) {
	clock, err := e.seqClock(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, g := range gates {
		inserted, err := e.store.InsertGate(ctx, g, 0, clock.Next())
		if err != nil {
			return n, newError(ErrCodeStore, err, "load %s", g)
		}
		if inserted {
			n++
		}
	}
	slog.Debug("gates loaded", "given", len(gates), "inserted", n)
	return n, nil
}

func (e *Engine) seqClock(ctx context.Context) (Clock, error) {
	if e.clock != nil {
		return e.clock, nil
	}
	last, err := e.store.LastSeq(ctx)
	if err != nil {
		return nil, newError(ErrCodeStore, err, "last sequence number")
	}
	e.clock = &storeClock{seq: last}
	return e.clock, nil
}

// Report summarizes a Run.
type Report struct {
	RunID  string
	Rounds int
	// Inserted counts new tuples per rule.
	Inserted map[string]int
	// Counts is the size of every relation after the run.
	Counts    map[store.Relation]int
	Proposals []Proposal
	Duration  time.Duration
}

// Run evaluates every stratum to its fixpoint. On error the report covers
// the rounds completed so far.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{
		RunID:    e.ids.Generate(),
		Inserted: map[string]int{},
	}
	if e.compErr != nil {
		return rep, e.compErr
	}
	clock, err := e.seqClock(ctx)
	if err != nil {
		return rep, err
	}

	r := &run{
		Engine:   e,
		rep:      rep,
		seq:      clock,
		quota:    engine.NewQuotaEnforcer(e.maxRounds),
		proposed: map[string]bool{},
	}
	slog.Info("logic synthesis started",
		"run", rep.RunID,
		"rules", len(e.compiled),
		"max_rounds", e.maxRounds,
	)

	err = r.strata(ctx)
	rep.Duration = time.Since(start)
	if counts, cerr := e.store.Counts(ctx); cerr == nil {
		rep.Counts = counts
	}
	if err != nil {
		slog.Error("logic synthesis failed", "run", rep.RunID, "round", rep.Rounds, "error", err)
		return rep, err
	}

	slog.Info("logic synthesis complete",
		"run", rep.RunID,
		"rounds", rep.Rounds,
		"proposals", len(rep.Proposals),
		"duration", rep.Duration,
	)
	return rep, nil
}

// run is the state of one Run call.
type run struct {
	*Engine
	rep      *Report
	seq      Clock
	quota    *engine.QuotaEnforcer
	proposed map[string]bool
}

func (r *run) strata(ctx context.Context) error {
	rules := r.compiled
	for len(rules) > 0 {
		stratum := rules[0].rule.Stratum
		n := 1
		for n < len(rules) && rules[n].rule.Stratum == stratum {
			n++
		}
		if err := r.fixpoint(ctx, stratum, rules[:n]); err != nil {
			return err
		}
		rules = rules[n:]
	}
	return nil
}

// match is one body row of one clause.
type match struct {
	rule    *compiledRule
	clause  int
	binding map[string]int64
}

func (r *run) fixpoint(ctx context.Context, stratum int, rules []compiledRule) error {
	for {
		round := r.rep.Rounds + 1
		if err := ctx.Err(); err != nil {
			e := newError(ErrCodeBudgetExceeded, err, "context done")
			e.Round = round
			return e
		}
		if err := r.quota.Check(r.rep.RunID); err != nil {
			e := newError(ErrCodeBudgetExceeded, err, "round quota")
			e.Round = round
			return e
		}
		r.rep.Rounds = round

		before, err := r.store.Counts(ctx)
		if err != nil {
			return newError(ErrCodeStore, err, "counts before round %d", round)
		}

		var matches []match
		for i := range rules {
			m, err := r.evaluate(ctx, &rules[i])
			if err != nil {
				return err
			}
			matches = append(matches, m...)
		}

		grown := map[store.Relation]int{}
		inserted := 0
		for _, m := range matches {
			n, err := r.fire(ctx, round, m, grown)
			if err != nil {
				return err
			}
			inserted += n
		}

		after, err := r.store.Counts(ctx)
		if err != nil {
			return newError(ErrCodeStore, err, "counts after round %d", round)
		}
		if err := store.CheckGrowth(before, after, grown); err != nil {
			e := newError(ErrCodeMonotonicity, err, "relation counts after firing")
			e.Round = round
			return e
		}

		slog.Debug("round complete",
			"run", r.rep.RunID,
			"stratum", stratum,
			"round", round,
			"matches", len(matches),
			"inserted", inserted,
		)
		if inserted == 0 {
			return nil
		}
	}
}

// evaluate runs every clause of cr against the current relations.
func (r *run) evaluate(ctx context.Context, cr *compiledRule) ([]match, error) {
	var out []match
	for i, stmt := range cr.clauses {
		rows, err := r.store.Query(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			e := newError(ErrCodeStore, err, "evaluate clause %d", i+1)
			e.Rule = cr.rule.Name
			return nil, e
		}
		vals := make([]int64, len(stmt.Columns))
		ptrs := make([]any, len(vals))
		for j := range vals {
			ptrs[j] = &vals[j]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				return nil, newError(ErrCodeStore, err, "scan clause %d of %s", i+1, cr.rule.Name)
			}
			binding := make(map[string]int64, len(vals))
			for j, col := range stmt.Columns {
				binding[col] = vals[j]
			}
			out = append(out, match{rule: cr, clause: i + 1, binding: binding})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, newError(ErrCodeStore, err, "iterate clause %d of %s", i+1, cr.rule.Name)
		}
	}
	return out, nil
}

// fire grounds the head of m and inserts it, returning how many tuples
// were new. grown is updated per relation.
func (r *run) fire(ctx context.Context, round int, m match, grown map[store.Relation]int) (int, error) {
	rule := m.rule.rule
	hash, err := store.BindingHash(m.binding)
	if err != nil {
		return 0, newError(ErrCodeStore, err, "hash binding")
	}
	heads, err := instantiate(rule.Head, m.binding, func(role string) (int64, error) {
		return r.store.Skolem(ctx, rule.Name, hash, role)
	})
	if err != nil {
		e := newError(ErrCodeStore, err, "skolem")
		e.Rule = rule.Name
		return 0, e
	}

	n := 0
	for _, g := range heads {
		inserted, err := r.store.InsertDerived(ctx, store.Derivation{
			Seq:       r.seq.Next(),
			Round:     round,
			Rule:      rule.Name,
			Clause:    m.clause,
			MatchHash: hash,
			Binding:   m.binding,
			Gate:      g,
		})
		if err != nil {
			e := newError(ErrCodeStore, err, "insert %s", g)
			e.Rule = rule.Name
			e.Round = round
			return n, e
		}
		if inserted {
			n++
			grown[g.Rel]++
		}
	}
	r.rep.Inserted[rule.Name] += n

	key := rule.Name + "/" + hash
	if n > 0 && !r.proposed[key] {
		r.proposed[key] = true
		body, _ := instantiate(rule.Body, m.binding, nil)
		r.rep.Proposals = append(r.rep.Proposals, Proposal{
			Rule:      rule.Name,
			Clause:    m.clause,
			Round:     round,
			MatchHash: hash,
			Binding:   m.binding,
			Root:      body[0].ID,
			Body:      body,
			Head:      heads,
		})
	}
	return n, nil
}
