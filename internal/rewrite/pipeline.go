// Package rewrite runs units through the full bridge: encode, saturate,
// extract, decode.
//
// One Pipeline.Run call owns one saturation session. Every unit that encodes
// becomes a fact of that session, so rules fire across all units of a batch
// and equal subexpressions of different units share e-classes. Per-unit
// failures are reported on the unit and never abort the batch; a schema or
// rule failure aborts the whole run.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eqhdl/eqhdl/internal/codec"
	"github.com/eqhdl/eqhdl/internal/engine"
	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/term"
)

// DefaultSchedule runs the default ruleset to saturation. It applies when
// the rule source carries no run-schedule of its own.
var DefaultSchedule program.Schedule = program.Saturate{Body: []program.Schedule{program.Run{N: 1}}}

// Pipeline is configured once and may run many batches. It holds no
// per-run state.
type Pipeline struct {
	schema   *schema.Schema
	encoder  *codec.Encoder
	decoder  *codec.Decoder
	schedule program.Schedule
	session  []engine.SessionOption
	workers  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSchedule replaces DefaultSchedule.
func WithSchedule(s program.Schedule) Option {
	return func(p *Pipeline) { p.schedule = s }
}

// WithSessionOptions passes options through to every session the pipeline
// opens.
func WithSessionOptions(opts ...engine.SessionOption) Option {
	return func(p *Pipeline) { p.session = append(p.session, opts...) }
}

// WithWorkers bounds the encoding worker pool.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// New returns a pipeline over s.
func New(s *schema.Schema, opts ...Option) *Pipeline {
	p := &Pipeline{
		schema:   s,
		decoder:  codec.NewDecoder(s),
		schedule: DefaultSchedule,
	}
	for _, opt := range opts {
		opt(p)
	}
	var encOpts []codec.EncoderOption
	if p.workers > 0 {
		encOpts = append(encOpts, codec.WithWorkers(p.workers))
	}
	p.encoder = codec.NewEncoder(s, encOpts...)
	return p
}

// UnitResult is the outcome for one input unit. Output is nil when Err is
// set.
type UnitResult struct {
	Input  *ir.Unit
	Binder string
	Before term.Term
	After  term.Term
	Output *ir.Unit
	Err    error
}

// Improved reports whether extraction found a strictly smaller term.
func (r UnitResult) Improved() bool {
	return r.Err == nil && term.Size(r.After) < term.Size(r.Before)
}

// Result is the outcome of one batch.
type Result struct {
	Units  []UnitResult
	Report *engine.RunReport
	// Stopped is set when the run ended on a budget. Extraction still
	// happened, from the e-graph as it stood.
	Stopped error
}

// Failed counts units that carry an error.
func (r *Result) Failed() int {
	n := 0
	for _, u := range r.Units {
		if u.Err != nil {
			n++
		}
	}
	return n
}

// Run rewrites units under rules, a DSL source of rulesets, rewrites and
// optional run-schedules.
func (p *Pipeline) Run(ctx context.Context, units []*ir.Unit, rules string) (*Result, error) {
	src, err := program.ParseNamed("rules", rules)
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return p.RunProgram(ctx, units, src)
}

// RunProgram is Run for an already parsed rule program. Schema and fact
// commands in rules are rejected; the pipeline supplies both.
func (p *Pipeline) RunProgram(ctx context.Context, units []*ir.Unit, rules program.Program) (*Result, error) {
	if n := len(rules.Category(program.CategorySchema)) + len(rules.Category(program.CategoryFacts)); n > 0 {
		return nil, fmt.Errorf("rule source carries %d schema or fact commands", n)
	}

	res := &Result{Units: make([]UnitResult, len(units))}
	var facts []program.Command
	owner := map[string]int{}
	for i, enc := range p.encoder.EncodeAll(ctx, units) {
		res.Units[i] = UnitResult{Input: enc.Unit, Binder: enc.Binder, Before: enc.Term, Err: enc.Err}
		if enc.Err != nil {
			continue
		}
		if j, taken := owner[enc.Binder]; taken {
			res.Units[i].Err = fmt.Errorf("binder %s already taken by %s", enc.Binder, units[j].Name)
			continue
		}
		owner[enc.Binder] = i
		facts = append(facts, program.Let{Name: enc.Binder, Term: enc.Term})
	}

	prog := program.Concat(p.schema.Program(), program.New(facts...), rules)
	if len(rules.Category(program.CategorySchedules)) == 0 {
		prog = program.Combine(prog, program.New(program.RunSchedule{Schedule: p.schedule}))
	}

	sess := engine.NewSession(p.session...)
	rep, err := sess.RunProgram(ctx, prog)
	res.Report = rep
	switch {
	case err == nil:
	case engine.IsStopped(err):
		res.Stopped = err
	default:
		return res, fmt.Errorf("session %s: %w", sess.ID(), err)
	}

	for i := range res.Units {
		ur := &res.Units[i]
		if ur.Err != nil {
			continue
		}
		p.lower(sess, ur)
	}

	slog.Info("rewrite complete",
		"session", sess.ID(),
		"units", len(units),
		"failed", res.Failed(),
		"iterations", rep.Iterations,
		"stop", rep.StopReason,
	)
	return res, nil
}

// lower extracts the cheapest representative of ur's fact and decodes it.
func (p *Pipeline) lower(sess *engine.Session, ur *UnitResult) {
	after, err := sess.Extract(ur.Binder)
	if err != nil {
		ur.Err = err
		return
	}
	ur.After = after
	in := ur.Input
	out, err := p.decoder.Decode(after, in.Kind, in.Name, in.Sig)
	if err != nil {
		ur.Err = err
		return
	}
	ur.Output = out
	slog.Debug("unit lowered",
		"unit", in.Name,
		"before", term.Size(ur.Before),
		"after", term.Size(after),
	)
}
