package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/eqhdl/eqhdl/internal/egraph"
	"github.com/eqhdl/eqhdl/internal/program"
)

// StopReason says why a run ended.
type StopReason string

const (
	// StopSaturated: the last iteration changed nothing.
	StopSaturated StopReason = "saturated"
	// StopScheduleDone: the schedule ran to completion before a fixpoint.
	StopScheduleDone   StopReason = "schedule-done"
	StopIterationLimit StopReason = "iteration-limit"
	StopNodeLimit      StopReason = "node-limit"
	StopTimeout        StopReason = "timeout"
)

// RunReport summarizes one or more runs.
type RunReport struct {
	SessionID  string
	Iterations int
	// Matches counts matches per rule, summed over iterations.
	Matches    map[string]int
	Nodes      int
	Classes    int
	StopReason StopReason
	Duration   time.Duration
}

func newReport(id string) *RunReport {
	return &RunReport{SessionID: id, Matches: map[string]int{}}
}

// Rules returns the names of rules with recorded matches, sorted.
func (r *RunReport) Rules() []string {
	out := make([]string, 0, len(r.Matches))
	for name := range r.Matches {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// TotalMatches sums matches over all rules.
func (r *RunReport) TotalMatches() int {
	n := 0
	for _, m := range r.Matches {
		n += m
	}
	return n
}

// Merge folds a later report into r.
func (r *RunReport) Merge(o *RunReport) {
	if o == nil {
		return
	}
	r.Iterations += o.Iterations
	for name, m := range o.Matches {
		r.Matches[name] += m
	}
	r.Nodes, r.Classes = o.Nodes, o.Classes
	r.StopReason = o.StopReason
	r.Duration += o.Duration
}

// Run executes a schedule. The returned report is non-nil even when the run
// stops on an error, and carries the counts reached so far.
func (s *Session) Run(ctx context.Context, sched program.Schedule) (*RunReport, error) {
	rep := newReport(s.id)
	if err := s.requireSchema("run"); err != nil {
		return rep, err
	}
	start := time.Now()
	s.quota.Reset()

	changed, err := s.runSchedule(ctx, sched, rep)
	rep.Nodes = s.graph.NumNodes()
	rep.Classes = s.graph.NumClasses()
	rep.Duration = time.Since(start)
	if err != nil {
		slog.Warn("run stopped",
			"session", s.id,
			"schedule", sched.String(),
			"reason", rep.StopReason,
			"iterations", rep.Iterations,
			"error", err,
		)
		return rep, err
	}
	if changed {
		rep.StopReason = StopScheduleDone
	} else {
		rep.StopReason = StopSaturated
	}
	s.advance(StateSaturated)
	slog.Info("run complete",
		"session", s.id,
		"schedule", sched.String(),
		"reason", rep.StopReason,
		"iterations", rep.Iterations,
		"matches", rep.TotalMatches(),
		"nodes", rep.Nodes,
		"classes", rep.Classes,
	)
	return rep, nil
}

// runSchedule reports whether the last iteration it ran changed the e-graph.
func (s *Session) runSchedule(ctx context.Context, sched program.Schedule, rep *RunReport) (bool, error) {
	switch x := sched.(type) {
	case program.Run:
		rules, ok := s.rulesets[x.Ruleset]
		if !ok {
			return false, newError(ErrCodeScheduleRun, s.id, nil, "unknown ruleset %q", x.Ruleset)
		}
		changed := false
		for i := 0; i < x.N; i++ {
			c, err := s.iterate(ctx, rules, rep)
			if err != nil {
				return false, err
			}
			changed = c
			if !c {
				break
			}
		}
		return changed, nil

	case program.Repeat:
		changed := false
		for i := 0; i < x.N; i++ {
			c, err := s.runBody(ctx, x.Body, rep)
			if err != nil {
				return false, err
			}
			changed = c
			if !c {
				break
			}
		}
		return changed, nil

	case program.Saturate:
		for {
			c, err := s.runBody(ctx, x.Body, rep)
			if err != nil {
				return false, err
			}
			if !c {
				return false, nil
			}
		}

	case program.Seq:
		return s.runBody(ctx, x.Body, rep)
	}
	return false, newError(ErrCodeScheduleRun, s.id, nil, "unsupported schedule %T", sched)
}

// runBody runs each schedule in turn and reports whether any of them changed
// the e-graph.
func (s *Session) runBody(ctx context.Context, body []program.Schedule, rep *RunReport) (bool, error) {
	changed := false
	for _, sub := range body {
		c, err := s.runSchedule(ctx, sub, rep)
		if err != nil {
			return false, err
		}
		changed = changed || c
	}
	return changed, nil
}

// iterate is one saturation step: search every rule against the same
// e-graph, apply all matches, rebuild.
func (s *Session) iterate(ctx context.Context, rules []*rule, rep *RunReport) (bool, error) {
	if err := ctx.Err(); err != nil {
		rep.StopReason = StopTimeout
		return false, newError(ErrCodeBudgetExceeded, s.id, err, "run interrupted")
	}
	if err := s.quota.Check(s.id); err != nil {
		rep.StopReason = StopIterationLimit
		return false, newError(ErrCodeBudgetExceeded, s.id, err, "iteration quota")
	}

	before := s.graph.Version()
	type found struct {
		rule    *rule
		matches []egraph.Match
	}
	var all []found
	for _, r := range rules {
		ms := s.graph.Search(r.lhs)
		rep.Matches[r.name] += len(ms)
		if len(ms) > 0 {
			all = append(all, found{rule: r, matches: ms})
		}
	}

	for _, f := range all {
		for _, m := range f.matches {
			id, err := s.graph.Instantiate(f.rule.rhs, m.Subst)
			if err != nil {
				e := newError(ErrCodeScheduleRun, s.id, err, "cannot apply rule")
				e.Rule = f.rule.name
				return false, e
			}
			s.graph.Union(m.Class, id)
		}
		if n := s.graph.NumNodes(); n > s.nodeLimit {
			s.graph.Rebuild()
			rep.Iterations++
			rep.StopReason = StopNodeLimit
			return false, newError(ErrCodeBudgetExceeded, s.id, nil, "e-graph has %d nodes, limit %d", n, s.nodeLimit)
		}
	}
	s.graph.Rebuild()
	rep.Iterations++

	changed := s.graph.Version() != before
	slog.Debug("iteration",
		"session", s.id,
		"iteration", rep.Iterations,
		"changed", changed,
		"nodes", s.graph.NumNodes(),
	)
	return changed, nil
}

// RunProgram loads a program's schema, facts and rules, then runs its
// schedules in order. The merged report covers every schedule.
func (s *Session) RunProgram(ctx context.Context, p program.Program) (*RunReport, error) {
	total := newReport(s.id)
	if cmds := p.Category(program.CategorySchema); len(cmds) > 0 {
		if err := s.LoadSchema(cmds); err != nil {
			return total, err
		}
	}
	if cmds := p.Category(program.CategoryFacts); len(cmds) > 0 {
		if err := s.LoadFacts(cmds); err != nil {
			return total, err
		}
	}
	if cmds := p.Category(program.CategoryRules); len(cmds) > 0 {
		if err := s.LoadRuleCommands(cmds); err != nil {
			return total, err
		}
	}
	for _, cmd := range p.Category(program.CategorySchedules) {
		rs, ok := cmd.(program.RunSchedule)
		if !ok {
			return total, newError(ErrCodeScheduleRun, s.id, nil, "not a schedule: %s", cmd)
		}
		rep, err := s.Run(ctx, rs.Schedule)
		total.Merge(rep)
		if err != nil {
			return total, err
		}
	}
	total.Nodes = s.graph.NumNodes()
	total.Classes = s.graph.NumClasses()
	return total, nil
}

// IsStopped reports whether err ended a run early on a budget rather than a
// malformed schedule.
func IsStopped(err error) bool {
	return IsBudgetExceeded(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
