package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/eqhdl/eqhdl/internal/compiler"
	"github.com/eqhdl/eqhdl/internal/engine"
	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/logicsyn"
	"github.com/eqhdl/eqhdl/internal/rewrite"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/store"
	"github.com/eqhdl/eqhdl/internal/testutil"
)

// Harness is the scenario execution engine. It holds the state of one Run.
type Harness struct {
	schema *schema.Schema
	bundle *compiler.Bundle
	store  *store.Store
	clock  *testutil.DeterministicClock
	ids    engine.SessionIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution:
//  1. Compile the spec files into a bundle
//  2. Run the rewrite step, if any
//  3. Run the synth step, if any
//  4. Evaluate assertions
//
// A returned error means the scenario could not run; assertion failures
// land in Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run under ctx.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	sch, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	v, err := compiler.LoadFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	bundle, errs := compiler.CompileBundle(v, sch)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to compile specs: %w", errs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		schema: sch,
		bundle: bundle,
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	if scenario.Rewrite != nil {
		if err := h.executeRewrite(ctx, scenario.Rewrite, result); err != nil {
			return nil, fmt.Errorf("failed to execute rewrite: %w", err)
		}
	}
	if scenario.Synth != nil {
		if err := h.executeSynth(ctx, scenario.Synth, result); err != nil {
			return nil, fmt.Errorf("failed to execute synth: %w", err)
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeRewrite runs the named pipeline over the selected units. Unit
// failures are recorded on the unit, not returned.
func (h *Harness) executeRewrite(ctx context.Context, step *RewriteStep, result *Result) error {
	spec := h.bundle.Pipeline(step.Pipeline)
	if spec == nil {
		return fmt.Errorf("pipeline %q not found in specs", step.Pipeline)
	}
	prog, err := spec.Program()
	if err != nil {
		return err
	}

	units, err := h.selectUnits(step.Units)
	if err != nil {
		return err
	}

	opts := append(spec.Options(), rewrite.WithSessionOptions(engine.WithIDGenerator(h.ids)))
	res, err := rewrite.New(h.schema, opts...).RunProgram(ctx, units, prog)
	if err != nil {
		return err
	}

	for _, ur := range res.Units {
		out := UnitOutcome{Improved: ur.Improved()}
		if ur.Before != nil {
			out.Before = ur.Before.String()
		}
		if ur.After != nil {
			out.After = ur.After.String()
		}
		if ur.Err != nil {
			out.Err = ur.Err.Error()
		}
		result.Units[ur.Input.Name] = out
		result.AddRewriteTrace(ur.Input.Name, out)
	}

	h.logger.Info("rewrite step completed",
		"pipeline", spec.Name,
		"units", len(units),
		"failed", res.Failed(),
	)
	return nil
}

// selectUnits returns the named units in the given order, or every bundle
// unit sorted by name when names is empty.
func (h *Harness) selectUnits(names []string) ([]*ir.Unit, error) {
	if len(names) == 0 {
		units := append([]*ir.Unit(nil), h.bundle.Units...)
		sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
		return units, nil
	}
	units := make([]*ir.Unit, len(names))
	for i, name := range names {
		u := h.bundle.Unit(name)
		if u == nil {
			return nil, fmt.Errorf("unit %q not found in specs", name)
		}
		units[i] = u
	}
	return units, nil
}

// executeSynth loads the named network and runs synthesis to its fixpoint.
// A budget stop is not an error: the run's partial state is what the
// assertions see.
func (h *Harness) executeSynth(ctx context.Context, step *SynthStep, result *Result) error {
	spec := h.bundle.Network(step.Network)
	if spec == nil {
		return fmt.Errorf("network %q not found in specs", step.Network)
	}
	opts, err := spec.Options()
	if err != nil {
		return err
	}
	opts = append(opts, logicsyn.WithClock(h.clock), logicsyn.WithIDGenerator(h.ids))

	e := logicsyn.New(h.store, opts...)
	if _, err := e.Load(ctx, spec.Gates); err != nil {
		return err
	}
	rep, err := e.Run(ctx)
	if err != nil && !logicsyn.IsBudgetExceeded(err) {
		return err
	}

	result.Rounds = rep.Rounds
	result.Proposals = rep.Proposals
	for rel, n := range rep.Counts {
		result.Counts[string(rel)] = n
	}

	ds, err := h.store.Derivations(ctx)
	if err != nil {
		return err
	}
	for _, d := range ds {
		result.AddDeriveTrace(d.Seq, d.Round, fmt.Sprintf("%s#%d", d.Rule, d.Clause), d.Gate.String())
	}

	h.logger.Info("synth step completed",
		"network", spec.Name,
		"rounds", rep.Rounds,
		"derived", len(ds),
	)
	return nil
}
