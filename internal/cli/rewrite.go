package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/rewrite"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/term"
)

// RewriteOptions holds flags for the rewrite command.
type RewriteOptions struct {
	*RootOptions
	Pipeline string
	Units    []string // unit names; empty means all
	EmitIR   bool     // print the rewritten units
}

// RewrittenUnit is the outcome for one unit.
type RewrittenUnit struct {
	Unit       string `json:"unit"`
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	SizeBefore int    `json:"size_before,omitempty"`
	SizeAfter  int    `json:"size_after,omitempty"`
	Improved   bool   `json:"improved"`
	IR         string `json:"ir,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RewriteResult holds the outcome of one pipeline run.
type RewriteResult struct {
	Pipeline   string          `json:"pipeline"`
	Session    string          `json:"session"`
	Iterations int             `json:"iterations"`
	StopReason string          `json:"stop_reason"`
	Matches    map[string]int  `json:"matches,omitempty"`
	Stopped    string          `json:"stopped,omitempty"`
	Units      []RewrittenUnit `json:"units"`
	Failed     int             `json:"failed"`
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RewriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rewrite <specs-dir>",
		Short: "Rewrite units through a saturation pipeline",
		Long: `Run a pipeline from a CUE specs directory over its units: encode each
unit, saturate under the pipeline's rules and schedule, extract the
cheapest term and decode it back to IR.

A budget stop (iteration quota, node limit, timeout) still lowers every
unit from the e-graph as it stood.

Exit codes:
  0 - Every unit lowered
  1 - One or more units failed
  2 - Command error (invalid specs, unknown pipeline or unit, bad rules)

Examples:
  eqhdl rewrite ./specs --pipeline cleanup
  eqhdl rewrite ./specs --pipeline cleanup --unit @f --emit-ir
  eqhdl rewrite ./specs --pipeline cleanup --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "pipeline to run (required)")
	_ = cmd.MarkFlagRequired("pipeline")
	cmd.Flags().StringSliceVar(&opts.Units, "unit", nil, "unit to rewrite (repeatable)")
	cmd.Flags().BoolVar(&opts.EmitIR, "emit-ir", false, "print the rewritten IR")

	return cmd
}

func runRewrite(opts *RewriteOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBuildFailed, "building schema", err)
	}
	bundle, err := loadBundle(f, specsDir, s)
	if err != nil {
		return err
	}

	spec := bundle.Pipeline(opts.Pipeline)
	if spec == nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("pipeline %q not found in specs", opts.Pipeline), nil)
	}
	prog, err := spec.Program()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCompile, "pipeline rules", err)
	}
	units, err := selectUnits(bundle, opts.Units)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}

	ctx := commandContext(cmd)
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	f.VerboseLog("Running pipeline %s over %d unit(s)", spec.Name, len(units))
	res, err := rewrite.New(s, spec.Options()...).RunProgram(ctx, units, prog)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeRunFailed, "rewrite", err)
	}

	result := RewriteResult{
		Pipeline:   spec.Name,
		Session:    res.Report.SessionID,
		Iterations: res.Report.Iterations,
		StopReason: string(res.Report.StopReason),
		Matches:    res.Report.Matches,
		Units:      make([]RewrittenUnit, 0, len(res.Units)),
		Failed:     res.Failed(),
	}
	if res.Stopped != nil {
		result.Stopped = res.Stopped.Error()
	}
	for _, ur := range res.Units {
		result.Units = append(result.Units, rewrittenUnit(ur, opts.EmitIR))
	}

	if f.JSON() {
		status := "ok"
		if result.Failed > 0 {
			status = "error"
		}
		if err := f.Respond(CLIResponse{Status: status, Data: result, RunID: result.Session}); err != nil {
			return err
		}
	} else {
		outputRewriteText(f, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d unit(s) failed", result.Failed, len(units)))
	}
	return nil
}

func rewrittenUnit(ur rewrite.UnitResult, emitIR bool) RewrittenUnit {
	out := RewrittenUnit{Unit: ur.Input.Name, Improved: ur.Improved()}
	if ur.Before != nil {
		out.Before = ur.Before.String()
		out.SizeBefore = term.Size(ur.Before)
	}
	if ur.After != nil {
		out.After = ur.After.String()
		out.SizeAfter = term.Size(ur.After)
	}
	if ur.Err != nil {
		out.Error = ur.Err.Error()
	}
	if emitIR && ur.Output != nil {
		out.IR = ur.Output.String()
	}
	return out
}

func outputRewriteText(f *OutputFormatter, r RewriteResult) {
	w := f.Writer
	for _, u := range r.Units {
		if u.Error != "" {
			fmt.Fprintf(w, "%s %s\n  %s\n", failMark("✗"), u.Unit, u.Error)
			continue
		}
		note := "unchanged"
		if u.Improved {
			note = fmt.Sprintf("%d → %d nodes", u.SizeBefore, u.SizeAfter)
		}
		fmt.Fprintf(w, "%s %s (%s)\n", okMark("✓"), u.Unit, note)
		fmt.Fprintf(w, "  before: %s\n", u.Before)
		fmt.Fprintf(w, "  after:  %s\n", u.After)
		if u.IR != "" {
			fmt.Fprintln(w)
			fmt.Fprint(w, u.IR)
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s: %d iteration(s), %s\n", heading("Pipeline"), r.Pipeline, r.Iterations, accent(r.StopReason))
	if r.Stopped != "" {
		fmt.Fprintf(w, "%s %s\n", warnMark("stopped:"), r.Stopped)
	}
	if f.Verbose {
		fmt.Fprintf(w, "Session: %s\n", r.Session)
		for _, name := range sortedKeys(r.Matches) {
			fmt.Fprintf(w, "  %-20s %d match(es)\n", name, r.Matches[name])
		}
	}
}
