package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/compiler"
	"github.com/eqhdl/eqhdl/internal/logicsyn"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/store"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Network   string
	Unit      string
	Database  string
	MaxRounds int
	Verify    bool
}

// ProposalResult is one proposed restructuring.
type ProposalResult struct {
	Rule     string   `json:"rule"`
	Clause   int      `json:"clause"`
	Round    int      `json:"round"`
	Root     int64    `json:"root"`
	Body     []string `json:"body"`
	Head     []string `json:"head"`
	Verified *bool    `json:"verified,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// SynthResult holds the outcome of one synthesis run.
type SynthResult struct {
	RunID      string           `json:"run_id"`
	Source     string           `json:"source"`
	Loaded     int              `json:"loaded"`
	Rounds     int              `json:"rounds"`
	Counts     map[string]int   `json:"counts"`
	Inserted   map[string]int   `json:"inserted,omitempty"`
	Stopped    string           `json:"stopped,omitempty"`
	Proposals  []ProposalResult `json:"proposals"`
	Unverified int              `json:"unverified"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <specs-dir>",
		Short: "Restructure a gate network by stratified Datalog",
		Long: `Load a gate network into the relation store and run the factoring
rules to a fixpoint. The network comes from a CUE network definition
(--network) or from the and/or instructions of a unit (--unit).

Every derived tuple is stored with the rule firing that produced it; use
--db with a file path to keep the store for 'eqhdl trace'.

Exit codes:
  0 - Synthesis reached its fixpoint (and every proposal verified)
  1 - A proposal failed SAT verification
  2 - Command error (invalid specs, unknown network, database error)

Examples:
  eqhdl synth ./specs --network shared
  eqhdl synth ./specs --unit @f --verify
  eqhdl synth ./specs --network shared --db ./synth.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "network to synthesize")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit whose and/or gates to synthesize")
	cmd.MarkFlagsMutuallyExclusive("network", "unit")
	cmd.MarkFlagsOneRequired("network", "unit")
	cmd.Flags().StringVar(&opts.Database, "db", ":memory:", "path to SQLite database")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "round quota (0 = network setting or default)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check every proposal by SAT")

	return cmd
}

func runSynth(opts *SynthOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	s, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBuildFailed, "building schema", err)
	}
	bundle, err := loadBundle(f, specsDir, s)
	if err != nil {
		return err
	}

	source, gates, engineOpts, err := synthInput(bundle, opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	if opts.MaxRounds > 0 {
		engineOpts = append(engineOpts, logicsyn.WithMaxRounds(opts.MaxRounds))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "opening database", err)
	}
	defer st.Close()

	e := logicsyn.New(st, engineOpts...)
	loaded, err := e.Load(ctx, gates)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "loading gates", err)
	}
	f.VerboseLog("Loaded %d new gate tuple(s) from %s", loaded, source)

	rep, err := e.Run(ctx)
	result := SynthResult{Source: source, Loaded: loaded, Counts: map[string]int{}}
	switch {
	case err == nil:
	case logicsyn.IsBudgetExceeded(err):
		result.Stopped = err.Error()
	default:
		return f.Fail(ExitCommandError, ErrCodeRunFailed, "synthesis", err)
	}

	result.RunID = rep.RunID
	result.Rounds = rep.Rounds
	result.Inserted = rep.Inserted
	for rel, n := range rep.Counts {
		result.Counts[string(rel)] = n
	}
	result.Proposals = make([]ProposalResult, 0, len(rep.Proposals))
	for _, p := range rep.Proposals {
		pr := proposalResult(p)
		if opts.Verify {
			ok, err := logicsyn.Verify(p)
			if err != nil {
				pr.Error = err.Error()
			}
			pr.Verified = &ok
			if !ok {
				result.Unverified++
			}
		}
		result.Proposals = append(result.Proposals, pr)
	}

	if f.JSON() {
		status := "ok"
		if result.Unverified > 0 {
			status = "error"
		}
		if err := f.Respond(CLIResponse{Status: status, Data: result, RunID: result.RunID}); err != nil {
			return err
		}
	} else {
		outputSynthText(f, result)
	}

	if result.Unverified > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d proposal(s) failed verification", result.Unverified))
	}
	return nil
}

// synthInput resolves --network or --unit to the gates to load and the
// engine options that go with them.
func synthInput(b *compiler.Bundle, opts *SynthOptions) (string, []store.Gate, []logicsyn.Option, error) {
	if opts.Network != "" {
		n := b.Network(opts.Network)
		if n == nil {
			return "", nil, nil, fmt.Errorf("network %q not found in specs", opts.Network)
		}
		engineOpts, err := n.Options()
		if err != nil {
			return "", nil, nil, err
		}
		return "network " + n.Name, n.Gates, engineOpts, nil
	}

	u := b.Unit(opts.Unit)
	if u == nil {
		return "", nil, nil, fmt.Errorf("unit %q not found in specs", opts.Unit)
	}
	gates := logicsyn.GatesFromUnit(u, logicsyn.DefaultCostModel)
	if len(gates) == 0 {
		return "", nil, nil, fmt.Errorf("unit %q has no integer and/or gates", opts.Unit)
	}
	return "unit " + u.Name, gates, nil, nil
}

func proposalResult(p logicsyn.Proposal) ProposalResult {
	pr := ProposalResult{
		Rule:   p.Rule,
		Clause: p.Clause,
		Round:  p.Round,
		Root:   p.Root,
		Body:   make([]string, len(p.Body)),
		Head:   make([]string, len(p.Head)),
	}
	for i, g := range p.Body {
		pr.Body[i] = g.String()
	}
	for i, g := range p.Head {
		pr.Head[i] = g.String()
	}
	return pr
}

func outputSynthText(f *OutputFormatter, r SynthResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s %s: %d round(s)\n", heading("Synthesis"), r.Source, r.Rounds)
	if r.Stopped != "" {
		fmt.Fprintf(w, "%s %s\n", warnMark("stopped:"), r.Stopped)
	}
	for _, rel := range store.Relations() {
		fmt.Fprintf(w, "  %-10s %d\n", rel, r.Counts[string(rel)])
	}
	if f.Verbose {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
		for _, rule := range sortedKeys(r.Inserted) {
			fmt.Fprintf(w, "  %-12s %d tuple(s)\n", rule, r.Inserted[rule])
		}
	}

	if len(r.Proposals) == 0 {
		fmt.Fprintln(w, "No proposals.")
		return
	}
	fmt.Fprintf(w, "\n%d proposal(s):\n", len(r.Proposals))
	for _, p := range r.Proposals {
		mark := accent("•")
		if p.Verified != nil {
			mark = okMark("✓")
			if !*p.Verified {
				mark = failMark("✗")
			}
		}
		fmt.Fprintf(w, "%s %s#%d round %d, root %d\n", mark, p.Rule, p.Clause, p.Round, p.Root)
		fmt.Fprintf(w, "    %s\n    => %s\n", strings.Join(p.Body, ", "), strings.Join(p.Head, ", "))
		if p.Error != "" {
			fmt.Fprintf(w, "    %s\n", p.Error)
		}
	}
}
