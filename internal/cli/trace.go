package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Rule     string // optional - filter to one rule
	Relation string // optional - filter to one relation
}

// TraceEvent is one derived tuple and the firing that produced it.
type TraceEvent struct {
	Seq       int64            `json:"seq"`
	Round     int              `json:"round"`
	Rule      string           `json:"rule"`
	Clause    int              `json:"clause"`
	Relation  string           `json:"relation"`
	Gate      string           `json:"gate"`
	MatchHash string           `json:"match_hash"`
	Binding   map[string]int64 `json:"binding,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Derivations int            `json:"derivations"`
	Rounds      int            `json:"rounds"`
	PerRule     map[string]int `json:"per_rule"`
	Counts      map[string]int `json:"counts"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query derivation provenance in a synthesis database",
		Long: `List every tuple synthesis derived, in sequence order, with the rule
clause and variable binding that produced it.

The output includes:
- Timeline: derived tuples in the order they were written
- Stats: derivations per rule and the size of every relation

Examples:
  eqhdl trace --db ./synth.db
  eqhdl trace --db ./synth.db --rule factor-or
  eqhdl trace --db ./synth.db --relation or_gates --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "filter to one rule")
	cmd.Flags().StringVar(&opts.Relation, "relation", "", "filter to one relation (and_gates|or_gates)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Relation != "" && !store.Relation(opts.Relation).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown relation %q: must be one of %v", opts.Relation, store.Relations()))
	}
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	derivations, err := st.Derivations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read derivations", err)
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count relations", err)
	}

	result := TraceResult{
		Timeline: buildTimeline(derivations, opts.Rule, store.Relation(opts.Relation)),
		Stats: TraceStats{
			PerRule: map[string]int{},
			Counts:  map[string]int{},
		},
	}
	for rel, n := range counts {
		result.Stats.Counts[string(rel)] = n
	}
	for _, ev := range result.Timeline {
		result.Stats.PerRule[ev.Rule]++
		result.Stats.Rounds = max(result.Stats.Rounds, ev.Round)
	}
	result.Stats.Derivations = len(result.Timeline)

	if f.JSON() {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, opts, result)
}

// buildTimeline converts store derivations to trace events. Empty filters
// match everything.
func buildTimeline(ds []store.Derivation, rule string, rel store.Relation) []TraceEvent {
	timeline := []TraceEvent{}
	for _, d := range ds {
		if rule != "" && d.Rule != rule {
			continue
		}
		if rel != "" && d.Gate.Rel != rel {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:       d.Seq,
			Round:     d.Round,
			Rule:      d.Rule,
			Clause:    d.Clause,
			Relation:  string(d.Gate.Rel),
			Gate:      d.Gate.String(),
			MatchHash: d.MatchHash,
			Binding:   d.Binding,
		})
	}
	return timeline
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return f.Respond(CLIResponse{Status: "ok", Data: result})
}

func outputTraceText(cmd *cobra.Command, opts *TraceOptions, result TraceResult) error {
	w := cmd.OutOrStdout()
	if len(result.Timeline) == 0 {
		fmt.Fprintf(w, "No derivations found in %s\n", opts.Database)
		return nil
	}

	fmt.Fprintln(w, heading("Timeline:"))
	round := 0
	for _, ev := range result.Timeline {
		if ev.Round != round {
			round = ev.Round
			fmt.Fprintf(w, "%s\n", accent(fmt.Sprintf("round %d", round)))
		}
		fmt.Fprintf(w, "  [%d] %s#%d %s\n", ev.Seq, ev.Rule, ev.Clause, ev.Gate)
		if opts.Verbose {
			for _, name := range sortedKeys(ev.Binding) {
				fmt.Fprintf(w, "        %s = %d\n", name, ev.Binding[name])
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Stats:"))
	fmt.Fprintf(w, "  derivations: %d over %d round(s)\n", result.Stats.Derivations, result.Stats.Rounds)
	for _, rule := range sortedKeys(result.Stats.PerRule) {
		fmt.Fprintf(w, "  %-12s %d\n", rule, result.Stats.PerRule[rule])
	}
	for _, rel := range store.Relations() {
		fmt.Fprintf(w, "  %-12s %d tuple(s)\n", rel, result.Stats.Counts[string(rel)])
	}
	return nil
}
