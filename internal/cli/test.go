package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Specs  string // base directory for scenario spec paths
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or empty when there is none
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario harness",
		Long: `Run YAML scenarios against their CUE specs.

Each scenario rewrites units through a pipeline, synthesizes a gate
network, or both, then checks its assertions. When
<scenarios-dir>/golden/<file>.golden exists the trace must also match it
byte for byte.

Spec paths in a scenario are relative to the scenario file, or to
--specs when given.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  eqhdl test ./scenarios
  eqhdl test ./scenarios --filter "factor_*"
  eqhdl test ./scenarios --update
  eqhdl test ./scenarios --specs ./specs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Specs, "specs", "", "resolve scenario spec paths against this directory")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Specs != "" {
		if _, err := os.Stat(opts.Specs); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("specs directory not found: %s", opts.Specs))
		}
	}

	var suiteOpts []harness.SuiteOption
	if opts.Filter != "" {
		suiteOpts = append(suiteOpts, harness.WithFilter(opts.Filter))
	}
	if opts.Specs != "" {
		suiteOpts = append(suiteOpts, harness.WithSpecsDir(opts.Specs))
	}
	entries, err := harness.RunSuite(scenariosDir, suiteOpts...)
	var none *harness.NoScenariosError
	switch {
	case errors.As(err, &none):
		entries = nil
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(entries) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(entries)),
		Total:     len(entries),
	}
	for _, entry := range entries {
		scenResult := checkScenario(entry, opts.Update)
		if opts.Format != "json" {
			printScenarioResult(cmd, scenResult)
		}
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// checkScenario turns a suite entry into a result and compares its trace
// with the golden file, or rewrites the golden file when update is set.
func checkScenario(entry harness.SuiteEntry, update bool) ScenarioResult {
	if entry.Scenario == nil {
		return ScenarioResult{
			Name:   filepath.Base(entry.Path),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", entry.Err)},
		}
	}
	if entry.Err != nil {
		return ScenarioResult{
			Name:   entry.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", entry.Err)},
		}
	}

	out := ScenarioResult{Name: entry.Name, Pass: entry.Result.Pass, Errors: entry.Result.Errors}

	snapshot, err := harness.MarshalSnapshot(harness.TraceSnapshot{
		ScenarioName: entry.Name,
		RunID:        entry.Scenario.RunID,
		Trace:        entry.Result.Trace,
	})
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return out
	}

	goldenPath := goldenFilePath(entry.Path)
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return out
		}
		out.Golden = "updated"
		return out
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file: assertions alone decide.
	case err != nil:
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		out.Pass = false
		out.Errors = append(out.Errors, "trace does not match golden file (run with --update to regenerate)")
	default:
		out.Golden = "match"
	}
	return out
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", harness.ScenarioBase(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenarioResult(cmd *cobra.Command, r ScenarioResult) {
	w := cmd.OutOrStdout()
	if !r.Pass {
		fmt.Fprintf(w, "%s %s\n", failMark("✗"), r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if r.Golden == "updated" {
		fmt.Fprintf(w, "%s %s (golden updated)\n", okMark("✓"), r.Name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", okMark("✓"), r.Name)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := f.Respond(CLIResponse{Status: status, Data: result}); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText prints the summary line.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		fmt.Fprintln(w, failMark(summary))
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, okMark(summary))
	return nil
}
