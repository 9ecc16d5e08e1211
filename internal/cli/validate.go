package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/compiler"
	"github.com/eqhdl/eqhdl/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Units     int                        `json:"units"`
	Networks  int                        `json:"networks"`
	Pipelines int                        `json:"pipelines"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate specs without running them",
		Long: `Validate the units, gate networks and rewrite pipelines in a CUE specs
directory without running any of them.

Units are checked for well-formedness, networks for positive costs,
redefined ids, combinational loops and unknown rules, and pipelines for
rule and schedule syntax and negative limits. Every error is reported,
not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBuildFailed, "building schema", err)
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll, s)

	// Directory not found, no files, CUE that does not build.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, loadValidationError(err))
	}
	validationErrors = append(validationErrors, validateBundle(loadResult.Bundle, formatter)...)

	result := ValidationResult{
		Valid:     len(validationErrors) == 0,
		Units:     len(loadResult.Bundle.Units),
		Networks:  len(loadResult.Bundle.Networks),
		Pipelines: len(loadResult.Bundle.Pipelines),
		Errors:    validationErrors,
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateBundle validates every compiled definition. Field names are
// prefixed with the definition they belong to.
func validateBundle(b *compiler.Bundle, formatter *OutputFormatter) []compiler.ValidationError {
	var allErrors []compiler.ValidationError
	add := func(prefix string, errs []compiler.ValidationError) {
		for _, e := range errs {
			e.Field = prefix + "." + e.Field
			allErrors = append(allErrors, e)
		}
	}

	for _, u := range b.Units {
		formatter.VerboseLog("Validating unit: %s", u.Name)
		add("unit."+u.Name, compiler.Validate(u))
	}
	for _, n := range b.Networks {
		formatter.VerboseLog("Validating network: %s", n.Name)
		add("network."+n.Name, compiler.Validate(n))
	}
	for _, p := range b.Pipelines {
		formatter.VerboseLog("Validating pipeline: %s", p.Name)
		add("pipeline."+p.Name, compiler.Validate(p))
	}
	return allErrors
}

// loadValidationError converts a load or compile error.
func loadValidationError(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    lineOf(loadErr.Pos),
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s (%d unit(s), %d network(s), %d pipeline(s))\n",
		okMark("✓ All specs valid"), result.Units, result.Networks, result.Pipelines)
	return nil
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, failMark("✗ Validation failed"))
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n\n", accent(err.Code), err.Field, err.Message)
	}
	return failure
}

// ValidateSpecsDir validates all specs in a directory.
// This is a helper function for external callers.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	s, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return nil, err
	}
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll, s)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, loadValidationError(err))
	}
	silent := &OutputFormatter{Format: "text"}
	return append(errs, validateBundle(loadResult.Bundle, silent)...), nil
}
