package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/codec"
	"github.com/eqhdl/eqhdl/internal/compiler"
	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/schema"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Units   []string // unit names; empty means all
	Workers int
}

// EncodedUnit is one unit and the term it encodes to.
type EncodedUnit struct {
	Unit   string `json:"unit"`
	Binder string `json:"binder,omitempty"`
	Term   string `json:"term,omitempty"`
	Error  string `json:"error,omitempty"`
}

// EncodeResult holds every encoded unit.
type EncodeResult struct {
	Units  []EncodedUnit `json:"units"`
	Failed int           `json:"failed"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <specs-dir>",
		Short: "Encode IR units to terms",
		Long: `Compile the units in a CUE specs directory and print the binder and
term each one encodes to. A unit that fails to encode is reported and
does not stop the others.

Exit codes:
  0 - Every unit encoded
  1 - One or more units failed to encode
  2 - Command error (invalid specs, unknown unit)

Examples:
  eqhdl encode ./specs
  eqhdl encode ./specs --unit @f --unit @top
  eqhdl encode ./specs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Units, "unit", nil, "unit to encode (repeatable)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "encoding workers (0 = GOMAXPROCS)")

	return cmd
}

func runEncode(opts *EncodeOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := schema.Build(schema.DefaultRegistry())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBuildFailed, "building schema", err)
	}
	bundle, err := loadBundle(f, specsDir, s)
	if err != nil {
		return err
	}
	units, err := selectUnits(bundle, opts.Units)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}

	var encOpts []codec.EncoderOption
	if opts.Workers > 0 {
		encOpts = append(encOpts, codec.WithWorkers(opts.Workers))
	}
	ctx := commandContext(cmd)

	result := EncodeResult{Units: make([]EncodedUnit, 0, len(units))}
	for _, r := range codec.NewEncoder(s, encOpts...).EncodeAll(ctx, units) {
		eu := EncodedUnit{Unit: r.Unit.Name, Binder: r.Binder}
		if r.Err != nil {
			eu.Error = r.Err.Error()
			result.Failed++
		} else {
			eu.Term = r.Term.String()
		}
		result.Units = append(result.Units, eu)
	}

	if f.JSON() {
		status := "ok"
		if result.Failed > 0 {
			status = "error"
		}
		if err := f.Respond(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		for _, eu := range result.Units {
			if eu.Error != "" {
				fmt.Fprintf(f.Writer, "%s %s\n  %s\n", failMark("✗"), eu.Unit, eu.Error)
				continue
			}
			fmt.Fprintf(f.Writer, "%s %s %s\n  %s\n", okMark("✓"), eu.Unit, accent("("+eu.Binder+")"), eu.Term)
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d unit(s) failed to encode", result.Failed, len(units)))
	}
	return nil
}

// selectUnits returns the named units in the given order, or every bundle
// unit when names is empty.
func selectUnits(b *compiler.Bundle, names []string) ([]*ir.Unit, error) {
	if len(names) == 0 {
		if len(b.Units) == 0 {
			return nil, fmt.Errorf("no units defined in specs")
		}
		return b.Units, nil
	}
	units := make([]*ir.Unit, len(names))
	for i, name := range names {
		u := b.Unit(name)
		if u == nil {
			return nil, fmt.Errorf("unit %q not found in specs", name)
		}
		units[i] = u
	}
	return units, nil
}
