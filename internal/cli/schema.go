package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eqhdl/eqhdl/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Symbols bool // list the opcode/symbol table instead of the program
}

// SymbolEntry maps one IR operation to its constructor.
type SymbolEntry struct {
	Opcode string `json:"opcode"`
	Symbol string `json:"symbol"`
	Shape  string `json:"shape"`
}

// SchemaResult describes the schema every session starts from.
type SchemaResult struct {
	Operations   int           `json:"operations"`
	Constructors int           `json:"constructors"`
	Symbols      []SymbolEntry `json:"symbols,omitempty"`
	Program      string        `json:"program,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the datatype schema derived from the operation registry",
		Long: `Print the schema program every rewrite session starts from: one
datatype of term constructors per operation, plus the auxiliary sorts.

Examples:
  eqhdl schema
  eqhdl schema --symbols
  eqhdl schema --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Symbols, "symbols", false, "list the opcode to symbol table")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg := schema.DefaultRegistry()
	s, err := schema.Build(reg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBuildFailed, "building schema", err)
	}

	result := SchemaResult{
		Operations:   reg.Len(),
		Constructors: len(s.Constructors()),
	}
	if opts.Symbols {
		for _, op := range reg.Opcodes() {
			sym, err := reg.SymbolOf(op)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "symbol table", err)
			}
			result.Symbols = append(result.Symbols, SymbolEntry{
				Opcode: op.String(),
				Symbol: sym,
				Shape:  fmt.Sprint(op.Shape()),
			})
		}
	} else {
		result.Program = s.String()
	}

	if f.JSON() {
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintf(w, "%s %d operations, %d constructors\n", heading("Schema:"), result.Operations, result.Constructors)
	if opts.Symbols {
		for _, e := range result.Symbols {
			fmt.Fprintf(w, "  %-14s %s\n", e.Opcode, accent(e.Symbol))
		}
		return nil
	}
	fmt.Fprint(w, result.Program)
	return nil
}
