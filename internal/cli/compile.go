package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/silica-hdl/silica/internal/cache"
	"github.com/silica-hdl/silica/internal/checker"
	"github.com/silica-hdl/silica/internal/ir"
	"github.com/silica-hdl/silica/internal/mono"
	"github.com/silica-hdl/silica/internal/solver"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Entry      string
	EntryArgs  []int64
	Output     string
	ShowModels bool
	CachePath  string
	CheckOnly  bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <design-dir>",
		Short: "Compile a design to flat IR",
		Long: `Type-check a design and monomorphize it from the entry component into
flat, cycle-accurate IR: one specialization per distinct (definition,
arguments) pair, every interval a literal.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileDesign(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entry, "entry", "", "entry component (required)")
	cmd.Flags().Int64SliceVar(&opts.EntryArgs, "args", nil, "literal value arguments for the entry component")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.ShowModels, "show-models", false, "print solved existential models")
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "persistent compile cache database")
	cmd.Flags().BoolVar(&opts.CheckOnly, "check-only", false, "stop after type checking")
	_ = cmd.MarkFlagRequired("entry")

	return cmd
}

func runCompileDesign(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	table, err := loadTable(formatter, dir)
	if err != nil {
		return err
	}

	if opts.CheckOnly {
		_, diags := checker.CheckAll(cmd.Context(), table, checker.ModeCollectAll)
		if len(diags) > 0 {
			_ = formatter.Diagnostics(diags)
			return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(diags)))
		}
		return formatter.Success("design checks")
	}

	monoOpts := mono.Options{EntryArgs: opts.EntryArgs}
	if opts.CachePath != "" {
		c, err := cache.Open(opts.CachePath)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error())
			return WrapExitError(ExitCommandError, "opening compile cache", err)
		}
		defer c.Close()
		formatter.VerboseLog("Compile cache %s (session %s)", opts.CachePath, c.Session())
		monoOpts.Store = c
	}

	design, err := mono.Monomorphize(cmd.Context(), table, opts.Entry, solver.Linear{}, monoOpts)
	if err != nil {
		var diags mono.Errors
		if errors.As(err, &diags) {
			_ = formatter.Diagnostics(diags)
			return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(diags)))
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error())
		return WrapExitError(ExitCommandError, "compilation failed", err)
	}
	if err := mono.Verify(design); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error())
		return WrapExitError(ExitCommandError, "emitted design failed verification", err)
	}

	if opts.Output != "" {
		if err := writeDesign(design, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error())
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputDesign(formatter, design, opts)
}

func outputDesign(formatter *OutputFormatter, design *ir.Design, opts *CompileOptions) error {
	if formatter.Format == "json" {
		return formatter.Success(design)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d specialization(s) from %s\n\n",
		len(design.Components), opts.Entry)

	for _, comp := range sortedComponents(design) {
		fmt.Fprintf(formatter.Writer, "  %s%v: %d port(s), %d sub(s)\n",
			comp.Name, comp.Args, len(comp.Ports), len(comp.Subs))
		if opts.ShowModels && len(comp.Exists) > 0 {
			names := make([]string, 0, len(comp.Exists))
			for name := range comp.Exists {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(formatter.Writer, "    %s = %d\n", name, comp.Exists[name])
			}
		}
	}

	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote design to %s\n", opts.Output)
	}
	return nil
}

// sortedComponents orders the design's components entry-first, then by name
// and arguments, for stable text output.
func sortedComponents(design *ir.Design) []*ir.Component {
	out := make([]*ir.Component, 0, len(design.Components))
	for _, comp := range design.Components {
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Key == design.Entry) != (out[j].Key == design.Entry) {
			return out[i].Key == design.Entry
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return fmt.Sprint(out[i].Args) < fmt.Sprint(out[j].Args)
	})
	return out
}

// writeDesign writes the design to a file as indented JSON. Canonical JSON
// without indentation is used only for hashing.
func writeDesign(design *ir.Design, filename string) error {
	data, err := json.MarshalIndent(design, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling design: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
