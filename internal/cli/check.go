package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silica-hdl/silica/internal/checker"
	"github.com/silica-hdl/silica/internal/resolver"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	FailFast bool
}

// NewCheckCommand creates the check command: resolve and type-check every
// component without monomorphizing.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <design-dir>",
		Short: "Type-check a design",
		Long: `Resolve and temporally type-check every component in a design.

Reports all diagnostics by default; --fail-fast stops at the first failing
component.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first diagnostic")

	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
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

	mode := checker.ModeCollectAll
	if opts.FailFast {
		mode = checker.ModeFailFast
	}
	results, diags := checker.CheckAll(cmd.Context(), table, mode)
	if len(diags) > 0 {
		_ = formatter.Diagnostics(diags)
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(diags)))
	}

	if formatter.Format == "json" {
		type summary struct {
			Components  int `json:"components"`
			Constraints int `json:"constraints"`
		}
		total := 0
		for _, r := range results {
			total += len(r.Constraints)
		}
		return formatter.Success(summary{Components: len(results), Constraints: total})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d component(s) check\n", len(results))
	for _, name := range table.Order() {
		r := results[name]
		formatter.VerboseLog("  %s: %d constraint(s), %d existential(s)",
			name, len(r.Constraints), len(r.Exists))
	}
	return nil
}

// loadTable loads a design directory and resolves it into a symbol table,
// rendering any failures through the formatter.
func loadTable(formatter *OutputFormatter, dir string) (*resolver.Table, error) {
	ns, loadErrs := LoadNamespace(dir)
	if len(loadErrs) > 0 {
		for _, err := range loadErrs {
			code, message := ErrCodeGeneric, err.Error()
			if le, ok := err.(*LoadError); ok {
				code, message = le.Code, le.Message
			}
			_ = formatter.Error(code, message)
		}
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(loadErrs)))
	}
	formatter.VerboseLog("Loaded %d component(s) from %s", len(ns.Components), dir)

	table, diags := resolver.Resolve(ns)
	if len(diags) > 0 {
		_ = formatter.Diagnostics(diags)
		return nil, NewExitError(ExitFailure, fmt.Sprintf("resolution failed with %d error(s)", len(diags)))
	}
	return table, nil
}
