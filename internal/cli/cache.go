package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/silica-hdl/silica/internal/cache"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Def      string
	Models   bool
	Sessions bool
}

// NewCacheCommand creates the cache command: inspect a persistent compile
// cache database.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache <cache-db>",
		Short: "Inspect a persistent compile cache",
		Long: `List cached specializations, solved existential models, or compile
sessions from a cache database written by compile --cache.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Def, "def", "", "filter by definition name")
	cmd.Flags().BoolVar(&opts.Models, "models", false, "list solved existential models")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list compile sessions")

	return cmd
}

func runCacheInspect(opts *CacheOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("cache database not found: %s", path))
		return NewExitError(ExitCommandError, "cache database not found")
	}

	c, err := cache.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error())
		return WrapExitError(ExitCommandError, "opening compile cache", err)
	}
	defer c.Close()

	ctx := cmd.Context()
	filter := cache.Filter{Def: opts.Def}

	switch {
	case opts.Sessions:
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error())
			return WrapExitError(ExitCommandError, "listing sessions", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(sessions)
		}
		for _, s := range sessions {
			fmt.Fprintf(formatter.Writer, "%s  %s  compiler %s, ir %s\n",
				s.ID, s.CreatedAt, s.CompilerVersion, s.IRVersion)
		}
		fmt.Fprintf(formatter.Writer, "\n%d session(s)\n", len(sessions))
		return nil

	case opts.Models:
		models, err := c.ListModels(ctx, filter)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error())
			return WrapExitError(ExitCommandError, "listing models", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(models)
		}
		for _, m := range models {
			fmt.Fprintf(formatter.Writer, "%s:\n", m.Component)
			names := make([]string, 0, len(m.Model))
			for name := range m.Model {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(formatter.Writer, "  %s = %d\n", name, m.Model[name])
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d model(s)\n", len(models))
		return nil

	default:
		specs, err := c.ListSpecializations(ctx, filter)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error())
			return WrapExitError(ExitCommandError, "listing specializations", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(specs)
		}
		for _, s := range specs {
			fmt.Fprintf(formatter.Writer, "%s%v  %s\n", s.Def, s.Args, s.Key)
		}
		fmt.Fprintf(formatter.Writer, "\n%d specialization(s)\n", len(specs))
		return nil
	}
}
