package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"

	"github.com/silica-hdl/silica/internal/compiler"
	"github.com/silica-hdl/silica/internal/ir"
	"github.com/silica-hdl/silica/internal/mono"
	"github.com/silica-hdl/silica/internal/resolver"
	"github.com/silica-hdl/silica/internal/solver"
)

// Result captures a scenario execution: exactly one of Design and
// Diagnostics is populated.
type Result struct {
	Design      *ir.Design
	Diagnostics []ir.Diagnostic
}

// Failed reports whether compilation produced diagnostics.
func (r *Result) Failed() bool { return len(r.Diagnostics) > 0 }

// Run executes a scenario's compile pipeline end to end. An error return
// means the harness itself could not run (unreadable or undecodable design
// document); compilation failures are reported through Result.Diagnostics.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	src, err := os.ReadFile(scenario.Design)
	if err != nil {
		return nil, fmt.Errorf("reading design %s: %w", scenario.Design, err)
	}

	doc := cuecontext.New().CompileString(string(src))
	ns, errs := compiler.CompileNamespace(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("decoding design %s: %w", scenario.Design, errs[0])
	}
	ns.File = scenario.Design

	table, diags := resolver.Resolve(ns)
	if len(diags) > 0 {
		return &Result{Diagnostics: diags}, nil
	}

	design, err := mono.Monomorphize(ctx, table, scenario.Entry, solver.Linear{}, mono.Options{
		EntryArgs: scenario.Args,
	})
	if err != nil {
		var merr mono.Errors
		if errors.As(err, &merr) {
			return &Result{Diagnostics: merr}, nil
		}
		return nil, err
	}

	if err := mono.Verify(design); err != nil {
		return nil, fmt.Errorf("emitted design failed verification: %w", err)
	}
	return &Result{Design: design}, nil
}
