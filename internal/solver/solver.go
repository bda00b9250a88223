// Package solver discharges the constraint sets produced by the checker.
//
// The solver boundary is a protocol, not an implementation: an Engine takes
// a Query and answers Sat with a model, Unsat with the violated clauses, or
// Ambiguous when a needed existential is not pinned down. The default Linear
// engine handles the fragment the checker actually emits (linear arithmetic
// over naturals, all times anchored at one clock); swapping in an external
// SMT-backed engine changes nothing upstream.
package solver

import (
	"context"
	"fmt"

	"github.com/silica-hdl/silica/internal/ir"
)

// Solving error codes (E300-E399)
const (
	// ErrUnsatisfiable is a constraint set with no model.
	ErrUnsatisfiable = "E301"
	// ErrUnderconstrained is a needed existential the constraints leave
	// free. The solver never invents a value for it.
	ErrUnderconstrained = "E302"
)

// Existential names one unknown of a query.
type Existential struct {
	Name string
}

// Query is one solve request. Queries are self-contained: value parameters
// are already substituted to literals by the caller, so the only free names
// in Constraints are the existentials in Vars and the clock events.
type Query struct {
	// Component names the component being solved, for diagnostics.
	Component string

	Vars []Existential

	// Need lists the variables a caller requires concretely. A variable in
	// Vars but not in Need may stay free without making the query
	// ambiguous.
	Need []string

	Constraints []ir.Constraint
}

// Status classifies a solve outcome.
type Status string

const (
	StatusSat       Status = "sat"
	StatusUnsat     Status = "unsat"
	StatusAmbiguous Status = "ambiguous"
)

// Result is a solve outcome. Model is populated as far as propagation got,
// even on failure, so diagnostics can show partial assignments.
type Result struct {
	Status Status

	// Model maps variable names (own existentials and `inst.param` refs)
	// to their solved values.
	Model map[string]int64

	// Conflicts holds the violated constraints when Status is Unsat.
	Conflicts []ir.Constraint

	// Free lists the needed variables left unassigned when Status is
	// Ambiguous.
	Free []string
}

// Engine is a solver session factory boundary. Implementations must be safe
// for concurrent use; each Solve call is an independent session.
type Engine interface {
	Solve(ctx context.Context, q Query) (Result, error)
}

// Diagnose renders a non-Sat result as diagnostics attributed to the
// originating clauses.
func Diagnose(q Query, r Result) []ir.Diagnostic {
	var diags []ir.Diagnostic
	switch r.Status {
	case StatusUnsat:
		for _, c := range r.Conflicts {
			d := ir.Diagnostic{
				Code:    ErrUnsatisfiable,
				Message: fmt.Sprintf("component %q: constraint %s cannot be satisfied", q.Component, c),
				Pos:     c.Pos,
			}
			if c.Note != "" {
				d.Notes = append(d.Notes, fmt.Sprintf("required by %s (%s)", c.Note, c.Clause))
			}
			for _, name := range ir.Binding(r.Model).SortedNames() {
				d.Notes = append(d.Notes, fmt.Sprintf("with %s = %d", name, r.Model[name]))
			}
			diags = append(diags, d)
		}
	case StatusAmbiguous:
		for _, name := range r.Free {
			diags = append(diags, ir.Diagnostic{
				Code: ErrUnderconstrained,
				Message: fmt.Sprintf("component %q: existential %q is not determined by its constraints",
					q.Component, name),
				Notes: []string{"give it a definition or bind the port that depends on it"},
			})
		}
	}
	return diags
}
