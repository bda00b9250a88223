// Package resolver binds identifiers to declarations and orders the
// instantiation graph.
//
// Resolution runs before type checking: it builds the symbol table that
// owns every component definition, verifies that signatures reference only
// declared names, and rejects definition-level instantiation cycles (which
// could never monomorphize). The table is immutable afterwards, so the
// checker and monomorphizer may read it from multiple goroutines.
package resolver

import (
	"fmt"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

// Resolution error codes (E100-E199)
const (
	// ErrUnboundIdentifier is an unresolved component, instance, or port name.
	ErrUnboundIdentifier = "E101"
	// ErrCyclicImport is a definition-level instantiation or import cycle.
	ErrCyclicImport = "E102"
	// ErrDuplicateName is a duplicate component, instance, or invocation name.
	ErrDuplicateName = "E103"
	// ErrUnboundParam is a signature expression referencing an undeclared parameter.
	ErrUnboundParam = "E104"
)

// Table is the resolved symbol table. It owns all component definitions;
// instances and invocations refer to them by name, never by pointer.
type Table struct {
	components map[string]*ast.Component
	// order is a topological order of the instantiation graph, leaves first.
	order []string
}

// Component returns the named definition, or nil.
func (t *Table) Component(name string) *ast.Component {
	return t.components[name]
}

// Order returns component names in dependency order, leaves first.
// Independent components may be checked concurrently wave by wave.
func (t *Table) Order() []string {
	return t.order
}

// Len returns the number of resolved components.
func (t *Table) Len() int { return len(t.components) }

// Resolve builds the symbol table for a namespace, collecting all
// diagnostics rather than failing fast. A nil table is returned only when
// resolution found errors.
func Resolve(ns *ast.Namespace) (*Table, []ir.Diagnostic) {
	var diags []ir.Diagnostic

	table := &Table{components: make(map[string]*ast.Component, len(ns.Components))}
	for _, comp := range ns.Components {
		if _, dup := table.components[comp.Name]; dup {
			diags = append(diags, ir.Diagnostic{
				Code:    ErrDuplicateName,
				Message: fmt.Sprintf("duplicate component definition %q", comp.Name),
				Pos:     comp.Pos,
			})
			continue
		}
		table.components[comp.Name] = comp
	}

	for _, comp := range ns.Components {
		diags = append(diags, resolveSignature(comp)...)
		diags = append(diags, resolveBody(table, comp)...)
	}

	order, cycleDiags := orderComponents(table)
	diags = append(diags, cycleDiags...)
	table.order = order

	if len(diags) > 0 {
		return nil, diags
	}
	return table, nil
}

// resolveSignature checks signature well-formedness: every port interval
// and width expression references only declared parameters.
func resolveSignature(comp *ast.Component) []ir.Diagnostic {
	var diags []ir.Diagnostic

	declared := map[string]bool{comp.Time.Name: true}
	for _, p := range comp.Params {
		declared[p.Name] = true
	}
	for _, e := range comp.Exists {
		declared[e.Name] = true
	}

	checkExpr := func(e ir.Expr, what string, pos ir.Pos) {
		for _, name := range ir.Params(e) {
			if !declared[name] {
				diags = append(diags, ir.Diagnostic{
					Code:    ErrUnboundParam,
					Message: fmt.Sprintf("component %q: %s references undeclared parameter %q", comp.Name, what, name),
					Pos:     pos,
				})
			}
		}
	}

	seenPorts := make(map[string]bool)
	for _, port := range comp.Ports {
		if seenPorts[port.Name] {
			diags = append(diags, ir.Diagnostic{
				Code:    ErrDuplicateName,
				Message: fmt.Sprintf("component %q: duplicate port %q", comp.Name, port.Name),
				Pos:     port.Pos,
			})
		}
		seenPorts[port.Name] = true

		what := fmt.Sprintf("port %q", port.Name)
		if port.Interval.Start.Event != "" && port.Interval.Start.Event != comp.Time.Name {
			diags = append(diags, ir.Diagnostic{
				Code:    ErrUnboundParam,
				Message: fmt.Sprintf("component %q: %s is anchored at %q, not the time parameter %q", comp.Name, what, port.Interval.Start.Event, comp.Time.Name),
				Pos:     port.Pos,
			})
		}
		checkExpr(port.Interval.Start.Offset, what+" start", port.Pos)
		checkExpr(port.Interval.End.Offset, what+" end", port.Pos)
		checkExpr(port.Width, what+" width", port.Pos)
	}

	for _, p := range comp.Params {
		for _, g := range p.Guards {
			checkExpr(g.L, fmt.Sprintf("guard on %q", p.Name), g.Pos)
			checkExpr(g.R, fmt.Sprintf("guard on %q", p.Name), g.Pos)
		}
	}
	for _, e := range comp.Exists {
		if e.Guard != nil {
			checkExpr(e.Guard.L, fmt.Sprintf("guard on exists %q", e.Name), e.Guard.Pos)
			checkExpr(e.Guard.R, fmt.Sprintf("guard on exists %q", e.Name), e.Guard.Pos)
		}
		if e.Def != nil {
			checkExpr(e.Def, fmt.Sprintf("definition of exists %q", e.Name), e.Pos)
		}
	}

	if comp.Interface != "" && comp.FindPort(comp.Interface) == nil {
		diags = append(diags, ir.Diagnostic{
			Code:    ErrUnboundIdentifier,
			Message: fmt.Sprintf("component %q: interface names unknown port %q", comp.Name, comp.Interface),
			Pos:     comp.Pos,
		})
	}

	return diags
}

// resolveBody checks that body commands reference declared definitions,
// instances, and invocation names, and that names are not redeclared.
func resolveBody(table *Table, comp *ast.Component) []ir.Diagnostic {
	var diags []ir.Diagnostic

	instances := make(map[string]string) // instance name -> definition name
	invokes := make(map[string]string)   // invocation name -> instance name

	for _, cmd := range comp.Body {
		switch c := cmd.(type) {
		case *ast.Instance:
			if _, dup := instances[c.Name]; dup {
				diags = append(diags, ir.Diagnostic{
					Code:    ErrDuplicateName,
					Message: fmt.Sprintf("component %q: duplicate instance %q", comp.Name, c.Name),
					Pos:     c.Pos,
				})
				continue
			}
			def := table.Component(c.Def)
			if def == nil {
				diags = append(diags, ir.Diagnostic{
					Code:    ErrUnboundIdentifier,
					Message: fmt.Sprintf("component %q: instance %q references unknown component %q", comp.Name, c.Name, c.Def),
					Pos:     c.Pos,
				})
				continue
			}
			instances[c.Name] = c.Def

		case *ast.Invoke:
			if _, dup := invokes[c.Name]; dup {
				diags = append(diags, ir.Diagnostic{
					Code:    ErrDuplicateName,
					Message: fmt.Sprintf("component %q: duplicate invocation %q", comp.Name, c.Name),
					Pos:     c.Pos,
				})
				continue
			}
			if _, ok := instances[c.Instance]; !ok {
				diags = append(diags, ir.Diagnostic{
					Code:    ErrUnboundIdentifier,
					Message: fmt.Sprintf("component %q: invocation %q fires unknown instance %q", comp.Name, c.Name, c.Instance),
					Pos:     c.Pos,
				})
				continue
			}
			invokes[c.Name] = c.Instance
			for _, arg := range c.Args {
				diags = append(diags, resolvePortRef(table, comp, invokes, instances, arg)...)
			}

		case *ast.Connect:
			diags = append(diags, resolvePortRef(table, comp, invokes, instances, c.Dst)...)
			diags = append(diags, resolvePortRef(table, comp, invokes, instances, c.Src)...)
		}
	}

	return diags
}

// resolvePortRef validates a signal reference: a bare own-port name or
// invocation.port for an already-declared invocation.
func resolvePortRef(table *Table, comp *ast.Component, invokes, instances map[string]string, ref ast.PortRef) []ir.Diagnostic {
	if ref.Instance == "" {
		if comp.FindPort(ref.Port) == nil {
			return []ir.Diagnostic{{
				Code:    ErrUnboundIdentifier,
				Message: fmt.Sprintf("component %q: unknown port %q", comp.Name, ref.Port),
				Pos:     ref.Pos,
			}}
		}
		return nil
	}

	instName, ok := invokes[ref.Instance]
	if !ok {
		return []ir.Diagnostic{{
			Code:    ErrUnboundIdentifier,
			Message: fmt.Sprintf("component %q: reference %q names an unknown invocation", comp.Name, ref),
			Pos:     ref.Pos,
		}}
	}
	defName := instances[instName]
	def := table.Component(defName)
	if def != nil && def.FindPort(ref.Port) == nil {
		return []ir.Diagnostic{{
			Code:    ErrUnboundIdentifier,
			Message: fmt.Sprintf("component %q: %q has no port %q", comp.Name, defName, ref.Port),
			Pos:     ref.Pos,
		}}
	}
	return nil
}
