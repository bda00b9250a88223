// Package checker implements the temporal type checker.
//
// Given a resolved symbol table, Check validates one component against the
// signatures of everything it instantiates and produces the constraint set
// the solver must discharge, plus a decorated body for the monomorphizer.
// The checker is pure with respect to the symbol table: its only outputs
// are the result and diagnostics.
//
// The timing discipline is exact match: an argument's validity interval
// must equal the callee's required interval cycle for cycle, not merely
// contain it. Downstream consumers rely on precise alignment, so
// containment is not accepted.
package checker

import (
	"fmt"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
	"github.com/silica-hdl/silica/internal/resolver"
)

// Checking error codes (E200-E299)
const (
	// ErrMalformedInterval is an interval whose start does not strictly
	// precede its end.
	ErrMalformedInterval = "E201"
	// ErrIntervalMismatch is an argument interval differing from the
	// required interval.
	ErrIntervalMismatch = "E202"
	// ErrBitwidthMismatch is an argument width differing from the
	// required width.
	ErrBitwidthMismatch = "E203"
	// ErrGuardViolated is a value-parameter guard false for concrete
	// arguments.
	ErrGuardViolated = "E204"
	// ErrReuseHazard is overlapping invocation windows of one instance.
	ErrReuseHazard = "E205"
	// ErrBadInterfaceTiming is an interface signal not anchored at the
	// single-cycle window starting at the time parameter.
	ErrBadInterfaceTiming = "E206"
	// ErrArity is an argument-count mismatch at an instantiation or
	// invocation site.
	ErrArity = "E207"
)

// Mode controls how errors are handled during checking.
type Mode int

const (
	// ModeFailFast stops at the first diagnostic in a component.
	ModeFailFast Mode = iota
	// ModeCollectAll reports every diagnostic checking can still reach.
	ModeCollectAll
)

// Result is the checker's output for one component: the emitted constraint
// set, the existential unknowns the solver must determine, and the
// decorated body consumed by the monomorphizer.
type Result struct {
	Component *ast.Component

	// Constraints is the full constraint set: guards, interval-equality
	// obligations, existential definitions, and reuse ordering.
	Constraints []ir.Constraint

	// Exists lists the existential unknowns of this component's solve:
	// its own existential parameters plus one `instance.param` entry per
	// sub-instance existential. All are needed concretely downstream.
	Exists []string

	// Invocations is the decorated body: per invocation, the callee and
	// the concrete-relative intervals of its ports at that call site.
	Invocations map[string]*Invocation

	// Instances maps instance name to its declaration.
	Instances map[string]*ast.Instance
}

// Invocation is a decorated invocation: an instance fired at a start time,
// with every callee port's interval rebased to the parent's clock.
type Invocation struct {
	Invoke   *ast.Invoke
	Def      string
	Start    ir.TimeExpr
	Args     []ast.PortRef
	Required []PortWindow // callee arg-input ports at this call site
	Outputs  []PortWindow // callee output ports at this call site
}

// PortWindow pairs a port name with its concrete-relative interval and
// width at a specific call site.
type PortWindow struct {
	Port     string
	Interval ir.Interval
	Width    ir.Expr
}

// checkContext accumulates constraints and diagnostics for one component.
type checkContext struct {
	table *resolver.Table
	comp  *ast.Component
	mode  Mode

	constraints []ir.Constraint
	diags       []ir.Diagnostic

	instances map[string]*ast.Instance
	// instanceBinding maps instance name to the callee-parameter binding
	// (callee param -> argument expression in parent scope).
	instanceBinding map[string]map[string]ir.Expr
	invocations     map[string]*Invocation
	// invokeOrder preserves body order per instance for reuse checking.
	invokeOrder map[string][]*Invocation
	exists      []string
}

// Check validates one component. Signatures of instantiated components are
// read from the table; their bodies are never consulted, which is what
// allows independent components to be checked concurrently.
func Check(table *resolver.Table, comp *ast.Component, mode Mode) (*Result, []ir.Diagnostic) {
	ctx := &checkContext{
		table:           table,
		comp:            comp,
		mode:            mode,
		instances:       make(map[string]*ast.Instance),
		instanceBinding: make(map[string]map[string]ir.Expr),
		invocations:     make(map[string]*Invocation),
		invokeOrder:     make(map[string][]*Invocation),
	}

	ctx.checkInterfaceTiming()
	ctx.checkOwnSignature()
	ctx.collectOwnExists()

	for _, cmd := range comp.Body {
		if mode == ModeFailFast && len(ctx.diags) > 0 {
			break
		}
		switch c := cmd.(type) {
		case *ast.Instance:
			ctx.checkInstance(c)
		case *ast.Invoke:
			ctx.checkInvoke(c)
		case *ast.Connect:
			ctx.checkConnect(c)
		}
	}

	ctx.checkReuse()

	if len(ctx.diags) > 0 {
		return nil, ctx.diags
	}
	return &Result{
		Component:   comp,
		Constraints: ctx.constraints,
		Exists:      ctx.exists,
		Invocations: ctx.invocations,
		Instances:   ctx.instances,
	}, nil
}

func (ctx *checkContext) report(d ir.Diagnostic) {
	ctx.diags = append(ctx.diags, d)
}

func (ctx *checkContext) emit(c ir.Constraint) {
	ctx.constraints = append(ctx.constraints, c)
}

// checkInterfaceTiming verifies the control signal anchors the component's
// time parameter: its interval must be exactly [T, T+1). A wrong anchor or
// literal disagreement is reported eagerly; symbolic bounds become solver
// equations.
func (ctx *checkContext) checkInterfaceTiming() {
	comp := ctx.comp
	if comp.Interface == "" {
		return
	}
	port := comp.FindPort(comp.Interface)
	if port == nil {
		return // resolver already reported
	}
	want, _ := ir.NewInterval(ir.At(comp.Time.Name, ir.Nat(0)), ir.At(comp.Time.Name, ir.Nat(1)))
	if ir.IntervalEqual(port.Interval, want) {
		return
	}
	if port.Interval.Start.Event != comp.Time.Name || port.Interval.End.Event != comp.Time.Name ||
		literallyUnequal(port.Interval.Start, want.Start) || literallyUnequal(port.Interval.End, want.End) {
		ctx.report(ir.Diagnostic{
			Code: ErrBadInterfaceTiming,
			Message: fmt.Sprintf("component %q: interface signal %q must be available exactly %s, got %s",
				comp.Name, port.Name, want, port.Interval),
			Pos: port.Pos,
		})
		return
	}
	note := fmt.Sprintf("interface signal %q", port.Name)
	ctx.emit(ir.Constraint{
		Op: ir.CmpEq, L: port.Interval.Start, R: want.Start,
		Clause: ir.ClauseInterfaceTiming, Pos: port.Pos, Note: note,
	})
	ctx.emit(ir.Constraint{
		Op: ir.CmpEq, L: port.Interval.End, R: want.End,
		Clause: ir.ClauseInterfaceTiming, Pos: port.Pos, Note: note,
	})
}

// checkOwnSignature re-validates interval well-formedness for symbolic
// spans: whatever NewInterval could not decide syntactically becomes a
// start < end obligation for the solver.
func (ctx *checkContext) checkOwnSignature() {
	for _, port := range ctx.comp.Ports {
		iv := port.Interval
		if sameLiteralSpan(iv) {
			continue // decided at construction
		}
		c := ir.Constraint{
			Op:     ir.CmpLt,
			L:      iv.Start,
			R:      iv.End,
			Clause: ir.ClauseIntervalForm,
			Pos:    port.Pos,
			Note:   fmt.Sprintf("port %q", port.Name),
		}
		ctx.emit(c)
	}
}

func sameLiteralSpan(iv ir.Interval) bool {
	if iv.Start.Event != iv.End.Event {
		return false
	}
	_, sok := ir.IsLiteral(iv.Start.Offset)
	_, eok := ir.IsLiteral(iv.End.Offset)
	return sok && eok
}

// collectOwnExists registers the component's own existential parameters as
// solver unknowns, with their guards and explicit definitions.
func (ctx *checkContext) collectOwnExists() {
	for _, ex := range ctx.comp.Exists {
		ctx.exists = append(ctx.exists, ex.Name)
		if ex.Guard != nil {
			ctx.emit(ir.Constraint{
				Op:     ex.Guard.Op,
				L:      ir.TimeExpr{Offset: ex.Guard.L},
				R:      ir.TimeExpr{Offset: ex.Guard.R},
				Clause: ir.ClauseGuard,
				Pos:    ex.Guard.Pos,
				Note:   fmt.Sprintf("exists %q", ex.Name),
			})
		}
		if ex.Def != nil {
			ctx.emit(ir.Constraint{
				Op:     ir.CmpEq,
				L:      ir.TimeExpr{Offset: ir.Param(ex.Name)},
				R:      ir.TimeExpr{Offset: ex.Def},
				Clause: ir.ClauseExistsDef,
				Pos:    ex.Pos,
				Note:   fmt.Sprintf("exists %q", ex.Name),
			})
		}
	}
}

// checkInstance validates an instance declaration: argument arity, guard
// obligations, and the callee's existential parameters scoped under the
// instance name.
func (ctx *checkContext) checkInstance(inst *ast.Instance) {
	def := ctx.table.Component(inst.Def)
	if def == nil {
		return // resolver already reported
	}

	if len(inst.Args) != len(def.Params) {
		ctx.report(ir.Diagnostic{
			Code: ErrArity,
			Message: fmt.Sprintf("instance %q: %q takes %d value parameters, got %d",
				inst.Name, def.Name, len(def.Params), len(inst.Args)),
			Pos: inst.Pos,
		})
		return
	}

	// Callee parameter -> argument expression (in parent scope).
	binding := make(map[string]ir.Expr, len(def.Params))
	for i, p := range def.Params {
		binding[p.Name] = inst.Args[i]
	}
	ctx.instances[inst.Name] = inst
	ctx.instanceBinding[inst.Name] = binding

	ctx.checkGuards(inst, def, binding)
	ctx.scopeCalleeExists(inst, def, binding)
}

// checkGuards discharges the callee's `where` clauses for this
// instantiation: eagerly when the arguments are literal, as solver
// obligations otherwise. Guards must be proven for the specific arguments
// supplied, not merely declared.
func (ctx *checkContext) checkGuards(inst *ast.Instance, def *ast.Component, binding map[string]ir.Expr) {
	for _, p := range def.Params {
		for _, g := range p.Guards {
			l := ir.SubstExprs(g.L, binding)
			r := ir.SubstExprs(g.R, binding)
			c := ir.Constraint{
				Op:     g.Op,
				L:      ir.TimeExpr{Offset: l},
				R:      ir.TimeExpr{Offset: r},
				Clause: ir.ClauseGuard,
				Pos:    inst.Pos,
				Note:   fmt.Sprintf("guard on %s.%s for instance %q", def.Name, p.Name, inst.Name),
			}

			ln, lok := foldLiteral(l)
			rn, rok := foldLiteral(r)
			if lok && rok {
				ok, err := c.Holds(nil)
				if err == nil && !ok {
					ctx.report(ir.Diagnostic{
						Code: ErrGuardViolated,
						Message: fmt.Sprintf("instance %q violates guard %s %s %s on %s.%s (have %d %s %d)",
							inst.Name, g.L, g.Op, g.R, def.Name, p.Name, ln, g.Op, rn),
						Pos: inst.Pos,
					})
				}
				continue
			}
			ctx.emit(c)
		}
	}
}

// scopeCalleeExists brings the callee's existential parameters into the
// parent's solve, renamed `instance.param`. An explicit definition becomes
// an equation under the instance's argument binding; a bare guard travels
// with the renamed unknown.
func (ctx *checkContext) scopeCalleeExists(inst *ast.Instance, def *ast.Component, binding map[string]ir.Expr) {
	for _, ex := range def.Exists {
		ref := ir.ExistsRef{Instance: inst.Name, Param: ex.Name}
		ctx.exists = append(ctx.exists, ref.String())

		rename := map[string]ir.Expr{ex.Name: ref}
		if ex.Def != nil {
			ctx.emit(ir.Constraint{
				Op:     ir.CmpEq,
				L:      ir.TimeExpr{Offset: ref},
				R:      ir.TimeExpr{Offset: ir.SubstExprs(ex.Def, binding)},
				Clause: ir.ClauseExistsDef,
				Pos:    inst.Pos,
				Note:   fmt.Sprintf("exists %s.%s", inst.Name, ex.Name),
			})
		}
		if ex.Guard != nil {
			ctx.emit(ir.Constraint{
				Op:     ex.Guard.Op,
				L:      ir.TimeExpr{Offset: ir.SubstExprs(ir.SubstExprs(ex.Guard.L, rename), binding)},
				R:      ir.TimeExpr{Offset: ir.SubstExprs(ir.SubstExprs(ex.Guard.R, rename), binding)},
				Clause: ir.ClauseGuard,
				Pos:    inst.Pos,
				Note:   fmt.Sprintf("guard on exists %s.%s", inst.Name, ex.Name),
			})
		}
	}
}

// calleeBinding builds the substitution applied to a callee signature
// expression at a call site: value params to argument expressions and
// existentials to instance-scoped references.
func (ctx *checkContext) calleeBinding(instName string, def *ast.Component) map[string]ir.Expr {
	binding := make(map[string]ir.Expr)
	for name, arg := range ctx.instanceBinding[instName] {
		binding[name] = arg
	}
	for _, ex := range def.Exists {
		binding[ex.Name] = ir.ExistsRef{Instance: instName, Param: ex.Name}
	}
	return binding
}

// rebasePort produces the concrete-relative window of a callee port at a
// call site: the callee's time parameter is substituted with the start
// time, value parameters with arguments, existentials with scoped refs.
func rebasePort(port ast.Port, def *ast.Component, start ir.TimeExpr, binding map[string]ir.Expr) PortWindow {
	iv := ir.Interval{
		Start: rebaseTime(port.Interval.Start, def.Time.Name, start, binding),
		End:   rebaseTime(port.Interval.End, def.Time.Name, start, binding),
	}
	return PortWindow{
		Port:     port.Name,
		Interval: iv,
		Width:    ir.SubstExprs(port.Width, binding),
	}
}

func rebaseTime(t ir.TimeExpr, event string, start ir.TimeExpr, binding map[string]ir.Expr) ir.TimeExpr {
	offset := simplify(ir.SubstExprs(t.Offset, binding))
	if t.Event != event {
		return ir.TimeExpr{Event: t.Event, Offset: offset}
	}
	return simplifyTime(start.Shift(offset))
}

// simplify folds literal subtrees so rebased intervals render and compare
// as plain offsets wherever the arguments were literal.
func simplify(e ir.Expr) ir.Expr {
	return ir.Subst(e, nil)
}

func simplifyTime(t ir.TimeExpr) ir.TimeExpr {
	return ir.TimeExpr{Event: t.Event, Offset: simplify(t.Offset)}
}
