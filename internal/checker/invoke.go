package checker

import (
	"fmt"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

// checkInvoke validates one invocation: the instance exists, the argument
// count matches the callee's non-interface inputs, and every supplied
// argument's interval and width exactly equal the callee's requirement
// rebased to the call-site start time.
func (ctx *checkContext) checkInvoke(inv *ast.Invoke) {
	inst, ok := ctx.instances[inv.Instance]
	if !ok {
		return // resolver already reported
	}
	def := ctx.table.Component(inst.Def)
	if def == nil {
		return
	}

	if inv.Start.Event != ctx.comp.Time.Name {
		ctx.report(ir.Diagnostic{
			Code: ErrBadInterfaceTiming,
			Message: fmt.Sprintf("invocation %q starts at %s, which is not anchored at the time parameter %q",
				inv.Name, inv.Start, ctx.comp.Time.Name),
			Pos: inv.Pos,
		})
		return
	}

	binding := ctx.calleeBinding(inv.Instance, def)

	argPorts := def.ArgInputs()
	if len(inv.Args) != len(argPorts) {
		ctx.report(ir.Diagnostic{
			Code: ErrArity,
			Message: fmt.Sprintf("invocation %q: %q takes %d arguments, got %d",
				inv.Name, def.Name, len(argPorts), len(inv.Args)),
			Pos: inv.Pos,
		})
		return
	}

	decorated := &Invocation{
		Invoke:   inv,
		Def:      inst.Def,
		Start:    inv.Start,
		Args:     inv.Args,
		Required: make([]PortWindow, len(argPorts)),
	}

	for i, port := range argPorts {
		required := rebasePort(port, def, inv.Start, binding)
		decorated.Required[i] = required

		supplied, ok := ctx.guaranteeOf(inv.Args[i])
		if !ok {
			continue
		}
		ctx.requireExactMatch(required, supplied, inv.Args[i], inv.Pos, ir.ClausePortObligation)
	}

	for _, port := range def.Outputs() {
		decorated.Outputs = append(decorated.Outputs, rebasePort(port, def, inv.Start, binding))
	}

	ctx.invocations[inv.Name] = decorated
	ctx.invokeOrder[inv.Instance] = append(ctx.invokeOrder[inv.Instance], decorated)
}

// checkConnect validates an output binding `dst = src`: the destination
// must be an own output port and the source's guarantee must exactly equal
// the declared interval. This equation is what forces a wrapper's declared
// existential to equal the inner component's computed latency.
func (ctx *checkContext) checkConnect(con *ast.Connect) {
	if con.Dst.Instance != "" {
		ctx.report(ir.Diagnostic{
			Code:    ErrIntervalMismatch,
			Message: fmt.Sprintf("connect destination %q must be a port of the enclosing component", con.Dst),
			Pos:     con.Pos,
		})
		return
	}
	port := ctx.comp.FindPort(con.Dst.Port)
	if port == nil {
		return // resolver already reported
	}
	if port.Dir != ir.DirOut {
		ctx.report(ir.Diagnostic{
			Code:    ErrIntervalMismatch,
			Message: fmt.Sprintf("connect destination %q is not an output port", con.Dst),
			Pos:     con.Pos,
		})
		return
	}

	required := PortWindow{Port: port.Name, Interval: port.Interval, Width: port.Width}
	supplied, ok := ctx.guaranteeOf(con.Src)
	if !ok {
		return
	}
	ctx.requireExactMatch(required, supplied, con.Src, con.Pos, ir.ClauseBinding)
}

// guaranteeOf resolves what a signal reference provides: an own input
// port's declared window, or a sub-invocation output's rebased window.
func (ctx *checkContext) guaranteeOf(ref ast.PortRef) (PortWindow, bool) {
	if ref.Instance == "" {
		port := ctx.comp.FindPort(ref.Port)
		if port == nil {
			return PortWindow{}, false // resolver already reported
		}
		return PortWindow{Port: port.Name, Interval: port.Interval, Width: port.Width}, true
	}

	decorated, ok := ctx.invocations[ref.Instance]
	if !ok {
		return PortWindow{}, false
	}
	for _, out := range decorated.Outputs {
		if out.Port == ref.Port {
			return out, true
		}
	}
	return PortWindow{}, false
}

// requireExactMatch asserts supplied == required for interval and width.
// Decidable mismatches are reported eagerly with both sides rendered
// symbolically; everything else becomes equality constraints for the
// solver.
func (ctx *checkContext) requireExactMatch(required, supplied PortWindow, ref ast.PortRef, pos ir.Pos, clause ir.ClauseKind) {
	if !ir.IntervalEqual(required.Interval, supplied.Interval) {
		if literallyUnequal(required.Interval.Start, supplied.Interval.Start) ||
			literallyUnequal(required.Interval.End, supplied.Interval.End) {
			ctx.report(ir.Diagnostic{
				Code: ErrIntervalMismatch,
				Message: fmt.Sprintf("argument %q is valid %s but port %q requires exactly %s",
					ref, supplied.Interval, required.Port, required.Interval),
				Pos: pos,
			})
		} else {
			note := fmt.Sprintf("argument %q for port %q", ref, required.Port)
			ctx.emit(ir.Constraint{
				Op: ir.CmpEq, L: supplied.Interval.Start, R: required.Interval.Start,
				Clause: clause, Pos: pos, Note: note,
			})
			ctx.emit(ir.Constraint{
				Op: ir.CmpEq, L: supplied.Interval.End, R: required.Interval.End,
				Clause: clause, Pos: pos, Note: note,
			})
		}
	}

	if !ir.ExprEqual(required.Width, supplied.Width) {
		rn, rok := foldLiteral(required.Width)
		sn, sok := foldLiteral(supplied.Width)
		if rok && sok && rn != sn {
			ctx.report(ir.Diagnostic{
				Code: ErrBitwidthMismatch,
				Message: fmt.Sprintf("argument %q is %d bits wide but port %q requires %d",
					ref, sn, required.Port, rn),
				Pos: pos,
			})
		} else {
			ctx.emit(ir.Constraint{
				Op: ir.CmpEq, L: ir.TimeExpr{Offset: supplied.Width}, R: ir.TimeExpr{Offset: required.Width},
				Clause: clause, Pos: pos,
				Note: fmt.Sprintf("width of argument %q for port %q", ref, required.Port),
			})
		}
	}
}

// literallyUnequal reports a decidable disagreement: both times anchored at
// the same event with literal offsets that differ.
func literallyUnequal(a, b ir.TimeExpr) bool {
	if a.Event != b.Event {
		return false
	}
	an, aok := foldLiteral(a.Offset)
	bn, bok := foldLiteral(b.Offset)
	return aok && bok && an != bn
}

func foldLiteral(e ir.Expr) (int64, bool) {
	return ir.IsLiteral(simplify(e))
}

// checkReuse asserts that repeated invocations of one instance never drive
// the same port at overlapping times. Disjointness is per port: the unit's
// registers may pipeline back-to-back firings, but one physical port
// carrying two live values at once is a structural hazard.
//
// For literal schedules every pair is checked both ways; symbolic schedules
// yield ordering constraints in body order (earlier invocation's window on
// each port must close before the later one's opens).
func (ctx *checkContext) checkReuse() {
	for instName, invs := range ctx.invokeOrder {
		if len(invs) < 2 {
			continue
		}
		for i := 0; i < len(invs); i++ {
			for j := i + 1; j < len(invs); j++ {
				ctx.checkReusePair(instName, invs[i], invs[j])
			}
		}
	}
}

func (ctx *checkContext) checkReusePair(instName string, a, b *Invocation) {
	aw := append(append([]PortWindow{}, a.Required...), a.Outputs...)
	bw := append(append([]PortWindow{}, b.Required...), b.Outputs...)

	for i := range aw {
		if i >= len(bw) || aw[i].Port != bw[i].Port {
			continue
		}
		ai, bi := aw[i].Interval, bw[i].Interval

		if lit, ok := literalWindows(ai, bi); ok {
			if lit.overlaps() {
				ctx.report(ir.Diagnostic{
					Code: ErrReuseHazard,
					Message: fmt.Sprintf("instance %q reused while busy: invocations %q and %q both drive port %q during %s and %s",
						instName, a.Invoke.Name, b.Invoke.Name, aw[i].Port, ai, bi),
					Pos: b.Invoke.Pos,
				})
			}
			continue
		}

		// Symbolic schedule: require the body-order earlier window to
		// close before the later one opens.
		ctx.emit(ir.Constraint{
			Op: ir.CmpLe, L: ai.End, R: bi.Start,
			Clause: ir.ClauseReuseOrder, Pos: b.Invoke.Pos,
			Note: fmt.Sprintf("reuse of %q port %q by %q after %q", instName, aw[i].Port, b.Invoke.Name, a.Invoke.Name),
		})
	}
}

type literalPair struct {
	aStart, aEnd, bStart, bEnd int64
}

func (p literalPair) overlaps() bool {
	return p.aStart < p.bEnd && p.bStart < p.aEnd
}

// literalWindows extracts both windows as literal cycles when all four
// bounds share one event and fold to naturals.
func literalWindows(a, b ir.Interval) (literalPair, bool) {
	event := a.Start.Event
	for _, t := range []ir.TimeExpr{a.End, b.Start, b.End} {
		if t.Event != event {
			return literalPair{}, false
		}
	}
	as, ok1 := foldLiteral(a.Start.Offset)
	ae, ok2 := foldLiteral(a.End.Offset)
	bs, ok3 := foldLiteral(b.Start.Offset)
	be, ok4 := foldLiteral(b.End.Offset)
	if !(ok1 && ok2 && ok3 && ok4) {
		return literalPair{}, false
	}
	return literalPair{aStart: as, aEnd: ae, bStart: bs, bEnd: be}, true
}
