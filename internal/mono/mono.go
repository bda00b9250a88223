// Package mono flattens a checked design into the parameter-free output
// form. Starting from the entry component it specializes every reachable
// instantiation for its concrete argument tuple, solves the specialization's
// constraint set, and reduces all intervals to literal cycles relative to
// each component's own start.
package mono

import (
	"context"
	"fmt"
	"strings"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/checker"
	"github.com/silica-hdl/silica/internal/ir"
	"github.com/silica-hdl/silica/internal/resolver"
	"github.com/silica-hdl/silica/internal/solver"
)

// ErrInstantiationCycle (E401) is a specialization that transitively
// instantiates itself. Always fatal.
const ErrInstantiationCycle = "E401"

// Errors carries the diagnostics of a failed compilation as an error value.
type Errors []ir.Diagnostic

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

// Options configures a monomorphization session.
type Options struct {
	// Mode selects fail-fast or collect-all checking for the pre-pass.
	Mode checker.Mode

	// EntryArgs are the literal value arguments for the entry component.
	// Must match the entry's parameter count; an entry with no parameters
	// takes nil.
	EntryArgs []int64

	// Store, when non-nil, is consulted before solving a specialization and
	// updated after emitting one, so unchanged specializations survive
	// across runs.
	Store Store
}

// Store is the persistent cache boundary. Keys are content-addressed, so a
// hit is always valid; implementations only need insert-or-ignore writes.
type Store interface {
	GetComponent(ctx context.Context, key ir.Key) (*ir.Component, bool, error)
	PutComponent(ctx context.Context, comp *ir.Component) error
	PutModel(ctx context.Context, component string, args []int64, model map[string]int64) error
}

// Monomorphize checks every component, then walks the instantiation tree
// from entry, emitting one flat component per distinct (definition,
// arguments) pair. Monomorphization refuses to proceed past any checking or
// solving failure; the returned error is an Errors value carrying the
// diagnostics.
func Monomorphize(ctx context.Context, table *resolver.Table, entry string, engine solver.Engine, opts Options) (*ir.Design, error) {
	if table.Component(entry) == nil {
		return nil, Errors{{
			Code:    resolver.ErrUnboundIdentifier,
			Message: fmt.Sprintf("entry component %q is not defined", entry),
		}}
	}
	checked, diags := checker.CheckAll(ctx, table, opts.Mode)
	if len(diags) > 0 {
		return nil, Errors(diags)
	}
	if engine == nil {
		engine = solver.Linear{}
	}

	w := &walker{
		table:   table,
		engine:  engine,
		cache:   NewSpecCache(),
		checked: checked,
		store:   opts.Store,
	}
	key, diags, err := w.specialize(ctx, entry, opts.EntryArgs, nil)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		return nil, Errors(diags)
	}
	return &ir.Design{Entry: key, Components: w.cache.Snapshot()}, nil
}

type walker struct {
	table   *resolver.Table
	engine  solver.Engine
	cache   *SpecCache
	checked map[string]*checker.Result
	store   Store
}

// frame is one entry of the on-stack marker set for cycle detection. The
// resolver rejects definition-level cycles up front; this guards the store
// path, where a record whose subs loop back would otherwise recurse forever.
type frame struct {
	key  ir.Key
	name string
}

func (w *walker) specialize(ctx context.Context, def string, args []int64, stack []frame) (ir.Key, []ir.Diagnostic, error) {
	comp := w.table.Component(def)
	if len(args) != len(comp.Params) {
		return "", []ir.Diagnostic{{
			Code: checker.ErrArity,
			Message: fmt.Sprintf("component %q takes %d value parameters, got %d",
				def, len(comp.Params), len(args)),
			Pos: comp.Pos,
		}}, nil
	}

	key := ir.MustSpecKey(def, args)
	name := renderSpec(def, args)
	for _, f := range stack {
		if f.key == key {
			return "", []ir.Diagnostic{{
				Code:    ErrInstantiationCycle,
				Message: fmt.Sprintf("instantiation cycle: %s", cyclePath(stack, f.key, name)),
				Pos:     comp.Pos,
			}}, nil
		}
	}
	stack = append(stack, frame{key: key, name: name})

	_, diags, err := w.cache.Do(ctx, key, func() (*ir.Component, []ir.Diagnostic, error) {
		return w.compute(ctx, comp, key, args, stack)
	})
	return key, diags, err
}

func (w *walker) compute(ctx context.Context, comp *ast.Component, key ir.Key, args []int64, stack []frame) (*ir.Component, []ir.Diagnostic, error) {
	if w.store != nil {
		cached, ok, err := w.store.GetComponent(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			// The cached component's subs still need materializing into
			// this session so the design stays closed under sub keys.
			for _, sub := range cached.Subs {
				if _, ds, err := w.specialize(ctx, sub.Def, sub.Args, stack); err != nil {
					return nil, nil, err
				} else if len(ds) > 0 {
					return nil, ds, nil
				}
			}
			return cached, nil, nil
		}
	}

	result := w.checked[comp.Name]

	binding := make(ir.Binding, len(args))
	for i, p := range comp.Params {
		binding[p.Name] = args[i]
	}

	q := solver.Query{
		Component:   comp.Name,
		Constraints: bindConstraints(result.Constraints, binding),
		Need:        result.Exists,
	}
	for _, name := range result.Exists {
		q.Vars = append(q.Vars, solver.Existential{Name: name})
	}
	res, err := w.engine.Solve(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	if res.Status != solver.StatusSat {
		return nil, solver.Diagnose(q, res), nil
	}

	// The full binding grounds every signature expression: value params,
	// solved existentials, and the time parameter rebased to cycle 0.
	full := make(ir.Binding, len(binding)+len(res.Model)+1)
	for name, v := range binding {
		full[name] = v
	}
	for name, v := range res.Model {
		full[name] = v
	}
	full[comp.Time.Name] = 0

	flat := &ir.Component{Name: comp.Name, Key: key, Args: args}
	for _, port := range comp.Ports {
		p, err := flattenPort(port, full)
		if err != nil {
			return nil, nil, fmt.Errorf("component %q port %q: %w", comp.Name, port.Name, err)
		}
		flat.Ports = append(flat.Ports, p)
	}
	if len(comp.Exists) > 0 {
		flat.Exists = make(map[string]int64, len(comp.Exists))
		for _, ex := range comp.Exists {
			flat.Exists[ex.Name] = res.Model[ex.Name]
		}
	}

	var diags []ir.Diagnostic
	subs := make(map[string]*ir.Sub)
	for _, cmd := range comp.Body {
		switch c := cmd.(type) {
		case *ast.Instance:
			vals, err := evalArgs(c.Args, full)
			if err != nil {
				return nil, nil, fmt.Errorf("instance %q of %q: %w", c.Name, c.Def, err)
			}
			subKey, ds, err := w.specialize(ctx, c.Def, vals, stack)
			if err != nil {
				return nil, nil, err
			}
			if len(ds) > 0 {
				diags = append(diags, ds...)
				continue
			}
			subs[c.Name] = &ir.Sub{Name: c.Name, Def: c.Def, Key: subKey, Args: vals}
		case *ast.Invoke:
			sub, ok := subs[c.Instance]
			if !ok {
				continue
			}
			start, err := c.Start.Resolve(full)
			if err != nil {
				return nil, nil, fmt.Errorf("invocation %q: %w", c.Name, err)
			}
			fi := ir.FlatInvoke{Start: start}
			for _, ref := range c.Args {
				fi.Args = append(fi.Args, ref.String())
			}
			sub.Invocations = append(sub.Invocations, fi)
		case *ast.Connect:
			flat.Bindings = append(flat.Bindings, ir.FlatBinding{
				Dst: c.Dst.String(),
				Src: c.Src.String(),
			})
		}
	}
	if len(diags) > 0 {
		return nil, diags, nil
	}

	// Subs were collected by pointer while invocations accumulated; emit
	// them in declaration order.
	for _, cmd := range comp.Body {
		if inst, ok := cmd.(*ast.Instance); ok {
			flat.Subs = append(flat.Subs, *subs[inst.Name])
		}
	}

	if w.store != nil {
		if err := w.store.PutModel(ctx, comp.Name, args, res.Model); err != nil {
			return nil, nil, err
		}
		if err := w.store.PutComponent(ctx, flat); err != nil {
			return nil, nil, err
		}
	}
	return flat, nil, nil
}

func flattenPort(port ast.Port, binding ir.Binding) (ir.FlatPort, error) {
	start, err := port.Interval.Start.Resolve(binding)
	if err != nil {
		return ir.FlatPort{}, err
	}
	end, err := port.Interval.End.Resolve(binding)
	if err != nil {
		return ir.FlatPort{}, err
	}
	width, err := ir.Eval(port.Width, binding)
	if err != nil {
		return ir.FlatPort{}, err
	}
	return ir.FlatPort{Name: port.Name, Dir: port.Dir, Start: start, End: end, Width: width}, nil
}

func evalArgs(args []ir.Expr, binding ir.Binding) ([]int64, error) {
	vals := make([]int64, len(args))
	for i, arg := range args {
		v, err := ir.Eval(arg, binding)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func bindConstraints(cs []ir.Constraint, binding ir.Binding) []ir.Constraint {
	out := make([]ir.Constraint, len(cs))
	for i, c := range cs {
		c.L.Offset = ir.Subst(c.L.Offset, binding)
		c.R.Offset = ir.Subst(c.R.Offset, binding)
		out[i] = c
	}
	return out
}

func renderSpec(def string, args []int64) string {
	if len(args) == 0 {
		return def
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return fmt.Sprintf("%s[%s]", def, strings.Join(parts, ","))
}

func cyclePath(stack []frame, from ir.Key, repeat string) string {
	var parts []string
	seen := false
	for _, f := range stack {
		if f.key == from {
			seen = true
		}
		if seen {
			parts = append(parts, f.name)
		}
	}
	parts = append(parts, repeat)
	return strings.Join(parts, " -> ")
}
