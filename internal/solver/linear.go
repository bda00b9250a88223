package solver

import (
	"context"

	"github.com/silica-hdl/silica/internal/ir"
)

// Linear is the default engine: equality propagation over linear naturals.
//
// Each pass reduces every equality's two sides to affine form under the
// current model and assigns any equation left with a single unknown; passes
// repeat to a fixpoint. Inequalities are then checked against the model.
// The engine never guesses: a needed variable the equalities do not pin
// down is reported Ambiguous, not defaulted.
type Linear struct{}

func (Linear) Solve(ctx context.Context, q Query) (Result, error) {
	model := make(map[string]int64)
	var conflicts []ir.Constraint

	for changed := true; changed; {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		changed = false
		for _, c := range q.Constraints {
			if c.Op != ir.CmpEq {
				continue
			}
			if c.L.Event != c.R.Event {
				conflicts = appendConflict(conflicts, c)
				continue
			}
			l, lok := toAffine(c.L.Offset, model)
			r, rok := toAffine(c.R.Offset, model)
			if !lok || !rok {
				continue // nonlinear under current model; retry next pass
			}
			diff := l.sub(r)
			switch len(diff.coeff) {
			case 0:
				if diff.c != 0 {
					conflicts = appendConflict(conflicts, c)
				}
			case 1:
				name, coeff := diff.only()
				// coeff*x + c == 0 over naturals
				if diff.c%coeff != 0 || -diff.c/coeff < 0 {
					conflicts = appendConflict(conflicts, c)
					continue
				}
				v := -diff.c / coeff
				if prev, ok := model[name]; ok {
					if prev != v {
						conflicts = appendConflict(conflicts, c)
					}
					continue
				}
				model[name] = v
				changed = true
			default:
				// More than one unknown; later assignments may reduce it.
			}
		}
	}

	// Verification pass: every constraint must hold under the model. Times
	// anchored at one shared event compare offset to offset, so the event
	// is pinned at zero.
	binding := make(ir.Binding, len(model)+1)
	for name, v := range model {
		binding[name] = v
	}
	for _, c := range q.Constraints {
		if c.L.Event != c.R.Event {
			// No relation between two distinct anchors is ever decidable.
			conflicts = appendConflict(conflicts, c)
			continue
		}
		if c.L.Event != "" {
			binding[c.L.Event] = 0
		}
		ok, err := c.Holds(binding)
		if err != nil {
			continue // references a free variable; surfaced below if needed
		}
		if !ok {
			conflicts = appendConflict(conflicts, c)
		}
	}

	if len(conflicts) > 0 {
		return Result{Status: StatusUnsat, Model: model, Conflicts: conflicts}, nil
	}

	var missing []string
	for _, name := range q.Need {
		if _, ok := model[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{Status: StatusAmbiguous, Model: model, Free: missing}, nil
	}
	return Result{Status: StatusSat, Model: model}, nil
}

func appendConflict(conflicts []ir.Constraint, c ir.Constraint) []ir.Constraint {
	for _, have := range conflicts {
		if have == c {
			return conflicts
		}
	}
	return append(conflicts, c)
}

// affine is a linear combination coeff[x]*x + ... + c over naturals.
type affine struct {
	coeff map[string]int64
	c     int64
}

func (a affine) sub(b affine) affine {
	out := affine{coeff: make(map[string]int64), c: a.c - b.c}
	for name, k := range a.coeff {
		out.coeff[name] = k
	}
	for name, k := range b.coeff {
		out.coeff[name] -= k
	}
	for name, k := range out.coeff {
		if k == 0 {
			delete(out.coeff, name)
		}
	}
	return out
}

func (a affine) only() (string, int64) {
	for name, k := range a.coeff {
		return name, k
	}
	return "", 0
}

// toAffine reduces an expression to affine form under the model. Returns
// false for forms outside the linear fragment (a product or quotient of two
// unknowns), which simply defer to a later pass.
func toAffine(e ir.Expr, model map[string]int64) (affine, bool) {
	switch v := e.(type) {
	case ir.Nat:
		return affine{c: int64(v)}, true
	case ir.Param:
		return affineVar(string(v), model), true
	case ir.ExistsRef:
		return affineVar(v.String(), model), true
	case *ir.Bin:
		l, lok := toAffine(v.L, model)
		r, rok := toAffine(v.R, model)
		if !lok || !rok {
			return affine{}, false
		}
		switch v.Op {
		case ir.OpAdd:
			return l.addScaled(r, 1), true
		case ir.OpSub:
			return l.addScaled(r, -1), true
		case ir.OpMul:
			if len(l.coeff) == 0 {
				return r.scale(l.c), true
			}
			if len(r.coeff) == 0 {
				return l.scale(r.c), true
			}
			return affine{}, false
		case ir.OpDiv:
			if len(l.coeff) == 0 && len(r.coeff) == 0 && r.c != 0 {
				return affine{c: l.c / r.c}, true
			}
			return affine{}, false
		case ir.OpMod:
			if len(l.coeff) == 0 && len(r.coeff) == 0 && r.c != 0 {
				return affine{c: l.c % r.c}, true
			}
			return affine{}, false
		}
		return affine{}, false
	default:
		return affine{}, false
	}
}

func affineVar(name string, model map[string]int64) affine {
	if v, ok := model[name]; ok {
		return affine{c: v}
	}
	return affine{coeff: map[string]int64{name: 1}, c: 0}
}

func (a affine) addScaled(b affine, k int64) affine {
	out := affine{coeff: make(map[string]int64), c: a.c + k*b.c}
	for name, v := range a.coeff {
		out.coeff[name] = v
	}
	for name, v := range b.coeff {
		out.coeff[name] += k * v
	}
	for name, v := range out.coeff {
		if v == 0 {
			delete(out.coeff, name)
		}
	}
	return out
}

func (a affine) scale(k int64) affine {
	out := affine{coeff: make(map[string]int64, len(a.coeff)), c: a.c * k}
	for name, v := range a.coeff {
		if k*v != 0 {
			out.coeff[name] = k * v
		}
	}
	return out
}
