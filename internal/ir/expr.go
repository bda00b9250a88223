package ir

import (
	"fmt"
	"sort"
	"strconv"
)

// Expr is a sealed interface over value expressions: natural literals,
// parameter references, existential back-references, and binary arithmetic.
// Only Nat, Param, ExistsRef, and Bin implement it.
//
// Expressions are immutable. Subst and friends always return a fresh tree.
type Expr interface {
	expr() // Sealed - only these types implement it

	// String renders the expression in source syntax.
	String() string
}

// Nat is a literal natural. Always int64, never float64.
type Nat int64

func (Nat) expr() {}

func (n Nat) String() string { return strconv.FormatInt(int64(n), 10) }

// Param references a declared value, time, or existential parameter by name.
type Param string

func (Param) expr() {}

func (p Param) String() string { return string(p) }

// ExistsRef references an existential parameter belonging to a named
// sub-instance, e.g. `C.L`. It is a non-owning key pair into the enclosing
// component's instance table, resolved by lookup at constraint-generation
// time, never a pointer alias.
type ExistsRef struct {
	Instance string `json:"instance"`
	Param    string `json:"param"`
}

func (ExistsRef) expr() {}

func (r ExistsRef) String() string { return r.Instance + "." + r.Param }

// BinOp is a binary arithmetic operator over naturals.
type BinOp string

const (
	OpAdd BinOp = "+"
	OpSub BinOp = "-"
	OpMul BinOp = "*"
	OpDiv BinOp = "/"
	OpMod BinOp = "%"
)

// Bin is a binary arithmetic expression.
type Bin struct {
	Op BinOp `json:"op"`
	L  Expr  `json:"l"`
	R  Expr  `json:"r"`
}

func (*Bin) expr() {}

func (b *Bin) String() string {
	return fmt.Sprintf("(%s %s %s)", b.L, b.Op, b.R)
}

// Binding maps parameter names to literal naturals.
type Binding map[string]int64

// SortedNames returns the binding's names in lexical order for
// deterministic iteration.
func (b Binding) SortedNames() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnbound reports an expression that references a parameter with no
// binding during evaluation.
type ErrUnbound struct {
	Name string
}

func (e *ErrUnbound) Error() string {
	return fmt.Sprintf("unbound parameter %q in expression", e.Name)
}

// Eval reduces an expression to a literal under the given binding.
// ExistsRef nodes evaluate under their rendered name ("inst.param"), which
// callers populate once the referenced instance's model is known.
func Eval(e Expr, binding Binding) (int64, error) {
	switch v := e.(type) {
	case Nat:
		return int64(v), nil
	case Param:
		n, ok := binding[string(v)]
		if !ok {
			return 0, &ErrUnbound{Name: string(v)}
		}
		return n, nil
	case ExistsRef:
		n, ok := binding[v.String()]
		if !ok {
			return 0, &ErrUnbound{Name: v.String()}
		}
		return n, nil
	case *Bin:
		l, err := Eval(v.L, binding)
		if err != nil {
			return 0, err
		}
		r, err := Eval(v.R, binding)
		if err != nil {
			return 0, err
		}
		return evalBin(v.Op, l, r)
	default:
		return 0, fmt.Errorf("unsupported expression type %T", e)
	}
}

func evalBin(op BinOp, l, r int64) (int64, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case OpMod:
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return l % r, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", op)
	}
}

// Subst replaces bound parameters with literals, leaving unbound names and
// existential references intact. The input expression is not modified.
func Subst(e Expr, binding Binding) Expr {
	switch v := e.(type) {
	case Nat:
		return v
	case Param:
		if n, ok := binding[string(v)]; ok {
			return Nat(n)
		}
		return v
	case ExistsRef:
		if n, ok := binding[v.String()]; ok {
			return Nat(n)
		}
		return v
	case *Bin:
		l := Subst(v.L, binding)
		r := Subst(v.R, binding)
		// Constant-fold when both sides reduced; division errors stay
		// symbolic and surface at Eval time.
		if ln, lok := l.(Nat); lok {
			if rn, rok := r.(Nat); rok {
				if n, err := evalBin(v.Op, int64(ln), int64(rn)); err == nil {
					return Nat(n)
				}
			}
		}
		return &Bin{Op: v.Op, L: l, R: r}
	default:
		return e
	}
}

// SubstExprs replaces named parameters with arbitrary expressions. Used to
// flatten explicit existential definitions before solving.
func SubstExprs(e Expr, repl map[string]Expr) Expr {
	switch v := e.(type) {
	case Nat:
		return v
	case Param:
		if sub, ok := repl[string(v)]; ok {
			return sub
		}
		return v
	case ExistsRef:
		if sub, ok := repl[v.String()]; ok {
			return sub
		}
		return v
	case *Bin:
		return &Bin{Op: v.Op, L: SubstExprs(v.L, repl), R: SubstExprs(v.R, repl)}
	default:
		return e
	}
}

// Params returns the distinct parameter and existential-reference names
// occurring in the expression, in first-occurrence order.
func Params(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Param:
			if !seen[string(v)] {
				seen[string(v)] = true
				names = append(names, string(v))
			}
		case ExistsRef:
			if !seen[v.String()] {
				seen[v.String()] = true
				names = append(names, v.String())
			}
		case *Bin:
			walk(v.L)
			walk(v.R)
		}
	}
	walk(e)
	return names
}

// ExprEqual reports syntactic equality. This is only a fast short-circuit;
// semantic equality questions belong to the solver.
func ExprEqual(a, b Expr) bool {
	switch av := a.(type) {
	case Nat:
		bv, ok := b.(Nat)
		return ok && av == bv
	case Param:
		bv, ok := b.(Param)
		return ok && av == bv
	case ExistsRef:
		bv, ok := b.(ExistsRef)
		return ok && av == bv
	case *Bin:
		bv, ok := b.(*Bin)
		return ok && av.Op == bv.Op && ExprEqual(av.L, bv.L) && ExprEqual(av.R, bv.R)
	default:
		return false
	}
}

// IsLiteral reports whether the expression is a bare natural.
func IsLiteral(e Expr) (int64, bool) {
	n, ok := e.(Nat)
	return int64(n), ok
}
