package ir

import "fmt"

// TimeExpr is an affine time expression: an abstract time variable (the
// enclosing component's time parameter, or a call-site start event) plus a
// value-expression offset. A monomorphized time has an empty Event and a
// literal Offset, measured from cycle 0 of its own component.
type TimeExpr struct {
	Event  string `json:"event,omitempty"`
	Offset Expr   `json:"offset"`
}

// At builds a time expression anchored at the named event.
func At(event string, offset Expr) TimeExpr {
	return TimeExpr{Event: event, Offset: offset}
}

// Cycle builds an eventless literal time, used in monomorphized output.
func Cycle(n int64) TimeExpr {
	return TimeExpr{Offset: Nat(n)}
}

func (t TimeExpr) String() string {
	if t.Event == "" {
		return t.Offset.String()
	}
	if n, ok := IsLiteral(t.Offset); ok && n == 0 {
		return t.Event
	}
	return fmt.Sprintf("%s+%s", t.Event, t.Offset)
}

// Shift adds a further offset, keeping the event anchor.
func (t TimeExpr) Shift(by Expr) TimeExpr {
	if n, ok := IsLiteral(by); ok && n == 0 {
		return t
	}
	if base, ok := IsLiteral(t.Offset); ok && base == 0 {
		return TimeExpr{Event: t.Event, Offset: by}
	}
	return TimeExpr{Event: t.Event, Offset: &Bin{Op: OpAdd, L: t.Offset, R: by}}
}

// Rebase substitutes the time parameter `event` with the given start time:
// the resulting expression is anchored at start.Event with both offsets
// summed. Times anchored at other events pass through with only the offset
// substituted.
func (t TimeExpr) Rebase(event string, start TimeExpr, binding Binding) TimeExpr {
	offset := Subst(t.Offset, binding)
	if t.Event != event {
		return TimeExpr{Event: t.Event, Offset: offset}
	}
	return start.Shift(offset)
}

// Resolve reduces the time expression to a literal cycle. The event anchor
// must itself be bound (or empty).
func (t TimeExpr) Resolve(binding Binding) (int64, error) {
	offset, err := Eval(t.Offset, binding)
	if err != nil {
		return 0, err
	}
	if t.Event == "" {
		return offset, nil
	}
	base, ok := binding[t.Event]
	if !ok {
		return 0, &ErrUnbound{Name: t.Event}
	}
	return base + offset, nil
}

// TimeEqual is the fast syntactic-equality short-circuit. A false result
// means "not obviously equal", not "unequal"; the solver decides the rest.
func TimeEqual(a, b TimeExpr) bool {
	return a.Event == b.Event && ExprEqual(a.Offset, b.Offset)
}

// Interval is a half-open validity window [Start, End) of a signal.
// The invariant Start < End is enforced at construction wherever it is
// syntactically decidable; symbolic spans are deferred to the solver as
// IntervalForm constraints.
type Interval struct {
	Start TimeExpr `json:"start"`
	End   TimeExpr `json:"end"`
}

// ErrMalformedInterval reports an interval whose span is provably empty or
// negative. It is a compile error, not a runtime panic.
type ErrMalformedInterval struct {
	Start, End TimeExpr
}

func (e *ErrMalformedInterval) Error() string {
	return fmt.Sprintf("malformed interval [%s, %s): start must strictly precede end", e.Start, e.End)
}

// NewInterval constructs an interval, rejecting a provably non-positive
// span. Provable means both ends are literal offsets from the same event.
func NewInterval(start, end TimeExpr) (Interval, error) {
	if start.Event == end.Event {
		s, sok := IsLiteral(start.Offset)
		e, eok := IsLiteral(end.Offset)
		if sok && eok && s >= e {
			return Interval{}, &ErrMalformedInterval{Start: start, End: end}
		}
	}
	return Interval{Start: start, End: end}, nil
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start, iv.End)
}

// Shift moves both ends of the interval by the same offset.
func (iv Interval) Shift(by Expr) Interval {
	return Interval{Start: iv.Start.Shift(by), End: iv.End.Shift(by)}
}

// Rebase substitutes the time parameter `event` with a call-site start time
// in both ends, producing the concrete-relative interval for an invocation.
func (iv Interval) Rebase(event string, start TimeExpr, binding Binding) Interval {
	return Interval{
		Start: iv.Start.Rebase(event, start, binding),
		End:   iv.End.Rebase(event, start, binding),
	}
}

// IntervalEqual is the syntactic short-circuit for exact interval matching.
func IntervalEqual(a, b Interval) bool {
	return TimeEqual(a.Start, b.Start) && TimeEqual(a.End, b.End)
}
