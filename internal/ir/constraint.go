package ir

import "fmt"

// Pos is a source position attached to diagnostics and constraints.
type Pos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// CmpOp is a comparison operator relating two time or value expressions.
type CmpOp string

const (
	CmpEq CmpOp = "=="
	CmpLt CmpOp = "<"
	CmpLe CmpOp = "<="
	CmpGt CmpOp = ">"
	CmpGe CmpOp = ">="
)

// ClauseKind records which source clause produced a constraint, so solver
// failures can be mapped back to a specific offending clause.
type ClauseKind string

const (
	// ClauseGuard is a `where` guard on a value or existential parameter.
	ClauseGuard ClauseKind = "guard"
	// ClausePortObligation is an interval-equality obligation from an
	// invocation argument.
	ClausePortObligation ClauseKind = "port"
	// ClauseExistsDef is an explicit `exists X = expr` definition.
	ClauseExistsDef ClauseKind = "exists_def"
	// ClauseInterfaceTiming anchors the interface signal's window.
	ClauseInterfaceTiming ClauseKind = "interface"
	// ClauseReuseOrder orders two invocations of a shared instance.
	ClauseReuseOrder ClauseKind = "reuse"
	// ClauseIntervalForm asserts start < end for a symbolic interval.
	ClauseIntervalForm ClauseKind = "interval_form"
	// ClauseBinding equates an output port binding with its source.
	ClauseBinding ClauseKind = "binding"
)

// Constraint relates two time expressions. Pure value constraints use
// eventless times. Origin information travels with the constraint so
// diagnostics can render the producing clause and location.
type Constraint struct {
	Op     CmpOp      `json:"op"`
	L      TimeExpr   `json:"l"`
	R      TimeExpr   `json:"r"`
	Clause ClauseKind `json:"clause"`
	Pos    Pos        `json:"pos,omitempty"`
	// Note names the syntactic element the constraint came from, e.g. a
	// port or parameter, for rendering.
	Note string `json:"note,omitempty"`
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %s", c.L, c.Op, c.R)
}

// ValueConstraint builds a constraint over plain value expressions.
func ValueConstraint(op CmpOp, l, r Expr, clause ClauseKind) Constraint {
	return Constraint{Op: op, L: TimeExpr{Offset: l}, R: TimeExpr{Offset: r}, Clause: clause}
}

// Holds evaluates the constraint under a full binding.
func (c Constraint) Holds(binding Binding) (bool, error) {
	l, err := c.L.Resolve(binding)
	if err != nil {
		return false, err
	}
	r, err := c.R.Resolve(binding)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case CmpEq:
		return l == r, nil
	case CmpLt:
		return l < r, nil
	case CmpLe:
		return l <= r, nil
	case CmpGt:
		return l > r, nil
	case CmpGe:
		return l >= r, nil
	default:
		return false, fmt.Errorf("unsupported comparison %q", c.Op)
	}
}
