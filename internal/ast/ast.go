// Package ast holds the abstract syntax consumed from the external parser.
//
// The parser is an external collaborator: it hands the front end a
// fully-structured Namespace and is never re-entered. All nodes carry
// source positions for diagnostics. Expression leaves reuse the ir
// expression model so no separate surface-expression tree is needed.
package ast

import "github.com/silica-hdl/silica/internal/ir"

// Namespace is one compilation unit: the components of a source file plus
// the names it imports.
type Namespace struct {
	File       string
	Imports    []Import
	Components []*Component
}

// Import names a component pulled in from another namespace.
type Import struct {
	Name string
	Pos  ir.Pos
}

// Component is a parametric hardware component definition. Definitions are
// immutable after parsing and shared by every instantiation site; the
// resolver's symbol table owns them, instances refer to them by name only.
type Component struct {
	Name string
	Pos  ir.Pos

	// Params are the natural-valued value parameters, in declaration order.
	Params []ValueParam

	// Time is the single abstract time parameter the component's intervals
	// are expressed relative to.
	Time TimeParam

	// Interface names the distinguished control/start port. Its interval
	// must be the single-cycle window [Time, Time+1).
	Interface string

	Ports []Port

	// Exists are the private existential parameters, visible only inside
	// the body. Callers never supply them; the solver determines them
	// per-instantiation.
	Exists []ExistParam

	Body []Command
}

// ValueParam is a natural-valued symbol with zero or more `where` guards.
type ValueParam struct {
	Name   string
	Guards []Guard
	Pos    ir.Pos
}

// Guard is one `where` clause: a comparison over declared parameters.
type Guard struct {
	Op  ir.CmpOp
	L   ir.Expr
	R   ir.Expr
	Pos ir.Pos
}

// TimeParam is the abstract clock index a component body is anchored to.
type TimeParam struct {
	Name string
	Pos  ir.Pos
}

// Port declares a typed signal with its validity interval and bit-width.
type Port struct {
	Name     string
	Dir      ir.PortDir
	Interval ir.Interval
	Width    ir.Expr
	Pos      ir.Pos
}

// ExistParam is an `exists` declaration: optionally guarded, optionally
// carrying a defining equation supplied in the body.
type ExistParam struct {
	Name  string
	Guard *Guard
	// Def is the explicit `exists X = expr` equation, nil when the value
	// is left to the solver.
	Def ir.Expr
	Pos ir.Pos
}

// Command is a sealed interface over body statements: instance
// declarations, invocations, and output bindings.
type Command interface {
	command()

	// Position returns the command's source location.
	Position() ir.Pos
}

// Instance binds a definition to concrete value-parameter arguments:
//
//	name := new Def[args...]
//
// It carries no time binding; invocations supply those.
type Instance struct {
	Name string
	Def  string
	Args []ir.Expr
	Pos  ir.Pos
}

func (*Instance) command() {}

func (i *Instance) Position() ir.Pos { return i.Pos }

// Invoke fires an instance at a concrete start time:
//
//	name := inst<time>(args...)
//
// Args reference signals in the parent scope, in the callee's input-port
// order.
type Invoke struct {
	Name     string
	Instance string
	Start    ir.TimeExpr
	Args     []PortRef
	Pos      ir.Pos
}

func (*Invoke) command() {}

func (i *Invoke) Position() ir.Pos { return i.Pos }

// Connect binds an output port of the enclosing component to a signal
// produced in the body:
//
//	dst = src
type Connect struct {
	Dst PortRef
	Src PortRef
	Pos ir.Pos
}

func (*Connect) command() {}

func (c *Connect) Position() ir.Pos { return c.Pos }

// PortRef names a signal: a bare own-port name, or instance.port for a
// sub-invocation's port. Instance is empty for own ports.
type PortRef struct {
	Instance string
	Port     string
	Pos      ir.Pos
}

func (r PortRef) String() string {
	if r.Instance == "" {
		return r.Port
	}
	return r.Instance + "." + r.Port
}

// FindPort returns the named port of the component, or nil.
func (c *Component) FindPort(name string) *Port {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i]
		}
	}
	return nil
}

// FindExists returns the named existential parameter, or nil.
func (c *Component) FindExists(name string) *ExistParam {
	for i := range c.Exists {
		if c.Exists[i].Name == name {
			return &c.Exists[i]
		}
	}
	return nil
}

// Inputs returns the input ports in declaration order.
func (c *Component) Inputs() []Port {
	var in []Port
	for _, p := range c.Ports {
		if p.Dir == ir.DirIn {
			in = append(in, p)
		}
	}
	return in
}

// ArgInputs returns the input ports an invocation supplies arguments for:
// every input except the interface control signal, which the parent's
// schedule drives implicitly.
func (c *Component) ArgInputs() []Port {
	var in []Port
	for _, p := range c.Ports {
		if p.Dir == ir.DirIn && p.Name != c.Interface {
			in = append(in, p)
		}
	}
	return in
}

// Outputs returns the output ports in declaration order.
func (c *Component) Outputs() []Port {
	var out []Port
	for _, p := range c.Ports {
		if p.Dir == ir.DirOut {
			out = append(out, p)
		}
	}
	return out
}

// ParamNames returns the declared value-parameter names in order.
func (c *Component) ParamNames() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return names
}
