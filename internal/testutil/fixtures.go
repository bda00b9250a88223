// Package testutil provides AST fixtures shared across the checker, solver,
// and monomorphizer tests. Building them in code rather than parsing source
// keeps those packages' tests independent of the compiler front end.
package testutil

import (
	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

// InPort builds an input port with literal interval bounds.
func InPort(name, event string, start, end, width int64) ast.Port {
	return ast.Port{
		Name:     name,
		Dir:      ir.DirIn,
		Interval: interval(event, ir.Nat(start), ir.Nat(end)),
		Width:    ir.Nat(width),
	}
}

// OutPort builds an output port with symbolic interval offsets.
func OutPort(name, event string, start, end ir.Expr, width int64) ast.Port {
	return ast.Port{
		Name:     name,
		Dir:      ir.DirOut,
		Interval: interval(event, start, end),
		Width:    ir.Nat(width),
	}
}

func interval(event string, start, end ir.Expr) ir.Interval {
	iv, err := ir.NewInterval(ir.At(event, start), ir.At(event, end))
	if err != nil {
		panic(err)
	}
	return iv
}

// Ref builds a port reference, local when inst is empty.
func Ref(inst, port string) ast.PortRef {
	return ast.PortRef{Instance: inst, Port: port}
}

// MulComponent is a parameterized multiplier: W-bit operands consumed in the
// cycle the go signal fires, product available exactly N*N cycles later.
//
//	Mul[W, N]<T>(go: 1, A: W, B: W) -> (O: W) with L = N*N
func MulComponent() *ast.Component {
	latency := ir.Param("L")
	return &ast.Component{
		Name: "Mul",
		Params: []ast.ValueParam{
			{Name: "W", Guards: []ast.Guard{{Op: ir.CmpGt, L: ir.Param("W"), R: ir.Nat(0)}}},
			{Name: "N", Guards: []ast.Guard{{Op: ir.CmpGt, L: ir.Param("N"), R: ir.Nat(1)}}},
		},
		Time:      ast.TimeParam{Name: "T"},
		Interface: "go",
		Ports: []ast.Port{
			InPort("go", "T", 0, 1, 1),
			{Name: "A", Dir: ir.DirIn, Interval: interval("T", ir.Nat(0), ir.Nat(1)), Width: ir.Param("W")},
			{Name: "B", Dir: ir.DirIn, Interval: interval("T", ir.Nat(0), ir.Nat(1)), Width: ir.Param("W")},
			{
				Name: "O", Dir: ir.DirOut,
				Interval: interval("T", latency, &ir.Bin{Op: ir.OpAdd, L: latency, R: ir.Nat(1)}),
				Width:    ir.Param("W"),
			},
		},
		Exists: []ast.ExistParam{
			{Name: "L", Def: &ir.Bin{Op: ir.OpMul, L: ir.Param("N"), R: ir.Param("N")}},
		},
	}
}

// TopComponent chains three multiplications through two multiplier
// instances. The second instance is fired twice, back to back, so the
// fixture exercises instance reuse as well as existential forcing: Top's
// own latency L has no definition and is pinned only by the output binding.
//
//	i0 fires m2 = Mul[32,2] at G      -> result at G+4
//	i1 fires m3 = Mul[32,3] at G+4    -> result at G+13
//	i2 fires m3 again at G+13         -> result at G+22
func TopComponent() *ast.Component {
	latency := ir.Param("L")
	return &ast.Component{
		Name:      "Top",
		Time:      ast.TimeParam{Name: "G"},
		Interface: "go",
		Ports: []ast.Port{
			InPort("go", "G", 0, 1, 1),
			InPort("A", "G", 0, 1, 32),
			InPort("B", "G", 0, 1, 32),
			OutPort("O", "G", latency, &ir.Bin{Op: ir.OpAdd, L: latency, R: ir.Nat(1)}, 32),
		},
		Exists: []ast.ExistParam{{Name: "L"}},
		Body: []ast.Command{
			&ast.Instance{Name: "m2", Def: "Mul", Args: []ir.Expr{ir.Nat(32), ir.Nat(2)}},
			&ast.Instance{Name: "m3", Def: "Mul", Args: []ir.Expr{ir.Nat(32), ir.Nat(3)}},
			&ast.Invoke{
				Name: "i0", Instance: "m2",
				Start: ir.At("G", ir.Nat(0)),
				Args:  []ast.PortRef{Ref("", "A"), Ref("", "B")},
			},
			&ast.Invoke{
				Name: "i1", Instance: "m3",
				Start: ir.At("G", ir.Nat(4)),
				Args:  []ast.PortRef{Ref("i0", "O"), Ref("i0", "O")},
			},
			&ast.Invoke{
				Name: "i2", Instance: "m3",
				Start: ir.At("G", ir.Nat(13)),
				Args:  []ast.PortRef{Ref("i1", "O"), Ref("i1", "O")},
			},
			&ast.Connect{Dst: Ref("", "O"), Src: Ref("i2", "O")},
		},
	}
}

// MulTopNamespace is the standard two-component fixture.
func MulTopNamespace() *ast.Namespace {
	return &ast.Namespace{
		File:       "fixture.silica",
		Components: []*ast.Component{MulComponent(), TopComponent()},
	}
}
