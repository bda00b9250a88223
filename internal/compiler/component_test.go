package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

func TestCompileComponentBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: Mul: {
			params: [{name: "W", where: ["W > 0"]}, {name: "N", where: ["N > 1"]}]
			time:      "T"
			interface: "go"
			ports: [
				{name: "go", dir: "in", start: "T", end: "T+1", width: "1"},
				{name: "A", dir: "in", start: "T", end: "T+1", width: "W"},
				{name: "B", dir: "in", start: "T", end: "T+1", width: "W"},
				{name: "O", dir: "out", start: "T+L", end: "T+L+1", width: "W"},
			]
			exists: [{name: "L", def: "N*N"}]
		}
	`)
	require.NoError(t, v.Err())

	comp, err := CompileComponent(v.LookupPath(cue.ParsePath("component.Mul")))
	require.NoError(t, err)

	assert.Equal(t, "Mul", comp.Name)
	assert.Equal(t, "T", comp.Time.Name)
	assert.Equal(t, "go", comp.Interface)

	require.Len(t, comp.Params, 2)
	assert.Equal(t, "W", comp.Params[0].Name)
	require.Len(t, comp.Params[1].Guards, 1)
	assert.Equal(t, ir.CmpGt, comp.Params[1].Guards[0].Op)

	require.Len(t, comp.Ports, 4)
	a := comp.Ports[1]
	assert.Equal(t, ir.DirIn, a.Dir)
	assert.True(t, ir.TimeEqual(ir.At("T", ir.Nat(0)), a.Interval.Start))
	assert.True(t, ir.TimeEqual(ir.At("T", ir.Nat(1)), a.Interval.End))
	assert.True(t, ir.ExprEqual(ir.Param("W"), a.Width))
	assert.True(t, ir.TimeEqual(ir.At("T", ir.Param("L")), comp.Ports[3].Interval.Start))

	require.Len(t, comp.Exists, 1)
	assert.Equal(t, "L", comp.Exists[0].Name)
	assert.True(t, ir.ExprEqual(
		&ir.Bin{Op: ir.OpMul, L: ir.Param("N"), R: ir.Param("N")},
		comp.Exists[0].Def,
	))
}

func TestCompileComponentBody(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		component: Top: {
			time: "G"
			ports: [
				{name: "A", dir: "in", start: "G", end: "G+1", width: "32"},
				{name: "O", dir: "out", start: "G+L", end: "G+L+1", width: "32"},
			]
			exists: [{name: "L"}]
			body: [
				{instance: "m2", def: "Mul", args: ["32", "2"]},
				{invoke: "i0", instance: "m2", at: "G", args: ["A", "A"]},
				{invoke: "i1", instance: "m2", at: "G+4", args: ["i0.O", "i0.O"]},
				{connect: {dst: "O", src: "i1.O"}},
			]
		}
	`)
	require.NoError(t, v.Err())

	comp, err := CompileComponent(v.LookupPath(cue.ParsePath("component.Top")))
	require.NoError(t, err)
	require.Len(t, comp.Body, 4)

	inst, ok := comp.Body[0].(*ast.Instance)
	require.True(t, ok)
	assert.Equal(t, "m2", inst.Name)
	assert.Equal(t, "Mul", inst.Def)
	require.Len(t, inst.Args, 2)
	assert.True(t, ir.ExprEqual(ir.Nat(32), inst.Args[0]))

	inv, ok := comp.Body[2].(*ast.Invoke)
	require.True(t, ok)
	assert.Equal(t, "i1", inv.Name)
	assert.Equal(t, "m2", inv.Instance)
	assert.True(t, ir.TimeEqual(ir.At("G", ir.Nat(4)), inv.Start))
	require.Len(t, inv.Args, 2)
	assert.Equal(t, ast.PortRef{Instance: "i0", Port: "O", Pos: inv.Args[0].Pos}, inv.Args[0])

	conn, ok := comp.Body[3].(*ast.Connect)
	require.True(t, ok)
	assert.Equal(t, "O", conn.Dst.Port)
	assert.Empty(t, conn.Dst.Instance)
	assert.Equal(t, "i1", conn.Src.Instance)
}

func TestCompileComponentErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			"missing time",
			`component: Bad: {
				ports: [{name: "A", dir: "in", start: "T", end: "T+1", width: "1"}]
			}`,
			"time parameter is required",
		},
		{
			"no ports",
			`component: Bad: {
				time: "T"
			}`,
			"at least one port is required",
		},
		{
			"bad direction",
			`component: Bad: {
				time: "T"
				ports: [{name: "A", dir: "inout", start: "T", end: "T+1", width: "1"}]
			}`,
			"invalid direction",
		},
		{
			"empty interval",
			`component: Bad: {
				time: "T"
				ports: [{name: "A", dir: "in", start: "T+2", end: "T+2", width: "1"}]
			}`,
			"A",
		},
		{
			"unknown body entry",
			`component: Bad: {
				time: "T"
				ports: [{name: "A", dir: "in", start: "T", end: "T+1", width: "1"}]
				body: [{frobnicate: "x"}]
			}`,
			"instance, invoke, or connect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.doc)
			require.NoError(t, v.Err())

			_, err := CompileComponent(v.LookupPath(cue.ParsePath("component.Bad")))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompileNamespace(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		"import": ["prelude"]
		component: {
			A: {
				time: "T"
				ports: [{name: "x", dir: "in", start: "T", end: "T+1", width: "1"}]
			}
			B: {
				time: "T"
				ports: [{name: "y", dir: "out", start: "T", end: "T+1", width: "8"}]
			}
		}
	`)
	require.NoError(t, v.Err())

	ns, errs := CompileNamespace(v)
	require.Empty(t, errs)
	require.Len(t, ns.Components, 2)
	assert.Equal(t, "A", ns.Components[0].Name)
	assert.Equal(t, "B", ns.Components[1].Name)
	require.Len(t, ns.Imports, 1)
	assert.Equal(t, "prelude", ns.Imports[0].Name)
}

func TestCompileNamespaceNoComponents(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)
	require.NoError(t, v.Err())

	_, errs := CompileNamespace(v)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no components")
}
