package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalLiteralsAndParams(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		binding  Binding
		expected int64
	}{
		{"literal", Nat(7), nil, 7},
		{"param", Param("W"), Binding{"W": 32}, 32},
		{"exists ref", ExistsRef{Instance: "C", Param: "L"}, Binding{"C.L": 9}, 9},
		{"add", &Bin{Op: OpAdd, L: Param("M"), R: Nat(1)}, Binding{"M": 3}, 4},
		{"mul", &Bin{Op: OpMul, L: Param("M"), R: Param("M")}, Binding{"M": 3}, 9},
		{"nested", &Bin{Op: OpAdd, L: Nat(4), R: &Bin{Op: OpMul, L: Nat(2), R: Nat(9)}}, nil, 22},
		{"div", &Bin{Op: OpDiv, L: Param("W"), R: Nat(8)}, Binding{"W": 32}, 4},
		{"mod", &Bin{Op: OpMod, L: Param("W"), R: Nat(5)}, Binding{"W": 32}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, tt.binding)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvalUnboundParam(t *testing.T) {
	_, err := Eval(Param("W"), Binding{})
	require.Error(t, err)

	var unbound *ErrUnbound
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "W", unbound.Name)
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := Eval(&Bin{Op: OpDiv, L: Nat(1), R: Nat(0)}, nil)
	assert.Error(t, err)

	_, err = Eval(&Bin{Op: OpMod, L: Nat(1), R: Nat(0)}, nil)
	assert.Error(t, err)
}

func TestSubstConstantFolds(t *testing.T) {
	// M*M with M=3 folds to the literal 9
	e := Subst(&Bin{Op: OpMul, L: Param("M"), R: Param("M")}, Binding{"M": 3})
	assert.Equal(t, Nat(9), e)
}

func TestSubstLeavesUnboundIntact(t *testing.T) {
	e := Subst(&Bin{Op: OpAdd, L: Param("G"), R: Param("M")}, Binding{"M": 2})
	bin, ok := e.(*Bin)
	require.True(t, ok, "partially bound expression stays symbolic")
	assert.Equal(t, Param("G"), bin.L)
	assert.Equal(t, Nat(2), bin.R)
}

func TestSubstDoesNotMutateInput(t *testing.T) {
	orig := &Bin{Op: OpMul, L: Param("M"), R: Param("M")}
	_ = Subst(orig, Binding{"M": 3})
	assert.Equal(t, Param("M"), orig.L)
	assert.Equal(t, Param("M"), orig.R)
}

func TestSubstExprs(t *testing.T) {
	// Flattening exists L = M*M into L+1 yields (M*M)+1
	repl := map[string]Expr{"L": &Bin{Op: OpMul, L: Param("M"), R: Param("M")}}
	e := SubstExprs(&Bin{Op: OpAdd, L: Param("L"), R: Nat(1)}, repl)

	got, err := Eval(e, Binding{"M": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
}

func TestParamsFirstOccurrenceOrder(t *testing.T) {
	e := &Bin{
		Op: OpAdd,
		L:  &Bin{Op: OpMul, L: Param("M"), R: Param("W")},
		R:  &Bin{Op: OpAdd, L: Param("M"), R: ExistsRef{Instance: "C", Param: "L"}},
	}
	assert.Equal(t, []string{"M", "W", "C.L"}, Params(e))
}

func TestExprEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Expr
		equal bool
	}{
		{"same literal", Nat(4), Nat(4), true},
		{"different literal", Nat(4), Nat(5), false},
		{"same param", Param("W"), Param("W"), true},
		{"param vs literal", Param("W"), Nat(32), false},
		{"same bin", &Bin{Op: OpMul, L: Param("M"), R: Param("M")}, &Bin{Op: OpMul, L: Param("M"), R: Param("M")}, true},
		{"different op", &Bin{Op: OpMul, L: Param("M"), R: Param("M")}, &Bin{Op: OpAdd, L: Param("M"), R: Param("M")}, false},
		{"same exists ref", ExistsRef{Instance: "C", Param: "L"}, ExistsRef{Instance: "C", Param: "L"}, true},
		{"different instance", ExistsRef{Instance: "C", Param: "L"}, ExistsRef{Instance: "D", Param: "L"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, ExprEqual(tt.a, tt.b))
		})
	}
}

func TestExprString(t *testing.T) {
	e := &Bin{Op: OpAdd, L: Param("G"), R: &Bin{Op: OpMul, L: Nat(2), R: ExistsRef{Instance: "M3", Param: "L"}}}
	assert.Equal(t, "(G + (2 * M3.L))", e.String())
}
