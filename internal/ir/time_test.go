package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeExprString(t *testing.T) {
	assert.Equal(t, "G", At("G", Nat(0)).String())
	assert.Equal(t, "G+4", At("G", Nat(4)).String())
	assert.Equal(t, "13", Cycle(13).String())
}

func TestTimeShift(t *testing.T) {
	g := At("G", Nat(0))
	assert.True(t, TimeEqual(g.Shift(Nat(0)), g), "zero shift is identity")
	assert.True(t, TimeEqual(g.Shift(Nat(4)), At("G", Nat(4))))

	shifted := At("G", Nat(4)).Shift(Nat(9))
	got, err := shifted.Resolve(Binding{"G": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(13), got)
}

func TestTimeRebase(t *testing.T) {
	// A port interval [T+1, T+5) of a callee invoked at G+4 becomes [G+5, G+9)
	callee := At("T", Nat(1))
	rebased := callee.Rebase("T", At("G", Nat(4)), nil)

	got, err := rebased.Resolve(Binding{"G": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, "G", rebased.Event)
}

func TestTimeRebaseSubstitutesOffsetParams(t *testing.T) {
	// [T, T+M*M) at start G with M=3 ends at G+9
	end := At("T", &Bin{Op: OpMul, L: Param("M"), R: Param("M")})
	rebased := end.Rebase("T", At("G", Nat(0)), Binding{"M": 3})

	got, err := rebased.Resolve(Binding{"G": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)
}

func TestTimeRebaseLeavesOtherEvents(t *testing.T) {
	other := At("U", Nat(2))
	rebased := other.Rebase("T", At("G", Nat(4)), nil)
	assert.Equal(t, "U", rebased.Event)
}

func TestNewIntervalRejectsEmptySpan(t *testing.T) {
	tests := []struct {
		name       string
		start, end TimeExpr
		wantErr    bool
	}{
		{"valid unit window", At("T", Nat(0)), At("T", Nat(1)), false},
		{"valid wide window", At("T", Nat(2)), At("T", Nat(7)), false},
		{"empty window", At("T", Nat(3)), At("T", Nat(3)), true},
		{"reversed window", At("T", Nat(5)), At("T", Nat(2)), true},
		{"symbolic span deferred", At("T", Nat(0)), At("T", Param("L")), false},
		{"distinct events deferred", At("T", Nat(5)), At("U", Nat(2)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInterval(tt.start, tt.end)
			if tt.wantErr {
				var malformed *ErrMalformedInterval
				require.ErrorAs(t, err, &malformed)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIntervalRebase(t *testing.T) {
	iv, err := NewInterval(At("T", Nat(0)), At("T", &Bin{Op: OpMul, L: Param("M"), R: Param("M")}))
	require.NoError(t, err)

	concrete := iv.Rebase("T", At("G", Nat(4)), Binding{"M": 3})

	start, err := concrete.Start.Resolve(Binding{"G": 0})
	require.NoError(t, err)
	end, err := concrete.End.Resolve(Binding{"G": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(4), start)
	assert.Equal(t, int64(13), end)
}

func TestIntervalEqualShortCircuit(t *testing.T) {
	a, err := NewInterval(At("G", Nat(4)), At("G", Nat(13)))
	require.NoError(t, err)
	b, err := NewInterval(At("G", Nat(4)), At("G", Nat(13)))
	require.NoError(t, err)
	c, err := NewInterval(At("G", Nat(4)), At("G", Nat(9)))
	require.NoError(t, err)

	assert.True(t, IntervalEqual(a, b))
	assert.False(t, IntervalEqual(a, c))
}

func TestConstraintHolds(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		want bool
	}{
		{"eq holds", ValueConstraint(CmpEq, Param("L"), Nat(9), ClauseExistsDef), true},
		{"lt holds", ValueConstraint(CmpLt, Nat(4), Param("L"), ClauseGuard), true},
		{"gt fails", ValueConstraint(CmpGt, Nat(4), Param("L"), ClauseGuard), false},
		{"ge holds", ValueConstraint(CmpGe, Param("L"), Nat(9), ClauseGuard), true},
	}

	binding := Binding{"L": 9}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Holds(binding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
