package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bptreeidx/engine/internal/sql/parser"
)

func intCond(col string, op parser.CompOp, v int32) parser.Cond {
	return parser.Cond{Col: col, Op: op, IntVal: v, HasInt: true}
}

func TestBuild_NoConditionsScansAll(t *testing.T) {
	p := Build(nil)
	require.False(t, p.UseIndex)
	assert.True(t, p.Range.Satisfies(0))
	assert.True(t, p.Range.Satisfies(-5))
}

func TestBuild_EqualityIsPointLookup(t *testing.T) {
	p := Build([]parser.Cond{intCond("key", parser.OpEQ, 42)})
	require.True(t, p.UseIndex)
	assert.True(t, p.Range.HasEq)
	assert.EqualValues(t, 42, p.Range.StartKey())
	assert.True(t, p.Range.Satisfies(42))
	assert.False(t, p.Range.Satisfies(41))
}

func TestBuild_FoldsTightestBounds(t *testing.T) {
	p := Build([]parser.Cond{
		intCond("key", parser.OpGE, 10),
		intCond("key", parser.OpGT, 5),
		intCond("key", parser.OpLT, 100),
		intCond("key", parser.OpLE, 50),
	})
	require.True(t, p.UseIndex)
	assert.EqualValues(t, 10, p.Range.Lo)
	assert.True(t, p.Range.LoIncl)
	assert.EqualValues(t, 50, p.Range.Hi)
	assert.True(t, p.Range.HiIncl)
	assert.True(t, p.Range.Satisfies(10))
	assert.True(t, p.Range.Satisfies(50))
	assert.False(t, p.Range.Satisfies(51))
}

func TestBuild_UnsatisfiableRangeShortCircuits(t *testing.T) {
	p := Build([]parser.Cond{
		intCond("key", parser.OpGT, 100),
		intCond("key", parser.OpLT, 5),
	})
	assert.True(t, p.Range.Unsatisfiable)
	assert.False(t, p.Range.Satisfies(50))
}

func TestBuild_UpperBoundOnlyStartsScanAtMinInt32(t *testing.T) {
	p := Build([]parser.Cond{intCond("key", parser.OpLT, 5)})
	require.True(t, p.UseIndex)
	require.False(t, p.Range.HasLo)
	assert.EqualValues(t, math.MinInt32, p.Range.StartKey())
	assert.True(t, p.Range.Satisfies(-1000))
	assert.False(t, p.Range.Satisfies(5))
}

func TestBuild_NotEqualIsPostHocOnly(t *testing.T) {
	p := Build([]parser.Cond{intCond("key", parser.OpNE, 7)})
	assert.False(t, p.UseIndex)
	require.Len(t, p.PostHoc, 1)
	assert.Equal(t, parser.OpNE, p.PostHoc[0].Op)
}

func TestBuild_ValueConditionsArePostHoc(t *testing.T) {
	cond := parser.Cond{Col: "value", Op: parser.OpEQ, StrVal: "x", IsString: true}
	p := Build([]parser.Cond{cond, intCond("key", parser.OpGE, 1)})
	require.Len(t, p.PostHoc, 1)
	assert.Equal(t, "value", p.PostHoc[0].Col)
	assert.True(t, p.UseIndex)
}
