package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/loxgo/pkg/value"
)

func TestWrite_GrowsLineRunsLazily(t *testing.T) {
	c := New()
	c.WriteOp(OpConstant, 1)
	c.Write(0, 1)
	c.WriteOp(OpPrint, 1)
	c.WriteOp(OpPop, 2)

	require.Len(t, c.Code, 4)
	assert.Equal(t, 1, c.GetLine(0))
	assert.Equal(t, 1, c.GetLine(2))
	assert.Equal(t, 2, c.GetLine(3))
}

// GetLine must be monotonic non-decreasing in offset (spec.md §8).
func TestGetLine_MonotonicNonDecreasing(t *testing.T) {
	c := New()
	lines := []int{1, 1, 2, 2, 2, 5, 5, 9}
	for _, ln := range lines {
		c.WriteOp(OpPop, ln)
	}

	prev := 0
	for offset := range c.Code {
		got := c.GetLine(offset)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestAddConstant_AppendsUnconditionally(t *testing.T) {
	c := New()
	idxA := c.AddConstant(value.Number(1))
	idxB := c.AddConstant(value.Number(1)) // no dedup, per spec.md §4.3
	assert.Equal(t, 0, idxA)
	assert.Equal(t, 1, idxB)
	assert.Len(t, c.Constants, 2)
}

func TestCachedGlobalSlot_DefaultsToUnresolved(t *testing.T) {
	c := New()
	c.WriteOp(OpGetGlobalI, 1)
	c.Write(0, 1)
	assert.Equal(t, -1, c.CachedGlobalSlot(0))

	c.SetCachedGlobalSlot(0, 7)
	assert.Equal(t, 7, c.CachedGlobalSlot(0))
	// a different, never-cached instruction site still reports unresolved
	assert.Equal(t, -1, c.CachedGlobalSlot(1))
}

func TestOpCode_String(t *testing.T) {
	assert.Equal(t, "OP_CONSTANT", OpConstant.String())
	assert.Equal(t, "OP_RETURN", OpReturn.String())
	assert.Equal(t, "OP_UNKNOWN", OpCode(255).String())
}
