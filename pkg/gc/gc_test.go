package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/loxgo/pkg/table"
	"github.com/kristofer/loxgo/pkg/value"
)

func TestCollect_SweepsUnreachableObjects(t *testing.T) {
	c := New(false, false)
	reachable := value.NewString(c, "kept")
	unreachable := value.NewString(c, "dropped")

	c.MarkRoots = func(mark func(value.Value)) {
		mark(value.FromObj(reachable))
	}

	c.Collect()

	assert.False(t, unreachable.Marked, "an unreached object is never marked")
	assert.True(t, reachable.Marked)
	assert.Equal(t, len("kept")+16, c.BytesAllocated(), "only the reachable string's bytes remain after the sweep")
}

func TestCollect_TracesThroughClosureAndUpvalue(t *testing.T) {
	c := New(false, false)
	fn := value.NewFunction(c)
	fn.UpvalueCount = 1
	closure := value.NewClosure(c, fn)
	var slot value.Value
	uv := value.NewUpvalue(c, &slot)
	closure.Upvalues[0] = uv
	str := value.NewString(c, "captured")
	slot = value.FromObj(str)

	c.MarkRoots = func(mark func(value.Value)) {
		mark(value.FromObj(closure))
	}
	c.Collect()

	assert.True(t, closure.Marked)
	assert.True(t, fn.Marked)
	assert.True(t, uv.Marked)
	assert.True(t, str.Marked, "marking must trace through an open upvalue into its live slot")
}

func TestCollect_TempRootProtectsInFlightValue(t *testing.T) {
	c := New(false, false)
	inFlight := value.NewString(c, "in flight")
	c.PushTempRoot(value.FromObj(inFlight))

	c.MarkRoots = func(mark func(value.Value)) {}
	c.Collect()

	assert.True(t, inFlight.Marked)
	c.PopTempRoot()
}

type fakeStrings struct {
	removed    int
	lastMarked bool
}

func (f *fakeStrings) RemoveUnmarked(marked bool) {
	f.removed++
	f.lastMarked = marked
}

func TestCollect_PrunesWeakStringTableBetweenMarkAndSweep(t *testing.T) {
	c := New(false, false)
	fs := &fakeStrings{}
	c.SetStrings(fs)
	c.MarkRoots = func(mark func(value.Value)) {}

	c.Collect()

	require.Equal(t, 1, fs.removed)
}

// The collector alternates which bool value means "marked" every cycle, so
// a real table.Strings must be told the current cycle's color rather than
// assume true always means live; this exercises both parities directly
// against the real weak-table pruning pass, not the fake above.
func TestCollect_WeakStringSurvivesAcrossAlternatingMarkColors(t *testing.T) {
	c := New(false, false)
	strs := table.NewStrings()
	c.SetStrings(strs)

	kept := strs.Intern(c, "kept")

	c.MarkRoots = func(mark func(value.Value)) {
		mark(value.FromObj(kept))
	}

	c.Collect() // first cycle: markColor starts true
	assert.Same(t, kept, strs.Table().FindString("kept", value.HashString("kept")),
		"a reachable string must survive the first collection cycle")

	c.Collect() // second cycle: markColor has flipped to false
	assert.Same(t, kept, strs.Table().FindString("kept", value.HashString("kept")),
		"a reachable string must also survive the cycle after markColor flips")
}

func TestMaybeCollect_StressModeCollectsEveryAllocation(t *testing.T) {
	c := New(true, false)
	collections := 0
	c.MarkRoots = func(mark func(value.Value)) { collections++ }

	c.MaybeCollect()
	c.MaybeCollect()

	assert.Equal(t, 2, collections)
}

func TestCollect_SetsNextGCToTwiceSurvivingBytes(t *testing.T) {
	c := New(false, false)
	c.MarkRoots = func(mark func(value.Value)) {}
	value.NewString(c, "some bytes to push past the threshold")
	before := c.NextGC()
	c.Collect()
	assert.Equal(t, c.BytesAllocated()*2, c.NextGC())
	_ = before
}
