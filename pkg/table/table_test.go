package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/loxgo/pkg/value"
)

// fakeAllocator is a minimal value.Allocator for tests that never triggers
// a collection; the table package only needs Track to build ObjStrings.
type fakeAllocator struct{}

func (fakeAllocator) Track(value.Obj, int) {}
func (fakeAllocator) MaybeCollect()         {}

func newString(s string) *value.ObjString {
	return value.NewString(fakeAllocator{}, s)
}

func TestTable_SetGetDelete(t *testing.T) {
	tbl := New()
	k := newString("a")

	_, ok := tbl.Get(k)
	assert.False(t, ok)

	isNew := tbl.Set(k, value.Number(1))
	assert.True(t, isNew)

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())

	isNew = tbl.Set(k, value.Number(2))
	assert.False(t, isNew, "re-setting an existing key is not a new insertion")
	v, _ = tbl.Get(k)
	assert.Equal(t, 2.0, v.AsNumber())

	assert.True(t, tbl.Delete(k))
	_, ok = tbl.Get(k)
	assert.False(t, ok)
}

// No phantom tombstones: deleting one key must not resurrect or hide a
// different key that probed through the same slot (spec.md §8).
func TestTable_NoPhantomTombstones(t *testing.T) {
	tbl := New()

	var keys []*value.ObjString
	for i := 0; i < 32; i++ {
		k := newString(fmt.Sprintf("key-%d", i))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}

	// Delete every other key, then verify every surviving key still reads
	// back its last-set value and every deleted key reads as absent.
	for i, k := range keys {
		if i%2 == 0 {
			require.True(t, tbl.Delete(k))
		}
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		if i%2 == 0 {
			assert.False(t, ok, "deleted key %d should be absent", i)
		} else {
			require.True(t, ok, "surviving key %d should still be present", i)
			assert.Equal(t, float64(i), v.AsNumber())
		}
	}
}

func TestTable_GrowPreservesEntries(t *testing.T) {
	tbl := New()
	var keys []*value.ObjString
	for i := 0; i < 100; i++ {
		k := newString(fmt.Sprintf("k%d", i))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.AsNumber())
	}
	assert.Equal(t, 100, tbl.Len())
}

func TestTable_FastGetSetUseCachedSlot(t *testing.T) {
	tbl := New()
	k := newString("x")
	tbl.Set(k, value.Number(1))

	slot, ok := tbl.SlotOf(k)
	require.True(t, ok)

	v, ok := tbl.FastGet(slot, k)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())

	assert.True(t, tbl.FastSet(slot, k, value.Number(2)))
	v, _ = tbl.Get(k)
	assert.Equal(t, 2.0, v.AsNumber())
}

func TestTable_FastGetSetRejectStaleSlot(t *testing.T) {
	tbl := New()
	k := newString("x")
	other := newString("y")
	tbl.Set(k, value.Number(1))
	slot, ok := tbl.SlotOf(k)
	require.True(t, ok)

	// A cached slot index must only be trusted for the exact key it was
	// resolved for: asking FastGet/FastSet for a different key at that same
	// index — as would happen if a table grow relocated k elsewhere and
	// something else now lives at the old slot — must report a miss rather
	// than returning or overwriting the wrong entry.
	_, ok = tbl.FastGet(slot, other)
	assert.False(t, ok)
	assert.False(t, tbl.FastSet(slot, other, value.Number(99)))

	// An out-of-range index (e.g. from before the table ever grew) must
	// also miss rather than panic.
	_, ok = tbl.FastGet(slot+1000, k)
	assert.False(t, ok)
}

func TestStrings_InternDeduplicatesByContent(t *testing.T) {
	strs := NewStrings()
	a := strs.Intern(fakeAllocator{}, "hello")
	b := strs.Intern(fakeAllocator{}, "hello")
	c := strs.Intern(fakeAllocator{}, "world")

	assert.Same(t, a, b, "two interned occurrences of the same text share one ObjString")
	assert.NotSame(t, a, c)
}

func TestStrings_RemoveUnmarkedPrunesWeakEntries(t *testing.T) {
	strs := NewStrings()
	kept := strs.Intern(fakeAllocator{}, "kept")
	dropped := strs.Intern(fakeAllocator{}, "dropped")

	kept.Marked = true
	dropped.Marked = false
	strs.RemoveUnmarked(true)

	assert.Same(t, kept, strs.Table().FindString("kept", value.HashString("kept")))
	assert.Nil(t, strs.Table().FindString("dropped", value.HashString("dropped")))
}
