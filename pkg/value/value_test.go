package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAllocator struct{}

func (fakeAllocator) Track(Obj, int) {}
func (fakeAllocator) MaybeCollect()   {}

func TestEqual_NumberNaNIsNeverEqualToItself(t *testing.T) {
	nan := Number(math.NaN())
	assert.False(t, Equal(nan, nan))
	assert.True(t, Equal(Number(1), Number(1)))
}

func TestEqual_ObjectsCompareByIdentity(t *testing.T) {
	a := NewString(fakeAllocator{}, "same text")
	b := NewString(fakeAllocator{}, "same text")
	assert.False(t, Equal(FromObj(a), FromObj(b)), "two distinct (uninterned) ObjStrings are not Equal")
	assert.True(t, Equal(FromObj(a), FromObj(a)))
}

func TestEqual_DifferentKindsAreNeverEqual(t *testing.T) {
	assert.False(t, Equal(Nil, Bool(false)))
	assert.False(t, Equal(Number(0), Bool(false)))
}

func TestTruthy_NilAndFalseAreFalsey(t *testing.T) {
	assert.False(t, Nil.Truthy())
	assert.False(t, Bool(false).Truthy())
}

func TestTruthy_EverythingElseIsTruthy(t *testing.T) {
	assert.True(t, Bool(true).Truthy())
	assert.True(t, Number(0).Truthy())
	assert.True(t, Number(math.NaN()).Truthy())
	str := NewString(fakeAllocator{}, "")
	assert.True(t, FromObj(str).Truthy())
}

func TestString_FormatsWholeNumbersWithoutTrailingZero(t *testing.T) {
	assert.Equal(t, "7", Number(7).String())
	assert.Equal(t, "3.5", Number(3.5).String())
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "false", Bool(false).String())
}

func TestHashString_SameTextSameHash(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
}
