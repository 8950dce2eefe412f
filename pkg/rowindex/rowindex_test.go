package rowindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/errors"
)

func TestAbsentIsIdentity(t *testing.T) {
	ri := Absent()
	assert.True(t, ri.IsAbsent())
	assert.Equal(t, KindAbsent, ri.Kind())
	assert.True(t, ri.IsSorted())
	assert.Equal(t, int64(7), ri.Nth(7))
	require.NoError(t, ri.Verify())
}

func TestFromSliceBasic(t *testing.T) {
	ri, err := FromSlice(2, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, KindSlice, ri.Kind())
	assert.Equal(t, int64(4), ri.Length())
	assert.True(t, ri.IsSorted())
	assert.Equal(t, int64(2), ri.Min())
	assert.Equal(t, int64(11), ri.Max())
	want := []int64{2, 5, 8, 11}
	for i, w := range want {
		assert.Equal(t, w, ri.Nth(int64(i)))
	}
	require.NoError(t, ri.Verify())
}

func TestFromSliceZeroStepBroadcasts(t *testing.T) {
	ri, err := FromSlice(5, 3, 0)
	require.NoError(t, err)
	assert.True(t, ri.IsSorted())
	assert.Equal(t, int64(5), ri.Min())
	assert.Equal(t, int64(5), ri.Max())
	for i := int64(0); i < 3; i++ {
		assert.Equal(t, int64(5), ri.Nth(i))
	}
}

func TestFromSliceNegativeStep(t *testing.T) {
	ri, err := FromSlice(10, 4, -2)
	require.NoError(t, err)
	assert.False(t, ri.IsSorted())
	assert.Equal(t, int64(4), ri.Min())
	assert.Equal(t, int64(10), ri.Max())
	assert.Equal(t, int64(10), ri.Nth(0))
	assert.Equal(t, int64(4), ri.Nth(3))
}

func TestCheckSliceTriple(t *testing.T) {
	assert.NoError(t, CheckSliceTriple(0, 0, 1))
	assert.NoError(t, CheckSliceTriple(0, 1, -5))

	err := CheckSliceTriple(-1, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	err = CheckSliceTriple(0, -1, 1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	// Descends below row 0.
	err = CheckSliceTriple(3, 5, -1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	// Overflows int64.
	err = CheckSliceTriple(1<<62, 4, 1<<62)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestFromArray32(t *testing.T) {
	ri, err := FromArray32(nil, []int32{4, 1, NA32, 9}, false)
	require.NoError(t, err)
	assert.Equal(t, KindArr32, ri.Kind())
	assert.Equal(t, int64(4), ri.Length())
	assert.False(t, ri.IsSorted())
	assert.Equal(t, int64(1), ri.Min())
	assert.Equal(t, int64(9), ri.Max())
	assert.Equal(t, int64(4), ri.Nth(0))
	assert.Equal(t, NA, ri.Nth(2))
	require.NoError(t, ri.Verify())
}

func TestFromArray32RejectsNegative(t *testing.T) {
	_, err := FromArray32(nil, []int32{0, -3}, false)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestFromArray32SortedHint(t *testing.T) {
	ri, err := FromArray32(nil, []int32{NA32, 2, 5, 8, NA32}, true)
	require.NoError(t, err)
	assert.True(t, ri.IsSorted())
	assert.Equal(t, int64(2), ri.Min())
	assert.Equal(t, int64(8), ri.Max())
}

func TestFromArray64Compacts(t *testing.T) {
	ri, err := FromArray64(nil, []int64{3, NA, 100}, false)
	require.NoError(t, err)
	assert.Equal(t, KindArr32, ri.Kind(), "small indices must compact to 32 bits")
	assert.Equal(t, NA, ri.Nth(1))
	assert.Equal(t, int64(100), ri.Nth(2))

	ind, ok := ri.Indices32()
	require.True(t, ok)
	assert.Equal(t, []int32{3, NA32, 100}, ind)
}

func TestFromArray64KeepsWide(t *testing.T) {
	wide := int64(1) << 40
	ri, err := FromArray64(nil, []int64{0, wide}, true)
	require.NoError(t, err)
	assert.Equal(t, KindArr64, ri.Kind())
	assert.Equal(t, wide, ri.Max())
}

func TestEmptyArray(t *testing.T) {
	ri, err := FromArray32(nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ri.Length())
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, int64(0), ri.Max())
	require.NoError(t, ri.Verify())
}

func TestSelectsRows(t *testing.T) {
	assert.False(t, Absent().SelectsRows())

	empty, err := FromSlice(0, 0, 1)
	require.NoError(t, err)
	assert.False(t, empty.SelectsRows())

	first, err := FromSlice(0, 1, 1)
	require.NoError(t, err)
	assert.True(t, first.SelectsRows())

	// An all-NA index reads Min and Max as 0, same as one selecting only
	// row 0; SelectsRows is what tells them apart.
	allNA, err := FromArray32(nil, []int32{NA32, NA32}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), allNA.Max())
	assert.False(t, allNA.SelectsRows())

	mixed, err := FromArray32(nil, []int32{NA32, 0}, false)
	require.NoError(t, err)
	assert.True(t, mixed.SelectsRows())
}

func TestCheckSliceTripleDescendingOverflow(t *testing.T) {
	// A huge negative step must not wrap start+step*(count-1) past zero and
	// sneak through the lower-bound check.
	err := CheckSliceTriple(0, 3, -(int64(1)<<62)-1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	err = CheckSliceTriple(0, 2, math.MinInt64)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	// Landing exactly on row 0 is fine.
	assert.NoError(t, CheckSliceTriple(5, 2, -5))
	err = CheckSliceTriple(4, 2, -5)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}
