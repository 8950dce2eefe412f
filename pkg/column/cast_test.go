package column

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/testutil"
)

func TestCastIsLazy(t *testing.T) {
	col, err := FromFixed([]int32{1, 2, 3})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int64, false)
	require.NoError(t, err)
	defer out.Release()

	assert.True(t, out.IsVirtual())
	assert.Equal(t, Int64, out.Stype())
	v, na, err := out.GetInt64(1)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int64(2), v)
}

func TestCastSameStypeIsAlias(t *testing.T) {
	col, err := FromFixed([]int32{1})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int32, false)
	require.NoError(t, err)
	defer out.Release()
	assert.False(t, out.IsVirtual())
}

func TestCastIntToFloat(t *testing.T) {
	col, err := FromFixed([]int32{7, NAInt32})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Float64, false)
	require.NoError(t, err)
	defer out.Release()

	v, na, err := out.GetFloat64(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, 7.0, v)

	_, na, err = out.GetFloat64(1)
	require.NoError(t, err)
	assert.True(t, na, "NA must survive the cast")
}

func TestCastFloatToIntTruncates(t *testing.T) {
	col, err := FromFixed([]float64{3.9, -2.7, NAFloat64()})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int64, false)
	require.NoError(t, err)
	defer out.Release()

	v, _, err := out.GetInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	v, _, err = out.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)
	_, na, err := out.GetInt64(2)
	require.NoError(t, err)
	assert.True(t, na)
}

func TestCastToBoolNormalizes(t *testing.T) {
	col, err := FromFixed([]int32{0, 5, -3})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Bool8, false)
	require.NoError(t, err)
	defer out.Release()

	for i, want := range []int32{0, 1, 1} {
		v, na, err := out.GetInt32(int64(i))
		require.NoError(t, err)
		assert.False(t, na)
		assert.Equal(t, want, v, "row %d", i)
	}
}

func TestCastNumericToString(t *testing.T) {
	col, err := FromFixed([]int64{42, NAInt64, -1})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Str32, false)
	require.NoError(t, err)
	defer out.Release()

	s, na, err := out.GetStr(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, "42", s)

	_, na, err = out.GetStr(1)
	require.NoError(t, err)
	assert.True(t, na)

	s, _, err = out.GetStr(2)
	require.NoError(t, err)
	assert.Equal(t, "-1", s)
}

func TestCastBoolToString(t *testing.T) {
	col, err := FromBools([]bool{true, false}, nil)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Str32, false)
	require.NoError(t, err)
	defer out.Release()

	s, _, err := out.GetStr(0)
	require.NoError(t, err)
	assert.Equal(t, "True", s)
	s, _, err = out.GetStr(1)
	require.NoError(t, err)
	assert.Equal(t, "False", s)
}

func TestCastStringToIntLenient(t *testing.T) {
	col, err := FromStrs([]string{"12", " -4 ", "oops", "", "NA", "3.6"}, nil)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int64, false)
	require.NoError(t, err)
	defer out.Release()

	type row struct {
		v  int64
		na bool
	}
	want := []row{{12, false}, {-4, false}, {0, true}, {0, true}, {0, true}, {3, false}}
	for i, w := range want {
		v, na, err := out.GetInt64(int64(i))
		require.NoError(t, err)
		assert.Equal(t, w.na, na, "row %d", i)
		if !w.na {
			assert.Equal(t, w.v, v, "row %d", i)
		}
	}
}

func TestCastStringToIntStrict(t *testing.T) {
	col, err := FromStrs([]string{"1", "oops"}, nil)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int64, true)
	require.NoError(t, err)
	defer out.Release()

	_, _, err = out.GetInt64(1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
	assert.Contains(t, err.Error(), "row 1")
}

func TestCastStrictMaterializeFails(t *testing.T) {
	col, err := FromStrs([]string{"1", "2", "bad"}, nil)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int32, true)
	require.NoError(t, err)
	defer out.Release()

	err = out.Materialize(context.Background(), testutil.TestConfig(t))
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestCastStringToFloat(t *testing.T) {
	col, err := FromStrs([]string{"2.5", "nope"}, nil)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Float64, false)
	require.NoError(t, err)
	defer out.Release()

	v, na, err := out.GetFloat64(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, 2.5, v)
	_, na, err = out.GetFloat64(1)
	require.NoError(t, err)
	assert.True(t, na)
}

func TestCastVoidToInt(t *testing.T) {
	col, err := NewVoid(3)
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Int32, false)
	require.NoError(t, err)
	defer out.Release()

	require.NoError(t, out.Materialize(context.Background(), testutil.TestConfig(t)))
	for i := int64(0); i < 3; i++ {
		_, na, err := out.GetInt32(i)
		require.NoError(t, err)
		assert.True(t, na)
	}
}

func TestCastObjectRejected(t *testing.T) {
	col := NewObject([]interface{}{1}, nil)
	defer col.Release()

	_, err := col.Cast(testutil.TestConfig(t), Int64, false)
	require.Error(t, err)
	assert.True(t, errors.IsNotImpl(err))
}

func TestCastToObjectBoxes(t *testing.T) {
	col, err := FromFixed([]int64{5, NAInt64})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Obj64, false)
	require.NoError(t, err)
	defer out.Release()

	v, na, err := out.GetObj(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int64(5), v)
	_, na, err = out.GetObj(1)
	require.NoError(t, err)
	assert.True(t, na)
}

func TestCastMaterializeMatchesLazyReads(t *testing.T) {
	col, err := FromFixed([]int32{1, NAInt32, 3, 4})
	require.NoError(t, err)
	defer col.Release()

	out, err := col.Cast(testutil.TestConfig(t), Float64, false)
	require.NoError(t, err)
	defer out.Release()

	lazy := make([]float64, 4)
	nas := make([]bool, 4)
	for i := int64(0); i < 4; i++ {
		lazy[i], nas[i], err = out.GetFloat64(i)
		require.NoError(t, err)
	}

	require.NoError(t, out.Materialize(context.Background(), testutil.TestConfig(t)))
	for i := int64(0); i < 4; i++ {
		v, na, err := out.GetFloat64(i)
		require.NoError(t, err)
		assert.Equal(t, nas[i], na, "row %d", i)
		if !na {
			assert.Equal(t, lazy[i], v, "row %d", i)
		}
	}
}

func TestLenientCastWarnsOnCoercedText(t *testing.T) {
	col, err := FromStrs([]string{"1", "oops", "3", "bad", "NA"}, nil)
	require.NoError(t, err)
	defer col.Release()

	core, logs := observer.New(zap.WarnLevel)
	cfg := testutil.TestConfig(t)
	cfg.Logger = zap.New(core)

	out, err := col.Cast(cfg, Int64, false)
	require.NoError(t, err)
	defer out.Release()
	require.NoError(t, out.Materialize(context.Background(), cfg))

	v, na, err := out.GetInt64(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int64(1), v)
	for _, i := range []int64{1, 3, 4} {
		_, na, err = out.GetInt64(i)
		require.NoError(t, err)
		assert.True(t, na, "row %d", i)
	}

	// Unparseable tokens are reported once the parallel region ends; tokens
	// in the NA-string set ("NA") pass through silently.
	var coerced int64
	for _, e := range logs.FilterMessage("cast coerced unparseable text to NA").All() {
		coerced += e.ContextMap()["rows"].(int64)
	}
	assert.Equal(t, int64(2), coerced)
}
