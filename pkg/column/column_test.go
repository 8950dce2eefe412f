package column

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/testutil"
)

func TestStypePromotion(t *testing.T) {
	assert.Equal(t, Int32, Promote(Bool8, Int32))
	assert.Equal(t, Int32, Promote(Int32, Void))
	assert.Equal(t, Float64, Promote(Int64, Float64))
	assert.Equal(t, Str64, Promote(Str32, Str64))
	assert.Equal(t, Obj64, Promote(Obj64, Float32))
}

func TestStypeProperties(t *testing.T) {
	assert.Equal(t, int64(1), Bool8.ElemSize())
	assert.Equal(t, int64(4), Str32.ElemSize())
	assert.Equal(t, int64(8), Str64.ElemSize())
	assert.True(t, Float64.IsFixedWidth())
	assert.False(t, Str32.IsFixedWidth())
	assert.Equal(t, LInt, Int16.Ltype())
	assert.Equal(t, LReal, Float32.Ltype())
}

func TestNASentinelRoundTrip(t *testing.T) {
	col, err := FromFixed([]int32{5, NAInt32, -7})
	require.NoError(t, err)
	defer col.Release()

	v, na, err := col.GetInt32(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int32(5), v)

	_, na, err = col.GetInt32(1)
	require.NoError(t, err)
	assert.True(t, na, "the sentinel must read back as missing")

	v, na, err = col.GetInt32(2)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int32(-7), v)
}

func TestFloatNaNIsNA(t *testing.T) {
	col, err := FromFixed([]float64{1.5, NAFloat64()})
	require.NoError(t, err)
	defer col.Release()

	_, na, err := col.GetFloat64(1)
	require.NoError(t, err)
	assert.True(t, na)
}

func TestUpcastPaths(t *testing.T) {
	col, err := FromFixed([]int8{3, NAInt8})
	require.NoError(t, err)
	defer col.Release()

	v32, na, err := col.GetInt32(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int32(3), v32)

	v64, na, err := col.GetInt64(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int64(3), v64)

	_, na, err = col.GetInt64(1)
	require.NoError(t, err)
	assert.True(t, na, "NA must survive the up-cast")

	f32, err := FromFixed([]float32{2.5})
	require.NoError(t, err)
	defer f32.Release()
	v, na, err := f32.GetFloat64(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, 2.5, v)
}

func TestAccessorMismatch(t *testing.T) {
	col, err := FromFixed([]int64{1})
	require.NoError(t, err)
	defer col.Release()

	_, _, err = col.GetInt32(0)
	require.Error(t, err)
	assert.True(t, errors.IsNotImpl(err), "int64 has no int32 read path")

	_, _, err = col.GetStr(0)
	require.Error(t, err)
	assert.True(t, errors.IsNotImpl(err))

	_, _, err = col.GetFloat64(0)
	require.Error(t, err)
	assert.True(t, errors.IsNotImpl(err), "ints do not read as floats")
}

func TestRowBounds(t *testing.T) {
	col, err := FromFixed([]int32{1, 2})
	require.NoError(t, err)
	defer col.Release()

	_, _, err = col.GetInt32(2)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	_, _, err = col.GetInt32(-1)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestVoidColumn(t *testing.T) {
	col, err := NewVoid(3)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, Void, col.Stype())
	assert.Equal(t, int64(3), col.NRows())
	for i := int64(0); i < 3; i++ {
		_, na, err := col.GetInt64(i)
		require.NoError(t, err)
		assert.True(t, na)
		_, na, err = col.GetStr(i)
		require.NoError(t, err)
		assert.True(t, na)
	}
}

func TestCloneSharesStorage(t *testing.T) {
	col, err := FromFixed([]int32{1, 2, 3})
	require.NoError(t, err)
	defer col.Release()

	cp := col.Clone()
	defer cp.Release()

	ctx := context.Background()
	cfg := testutil.TestConfig(t)
	b1, err := col.DataReadonly(ctx, cfg, 0)
	require.NoError(t, err)
	b2, err := cp.DataReadonly(ctx, cfg, 0)
	require.NoError(t, err)
	assert.True(t, b1.SharesRegionWith(b2), "clone must alias, not copy")
}

func TestWriteIsolationAfterClone(t *testing.T) {
	buf, err := buffer.FromSlice([]int32{1, 2, 3})
	require.NoError(t, err)
	col, err := NewFromBuffer(Int32, buf)
	require.NoError(t, err)
	defer col.Release()

	cp := col.Clone()
	defer cp.Release()

	ctx := context.Background()
	cfg := testutil.TestConfig(t)
	b, err := cp.DataReadonly(ctx, cfg, 0)
	require.NoError(t, err)

	// Writing through one handle's buffer detaches it from the other.
	buffer.WritableView[int32](b)[0] = 99

	v, _, err := col.GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
	v, _, err = cp.GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(99), v)
}

func TestMaterializePhysicalIsNoOp(t *testing.T) {
	col, err := FromFixed([]int64{1, 2, 3})
	require.NoError(t, err)
	defer col.Release()

	assert.False(t, col.IsVirtual())
	require.NoError(t, col.Materialize(context.Background(), testutil.TestConfig(t)))
	v, _, err := col.GetInt64(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestFromBools(t *testing.T) {
	col, err := FromBools([]bool{true, false, true}, []bool{true, true, false})
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, Bool8, col.Stype())
	v, na, err := col.GetInt32(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int32(1), v)

	v, na, err = col.GetInt32(1)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, int32(0), v)

	_, na, err = col.GetInt32(2)
	require.NoError(t, err)
	assert.True(t, na)
}

func TestNewFromBufferSizeMismatch(t *testing.T) {
	buf, err := buffer.Allocate(7)
	require.NoError(t, err)
	_, err = NewFromBuffer(Int32, buf)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
	buf.Release()
}

func TestStats(t *testing.T) {
	col, err := FromFixed([]int32{4, NAInt32, -2, 10})
	require.NoError(t, err)
	defer col.Release()

	s, err := col.Stats(context.Background(), testutil.TestConfig(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.NACount)
	require.True(t, s.HasMinMax)
	assert.Equal(t, float64(-2), s.MinFloat)
	assert.Equal(t, float64(10), s.MaxFloat)

	// Second call returns the cached result.
	s2, err := col.Stats(context.Background(), testutil.TestConfig(t))
	require.NoError(t, err)
	assert.Same(t, s, s2)
}

func TestObjectColumnLifecycle(t *testing.T) {
	retained := map[interface{}]int{}
	released := map[interface{}]int{}
	vt := &ObjVTable{
		Retain:  func(v interface{}) { retained[v]++ },
		Release: func(v interface{}) { released[v]++ },
	}

	col := NewObject([]interface{}{"a", nil, "b"}, vt)
	assert.Equal(t, Obj64, col.Stype())
	assert.Equal(t, 1, retained["a"])
	assert.Equal(t, 1, retained["b"])

	v, na, err := col.GetObj(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, "a", v)

	_, na, err = col.GetObj(1)
	require.NoError(t, err)
	assert.True(t, na)

	cp := col.Clone()
	col.Release()
	assert.Empty(t, released, "storage is still referenced by the clone")

	cp.Release()
	assert.Equal(t, 1, released["a"], "release hooks run exactly once")
	assert.Equal(t, 1, released["b"])
}

func TestVerify(t *testing.T) {
	col, err := FromFixed([]int16{1, 2})
	require.NoError(t, err)
	defer col.Release()
	require.NoError(t, col.Verify())

	var zero Column
	require.Error(t, zero.Verify())
}

func TestDataSizeAndNACount(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	cfg := testutil.TestConfig(t)

	col, err := FromFixed([]int32{1, NAInt32, 3, NAInt32})
	require.NoError(t, err)
	defer col.Release()

	size, err := col.DataSize(ctx, cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4*4), size)

	_, err = col.DataSize(ctx, cfg, 1)
	require.Error(t, err, "fixed-width columns have no string data part")

	na, err := col.NACount(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), na)
}
