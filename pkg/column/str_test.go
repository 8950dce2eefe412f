package column

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/testutil"
)

func TestStringOffsetsEncoding(t *testing.T) {
	// ["ab", NA, ""]: NA repeats the previous offset with the NA bit set,
	// and the empty string is a plain zero-length entry, distinct from NA.
	col, err := FromStrs([]string{"ab", "", ""}, []bool{true, false, true})
	require.NoError(t, err)
	defer col.Release()

	require.Equal(t, Str32, col.Stype())

	offs, err := col.DataReadonly(context.Background(), testutil.TestConfig(t), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 2 | NABit32, 2}, buffer.View[uint32](offs))

	data, err := col.DataReadonly(context.Background(), testutil.TestConfig(t), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), data.Bytes())
}

func TestStringRoundTrip(t *testing.T) {
	vals := []string{"alpha", "", "gamma", "delta"}
	valid := []bool{true, true, false, true}
	col, err := FromStrs(vals, valid)
	require.NoError(t, err)
	defer col.Release()

	for i := range vals {
		s, na, err := col.GetStr(int64(i))
		require.NoError(t, err)
		assert.Equal(t, !valid[i], na, "row %d", i)
		if valid[i] {
			assert.Equal(t, vals[i], s)
		}
	}
	require.NoError(t, col.Verify())
}

func TestStringAccessorMismatch(t *testing.T) {
	col, err := FromStrs([]string{"x"}, nil)
	require.NoError(t, err)
	defer col.Release()

	_, _, err = col.GetInt64(0)
	require.Error(t, err)
	assert.True(t, errors.IsNotImpl(err))
}

func TestNewStringValidation(t *testing.T) {
	offsets, err := buffer.FromSlice([]uint32{0, 1})
	require.NoError(t, err)
	strdata, err := buffer.FromSlice([]byte("a"))
	require.NoError(t, err)

	// Offsets sized for one row, but declared as two.
	_, err = NewString(Str32, 2, offsets, strdata)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))

	col, err := NewString(Str32, 1, offsets, strdata)
	require.NoError(t, err)
	defer col.Release()
	s, na, err := col.GetStr(0)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, "a", s)
}

func TestNewStringRejectsNonzeroFirstOffset(t *testing.T) {
	offsets, err := buffer.FromSlice([]uint32{1, 2})
	require.NoError(t, err)
	strdata, err := buffer.FromSlice([]byte("ab"))
	require.NoError(t, err)
	_, err = NewString(Str32, 1, offsets, strdata)
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestStrBuilderUpgradePreservesNA(t *testing.T) {
	b := newStrBuilder(4, 16)
	b.appendStr("ab")
	b.appendNA()
	b.appendStr("")

	// Force the 32-to-64-bit offset re-encode and check the NA bit moves to
	// the wide position with magnitudes intact.
	b.upgrade()
	require.True(t, b.use64)
	assert.Equal(t, []uint64{2, 2 | NABit64, 2}, b.offs64)

	b.appendStr("cd")
	col, err := b.finish()
	require.NoError(t, err)
	defer col.release()

	assert.Equal(t, Str64, col.stype())
	s, na, err := col.getStr(1)
	require.NoError(t, err)
	assert.True(t, na)
	assert.Empty(t, s)
	s, na, err = col.getStr(3)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, "cd", s)
	require.NoError(t, col.verify())
}

func TestStringSharedStorageAfterClone(t *testing.T) {
	col, err := FromStrs([]string{"one", "two"}, nil)
	require.NoError(t, err)
	defer col.Release()

	cp := col.Clone()
	defer cp.Release()

	ctx := context.Background()
	cfg := testutil.TestConfig(t)
	d1, err := col.DataReadonly(ctx, cfg, 1)
	require.NoError(t, err)
	d2, err := cp.DataReadonly(ctx, cfg, 1)
	require.NoError(t, err)
	assert.True(t, d1.SharesRegionWith(d2))
}

func TestBuildStrColumnParallel(t *testing.T) {
	const n = 10_000
	col, err := buildStrColumn(context.Background(), testutil.TestConfig(t), n,
		func(i int64) (string, bool, error) {
			if i%7 == 0 {
				return "", true, nil
			}
			return strings.Repeat("x", int(i%5)), false, nil
		})
	require.NoError(t, err)
	defer col.release()

	require.Equal(t, int64(n), col.nrows())
	for i := int64(0); i < n; i++ {
		s, na, err := col.getStr(i)
		require.NoError(t, err)
		if i%7 == 0 {
			require.True(t, na, "row %d", i)
		} else {
			require.False(t, na, "row %d", i)
			require.Equal(t, strings.Repeat("x", int(i%5)), s, "row %d", i)
		}
	}
}

func TestBuildStrColumnError(t *testing.T) {
	boom := errors.ValueError("bad row")
	_, err := buildStrColumn(context.Background(), testutil.TestConfig(t), 100,
		func(i int64) (string, bool, error) {
			if i == 42 {
				return "", false, boom
			}
			return "ok", false, nil
		})
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
}

func TestStringVerifyCatchesCorruptOffsets(t *testing.T) {
	offsets, err := buffer.FromSlice([]uint32{0, 3, 1})
	require.NoError(t, err)
	strdata, err := buffer.FromSlice([]byte("abc"))
	require.NoError(t, err)
	col, err := newStrColumn(Str32, 2, offsets, strdata)
	require.NoError(t, err)
	defer col.release()

	err = col.verify()
	require.Error(t, err)
	assert.True(t, errors.IsAssertion(err))
}

func TestWidenStrOffsetsKeepsNABit(t *testing.T) {
	narrow := []uint32{0, 3, 3 | NABit32, 7, NABit32}
	assert.Equal(t, []uint64{0, 3, 3 | NABit64, 7, NABit64}, widenStrOffsets(narrow))
	assert.Empty(t, widenStrOffsets(nil))
}
