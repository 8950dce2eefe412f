package frame

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/column"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
	"github.com/ajitpratap0/tabular/pkg/testutil"
)

func intCol(t *testing.T, vals ...int64) column.Column {
	t.Helper()
	c, err := column.FromFixed(vals)
	require.NoError(t, err)
	return c
}

func strCol(t *testing.T, vals ...string) column.Column {
	t.Helper()
	c, err := column.FromStrs(vals, nil)
	require.NoError(t, err)
	return c
}

func TestNewFrame(t *testing.T) {
	f, err := New([]string{"id", "name"}, []column.Column{
		intCol(t, 1, 2, 3),
		strCol(t, "a", "b", "c"),
	})
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, int64(3), f.NRows())
	assert.Equal(t, 2, f.NCols())
	assert.Equal(t, []string{"id", "name"}, f.Names())
	require.NoError(t, f.Verify())

	c, err := f.ColumnByName("name")
	require.NoError(t, err)
	s, _, err := c.GetStr(1)
	require.NoError(t, err)
	assert.Equal(t, "b", s)
}

func TestNewFrameRejectsRaggedColumns(t *testing.T) {
	a := intCol(t, 1, 2)
	b := intCol(t, 1, 2, 3)
	_, err := New([]string{"a", "b"}, []column.Column{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
	a.Release()
	b.Release()
}

func TestNewFrameRejectsDuplicateNames(t *testing.T) {
	a := intCol(t, 1)
	b := intCol(t, 2)
	_, err := New([]string{"x", "x"}, []column.Column{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsValue(err))
	a.Release()
	b.Release()
}

func TestAddAndDeleteColumn(t *testing.T) {
	f, err := New([]string{"a"}, []column.Column{intCol(t, 1, 2)})
	require.NoError(t, err)
	defer f.Release()

	require.NoError(t, f.AddColumn("b", intCol(t, 3, 4)))
	assert.Equal(t, 2, f.NCols())

	err = f.AddColumn("b", intCol(t, 0, 0))
	require.Error(t, err, "duplicate names are rejected")

	require.NoError(t, f.DeleteColumn("a"))
	assert.Equal(t, 1, f.NCols())
	assert.Equal(t, []string{"b"}, f.Names())

	c, err := f.ColumnByName("b")
	require.NoError(t, err)
	v, _, err := c.GetInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestApplyRowIndexAcrossColumns(t *testing.T) {
	f, err := New([]string{"id", "name"}, []column.Column{
		intCol(t, 10, 20, 30),
		strCol(t, "x", "y", "z"),
	})
	require.NoError(t, err)
	defer f.Release()

	ri, err := rowindex.FromSlice(2, 2, -1)
	require.NoError(t, err)
	require.NoError(t, f.ApplyRowIndex(ri))

	assert.Equal(t, int64(2), f.NRows())
	require.NoError(t, f.Verify())

	id, err := f.ColumnByName("id")
	require.NoError(t, err)
	v, _, err := id.GetInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)

	name, err := f.ColumnByName("name")
	require.NoError(t, err)
	s, _, err := name.GetStr(1)
	require.NoError(t, err)
	assert.Equal(t, "y", s)
}

func TestMaterializeAllColumns(t *testing.T) {
	f, err := New([]string{"id", "name"}, []column.Column{
		intCol(t, 1, 2, 3, 4),
		strCol(t, "a", "b", "c", "d"),
	})
	require.NoError(t, err)
	defer f.Release()

	ri, err := rowindex.FromSlice(0, 2, 2)
	require.NoError(t, err)
	require.NoError(t, f.ApplyRowIndex(ri))

	require.NoError(t, f.Materialize(context.Background(), testutil.TestConfig(t)))
	for i := 0; i < f.NCols(); i++ {
		c, err := f.Column(i)
		require.NoError(t, err)
		assert.False(t, c.IsVirtual(), "column %d", i)
	}

	name, err := f.ColumnByName("name")
	require.NoError(t, err)
	s, _, err := name.GetStr(1)
	require.NoError(t, err)
	assert.Equal(t, "c", s)
}

func TestRbindMatchingColumns(t *testing.T) {
	a, err := New([]string{"id"}, []column.Column{intCol(t, 1, 2)})
	require.NoError(t, err)
	defer a.Release()
	b, err := New([]string{"id"}, []column.Column{intCol(t, 3)})
	require.NoError(t, err)
	defer b.Release()

	out, err := a.Rbind(context.Background(), testutil.TestConfig(t), b)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, int64(3), out.NRows())
	c, err := out.ColumnByName("id")
	require.NoError(t, err)
	v, _, err := c.GetInt64(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

// Frames with different column sets rbind to the union, padding the side
// that lacks a column with NA.
func TestRbindPadsMissingColumns(t *testing.T) {
	a, err := New([]string{"id"}, []column.Column{intCol(t, 1, 2)})
	require.NoError(t, err)
	defer a.Release()
	b, err := New([]string{"id", "name"}, []column.Column{
		intCol(t, 3),
		strCol(t, "z"),
	})
	require.NoError(t, err)
	defer b.Release()

	out, err := a.Rbind(context.Background(), testutil.TestConfig(t), b)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"id", "name"}, out.Names())
	assert.Equal(t, int64(3), out.NRows())

	name, err := out.ColumnByName("name")
	require.NoError(t, err)
	_, na, err := name.GetStr(0)
	require.NoError(t, err)
	assert.True(t, na, "rows from the frame without the column are NA")
	s, na, err := name.GetStr(2)
	require.NoError(t, err)
	assert.False(t, na)
	assert.Equal(t, "z", s)
	require.NoError(t, out.Verify())
}

func TestCloneIsIndependent(t *testing.T) {
	f, err := New([]string{"id"}, []column.Column{intCol(t, 1, 2, 3)})
	require.NoError(t, err)
	defer f.Release()

	g := f.Clone()
	defer g.Release()

	ri, err := rowindex.FromSlice(0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, g.ApplyRowIndex(ri))

	assert.Equal(t, int64(3), f.NRows(), "selecting rows of the clone must not shrink the original")
	assert.Equal(t, int64(1), g.NRows())
}
