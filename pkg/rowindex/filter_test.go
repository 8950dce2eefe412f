package rowindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

func filterConfig() *config.Config {
	cfg := config.Default()
	cfg.NumThreads = 4
	cfg.MinRowsPerThread = 1
	return cfg
}

func TestFromFilterSmall(t *testing.T) {
	ri, err := FromFilter(context.Background(), filterConfig(), 10, func(row int64) bool {
		return row%3 == 0
	})
	require.NoError(t, err)
	assert.Equal(t, KindArr32, ri.Kind())
	assert.True(t, ri.IsSorted())
	require.Equal(t, int64(4), ri.Length())
	want := []int64{0, 3, 6, 9}
	for i, w := range want {
		assert.Equal(t, w, ri.Nth(int64(i)))
	}
	require.NoError(t, ri.Verify())
}

// Spans three scan chunks; the ordered merge must keep global row order.
func TestFromFilterMultiChunkOrder(t *testing.T) {
	n := int64(3*config.FilterChunkRows + 17)
	ri, err := FromFilter(context.Background(), filterConfig(), n, func(row int64) bool {
		return row%2 == 0
	})
	require.NoError(t, err)
	require.Equal(t, (n+1)/2, ri.Length())
	assert.True(t, ri.IsSorted())
	for i := int64(0); i < ri.Length(); i++ {
		require.Equal(t, 2*i, ri.Nth(i), "row %d", i)
	}
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, 2*(ri.Length()-1), ri.Max())
}

func TestFromFilterNoneMatch(t *testing.T) {
	ri, err := FromFilter(context.Background(), filterConfig(), 1000, func(int64) bool {
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), ri.Length())
}

func TestFromFilterAllMatch(t *testing.T) {
	ri, err := FromFilter(context.Background(), filterConfig(), 1000, func(int64) bool {
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ri.Length())
	assert.Equal(t, int64(999), ri.Max())
}

func TestFromFilterEmptyInput(t *testing.T) {
	ri, err := FromFilter(context.Background(), filterConfig(), 0, func(int64) bool {
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), ri.Length())
}

func TestFromFilterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromFilter(ctx, filterConfig(), int64(config.FilterChunkRows)*4, func(int64) bool {
		return true
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInterrupt))
}
