package rowindex

import (
	"context"
	"math"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/parallel"
	"github.com/ajitpratap0/tabular/pkg/pool"
)

// FromFilter builds a sorted Array RowIndex selecting the rows of [0, n) for
// which pred returns true.
//
// The scan is split into fixed-size chunks of config.FilterChunkRows rows.
// Workers evaluate their chunks concurrently, each filling a private buffer
// drawn from the scratch pool; an ordered section then copies every chunk's
// survivors into its contiguous slot of the output array in chunk order, so
// the result preserves row order even though evaluation is parallel. The
// final array is compacted to Array32 when it fits.
//
// Cancellation via ctx is chunk-granular and returns an interrupt error.
func FromFilter(ctx context.Context, cfg *config.Config, n int64, pred func(row int64) bool) (RowIndex, error) {
	cfg = orDefault(cfg)
	if n < 0 {
		n = 0
	}

	if n <= math.MaxInt32 {
		return filter32(ctx, cfg, n, pred)
	}
	return filter64(ctx, cfg, n, pred)
}

func filter32(ctx context.Context, cfg *config.Config, n int64, pred func(row int64) bool) (RowIndex, error) {
	nchunks := parallel.NumChunks(n, config.FilterChunkRows)
	chunkBufs := make([][]int32, nchunks)
	out := make([]int32, n)
	total := int64(0)

	err := parallel.ForOrdered(ctx, cfg, nchunks, parallel.OrderedTask{
		Pre: func(chunk int64) {
			start := chunk * config.FilterChunkRows
			end := start + config.FilterChunkRows
			if end > n {
				end = n
			}
			buf := pool.GetIndex32Slice()
			for row := start; row < end; row++ {
				if pred(row) {
					buf = append(buf, int32(row))
				}
			}
			chunkBufs[chunk] = buf
		},
		Ordered: func(chunk int64) {
			copy(out[total:], chunkBufs[chunk])
			total += int64(len(chunkBufs[chunk]))
		},
		Post: func(chunk int64) {
			pool.PutIndex32Slice(chunkBufs[chunk])
			chunkBufs[chunk] = nil
		},
	})
	if err != nil {
		return RowIndex{}, err
	}

	buf, err := buffer.FromSlice(out[:total])
	if err != nil {
		return RowIndex{}, err
	}
	view := buffer.View[int32](buf)
	r := &impl{
		kind:   KindArr32,
		length: total,
		sorted: true,
		buf:    buf,
		ind32:  view,
	}
	if total > 0 {
		r.min = int64(view[0])
		r.max = int64(view[total-1])
		r.hasRows = true
	}
	return RowIndex{r: r}, nil
}

func filter64(ctx context.Context, cfg *config.Config, n int64, pred func(row int64) bool) (RowIndex, error) {
	nchunks := parallel.NumChunks(n, config.FilterChunkRows)
	chunkBufs := make([][]int64, nchunks)
	out := make([]int64, 0, n/8)
	total := int64(0)

	err := parallel.ForOrdered(ctx, cfg, nchunks, parallel.OrderedTask{
		Pre: func(chunk int64) {
			start := chunk * config.FilterChunkRows
			end := start + config.FilterChunkRows
			if end > n {
				end = n
			}
			buf := pool.GetIndex64Slice()
			for row := start; row < end; row++ {
				if pred(row) {
					buf = append(buf, row)
				}
			}
			chunkBufs[chunk] = buf
		},
		Ordered: func(chunk int64) {
			out = append(out, chunkBufs[chunk]...)
			total += int64(len(chunkBufs[chunk]))
		},
		Post: func(chunk int64) {
			pool.PutIndex64Slice(chunkBufs[chunk])
			chunkBufs[chunk] = nil
		},
	})
	if err != nil {
		return RowIndex{}, err
	}

	buf, err := buffer.FromSlice(out[:total])
	if err != nil {
		return RowIndex{}, err
	}
	view := buffer.View[int64](buf)
	r := &impl{
		kind:   KindArr64,
		length: total,
		sorted: true,
		buf:    buf,
		ind64:  view,
	}
	if total > 0 {
		r.min = view[0]
		r.max = view[total-1]
		r.hasRows = true
	}
	return compactified(RowIndex{r: r}), nil
}
