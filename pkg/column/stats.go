package column

import (
	"context"
	"sync"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/parallel"
)

// Stats caches per-column summary statistics. NACount is always populated;
// the min/max pair is populated for numeric columns with at least one valid
// value. Once computed, stats are retained by the physical column and
// invalidated only by operations that replace its storage.
type Stats struct {
	NACount int64

	// HasMinMax reports whether the min/max fields are meaningful.
	HasMinMax bool
	MinInt    int64
	MaxInt    int64
	MinFloat  float64
	MaxFloat  float64
}

// statsPartial accumulates one worker's share of a numeric reduction.
type statsPartial struct {
	naCount  int64
	seen     bool
	minF     float64
	maxF     float64
}

func (p *statsPartial) addFloat(v float64) {
	if !p.seen {
		p.minF, p.maxF, p.seen = v, v, true
		return
	}
	if v < p.minF {
		p.minF = v
	}
	if v > p.maxF {
		p.maxF = v
	}
}

// fwStats reduces a fixed-width buffer in parallel. Each static chunk
// accumulates privately and merges under the lock once, at chunk end.
func fwStats[T fixed](ctx context.Context, cfg *config.Config, buf *buffer.Buffer, n int64) (*Stats, error) {
	data := buffer.View[T](buf)
	out := &Stats{}
	var mu sync.Mutex
	err := parallel.ForStatic(ctx, cfg, n, func(start, end int64) {
		var p statsPartial
		for i := start; i < end; i++ {
			v := data[i]
			if isNA(v) {
				p.naCount++
				continue
			}
			p.addFloat(float64(v))
		}
		mu.Lock()
		out.NACount += p.naCount
		if p.seen {
			if !out.HasMinMax {
				out.MinFloat, out.MaxFloat, out.HasMinMax = p.minF, p.maxF, true
			} else {
				if p.minF < out.MinFloat {
					out.MinFloat = p.minF
				}
				if p.maxF > out.MaxFloat {
					out.MaxFloat = p.maxF
				}
			}
		}
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	if out.HasMinMax {
		out.MinInt = int64(out.MinFloat)
		out.MaxInt = int64(out.MaxFloat)
	}
	return out, nil
}

// computeStats builds (or returns the cached) Stats for a fixed-width column.
func (c *fwColumn) computeStats(ctx context.Context, cfg *config.Config) (*Stats, error) {
	c.statsMu.Lock()
	if c.stats != nil {
		s := c.stats
		c.statsMu.Unlock()
		return s, nil
	}
	c.statsMu.Unlock()

	var s *Stats
	var err error
	switch c.st {
	case Bool8, Int8:
		s, err = fwStats[int8](ctx, cfg, c.mbuf, c.n)
	case Int16:
		s, err = fwStats[int16](ctx, cfg, c.mbuf, c.n)
	case Int32:
		s, err = fwStats[int32](ctx, cfg, c.mbuf, c.n)
	case Int64:
		s, err = fwStats[int64](ctx, cfg, c.mbuf, c.n)
	case Float32:
		s, err = fwStats[float32](ctx, cfg, c.mbuf, c.n)
	default:
		s, err = fwStats[float64](ctx, cfg, c.mbuf, c.n)
	}
	if err != nil {
		return nil, err
	}

	c.statsMu.Lock()
	if c.stats == nil {
		c.stats = s
	}
	s = c.stats
	c.statsMu.Unlock()
	return s, nil
}

// computeStats counts missing entries by scanning the offsets' NA bits.
func (c *strColumn) computeStats(ctx context.Context, cfg *config.Config) (*Stats, error) {
	c.statsMu.Lock()
	if c.stats != nil {
		s := c.stats
		c.statsMu.Unlock()
		return s, nil
	}
	c.statsMu.Unlock()

	out := &Stats{}
	var mu sync.Mutex
	var err error
	if c.st == Str32 {
		offs := buffer.View[uint32](c.offsets)
		err = parallel.ForStatic(ctx, cfg, c.n, func(start, end int64) {
			var na int64
			for i := start; i < end; i++ {
				if offs[i+1]&NABit32 != 0 {
					na++
				}
			}
			mu.Lock()
			out.NACount += na
			mu.Unlock()
		})
	} else {
		offs := buffer.View[uint64](c.offsets)
		err = parallel.ForStatic(ctx, cfg, c.n, func(start, end int64) {
			var na int64
			for i := start; i < end; i++ {
				if offs[i+1]&NABit64 != 0 {
					na++
				}
			}
			mu.Lock()
			out.NACount += na
			mu.Unlock()
		})
	}
	if err != nil {
		return nil, err
	}

	c.statsMu.Lock()
	if c.stats == nil {
		c.stats = out
	}
	s := c.stats
	c.statsMu.Unlock()
	return s, nil
}

// computeStats counts nil elements.
func (c *objColumn) computeStats(ctx context.Context, cfg *config.Config) (*Stats, error) {
	c.statsMu.Lock()
	if c.stats != nil {
		s := c.stats
		c.statsMu.Unlock()
		return s, nil
	}
	c.statsMu.Unlock()

	out := &Stats{}
	var mu sync.Mutex
	elems := c.data.elems
	err := parallel.ForStatic(ctx, cfg, int64(len(elems)), func(start, end int64) {
		var na int64
		for i := start; i < end; i++ {
			if elems[i] == nil {
				na++
			}
		}
		mu.Lock()
		out.NACount += na
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	c.statsMu.Lock()
	if c.stats == nil {
		c.stats = out
	}
	s := c.stats
	c.statsMu.Unlock()
	return s, nil
}
