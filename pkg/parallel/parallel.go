// Package parallel provides the thread-pool-backed bulk execution primitives
// used by materialization and by every consumer doing per-row work.
//
// Three scheduling disciplines are offered:
//   - static: the iteration space is split into equal contiguous chunks,
//     one per worker; no ordering between chunks
//   - dynamic: fixed-size chunks are pulled from a shared counter as workers
//     finish, for loops with highly variable per-row cost
//   - ordered: each chunk runs an unordered pre phase, a strictly sequential
//     ordered phase and an unordered post phase, for loops whose output slot
//     assignment must preserve input order
//
// Cancellation is chunk-granular: the context is polled at chunk boundaries
// only, and an interrupted loop unwinds through a single exit path returning
// an interrupt error. Workers never block on I/O inside a region; the only
// blocking primitive is the ordered-section barrier.
package parallel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
)

// interruptError converts a context cancellation into the engine's error
// taxonomy. Returns nil when the context is still live.
func interruptError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		metrics.ParallelInterrupts.Inc()
		return errors.Wrap(err, errors.ErrorTypeInterrupt, "parallel region cancelled")
	}
	return nil
}

// teamSize computes the number of workers worth launching for n rows.
func teamSize(cfg *config.Config, n int64) int {
	threads := cfg.Threads()
	minRows := cfg.MinRowsPerThread
	if minRows <= 0 {
		minRows = 1
	}
	if byWork := (n + minRows - 1) / minRows; byWork < int64(threads) {
		threads = int(byWork)
	}
	if threads < 1 {
		threads = 1
	}
	return threads
}

// ForStatic runs body over [0, n) split into equal contiguous chunks, one
// per worker. There is no ordering guarantee between chunks. The context is
// checked once per chunk; small inputs run serially on the calling thread.
func ForStatic(ctx context.Context, cfg *config.Config, n int64, body func(start, end int64)) error {
	if n <= 0 {
		return nil
	}
	if err := interruptError(ctx); err != nil {
		return err
	}

	threads := teamSize(cfg, n)
	if threads == 1 {
		body(0, n)
		return nil
	}
	metrics.ParallelRegions.WithLabelValues("static").Inc()

	chunk := (n + int64(threads) - 1) / int64(threads)
	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		start := int64(t) * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int64) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			body(start, end)
		}(start, end)
	}
	wg.Wait()

	return interruptError(ctx)
}

// ForDynamic runs body over [0, n) in chunks of chunkSize pulled from a
// shared counter as workers finish. chunkSize <= 0 uses the configured
// default. Used where per-row cost is highly variable.
func ForDynamic(ctx context.Context, cfg *config.Config, n, chunkSize int64, body func(start, end int64)) error {
	if n <= 0 {
		return nil
	}
	if err := interruptError(ctx); err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = cfg.DynamicChunkRows
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}

	threads := teamSize(cfg, n)
	if threads == 1 {
		for start := int64(0); start < n; start += chunkSize {
			if ctx.Err() != nil {
				break
			}
			end := start + chunkSize
			if end > n {
				end = n
			}
			body(start, end)
		}
		return interruptError(ctx)
	}
	metrics.ParallelRegions.WithLabelValues("dynamic").Inc()

	var next atomic.Int64
	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				start := next.Add(chunkSize) - chunkSize
				if start >= n {
					return
				}
				end := start + chunkSize
				if end > n {
					end = n
				}
				body(start, end)
			}
		}()
	}
	wg.Wait()

	return interruptError(ctx)
}

// OrderedTask describes the three phases of one ordered-loop chunk. Pre and
// Post run unordered and concurrently across chunks; Ordered runs strictly
// in chunk order, one chunk at a time. Any phase may be nil.
type OrderedTask struct {
	Pre     func(chunk int64)
	Ordered func(chunk int64)
	Post    func(chunk int64)
}

// ForOrdered runs the task over nchunks chunks. Workers claim chunks from a
// shared counter, run Pre concurrently, then serialize through the ordered
// barrier in chunk order before running Post concurrently. On cancellation
// the remaining chunks still pass through the barrier (without executing
// their phases) so that no worker is left waiting on an abandoned turn.
func ForOrdered(ctx context.Context, cfg *config.Config, nchunks int64, task OrderedTask) error {
	if nchunks <= 0 {
		return nil
	}
	if err := interruptError(ctx); err != nil {
		return err
	}

	threads := cfg.Threads()
	if int64(threads) > nchunks {
		threads = int(nchunks)
	}
	if threads == 1 {
		for i := int64(0); i < nchunks; i++ {
			if ctx.Err() != nil {
				break
			}
			if task.Pre != nil {
				task.Pre(i)
			}
			if task.Ordered != nil {
				task.Ordered(i)
			}
			if task.Post != nil {
				task.Post(i)
			}
		}
		return interruptError(ctx)
	}
	metrics.ParallelRegions.WithLabelValues("ordered").Inc()

	var (
		next atomic.Int64
		mu   sync.Mutex
		cond = sync.NewCond(&mu)
		turn int64
	)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= nchunks {
					return
				}
				skipped := ctx.Err() != nil
				if !skipped && task.Pre != nil {
					task.Pre(i)
				}

				mu.Lock()
				for turn != i {
					cond.Wait()
				}
				mu.Unlock()

				// Cancellation may have arrived while waiting; the turn must
				// still advance or later chunks deadlock on the barrier.
				if !skipped && ctx.Err() == nil && task.Ordered != nil {
					task.Ordered(i)
				}

				mu.Lock()
				turn++
				cond.Broadcast()
				mu.Unlock()

				if !skipped && ctx.Err() == nil && task.Post != nil {
					task.Post(i)
				}
			}
		}()
	}
	wg.Wait()

	return interruptError(ctx)
}

// NumChunks returns how many chunks of size chunkRows cover n rows.
func NumChunks(n, chunkRows int64) int64 {
	if chunkRows <= 0 || n <= 0 {
		return 0
	}
	return (n + chunkRows - 1) / chunkRows
}
