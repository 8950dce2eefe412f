// Package pool provides object pooling for the columnar engine.
// It offers zero-allocation recycling of scratch buffers used by parallel
// scans and string assembly, reducing garbage collection pressure on the
// hot materialization paths.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset.
// The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty; the reset function is
// called before returning an object to the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first when a
// reset function was provided.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns allocation count, objects in use and pool hits.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// Global pools for the scratch allocations made inside parallel regions.
var (
	// Index32SlicePool recycles the per-chunk index buffers filled by
	// parallel row-filter scans before their ordered slot assignment.
	Index32SlicePool = New(
		func() []int32 {
			return make([]int32, 0, 65536)
		},
		func(s []int32) {
			// Length is reset on Get via slicing; nothing to clear.
		},
	)

	// Index64SlicePool recycles 64-bit index buffers for frames whose row
	// numbers do not fit in 32 bits.
	Index64SlicePool = New(
		func() []int64 {
			return make([]int64, 0, 65536)
		},
		func(s []int64) {
		},
	)
)

// GetIndex32Slice retrieves a zero-length 32-bit index buffer from the pool.
func GetIndex32Slice() []int32 {
	return Index32SlicePool.Get()[:0]
}

// PutIndex32Slice returns a 32-bit index buffer to the pool.
func PutIndex32Slice(s []int32) {
	if s != nil {
		Index32SlicePool.Put(s)
	}
}

// GetIndex64Slice retrieves a zero-length 64-bit index buffer from the pool.
func GetIndex64Slice() []int64 {
	return Index64SlicePool.Get()[:0]
}

// PutIndex64Slice returns a 64-bit index buffer to the pool.
func PutIndex64Slice(s []int64) {
	if s != nil {
		Index64SlicePool.Put(s)
	}
}

// BufferPool manages byte buffer pooling with size-based buckets.
// It maintains multiple pools for different buffer sizes, automatically
// selecting the appropriate pool based on requested size.
type BufferPool struct {
	pools []*Pool[[]byte]
	sizes []int
}

// NewBufferPool creates a buffer pool with power-of-2 buckets from 512B to
// 16MB. Buffers larger than 16MB are allocated directly without pooling.
func NewBufferPool() *BufferPool {
	sizes := []int{
		512,      // 512B
		1024,     // 1KB
		4096,     // 4KB
		16384,    // 16KB
		65536,    // 64KB
		262144,   // 256KB
		1048576,  // 1MB
		4194304,  // 4MB
		16777216, // 16MB
	}

	pools := make([]*Pool[[]byte], len(sizes))
	for i, size := range sizes {
		size := size // capture loop variable
		pools[i] = New(
			func() []byte {
				return make([]byte, size)
			},
			func(b []byte) {
			},
		)
	}

	return &BufferPool{
		pools: pools,
		sizes: sizes,
	}
}

// Get returns a buffer of at least the requested size from the pool.
// The returned buffer's length is set to the requested size; its capacity
// may be larger.
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			buf := p.pools[i].Get()
			return buf[:size]
		}
	}

	// Fallback to allocation for very large buffers
	return make([]byte, size)
}

// Put returns a buffer to the pool for reuse. Buffers that don't match any
// bucket size are released to garbage collection.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)

	for i, s := range p.sizes {
		if s == size {
			p.pools[i].Put(buf[:s])
			return
		}
	}
}

// GlobalBufferPool provides size-based byte buffer pooling for the engine,
// sized per request. The parallel string scans draw their per-chunk scratch
// from here.
var GlobalBufferPool = NewBufferPool()
