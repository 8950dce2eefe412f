package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedPoolReuse(t *testing.T) {
	p := New(
		func() *[]int { s := make([]int, 0, 8); return &s },
		func(s *[]int) { *s = (*s)[:0] },
	)

	a := p.Get()
	*a = append(*a, 1, 2, 3)
	p.Put(a)

	b := p.Get()
	assert.Empty(t, *b, "reset must clear the recycled object")
	p.Put(b)

	allocated, inUse, hits := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(2), hits)
}

func TestIndexSliceHelpers(t *testing.T) {
	s32 := GetIndex32Slice()
	assert.Empty(t, s32)
	s32 = append(s32, 1, 2, 3)
	PutIndex32Slice(s32)
	PutIndex32Slice(nil) // must not panic

	s64 := GetIndex64Slice()
	assert.Empty(t, s64)
	PutIndex64Slice(s64)

	next := GetIndex32Slice()
	assert.Empty(t, next, "recycled buffers come back empty")
	PutIndex32Slice(next)
}

func TestBufferPoolBuckets(t *testing.T) {
	p := NewBufferPool()

	small := p.Get(100)
	require.Len(t, small, 100)
	assert.Equal(t, 512, cap(small))
	p.Put(small)

	exact := p.Get(4096)
	require.Len(t, exact, 4096)
	assert.Equal(t, 4096, cap(exact))
	p.Put(exact)

	// Oversized requests bypass the buckets.
	huge := p.Get(32 << 20)
	require.Len(t, huge, 32<<20)
	p.Put(huge) // no matching bucket; dropped to GC

	// Scratch drawn for appending can outgrow its bucket; Put then drops it.
	scratch := p.Get(512)[:0]
	scratch = append(scratch, make([]byte, 5000)...)
	p.Put(scratch)
	p.Put(nil)
}

func TestPoolConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s := GetIndex64Slice()
				s = append(s, int64(i))
				PutIndex64Slice(s)
			}
		}()
	}
	wg.Wait()
}
