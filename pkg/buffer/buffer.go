// Package buffer provides the ref-counted, copy-on-write memory regions that
// back all columnar storage in Tabular.
//
// A Buffer is a cheap handle over a shared memory region. Any number of
// columns may hold handles to the same region and read it concurrently
// without synchronization. A writable pointer is only handed out after
// ensuring the region has a single owner; requesting write access to a
// shared region transparently clones it first (copy-on-write), so mutation
// through one handle is never visible through another.
//
// Three ownership modes are supported:
//   - owned: exclusively-owned heap memory, zero-initialized on allocation
//   - mapped: a read-only memory-mapped file
//   - external: caller-owned memory that the buffer never frees
package buffer

import (
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
)

// Mode identifies the ownership mode of a buffer's memory region.
type Mode uint8

const (
	// ModeOwned is exclusively-owned heap memory.
	ModeOwned Mode = iota
	// ModeMapped is a read-only memory-mapped file.
	ModeMapped
	// ModeExternal is caller-owned memory; the buffer never frees it.
	ModeExternal
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOwned:
		return "owned"
	case ModeMapped:
		return "mapped"
	case ModeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// region is the shared state behind one or more Buffer handles.
type region struct {
	refs atomic.Int64
	data []byte
	mode Mode

	// mapped-mode bookkeeping
	mapped []byte
	file   *os.File
}

// Buffer is a handle to a shared memory region. Copying the struct aliases
// the region; use Share to take an owning reference. Methods that need
// exclusive access may replace the handle's region in place (copy-on-write),
// which is why mutating methods take a pointer receiver.
type Buffer struct {
	r *region
}

func newRegion(data []byte, mode Mode) *region {
	r := &region{data: data, mode: mode}
	r.refs.Store(1)
	return r
}

// Allocate creates an exclusively-owned, zero-initialized region of nbytes.
func Allocate(nbytes int64) (*Buffer, error) {
	if nbytes < 0 {
		return nil, errors.MemoryError("cannot allocate buffer of %d bytes", nbytes)
	}
	if nbytes > int64(int(^uint(0)>>1)) {
		return nil, errors.MemoryError("allocation of %d bytes exceeds address space", nbytes)
	}
	metrics.BufferAllocations.Inc()
	metrics.BufferBytesAllocated.Add(float64(nbytes))
	return &Buffer{r: newRegion(make([]byte, nbytes), ModeOwned)}, nil
}

// External wraps caller-owned memory. The caller retains responsibility for
// the memory's lifetime; the buffer never frees it and treats it read-only.
func External(data []byte) *Buffer {
	return &Buffer{r: newRegion(data, ModeExternal)}
}

// MemoryMap maps the file at path read-only. When extra > 0 the buffer needs
// writable tail space past the file contents, which a shared read-only
// mapping cannot provide; the file is then read into an owned region with
// extra zero bytes appended instead.
func MemoryMap(path string, extra int64) (*Buffer, error) {
	if extra < 0 {
		return nil, errors.ValueError("negative extra size %d for memory map", extra)
	}

	f, err := os.Open(path) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return nil, errors.IOError(err, "cannot open file %q for mapping", path)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.IOError(err, "cannot stat file %q", path)
	}
	size := st.Size()

	if extra > 0 {
		defer f.Close()
		data := make([]byte, size+extra)
		if _, err := f.ReadAt(data[:size], 0); err != nil && size > 0 {
			return nil, errors.IOError(err, "cannot read file %q", path)
		}
		metrics.BufferAllocations.Inc()
		metrics.BufferBytesAllocated.Add(float64(size + extra))
		return &Buffer{r: newRegion(data, ModeOwned)}, nil
	}

	if size == 0 {
		f.Close()
		return &Buffer{r: newRegion(nil, ModeOwned)}, nil
	}

	mapped, err := mmapFile(int(f.Fd()), int(size))
	if err != nil {
		f.Close()
		return nil, errors.IOError(err, "cannot memory-map file %q", path)
	}
	// Access pattern advice is best-effort.
	_ = madviseSequential(mapped)

	metrics.BufferMappedBytes.Add(float64(size))
	r := newRegion(mapped, ModeMapped)
	r.mapped = mapped
	r.file = f
	return &Buffer{r: r}, nil
}

// Share returns a new owning handle to the same region.
func (b *Buffer) Share() *Buffer {
	b.r.refs.Add(1)
	return &Buffer{r: b.r}
}

// Release drops this handle's reference. When the last reference is dropped
// a mapped region is unmapped and its file closed; owned memory is left to
// the garbage collector. The handle must not be used afterwards.
func (b *Buffer) Release() {
	if b == nil || b.r == nil {
		return
	}
	r := b.r
	b.r = nil
	if r.refs.Add(-1) > 0 {
		return
	}
	if r.mode == ModeMapped && r.mapped != nil {
		metrics.BufferMappedBytes.Sub(float64(len(r.mapped)))
		_ = munmapFile(r.mapped)
		r.mapped = nil
		if r.file != nil {
			_ = r.file.Close()
			r.file = nil
		}
	}
	r.data = nil
}

// Size returns the region size in bytes.
func (b *Buffer) Size() int64 {
	return int64(len(b.r.data))
}

// Mode returns the region's ownership mode.
func (b *Buffer) Mode() Mode {
	return b.r.mode
}

// RefCount returns the number of live handles to the region.
func (b *Buffer) RefCount() int64 {
	return b.r.refs.Load()
}

// IsWritable reports whether a writable pointer can be handed out without
// triggering a copy: owned memory with a single owner.
func (b *Buffer) IsWritable() bool {
	return b.r.mode == ModeOwned && b.r.refs.Load() == 1
}

// SharesRegionWith reports whether two handles alias the same region.
func (b *Buffer) SharesRegionWith(other *Buffer) bool {
	return other != nil && b.r == other.r
}

// Bytes returns a read-only view of the region. The caller must not write
// through it; concurrent readers need no synchronization.
func (b *Buffer) Bytes() []byte {
	return b.r.data
}

// WritableBytes returns a mutable view of the region, cloning it first if it
// is shared or not heap-owned. Returns nil for zero-length regions.
func (b *Buffer) WritableBytes() []byte {
	if !b.IsWritable() {
		b.cow(int64(len(b.r.data)))
	}
	if len(b.r.data) == 0 {
		return nil
	}
	return b.r.data
}

// cow detaches this handle onto a fresh owned region of newSize bytes,
// copying min(oldSize, newSize) bytes of content.
func (b *Buffer) cow(newSize int64) {
	old := b.r
	data := make([]byte, newSize)
	copy(data, old.data)
	metrics.BufferCopyOnWrites.Inc()
	metrics.BufferBytesAllocated.Add(float64(newSize))
	b.r = newRegion(data, ModeOwned)
	// Drop our reference on the old region.
	tmp := &Buffer{r: old}
	tmp.Release()
}

// Resize grows or shrinks the region. A shared region is cloned first; a
// shrink on a sole-owned heap region never copies.
func (b *Buffer) Resize(newSize int64) error {
	if newSize < 0 {
		return errors.MemoryError("cannot resize buffer to %d bytes", newSize)
	}
	cur := int64(len(b.r.data))
	if newSize == cur {
		return nil
	}
	if b.IsWritable() {
		if newSize < cur {
			b.r.data = b.r.data[:newSize]
			return nil
		}
		if newSize <= int64(cap(b.r.data)) {
			grown := b.r.data[:newSize]
			// Reused capacity may hold stale bytes; NA-safety requires zeros.
			for i := cur; i < newSize; i++ {
				grown[i] = 0
			}
			b.r.data = grown
			return nil
		}
	}
	b.cow(newSize)
	return nil
}

// View reinterprets a buffer's bytes as a read-only slice of T. The length
// is the number of whole elements that fit in the region.
func View[T any](b *Buffer) []T {
	return viewBytes[T](b.Bytes())
}

// WritableView reinterprets a buffer's bytes as a mutable slice of T,
// forcing copy-on-write if the region is shared.
func WritableView[T any](b *Buffer) []T {
	return viewBytes[T](b.WritableBytes())
}

func viewBytes[T any](data []byte) []T {
	var zero T
	elem := int(unsafe.Sizeof(zero))
	if len(data) < elem {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/elem)
}

// FromSlice copies a typed slice into a newly allocated owned buffer.
func FromSlice[T any](values []T) (*Buffer, error) {
	var zero T
	elem := int64(unsafe.Sizeof(zero))
	b, err := Allocate(elem * int64(len(values)))
	if err != nil {
		return nil, err
	}
	copy(WritableView[T](b), values)
	return b, nil
}
