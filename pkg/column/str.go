package column

import (
	"context"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/parallel"
	"github.com/ajitpratap0/tabular/pkg/pool"
	"github.com/ajitpratap0/tabular/pkg/strs"
)

// strColumn is a physical string column: an offsets buffer of n+1 entries
// and a string-data buffer holding the concatenated bytes.
//
// offsets[0] is always 0. For a valid row i the byte range is
// [offsets[i] &^ NABit, offsets[i+1]); for a missing row, offsets[i+1]
// stores the previous offset's magnitude with the NA bit flipped, keeping
// magnitudes non-decreasing while distinguishing NA from the empty string.
type strColumn struct {
	st      SType // Str32 or Str64
	n       int64
	offsets *buffer.Buffer
	strdata *buffer.Buffer

	statsMu sync.Mutex
	stats   *Stats
}

// newStrColumn validates raw buffers and wraps them without copying. The
// offsets buffer must hold exactly n+1 elements of the offset width implied
// by st, and the 32-bit encoding must be able to address the string data.
func newStrColumn(st SType, n int64, offsets, strdata *buffer.Buffer) (*strColumn, error) {
	if st != Str32 && st != Str64 {
		return nil, errors.ValueError("stype %s is not a string type", st)
	}
	if n < 0 {
		return nil, errors.ValueError("negative row count %d", n)
	}
	if want := (n + 1) * st.ElemSize(); offsets.Size() != want {
		return nil, errors.ValueError(
			"offsets buffer holds %d bytes, want %d for a %d-row %s column",
			offsets.Size(), want, n, st)
	}
	if st == Str32 && strdata.Size() > int64(NABit32-1) {
		// The 32-bit encoding cannot address this much data; recode the
		// offsets to 64 bits in one pass and hand back a str64 column.
		wide, err := buffer.FromSlice(widenStrOffsets(buffer.View[uint32](offsets)))
		if err != nil {
			return nil, err
		}
		c, err := newStrColumn(Str64, n, wide, strdata)
		if err != nil {
			wide.Release()
			return nil, err
		}
		offsets.Release()
		return c, nil
	}
	c := &strColumn{st: st, n: n, offsets: offsets, strdata: strdata}
	if st == Str32 {
		offs := buffer.View[uint32](offsets)
		if len(offs) > 0 && offs[0] != 0 {
			return nil, errors.ValueError("string offsets must start at 0, got %d", offs[0])
		}
	} else {
		offs := buffer.View[uint64](offsets)
		if len(offs) > 0 && offs[0] != 0 {
			return nil, errors.ValueError("string offsets must start at 0, got %d", offs[0])
		}
	}
	return c, nil
}

func (c *strColumn) stype() SType    { return c.st }
func (c *strColumn) nrows() int64    { return c.n }
func (c *strColumn) isVirtual() bool { return false }

func (c *strColumn) getInt32(int64) (int32, bool, error) {
	return 0, false, accessorMismatch(c.st, "int32")
}
func (c *strColumn) getInt64(int64) (int64, bool, error) {
	return 0, false, accessorMismatch(c.st, "int64")
}
func (c *strColumn) getFloat32(int64) (float32, bool, error) {
	return 0, false, accessorMismatch(c.st, "float32")
}
func (c *strColumn) getFloat64(int64) (float64, bool, error) {
	return 0, false, accessorMismatch(c.st, "float64")
}

// getStr returns a zero-copy view into the string-data buffer. The caller
// must not retain it past the column's lifetime; use strs.Clone to own it.
func (c *strColumn) getStr(i int64) (string, bool, error) {
	data := c.strdata.Bytes()
	if c.st == Str32 {
		offs := buffer.View[uint32](c.offsets)
		end := offs[i+1]
		if end&NABit32 != 0 {
			return "", true, nil
		}
		start := offs[i] &^ NABit32
		return strs.FromBytes(data[start:end]), false, nil
	}
	offs := buffer.View[uint64](c.offsets)
	end := offs[i+1]
	if end&NABit64 != 0 {
		return "", true, nil
	}
	start := offs[i] &^ NABit64
	return strs.FromBytes(data[start:end]), false, nil
}

func (c *strColumn) getObj(int64) (interface{}, bool, error) {
	return nil, false, accessorMismatch(c.st, "object")
}

func (c *strColumn) shallowCopy() impl {
	return &strColumn{st: c.st, n: c.n, offsets: c.offsets.Share(), strdata: c.strdata.Share()}
}

func (c *strColumn) materialize(context.Context, *config.Config) (impl, error) {
	return c.shallowCopy(), nil
}

func (c *strColumn) dataBuffer(part int) *buffer.Buffer {
	switch part {
	case 0:
		return c.offsets
	case 1:
		return c.strdata
	default:
		return nil
	}
}

func (c *strColumn) release() {
	c.offsets.Release()
	c.strdata.Release()
}

func (c *strColumn) verify() error {
	if c.n < 0 {
		return errors.AssertionError("string column has negative row count %d", c.n)
	}
	if c.st == Str32 {
		offs := buffer.View[uint32](c.offsets)
		if int64(len(offs)) != c.n+1 {
			return errors.AssertionError(
				"str32 column of %d rows has %d offsets, want %d", c.n, len(offs), c.n+1)
		}
		if offs[0] != 0 {
			return errors.AssertionError("str32 offsets start at %d, not 0", offs[0])
		}
		prev := uint32(0)
		for i := int64(1); i <= c.n; i++ {
			mag := offs[i] &^ NABit32
			if offs[i]&NABit32 != 0 {
				if mag != prev {
					return errors.AssertionError(
						"str32 NA offset at row %d has magnitude %d, want %d", i-1, mag, prev)
				}
				continue
			}
			if mag < prev {
				return errors.AssertionError(
					"str32 offsets decrease at row %d (%d after %d)", i-1, mag, prev)
			}
			if int64(mag) > c.strdata.Size() {
				return errors.AssertionError(
					"str32 offset %d at row %d exceeds string data of %d bytes",
					mag, i-1, c.strdata.Size())
			}
			if !utf8.Valid(c.strdata.Bytes()[prev:mag]) {
				return errors.AssertionError("str32 row %d is not valid UTF-8", i-1)
			}
			prev = mag
		}
		return nil
	}

	offs := buffer.View[uint64](c.offsets)
	if int64(len(offs)) != c.n+1 {
		return errors.AssertionError(
			"str64 column of %d rows has %d offsets, want %d", c.n, len(offs), c.n+1)
	}
	if offs[0] != 0 {
		return errors.AssertionError("str64 offsets start at %d, not 0", offs[0])
	}
	prev := uint64(0)
	for i := int64(1); i <= c.n; i++ {
		mag := offs[i] &^ NABit64
		if offs[i]&NABit64 != 0 {
			if mag != prev {
				return errors.AssertionError(
					"str64 NA offset at row %d has magnitude %d, want %d", i-1, mag, prev)
			}
			continue
		}
		if mag < prev {
			return errors.AssertionError(
				"str64 offsets decrease at row %d (%d after %d)", i-1, mag, prev)
		}
		if int64(mag) > c.strdata.Size() {
			return errors.AssertionError(
				"str64 offset %d at row %d exceeds string data of %d bytes",
				mag, i-1, c.strdata.Size())
		}
		if !utf8.Valid(c.strdata.Bytes()[prev:mag]) {
			return errors.AssertionError("str64 row %d is not valid UTF-8", i-1)
		}
		prev = mag
	}
	return nil
}

// strBuilder assembles a physical string column row by row, starting with
// 32-bit offsets and upgrading in place to 64-bit the moment the data size
// or row count would overflow the 32-bit capacity.
type strBuilder struct {
	offs32 []uint32 // end offsets (with NA bit); implicit leading 0
	offs64 []uint64
	data   []byte
	use64  bool
}

func newStrBuilder(capRows, capBytes int64) *strBuilder {
	if capRows < 0 {
		capRows = 0
	}
	if capBytes < 0 {
		capBytes = 0
	}
	return &strBuilder{
		offs32: make([]uint32, 0, capRows),
		data:   make([]byte, 0, capBytes),
	}
}

func (b *strBuilder) rows() int64 {
	if b.use64 {
		return int64(len(b.offs64))
	}
	return int64(len(b.offs32))
}

// widenStrOffsets re-encodes 32-bit string offsets into 64 bits in one pass,
// preserving the NA-bit semantics: magnitudes carry over and the NA flag
// moves from bit 31 to bit 63.
func widenStrOffsets(offs []uint32) []uint64 {
	wide := make([]uint64, len(offs))
	for i, o := range offs {
		if o&NABit32 != 0 {
			wide[i] = uint64(o&^NABit32) | NABit64
		} else {
			wide[i] = uint64(o)
		}
	}
	return wide
}

// upgrade switches the builder to 64-bit offsets.
func (b *strBuilder) upgrade() {
	b.offs64 = widenStrOffsets(b.offs32)
	b.offs32 = nil
	b.use64 = true
}

func (b *strBuilder) ensureCapacity(extraBytes int) {
	if b.use64 {
		return
	}
	if int64(len(b.data))+int64(extraBytes) > int64(NABit32-1) ||
		int64(len(b.offs32))+1 > math.MaxInt32 {
		b.upgrade()
	}
}

func (b *strBuilder) appendStr(s string) {
	b.ensureCapacity(len(s))
	b.data = append(b.data, s...)
	if b.use64 {
		b.offs64 = append(b.offs64, uint64(len(b.data)))
	} else {
		b.offs32 = append(b.offs32, uint32(len(b.data)))
	}
}

func (b *strBuilder) appendNA() {
	b.ensureCapacity(0)
	if b.use64 {
		b.offs64 = append(b.offs64, uint64(len(b.data))|NABit64)
	} else {
		b.offs32 = append(b.offs32, uint32(len(b.data))|NABit32)
	}
}

// finish packages the accumulated rows into a physical string column.
func (b *strBuilder) finish() (*strColumn, error) {
	n := b.rows()
	var offsets *buffer.Buffer
	var err error
	if b.use64 {
		full := make([]uint64, n+1)
		copy(full[1:], b.offs64)
		offsets, err = buffer.FromSlice(full)
	} else {
		full := make([]uint32, n+1)
		copy(full[1:], b.offs32)
		offsets, err = buffer.FromSlice(full)
	}
	if err != nil {
		return nil, err
	}
	strdata, err := buffer.FromSlice(b.data)
	if err != nil {
		offsets.Release()
		return nil, err
	}
	st := Str32
	if b.use64 {
		st = Str64
	}
	return newStrColumn(st, n, offsets, strdata)
}

// strChunk is the private per-chunk output of a parallel string scan: the
// concatenated bytes plus one length per row, -1 marking NA.
type strChunk struct {
	data    []byte
	lengths []int64
}

// buildStrColumn assembles a string column of n rows from an arbitrary
// (possibly expensive) per-row source, in parallel. Chunks of rows are
// evaluated concurrently into private buffers; the ordered section then
// appends each chunk to the global builder in chunk order, preserving row
// order. The first per-row error cancels the loop at a chunk boundary.
func buildStrColumn(ctx context.Context, cfg *config.Config, n int64,
	get func(i int64) (string, bool, error)) (*strColumn, error) {

	nchunks := parallel.NumChunks(n, config.FilterChunkRows)
	chunks := make([]strChunk, nchunks)
	builder := newStrBuilder(n, n*8)

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var errMu sync.Mutex
	var firstErr error

	err := parallel.ForOrdered(scanCtx, cfg, nchunks, parallel.OrderedTask{
		Pre: func(chunk int64) {
			start := chunk * config.FilterChunkRows
			end := start + config.FilterChunkRows
			if end > n {
				end = n
			}
			// Scratch sized for 8 bytes per row; longer rows grow past the
			// bucket and the grown slice is simply dropped on Put.
			data := pool.GlobalBufferPool.Get(int((end - start) * 8))[:0]
			lengths := make([]int64, 0, end-start)
			for i := start; i < end; i++ {
				s, isna, err := get(i)
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					pool.GlobalBufferPool.Put(data)
					cancel()
					return
				}
				if isna {
					lengths = append(lengths, -1)
				} else {
					data = append(data, s...)
					lengths = append(lengths, int64(len(s)))
				}
			}
			chunks[chunk] = strChunk{data: data, lengths: lengths}
		},
		Ordered: func(chunk int64) {
			pos := int64(0)
			for _, l := range chunks[chunk].lengths {
				if l < 0 {
					builder.appendNA()
					continue
				}
				builder.appendStr(strs.FromBytes(chunks[chunk].data[pos : pos+l]))
				pos += l
			}
		},
		Post: func(chunk int64) {
			pool.GlobalBufferPool.Put(chunks[chunk].data)
			chunks[chunk] = strChunk{}
		},
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, err
	}
	return builder.finish()
}
