// Package rowindex implements the indirection layer that lets a column
// logically represent an arbitrary row permutation or subset without copying
// data.
//
// A RowIndex maps a contiguous range of view indices [0, n) to physical row
// numbers in some underlying buffer. Three representations exist: Absent
// (identity), Slice (arithmetic progression, step may be zero or negative)
// and Array (explicit 32- or 64-bit index list). RowIndexes are immutable
// after construction and freely shared without locking.
package rowindex

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/parallel"
)

// Kind identifies the representation of a RowIndex.
type Kind uint8

const (
	// KindAbsent is the identity mapping (no indirection).
	KindAbsent Kind = iota
	// KindSlice is an arithmetic progression (start, count, step).
	KindSlice
	// KindArr32 is an explicit 32-bit index list.
	KindArr32
	// KindArr64 is an explicit 64-bit index list.
	KindArr64
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindSlice:
		return "slice"
	case KindArr32:
		return "arr32"
	case KindArr64:
		return "arr64"
	default:
		return "unknown"
	}
}

// NA marks a missing row inside a RowIndex: an element selected from nowhere,
// which reads as NA in any column the index is applied to.
const NA int64 = math.MinInt64

// NA32 is the 32-bit in-array encoding of a missing row.
const NA32 int32 = math.MinInt32

// RowIndex is an immutable view-to-physical row mapping. The zero value is
// the Absent (identity) index. Copying a RowIndex is cheap; the backing
// array, if any, is shared.
type RowIndex struct {
	r *impl
}

type impl struct {
	kind    Kind
	length  int64
	min     int64
	max     int64
	hasRows bool
	sorted  bool

	// slice representation
	start int64
	step  int64

	// array representation; the typed views alias buf's bytes
	buf   *buffer.Buffer
	ind32 []int32
	ind64 []int64
}

// Absent returns the identity RowIndex.
func Absent() RowIndex {
	return RowIndex{}
}

// IsAbsent reports whether this is the identity mapping.
func (ri RowIndex) IsAbsent() bool {
	return ri.r == nil
}

// Kind returns the representation tag.
func (ri RowIndex) Kind() Kind {
	if ri.r == nil {
		return KindAbsent
	}
	return ri.r.kind
}

// Length returns the number of view rows. Absent indexes have no intrinsic
// length and report 0.
func (ri RowIndex) Length() int64 {
	if ri.r == nil {
		return 0
	}
	return ri.r.length
}

// Min returns the smallest physical row selected (0 when empty or all-NA).
func (ri RowIndex) Min() int64 {
	if ri.r == nil {
		return 0
	}
	return ri.r.min
}

// Max returns the largest physical row selected (0 when empty or all-NA).
func (ri RowIndex) Max() int64 {
	if ri.r == nil {
		return 0
	}
	return ri.r.max
}

// SelectsRows reports whether the index selects at least one physical row.
// Empty and all-NA indexes report false; their Min and Max both read 0, so
// this is the way to tell them apart from an index selecting only row 0.
// Absent indexes have no intrinsic row set and also report false.
func (ri RowIndex) SelectsRows() bool {
	if ri.r == nil {
		return false
	}
	return ri.r.hasRows
}

// IsSorted reports whether the mapping is monotonically non-decreasing.
func (ri RowIndex) IsSorted() bool {
	if ri.r == nil {
		return true
	}
	return ri.r.sorted
}

// SliceTriple returns (start, count, step) for a slice index. The boolean is
// false for any other representation.
func (ri RowIndex) SliceTriple() (start, count, step int64, ok bool) {
	if ri.r == nil || ri.r.kind != KindSlice {
		return 0, 0, 0, false
	}
	return ri.r.start, ri.r.length, ri.r.step, true
}

// Indices32 returns a borrowed, read-only view of the 32-bit index array.
// The boolean is false for any other representation.
func (ri RowIndex) Indices32() ([]int32, bool) {
	if ri.r == nil || ri.r.kind != KindArr32 {
		return nil, false
	}
	return ri.r.ind32, true
}

// Indices64 returns a borrowed, read-only view of the 64-bit index array.
// The boolean is false for any other representation.
func (ri RowIndex) Indices64() ([]int64, bool) {
	if ri.r == nil || ri.r.kind != KindArr64 {
		return nil, false
	}
	return ri.r.ind64, true
}

// Nth maps view index i to its physical row. For an Absent index this is the
// identity; for arrays a missing entry maps to NA. The caller is responsible
// for 0 <= i < Length().
func (ri RowIndex) Nth(i int64) int64 {
	if ri.r == nil {
		return i
	}
	switch ri.r.kind {
	case KindSlice:
		return ri.r.start + i*ri.r.step
	case KindArr32:
		v := ri.r.ind32[i]
		if v == NA32 {
			return NA
		}
		return int64(v)
	default:
		return ri.r.ind64[i]
	}
}

// CheckSliceTriple validates a slice triple without constructing an index:
// start and count must be non-negative and the final element
// start + step*(count-1) must be non-negative and free of overflow.
func CheckSliceTriple(start, count, step int64) error {
	if start < 0 {
		return errors.ValueError("slice start must be non-negative, got %d", start)
	}
	if count < 0 {
		return errors.ValueError("slice count must be non-negative, got %d", count)
	}
	if count > 1 {
		// Overflow-safe checks of start + step*(count-1): both branches
		// compare by division so the product is never formed when it would
		// wrap.
		if step > 0 && step > (math.MaxInt64-start)/(count-1) {
			return errors.ValueError("slice (%d, %d, %d) overflows the row range", start, count, step)
		}
		if step < 0 && (step == math.MinInt64 || -step > start/(count-1)) {
			return errors.ValueError("slice (%d, %d, %d) descends below row 0", start, count, step)
		}
	}
	return nil
}

// FromSlice builds a Slice RowIndex selecting count rows starting at start
// with the given step. A zero step broadcasts a single physical row; a
// negative step selects rows in descending order.
func FromSlice(start, count, step int64) (RowIndex, error) {
	if err := CheckSliceTriple(start, count, step); err != nil {
		return RowIndex{}, err
	}
	r := &impl{
		kind:    KindSlice,
		length:  count,
		start:   start,
		step:    step,
		hasRows: count > 0,
		sorted:  step >= 0,
	}
	if count > 0 {
		last := start + step*(count-1)
		if step >= 0 {
			r.min, r.max = start, last
		} else {
			r.min, r.max = last, start
		}
		if step == 0 {
			r.min, r.max = start, start
		}
	}
	return RowIndex{r: r}, nil
}

// FromArray32 builds an Array32 RowIndex from an explicit index list. The
// indices are copied into an owned buffer. Entries equal to NA32 mark missing
// rows; any other negative entry is rejected with a value error. When the
// caller knows the list is already sorted, sortedHint avoids a full scan for
// min/max: the endpoints suffice.
func FromArray32(cfg *config.Config, indices []int32, sortedHint bool) (RowIndex, error) {
	buf, err := buffer.FromSlice(indices)
	if err != nil {
		return RowIndex{}, err
	}
	view := buffer.View[int32](buf)
	r := &impl{
		kind:   KindArr32,
		length: int64(len(view)),
		sorted: sortedHint,
		buf:    buf,
		ind32:  view,
	}
	if err := fillMinMax32(cfg, r, sortedHint); err != nil {
		buf.Release()
		return RowIndex{}, err
	}
	return RowIndex{r: r}, nil
}

// FromArray64 builds an Array64 RowIndex from an explicit index list,
// compacting to Array32 when both the largest index and the length fit in
// 32 bits. Entries equal to NA mark missing rows.
func FromArray64(cfg *config.Config, indices []int64, sortedHint bool) (RowIndex, error) {
	buf, err := buffer.FromSlice(indices)
	if err != nil {
		return RowIndex{}, err
	}
	view := buffer.View[int64](buf)
	r := &impl{
		kind:   KindArr64,
		length: int64(len(view)),
		sorted: sortedHint,
		buf:    buf,
		ind64:  view,
	}
	if err := fillMinMax64(cfg, r, sortedHint); err != nil {
		buf.Release()
		return RowIndex{}, err
	}
	return compactified(RowIndex{r: r}), nil
}

// fillMinMax32 computes min/max over valid entries, rejecting negative
// indices. With a sorted hint only the ends of the array are scanned.
func fillMinMax32(cfg *config.Config, r *impl, sortedHint bool) error {
	ind := r.ind32
	if len(ind) == 0 {
		return nil
	}
	if sortedHint {
		lo, hi := 0, len(ind)-1
		for lo <= hi && ind[lo] == NA32 {
			lo++
		}
		for hi >= lo && ind[hi] == NA32 {
			hi--
		}
		if lo > hi {
			return nil // all NA
		}
		if ind[lo] < 0 || ind[hi] < 0 {
			return errors.ValueError("negative row index in row index array")
		}
		r.min, r.max = int64(ind[lo]), int64(ind[hi])
		if r.min > r.max {
			r.min, r.max = r.max, r.min
		}
		r.hasRows = true
		return nil
	}

	var minv, maxv, bad atomic.Int64
	minv.Store(math.MaxInt64)
	maxv.Store(math.MinInt64)
	_ = parallel.ForStatic(context.Background(), orDefault(cfg), int64(len(ind)), func(start, end int64) {
		lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
		for i := start; i < end; i++ {
			v := ind[i]
			if v == NA32 {
				continue
			}
			if v < 0 {
				bad.Store(1)
				return
			}
			if int64(v) < lo {
				lo = int64(v)
			}
			if int64(v) > hi {
				hi = int64(v)
			}
		}
		atomicMin(&minv, lo)
		atomicMax(&maxv, hi)
	})
	if bad.Load() != 0 {
		return errors.ValueError("negative row index in row index array")
	}
	if minv.Load() != math.MaxInt64 {
		r.min, r.max = minv.Load(), maxv.Load()
		r.hasRows = true
	}
	return nil
}

func fillMinMax64(cfg *config.Config, r *impl, sortedHint bool) error {
	ind := r.ind64
	if len(ind) == 0 {
		return nil
	}
	if sortedHint {
		lo, hi := 0, len(ind)-1
		for lo <= hi && ind[lo] == NA {
			lo++
		}
		for hi >= lo && ind[hi] == NA {
			hi--
		}
		if lo > hi {
			return nil
		}
		if ind[lo] < 0 || ind[hi] < 0 {
			return errors.ValueError("negative row index in row index array")
		}
		r.min, r.max = ind[lo], ind[hi]
		if r.min > r.max {
			r.min, r.max = r.max, r.min
		}
		r.hasRows = true
		return nil
	}

	var minv, maxv, bad atomic.Int64
	minv.Store(math.MaxInt64)
	maxv.Store(math.MinInt64)
	_ = parallel.ForStatic(context.Background(), orDefault(cfg), int64(len(ind)), func(start, end int64) {
		lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
		for i := start; i < end; i++ {
			v := ind[i]
			if v == NA {
				continue
			}
			if v < 0 {
				bad.Store(1)
				return
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		atomicMin(&minv, lo)
		atomicMax(&maxv, hi)
	})
	if bad.Load() != 0 {
		return errors.ValueError("negative row index in row index array")
	}
	if minv.Load() != math.MaxInt64 {
		r.min, r.max = minv.Load(), maxv.Load()
		r.hasRows = true
	}
	return nil
}

func atomicMin(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v >= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func atomicMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func orDefault(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// Buffer returns the backing buffer of an array index, or nil. Exposed for
// the serializer-facing read-only accessors.
func (ri RowIndex) Buffer() *buffer.Buffer {
	if ri.r == nil {
		return nil
	}
	return ri.r.buf
}

// Verify checks internal invariants and returns an assertion error on any
// violation. Never expected to fail in normal operation.
func (ri RowIndex) Verify() error {
	if ri.r == nil {
		return nil
	}
	r := ri.r
	if r.length < 0 {
		return errors.AssertionError("row index has negative length %d", r.length)
	}
	if r.min > r.max {
		return errors.AssertionError("row index min %d exceeds max %d", r.min, r.max)
	}
	switch r.kind {
	case KindSlice:
		return CheckSliceTriple(r.start, r.length, r.step)
	case KindArr32:
		if int64(len(r.ind32)) != r.length {
			return errors.AssertionError("arr32 length %d does not match backing array %d",
				r.length, len(r.ind32))
		}
	case KindArr64:
		if int64(len(r.ind64)) != r.length {
			return errors.AssertionError("arr64 length %d does not match backing array %d",
				r.length, len(r.ind64))
		}
	default:
		return errors.AssertionError("row index has invalid kind %d", r.kind)
	}
	return nil
}
