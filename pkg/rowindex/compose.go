package rowindex

import (
	"math"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Compose flattens a view-of-a-view ("uplift"): given outer mapping view
// indices to mid indices and inner mapping mid indices to physical rows, the
// result maps view indices directly to physical rows. Composing with an
// Absent index on either side returns the other operand unchanged. A missing
// entry in the outer index stays missing in the result.
//
// Slice∘Slice composes in closed form to another Slice. Array results are
// compacted back to Array32 when every value and the length fit in 32 bits.
// The result is sorted when both operands are sorted; for slices the sign of
// the combined step decides.
func Compose(outer, inner RowIndex) (RowIndex, error) {
	if outer.IsAbsent() {
		return inner, nil
	}
	if inner.IsAbsent() {
		return outer, nil
	}

	n := outer.Length()
	if s1, _, d1, ok := outer.SliceTriple(); ok {
		if s2, _, d2, ok2 := inner.SliceTriple(); ok2 {
			return FromSlice(s2+d2*s1, n, d1*d2)
		}
	}

	sorted := outer.IsSorted() && inner.IsSorted()
	out := make([]int64, n)
	for i := int64(0); i < n; i++ {
		mid := outer.Nth(i)
		if mid == NA {
			out[i] = NA
			continue
		}
		if mid < 0 || mid >= composeDomain(inner) {
			return RowIndex{}, errors.ValueError(
				"row %d of the outer index maps to %d, outside the inner index of length %d",
				i, mid, composeDomain(inner))
		}
		out[i] = inner.Nth(mid)
	}
	return newArr64(out, sorted)
}

// composeDomain returns the number of view rows the inner index accepts.
// Absent indexes accept any row, which Compose short-circuits earlier.
func composeDomain(inner RowIndex) int64 {
	return inner.Length()
}

// newArr64 wraps an owned int64 index list, computing min/max serially and
// compacting to 32 bits when possible. The values must already be validated.
func newArr64(vals []int64, sorted bool) (RowIndex, error) {
	buf, err := buffer.FromSlice(vals)
	if err != nil {
		return RowIndex{}, err
	}
	view := buffer.View[int64](buf)
	r := &impl{
		kind:   KindArr64,
		length: int64(len(view)),
		sorted: sorted,
		buf:    buf,
		ind64:  view,
	}
	first := true
	for _, v := range view {
		if v == NA {
			continue
		}
		if first {
			r.min, r.max = v, v
			first = false
			continue
		}
		if v < r.min {
			r.min = v
		}
		if v > r.max {
			r.max = v
		}
	}
	r.hasRows = !first
	return compactified(RowIndex{r: r}), nil
}

// compactified re-encodes an Array64 index as Array32 when both the largest
// physical row and the length fit in 32 bits. Other kinds pass through.
func compactified(ri RowIndex) RowIndex {
	r := ri.r
	if r == nil || r.kind != KindArr64 {
		return ri
	}
	if r.length > math.MaxInt32 || r.max > math.MaxInt32 {
		return ri
	}
	out := make([]int32, r.length)
	for i, v := range r.ind64 {
		if v == NA {
			out[i] = NA32
		} else {
			out[i] = int32(v)
		}
	}
	buf, err := buffer.FromSlice(out)
	if err != nil {
		return ri
	}
	r.buf.Release()
	nr := &impl{
		kind:    KindArr32,
		length:  r.length,
		min:     r.min,
		max:     r.max,
		hasRows: r.hasRows,
		sorted:  r.sorted,
		buf:     buf,
		ind32:   buffer.View[int32](buf),
	}
	return RowIndex{r: nr}
}

// Invert returns the complementary RowIndex over [0, nrows): the rows not
// selected by ri, in increasing order. The input must be strictly increasing
// with no missing entries; this precondition is validated and violations
// fail with a value error rather than silently producing a wrong result.
func (ri RowIndex) Invert(nrows int64) (RowIndex, error) {
	if nrows < 0 {
		return RowIndex{}, errors.ValueError("cannot invert over negative row count %d", nrows)
	}
	if ri.IsAbsent() {
		// Identity over an unknown span selects everything; nothing remains.
		return FromSlice(0, 0, 1)
	}
	if ri.Length() > 0 && ri.Max() >= nrows {
		return RowIndex{}, errors.ValueError(
			"row index selects row %d, beyond the %d-row frame", ri.Max(), nrows)
	}

	out := make([]int64, 0, nrows-ri.Length())
	prev := int64(-1)
	n := ri.Length()
	for i := int64(0); i < n; i++ {
		row := ri.Nth(i)
		if row == NA {
			return RowIndex{}, errors.ValueError("cannot invert a row index with missing entries")
		}
		if row <= prev {
			return RowIndex{}, errors.ValueError(
				"cannot invert a row index that is not strictly increasing "+
					"(row %d follows row %d)", row, prev)
		}
		for gap := prev + 1; gap < row; gap++ {
			out = append(out, gap)
		}
		prev = row
	}
	for gap := prev + 1; gap < nrows; gap++ {
		out = append(out, gap)
	}
	return newArr64(out, true)
}

// Shrunk truncates the index to its first n entries, recomputing min/max.
func (ri RowIndex) Shrunk(n int64) (RowIndex, error) {
	if n < 0 || n > ri.Length() {
		return RowIndex{}, errors.ValueError(
			"cannot shrink a row index of length %d to %d entries", ri.Length(), n)
	}
	if ri.IsAbsent() || n == ri.Length() {
		return ri, nil
	}
	r := ri.r
	switch r.kind {
	case KindSlice:
		return FromSlice(r.start, n, r.step)
	case KindArr32:
		nr := &impl{
			kind:   KindArr32,
			length: n,
			sorted: r.sorted,
			buf:    r.buf.Share(),
			ind32:  r.ind32[:n],
		}
		minMaxPrefix32(nr)
		return RowIndex{r: nr}, nil
	default:
		nr := &impl{
			kind:   KindArr64,
			length: n,
			sorted: r.sorted,
			buf:    r.buf.Share(),
			ind64:  r.ind64[:n],
		}
		minMaxPrefix64(nr)
		return RowIndex{r: nr}, nil
	}
}

func minMaxPrefix32(r *impl) {
	first := true
	for _, v := range r.ind32 {
		if v == NA32 {
			continue
		}
		if first {
			r.min, r.max = int64(v), int64(v)
			first = false
			continue
		}
		if int64(v) < r.min {
			r.min = int64(v)
		}
		if int64(v) > r.max {
			r.max = int64(v)
		}
	}
	r.hasRows = !first
}

func minMaxPrefix64(r *impl) {
	first := true
	for _, v := range r.ind64 {
		if v == NA {
			continue
		}
		if first {
			r.min, r.max = v, v
			first = false
			continue
		}
		if v < r.min {
			r.min = v
		}
		if v > r.max {
			r.max = v
		}
	}
	r.hasRows = !first
}
