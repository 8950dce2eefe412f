package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/metrics"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
)

// viewColumn is a virtual row subset: a source column read through a
// RowIndex. Row i of the view is row ri.Nth(i) of the source, with the
// RowIndex's NA marker producing a missing value regardless of source
// content.
type viewColumn struct {
	src impl
	ri  rowindex.RowIndex
}

// newViewColumn wraps src with a row mapping. Stacked views collapse: a view
// over a view composes the row indexes and wraps the inner source directly,
// keeping lookups one indirection deep.
func newViewColumn(src impl, ri rowindex.RowIndex) (impl, error) {
	if ri.IsAbsent() {
		return src.shallowCopy(), nil
	}
	// Empty and all-NA indexes select no physical row and fit any source.
	if ri.SelectsRows() && ri.Max() >= src.nrows() {
		return nil, errors.ValueError(
			"row index refers to row %d of a %d-row column", ri.Max(), src.nrows())
	}
	if v, ok := src.(*viewColumn); ok {
		// The new index maps view rows into the existing view, whose own
		// index maps them on to the source.
		composed, err := rowindex.Compose(ri, v.ri)
		if err != nil {
			return nil, err
		}
		return &viewColumn{src: v.src.shallowCopy(), ri: composed}, nil
	}
	return &viewColumn{src: src.shallowCopy(), ri: ri}, nil
}

func (c *viewColumn) stype() SType    { return c.src.stype() }
func (c *viewColumn) nrows() int64    { return c.ri.Length() }
func (c *viewColumn) isVirtual() bool { return true }

func (c *viewColumn) getInt32(i int64) (int32, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return 0, true, nil
	}
	return c.src.getInt32(j)
}

func (c *viewColumn) getInt64(i int64) (int64, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return 0, true, nil
	}
	return c.src.getInt64(j)
}

func (c *viewColumn) getFloat32(i int64) (float32, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return 0, true, nil
	}
	return c.src.getFloat32(j)
}

func (c *viewColumn) getFloat64(i int64) (float64, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return 0, true, nil
	}
	return c.src.getFloat64(j)
}

func (c *viewColumn) getStr(i int64) (string, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return "", true, nil
	}
	return c.src.getStr(j)
}

func (c *viewColumn) getObj(i int64) (interface{}, bool, error) {
	j := c.ri.Nth(i)
	if j == rowindex.NA {
		return nil, true, nil
	}
	return c.src.getObj(j)
}

func (c *viewColumn) shallowCopy() impl {
	return &viewColumn{src: c.src.shallowCopy(), ri: c.ri}
}

// gatherFW materializes a fixed-width view by gathering source elements
// through the row mapping in a parallel static loop.
func gatherFW[T fixed](ctx context.Context, cfg *config.Config,
	src *buffer.Buffer, ri rowindex.RowIndex, out *fwColumn) error {
	data := buffer.View[T](src)
	return fwFill(ctx, cfg, out, func(i int64) (T, bool) {
		j := ri.Nth(i)
		if j == rowindex.NA {
			var zero T
			return zero, true
		}
		v := data[j]
		return v, isNA(v)
	})
}

func (c *viewColumn) materialize(ctx context.Context, cfg *config.Config) (impl, error) {
	msrc, err := c.src.materialize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer msrc.release()

	n := c.ri.Length()
	st := msrc.stype()
	metrics.Materializations.WithLabelValues(st.String()).Inc()
	metrics.RowsMaterialized.Add(float64(n))

	switch s := msrc.(type) {
	case *voidColumn:
		return &voidColumn{n: n}, nil

	case *fwColumn:
		out, err := newFWColumn(st, n)
		if err != nil {
			return nil, err
		}
		switch st {
		case Bool8, Int8:
			err = gatherFW[int8](ctx, cfg, s.mbuf, c.ri, out)
		case Int16:
			err = gatherFW[int16](ctx, cfg, s.mbuf, c.ri, out)
		case Int32:
			err = gatherFW[int32](ctx, cfg, s.mbuf, c.ri, out)
		case Int64:
			err = gatherFW[int64](ctx, cfg, s.mbuf, c.ri, out)
		case Float32:
			err = gatherFW[float32](ctx, cfg, s.mbuf, c.ri, out)
		default:
			err = gatherFW[float64](ctx, cfg, s.mbuf, c.ri, out)
		}
		if err != nil {
			out.release()
			return nil, err
		}
		return out, nil

	case *strColumn:
		return buildStrColumn(ctx, cfg, n, func(i int64) (string, bool, error) {
			j := c.ri.Nth(i)
			if j == rowindex.NA {
				return "", true, nil
			}
			return s.getStr(j)
		})

	case *objColumn:
		elems := make([]interface{}, n)
		for i := int64(0); i < n; i++ {
			if j := c.ri.Nth(i); j != rowindex.NA {
				elems[i] = s.data.elems[j]
			}
		}
		return newObjColumn(elems, s.data.vt), nil

	default:
		return nil, errors.AssertionError(
			"materialize produced a virtual %s column", st)
	}
}

func (c *viewColumn) dataBuffer(int) *buffer.Buffer { return nil }

func (c *viewColumn) release() {
	c.src.release()
}

func (c *viewColumn) verify() error {
	if err := c.ri.Verify(); err != nil {
		return err
	}
	if c.ri.SelectsRows() && c.ri.Max() >= c.src.nrows() {
		return errors.AssertionError(
			"view row index reaches row %d of a %d-row source", c.ri.Max(), c.src.nrows())
	}
	return c.src.verify()
}

// rangeColumn is a virtual arithmetic sequence: row i holds start + i*step.
// It stores no data and materializes into a fixed-width column on demand.
type rangeColumn struct {
	st    SType
	n     int64
	start int64
	step  int64
}

// newRangeColumn builds a sequence of count values. The stype must be an
// integer or float type wide enough to represent every generated value.
func newRangeColumn(st SType, start, count, step int64) (impl, error) {
	if count < 0 {
		return nil, errors.ValueError("negative range length %d", count)
	}
	switch st {
	case Int32:
		if count > 0 {
			last := start + (count-1)*step
			if start < int64(NAInt32)+1 || start > int64(^NAInt32) ||
				last < int64(NAInt32)+1 || last > int64(^NAInt32) {
				return nil, errors.ValueError(
					"range [%d, %d] does not fit int32", start, last)
			}
		}
	case Int64, Float32, Float64:
	default:
		return nil, errors.ValueError("stype %s cannot hold a range", st)
	}
	return &rangeColumn{st: st, n: count, start: start, step: step}, nil
}

func (c *rangeColumn) stype() SType    { return c.st }
func (c *rangeColumn) nrows() int64    { return c.n }
func (c *rangeColumn) isVirtual() bool { return true }

func (c *rangeColumn) value(i int64) int64 { return c.start + i*c.step }

func (c *rangeColumn) getInt32(i int64) (int32, bool, error) {
	if c.st != Int32 {
		return 0, false, accessorMismatch(c.st, "int32")
	}
	return int32(c.value(i)), false, nil
}

func (c *rangeColumn) getInt64(i int64) (int64, bool, error) {
	if c.st != Int32 && c.st != Int64 {
		return 0, false, accessorMismatch(c.st, "int64")
	}
	return c.value(i), false, nil
}

func (c *rangeColumn) getFloat32(i int64) (float32, bool, error) {
	if c.st != Float32 {
		return 0, false, accessorMismatch(c.st, "float32")
	}
	return float32(c.value(i)), false, nil
}

func (c *rangeColumn) getFloat64(i int64) (float64, bool, error) {
	switch c.st {
	case Float32, Float64:
		return float64(c.value(i)), false, nil
	default:
		return 0, false, accessorMismatch(c.st, "float64")
	}
}

func (c *rangeColumn) getStr(int64) (string, bool, error) {
	return "", false, accessorMismatch(c.st, "string")
}

func (c *rangeColumn) getObj(int64) (interface{}, bool, error) {
	return nil, false, accessorMismatch(c.st, "object")
}

func (c *rangeColumn) shallowCopy() impl {
	cp := *c
	return &cp
}

func (c *rangeColumn) materialize(ctx context.Context, cfg *config.Config) (impl, error) {
	metrics.Materializations.WithLabelValues(c.st.String()).Inc()
	metrics.RowsMaterialized.Add(float64(c.n))
	out, err := newFWColumn(c.st, c.n)
	if err != nil {
		return nil, err
	}
	switch c.st {
	case Int32:
		err = fwFill(ctx, cfg, out, func(i int64) (int32, bool) {
			return int32(c.value(i)), false
		})
	case Int64:
		err = fwFill(ctx, cfg, out, func(i int64) (int64, bool) {
			return c.value(i), false
		})
	case Float32:
		err = fwFill(ctx, cfg, out, func(i int64) (float32, bool) {
			return float32(c.value(i)), false
		})
	default:
		err = fwFill(ctx, cfg, out, func(i int64) (float64, bool) {
			return float64(c.value(i)), false
		})
	}
	if err != nil {
		out.release()
		return nil, err
	}
	return out, nil
}

func (c *rangeColumn) dataBuffer(int) *buffer.Buffer { return nil }
func (c *rangeColumn) release()                      {}

func (c *rangeColumn) verify() error {
	if c.n < 0 {
		return errors.AssertionError("range column has negative row count %d", c.n)
	}
	return nil
}
