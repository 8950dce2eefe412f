package column

import (
	"context"
	"sync"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/parallel"
)

// fwColumn is a physical fixed-width sentinel column: one data buffer of
// n elements, with missing values encoded in-band as the type's NA sentinel.
type fwColumn struct {
	st   SType
	n    int64
	mbuf *buffer.Buffer

	statsMu sync.Mutex
	stats   *Stats
}

// newFWColumn allocates a zeroed physical column of the given stype.
func newFWColumn(st SType, nrows int64) (*fwColumn, error) {
	if !st.IsFixedWidth() {
		return nil, errors.ValueError("stype %s is not fixed-width", st)
	}
	if nrows < 0 {
		return nil, errors.ValueError("negative row count %d", nrows)
	}
	buf, err := buffer.Allocate(nrows * st.ElemSize())
	if err != nil {
		return nil, err
	}
	return &fwColumn{st: st, n: nrows, mbuf: buf}, nil
}

// newFWColumnFromBuffer wraps an existing buffer without copying. The buffer
// size must be an exact multiple of the element size.
func newFWColumnFromBuffer(st SType, buf *buffer.Buffer) (*fwColumn, error) {
	if !st.IsFixedWidth() {
		return nil, errors.ValueError("stype %s is not fixed-width", st)
	}
	elem := st.ElemSize()
	if buf.Size()%elem != 0 {
		return nil, errors.ValueError(
			"buffer of %d bytes is not a whole number of %s elements", buf.Size(), st)
	}
	return &fwColumn{st: st, n: buf.Size() / elem, mbuf: buf}, nil
}

func (c *fwColumn) stype() SType    { return c.st }
func (c *fwColumn) nrows() int64    { return c.n }
func (c *fwColumn) isVirtual() bool { return false }

// fwRead reads element i of a fixed-width buffer, reporting NA.
func fwRead[T fixed](buf *buffer.Buffer, i int64) (T, bool) {
	v := buffer.View[T](buf)[i]
	return v, isNA(v)
}

func (c *fwColumn) getInt32(i int64) (int32, bool, error) {
	switch c.st {
	case Bool8, Int8:
		v, na := fwRead[int8](c.mbuf, i)
		return int32(v), na, nil
	case Int16:
		v, na := fwRead[int16](c.mbuf, i)
		return int32(v), na, nil
	case Int32:
		v, na := fwRead[int32](c.mbuf, i)
		return v, na, nil
	default:
		return 0, false, accessorMismatch(c.st, "int32")
	}
}

func (c *fwColumn) getInt64(i int64) (int64, bool, error) {
	switch c.st {
	case Bool8, Int8:
		v, na := fwRead[int8](c.mbuf, i)
		return int64(v), na, nil
	case Int16:
		v, na := fwRead[int16](c.mbuf, i)
		return int64(v), na, nil
	case Int32:
		v, na := fwRead[int32](c.mbuf, i)
		return int64(v), na, nil
	case Int64:
		v, na := fwRead[int64](c.mbuf, i)
		return v, na, nil
	default:
		return 0, false, accessorMismatch(c.st, "int64")
	}
}

func (c *fwColumn) getFloat32(i int64) (float32, bool, error) {
	if c.st != Float32 {
		return 0, false, accessorMismatch(c.st, "float32")
	}
	v, na := fwRead[float32](c.mbuf, i)
	return v, na, nil
}

func (c *fwColumn) getFloat64(i int64) (float64, bool, error) {
	switch c.st {
	case Float32:
		v, na := fwRead[float32](c.mbuf, i)
		return float64(v), na, nil
	case Float64:
		v, na := fwRead[float64](c.mbuf, i)
		return v, na, nil
	default:
		return 0, false, accessorMismatch(c.st, "float64")
	}
}

func (c *fwColumn) getStr(int64) (string, bool, error) {
	return "", false, accessorMismatch(c.st, "string")
}

func (c *fwColumn) getObj(int64) (interface{}, bool, error) {
	return nil, false, accessorMismatch(c.st, "object")
}

func (c *fwColumn) shallowCopy() impl {
	return &fwColumn{st: c.st, n: c.n, mbuf: c.mbuf.Share()}
}

func (c *fwColumn) materialize(context.Context, *config.Config) (impl, error) {
	return c.shallowCopy(), nil
}

func (c *fwColumn) dataBuffer(part int) *buffer.Buffer {
	if part == 0 {
		return c.mbuf
	}
	return nil
}

func (c *fwColumn) release() {
	c.mbuf.Release()
}

func (c *fwColumn) verify() error {
	if c.n < 0 {
		return errors.AssertionError("fixed-width column has negative row count %d", c.n)
	}
	if want := c.n * c.st.ElemSize(); c.mbuf.Size() < want {
		return errors.AssertionError(
			"%s column of %d rows needs %d bytes but its buffer holds %d",
			c.st, c.n, want, c.mbuf.Size())
	}
	return nil
}

// fwFill writes typed values into a fresh fixed-width column via a parallel
// static loop. get returns the value for one logical row; NA rows receive
// the sentinel.
func fwFill[T fixed](ctx context.Context, cfg *config.Config, out *fwColumn,
	get func(i int64) (T, bool)) error {
	data := buffer.WritableView[T](out.mbuf)
	na := naValue[T]()
	return parallel.ForStatic(ctx, cfg, out.n, func(start, end int64) {
		for i := start; i < end; i++ {
			v, isna := get(i)
			if isna {
				data[i] = na
			} else {
				data[i] = v
			}
		}
	})
}
