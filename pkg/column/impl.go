package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
)

// impl is the closed set of column representations. The variant set is
// small, fixed and known at design time, so it is sealed inside this
// package; consumers only ever see the Column handle.
//
// Element accessors return (value, isNA, error). The canonical policy for a
// typed accessor on an incompatible stype is a not-implemented error, except
// along the explicit up-cast paths (int8/16/32 read as int32, any integer as
// int64, float32 as float64).
type impl interface {
	stype() SType
	nrows() int64

	// isVirtual reports whether values are computed through a RowIndex
	// indirection or an on-the-fly formula rather than stored physically.
	isVirtual() bool

	getInt32(i int64) (int32, bool, error)
	getInt64(i int64) (int64, bool, error)
	getFloat32(i int64) (float32, bool, error)
	getFloat64(i int64) (float64, bool, error)
	getStr(i int64) (string, bool, error)
	getObj(i int64) (interface{}, bool, error)

	// shallowCopy returns a distinct variant object sharing the same
	// buffers and RowIndex through ref-counted aliasing.
	shallowCopy() impl

	// materialize produces a new physical, RowIndex-free impl with the same
	// stype and nrows. It never mutates the receiver.
	materialize(ctx context.Context, cfg *config.Config) (impl, error)

	// dataBuffer exposes the backing storage: part 0 is the main (or
	// offsets) buffer, part 1 the string-data buffer. Nil when absent.
	dataBuffer(part int) *buffer.Buffer

	// release drops this impl's references to its buffers.
	release()

	// verify checks internal invariants, returning assertion errors.
	verify() error
}

func accessorMismatch(have SType, want string) error {
	return errors.NotImplError("cannot read %s value from a %s column", want, have)
}

// voidColumn is the all-NA placeholder: nrows missing values of no
// particular type. Rbind uses it to pad frames whose columns are absent.
type voidColumn struct {
	n int64
}

func (c *voidColumn) stype() SType    { return Void }
func (c *voidColumn) nrows() int64    { return c.n }
func (c *voidColumn) isVirtual() bool { return false }

func (c *voidColumn) getInt32(int64) (int32, bool, error)        { return 0, true, nil }
func (c *voidColumn) getInt64(int64) (int64, bool, error)        { return 0, true, nil }
func (c *voidColumn) getFloat32(int64) (float32, bool, error)    { return 0, true, nil }
func (c *voidColumn) getFloat64(int64) (float64, bool, error)    { return 0, true, nil }
func (c *voidColumn) getStr(int64) (string, bool, error)         { return "", true, nil }
func (c *voidColumn) getObj(int64) (interface{}, bool, error)    { return nil, true, nil }

func (c *voidColumn) shallowCopy() impl { return &voidColumn{n: c.n} }

func (c *voidColumn) materialize(context.Context, *config.Config) (impl, error) {
	return c.shallowCopy(), nil
}

func (c *voidColumn) dataBuffer(int) *buffer.Buffer { return nil }
func (c *voidColumn) release()                      {}

func (c *voidColumn) verify() error {
	if c.n < 0 {
		return errors.AssertionError("void column has negative row count %d", c.n)
	}
	return nil
}
