package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
)

// Column is the handle through which all column access happens. It owns one
// reference to an underlying representation; Clone produces an independent
// handle over the same ref-counted storage, so copies are cheap and writes
// to one never show through another.
//
// A Column is not safe for concurrent mutation. Concurrent reads are fine.
type Column struct {
	d impl
}

// NewVoid returns an all-NA column of n rows.
func NewVoid(n int64) (Column, error) {
	if n < 0 {
		return Column{}, errors.ValueError("negative row count %d", n)
	}
	return Column{d: &voidColumn{n: n}}, nil
}

// NewData allocates a zeroed physical fixed-width column.
func NewData(st SType, nrows int64) (Column, error) {
	c, err := newFWColumn(st, nrows)
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

// NewFromBuffer wraps an existing buffer as a fixed-width column without
// copying, taking over the caller's reference.
func NewFromBuffer(st SType, buf *buffer.Buffer) (Column, error) {
	c, err := newFWColumnFromBuffer(st, buf)
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

// NewString wraps raw offsets and string-data buffers as a string column,
// taking over the caller's references. st selects the offset width.
func NewString(st SType, nrows int64, offsets, strdata *buffer.Buffer) (Column, error) {
	c, err := newStrColumn(st, nrows, offsets, strdata)
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

// NewRange returns a virtual arithmetic-sequence column of count rows
// holding start, start+step, start+2*step, ...
func NewRange(st SType, start, count, step int64) (Column, error) {
	c, err := newRangeColumn(st, start, count, step)
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

// NewObject wraps host values as an obj64 column. A nil element is NA. The
// vtable's Retain hook runs once per non-nil element; its Release hook runs
// when the last handle over this storage is released.
func NewObject(elems []interface{}, vt *ObjVTable) Column {
	return Column{d: newObjColumn(elems, vt)}
}

// FromFixed copies a typed slice into a new physical column, mapping the
// type's NA sentinel (or NaN) to missing.
func FromFixed[T fixed](vals []T) (Column, error) {
	buf, err := buffer.FromSlice(vals)
	if err != nil {
		return Column{}, err
	}
	var zero T
	var st SType
	switch any(zero).(type) {
	case int8:
		st = Int8
	case int16:
		st = Int16
	case int32:
		st = Int32
	case int64:
		st = Int64
	case float32:
		st = Float32
	default:
		st = Float64
	}
	return NewFromBuffer(st, buf)
}

// FromBools copies booleans into a bool8 column. valid marks present rows;
// nil means all rows are valid.
func FromBools(vals []bool, valid []bool) (Column, error) {
	if valid != nil && len(valid) != len(vals) {
		return Column{}, errors.ValueError(
			"validity mask of %d entries for %d values", len(valid), len(vals))
	}
	c, err := newFWColumn(Bool8, int64(len(vals)))
	if err != nil {
		return Column{}, err
	}
	data := buffer.WritableView[int8](c.mbuf)
	for i, v := range vals {
		switch {
		case valid != nil && !valid[i]:
			data[i] = NABool8
		case v:
			data[i] = 1
		default:
			data[i] = 0
		}
	}
	return Column{d: c}, nil
}

// FromStrs builds a string column from Go strings. valid marks present
// rows; nil means all rows are valid. The offset width is chosen
// automatically.
func FromStrs(vals []string, valid []bool) (Column, error) {
	if valid != nil && len(valid) != len(vals) {
		return Column{}, errors.ValueError(
			"validity mask of %d entries for %d values", len(valid), len(vals))
	}
	var total int64
	for _, s := range vals {
		total += int64(len(s))
	}
	b := newStrBuilder(int64(len(vals)), total)
	for i, s := range vals {
		if valid != nil && !valid[i] {
			b.appendNA()
		} else {
			b.appendStr(s)
		}
	}
	c, err := b.finish()
	if err != nil {
		return Column{}, err
	}
	return Column{d: c}, nil
}

// NRows returns the number of rows. Zero for the zero-value Column.
func (c Column) NRows() int64 {
	if c.d == nil {
		return 0
	}
	return c.d.nrows()
}

// Stype returns the storage type. Void for the zero-value Column.
func (c Column) Stype() SType {
	if c.d == nil {
		return Void
	}
	return c.d.stype()
}

// Ltype returns the logical type grouping.
func (c Column) Ltype() LType { return c.Stype().Ltype() }

// IsVirtual reports whether reads go through an indirection or formula
// instead of physical storage.
func (c Column) IsVirtual() bool {
	return c.d != nil && c.d.isVirtual()
}

// IsValid reports whether the handle refers to a column at all.
func (c Column) IsValid() bool { return c.d != nil }

// Clone returns an independent handle sharing the same storage. Both
// handles must eventually be released.
func (c Column) Clone() Column {
	if c.d == nil {
		return Column{}
	}
	return Column{d: c.d.shallowCopy()}
}

// Release drops this handle's reference to the underlying storage. The
// handle must not be used afterwards.
func (c *Column) Release() {
	if c.d != nil {
		c.d.release()
		c.d = nil
	}
}

func (c Column) checkRow(i int64) error {
	if i < 0 || i >= c.NRows() {
		return errors.ValueError("row %d out of range for a %d-row column", i, c.NRows())
	}
	return nil
}

// GetInt32 reads row i through the int32 accessor. Valid for bool8 and
// integer stypes up to int32.
func (c Column) GetInt32(i int64) (int32, bool, error) {
	if err := c.checkRow(i); err != nil {
		return 0, false, err
	}
	return c.d.getInt32(i)
}

// GetInt64 reads row i through the int64 accessor. Valid for bool8 and all
// integer stypes.
func (c Column) GetInt64(i int64) (int64, bool, error) {
	if err := c.checkRow(i); err != nil {
		return 0, false, err
	}
	return c.d.getInt64(i)
}

// GetFloat32 reads row i as float32. Valid for float32 columns only.
func (c Column) GetFloat32(i int64) (float32, bool, error) {
	if err := c.checkRow(i); err != nil {
		return 0, false, err
	}
	return c.d.getFloat32(i)
}

// GetFloat64 reads row i as float64. Valid for both float widths.
func (c Column) GetFloat64(i int64) (float64, bool, error) {
	if err := c.checkRow(i); err != nil {
		return 0, false, err
	}
	return c.d.getFloat64(i)
}

// GetStr reads row i of a string column. The returned string aliases the
// column's storage; clone it to outlive the column.
func (c Column) GetStr(i int64) (string, bool, error) {
	if err := c.checkRow(i); err != nil {
		return "", false, err
	}
	return c.d.getStr(i)
}

// GetObj reads row i of an object column.
func (c Column) GetObj(i int64) (interface{}, bool, error) {
	if err := c.checkRow(i); err != nil {
		return nil, false, err
	}
	return c.d.getObj(i)
}

// ApplyRowIndex replaces the column's rows with the subset (or rearrangement)
// selected by ri, virtually. The result reads through the mapping; no data
// moves until Materialize. Applying to an existing view composes the two
// mappings into one.
func (c *Column) ApplyRowIndex(ri rowindex.RowIndex) error {
	v, err := newViewColumn(c.d, ri)
	if err != nil {
		return err
	}
	c.d.release()
	c.d = v
	return nil
}

// Materialize converts the column in place into a physical, indirection-free
// representation. Physical columns are left untouched. Interruption via ctx
// leaves the column unchanged.
func (c *Column) Materialize(ctx context.Context, cfg *config.Config) error {
	if !c.d.isVirtual() {
		return nil
	}
	m, err := c.d.materialize(ctx, orDefault(cfg))
	if err != nil {
		return err
	}
	c.d.release()
	c.d = m
	return nil
}

// Cast returns a new column re-typed to target. The cast is lazy; strict
// makes string parsing report the first malformed row instead of producing
// NA.
func (c Column) Cast(cfg *config.Config, target SType, strict bool) (Column, error) {
	d, err := newCastColumn(cfg, c.d, target, strict)
	if err != nil {
		return Column{}, err
	}
	return Column{d: d}, nil
}

// DataReadonly exposes the backing buffer for a storage part, materializing
// first if the column is virtual. Part 0 is the main or offsets buffer,
// part 1 the string data. The buffer remains owned by the column.
func (c *Column) DataReadonly(ctx context.Context, cfg *config.Config, part int) (*buffer.Buffer, error) {
	if err := c.Materialize(ctx, cfg); err != nil {
		return nil, err
	}
	buf := c.d.dataBuffer(part)
	if buf == nil {
		return nil, errors.ValueError("%s column has no data part %d", c.Stype(), part)
	}
	return buf, nil
}

// DataSize reports the byte size of a storage part, materializing first if
// the column is virtual.
func (c *Column) DataSize(ctx context.Context, cfg *config.Config, part int) (int64, error) {
	buf, err := c.DataReadonly(ctx, cfg, part)
	if err != nil {
		return 0, err
	}
	return buf.Size(), nil
}

// statser is implemented by physical variants that can summarize themselves.
type statser interface {
	computeStats(ctx context.Context, cfg *config.Config) (*Stats, error)
}

// Stats computes (or returns cached) summary statistics, materializing the
// column first if needed.
func (c *Column) Stats(ctx context.Context, cfg *config.Config) (*Stats, error) {
	if err := c.Materialize(ctx, cfg); err != nil {
		return nil, err
	}
	if s, ok := c.d.(statser); ok {
		return s.computeStats(ctx, orDefault(cfg))
	}
	return &Stats{NACount: c.NRows()}, nil
}

// NACount reports the number of missing values in the column.
func (c *Column) NACount(ctx context.Context, cfg *config.Config) (int64, error) {
	s, err := c.Stats(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return s.NACount, nil
}

// Verify checks the column's internal invariants, walking through virtual
// layers. Intended for tests and debugging.
func (c Column) Verify() error {
	if c.d == nil {
		return errors.AssertionError("zero-value column handle")
	}
	return c.d.verify()
}
