// Package frame assembles named columns of equal length into a table and
// provides the frame-level operations that fan out across columns: row
// selection, materialization, vertical concatenation.
package frame

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tabular/pkg/column"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
)

// Frame is an ordered collection of named columns sharing one row count.
// Like Column, a Frame is a handle: Clone is cheap and copy-on-write.
type Frame struct {
	names []string
	byName map[string]int
	cols  []column.Column
	nrows int64
}

// New builds a frame over the given columns, taking over the caller's
// column references. Names must be unique and len(names) == len(cols);
// all columns must have the same row count.
func New(names []string, cols []column.Column) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, errors.ValueError(
			"%d names for %d columns", len(names), len(cols))
	}
	f := &Frame{
		names:  append([]string(nil), names...),
		byName: make(map[string]int, len(names)),
		cols:   append([]column.Column(nil), cols...),
	}
	for i, name := range names {
		if _, dup := f.byName[name]; dup {
			return nil, errors.ValueError("duplicate column name %q", name)
		}
		f.byName[name] = i
		if !cols[i].IsValid() {
			return nil, errors.ValueError("column %q is a zero-value handle", name)
		}
		if i == 0 {
			f.nrows = cols[i].NRows()
		} else if cols[i].NRows() != f.nrows {
			return nil, errors.ValueError(
				"column %q has %d rows, want %d", name, cols[i].NRows(), f.nrows)
		}
	}
	return f, nil
}

// NRows returns the row count.
func (f *Frame) NRows() int64 { return f.nrows }

// NCols returns the column count.
func (f *Frame) NCols() int { return len(f.cols) }

// Names returns the column names in order. The slice is shared; do not
// mutate it.
func (f *Frame) Names() []string { return f.names }

// Column returns the i-th column handle without transferring ownership.
func (f *Frame) Column(i int) (column.Column, error) {
	if i < 0 || i >= len(f.cols) {
		return column.Column{}, errors.ValueError(
			"column %d out of range for a %d-column frame", i, len(f.cols))
	}
	return f.cols[i], nil
}

// ColumnByName returns the column with the given name.
func (f *Frame) ColumnByName(name string) (column.Column, error) {
	i, ok := f.byName[name]
	if !ok {
		return column.Column{}, errors.ValueError("no column named %q", name)
	}
	return f.cols[i], nil
}

// AddColumn appends a column, taking over the caller's reference. An empty
// frame adopts the new column's row count.
func (f *Frame) AddColumn(name string, c column.Column) error {
	if _, dup := f.byName[name]; dup {
		return errors.ValueError("duplicate column name %q", name)
	}
	if !c.IsValid() {
		return errors.ValueError("column %q is a zero-value handle", name)
	}
	if len(f.cols) > 0 && c.NRows() != f.nrows {
		return errors.ValueError(
			"column %q has %d rows, want %d", name, c.NRows(), f.nrows)
	}
	if len(f.cols) == 0 {
		f.nrows = c.NRows()
	}
	f.byName[name] = len(f.cols)
	f.names = append(f.names, name)
	f.cols = append(f.cols, c)
	return nil
}

// DeleteColumn removes and releases the named column.
func (f *Frame) DeleteColumn(name string) error {
	i, ok := f.byName[name]
	if !ok {
		return errors.ValueError("no column named %q", name)
	}
	f.cols[i].Release()
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	f.names = append(f.names[:i], f.names[i+1:]...)
	delete(f.byName, name)
	for j := i; j < len(f.names); j++ {
		f.byName[f.names[j]] = j
	}
	return nil
}

// Clone returns an independent frame handle over the same column storage.
func (f *Frame) Clone() *Frame {
	g := &Frame{
		names:  append([]string(nil), f.names...),
		byName: make(map[string]int, len(f.byName)),
		cols:   make([]column.Column, len(f.cols)),
		nrows:  f.nrows,
	}
	for name, i := range f.byName {
		g.byName[name] = i
	}
	for i, c := range f.cols {
		g.cols[i] = c.Clone()
	}
	return g
}

// Release drops the frame's references to all its columns.
func (f *Frame) Release() {
	for i := range f.cols {
		f.cols[i].Release()
	}
	f.cols = nil
	f.names = nil
	f.byName = nil
	f.nrows = 0
}

// ApplyRowIndex applies one row selection to every column, virtually, and
// adjusts the frame's row count.
func (f *Frame) ApplyRowIndex(ri rowindex.RowIndex) error {
	for i := range f.cols {
		if err := f.cols[i].ApplyRowIndex(ri); err != nil {
			return err
		}
	}
	if !ri.IsAbsent() {
		f.nrows = ri.Length()
	}
	return nil
}

// Materialize converts every virtual column into physical storage, one
// goroutine per column. The first failure cancels the rest; the frame is
// left with a mix of materialized and untouched columns in that case, all
// still valid.
func (f *Frame) Materialize(ctx context.Context, cfg *config.Config) error {
	g, gctx := errgroup.WithContext(ctx)
	if cfg != nil {
		g.SetLimit(cfg.Threads())
	}
	for i := range f.cols {
		col := &f.cols[i]
		g.Go(func() error {
			return col.Materialize(gctx, cfg)
		})
	}
	return g.Wait()
}

// Rbind appends the rows of each other frame below f's, in order. Columns
// are matched by name; a column absent from one side is padded with NA for
// that side's rows, so the result has the union of the column sets. Column
// order follows f, then first appearance across the others.
func (f *Frame) Rbind(ctx context.Context, cfg *config.Config, others ...*Frame) (*Frame, error) {
	frames := append([]*Frame{f}, others...)

	var outNames []string
	seen := map[string]bool{}
	for _, fr := range frames {
		for _, name := range fr.names {
			if !seen[name] {
				seen[name] = true
				outNames = append(outNames, name)
			}
		}
	}

	outCols := make([]column.Column, 0, len(outNames))
	for _, name := range outNames {
		pieces := make([]column.Column, 0, len(frames))
		pads := make([]column.Column, 0, len(frames))
		for _, fr := range frames {
			if i, ok := fr.byName[name]; ok {
				pieces = append(pieces, fr.cols[i])
				continue
			}
			pad, err := column.NewVoid(fr.nrows)
			if err != nil {
				return nil, err
			}
			pads = append(pads, pad)
			pieces = append(pieces, pad)
		}
		merged, err := column.Rbind(ctx, cfg, pieces...)
		for i := range pads {
			pads[i].Release()
		}
		if err != nil {
			for i := range outCols {
				outCols[i].Release()
			}
			return nil, err
		}
		outCols = append(outCols, merged)
	}
	return New(outNames, outCols)
}

// Verify checks every column's invariants plus the frame-level ones.
func (f *Frame) Verify() error {
	if len(f.names) != len(f.cols) {
		return errors.AssertionError(
			"frame has %d names for %d columns", len(f.names), len(f.cols))
	}
	for i, c := range f.cols {
		if c.NRows() != f.nrows {
			return errors.AssertionError(
				"column %q has %d rows, frame has %d", f.names[i], c.NRows(), f.nrows)
		}
		if err := c.Verify(); err != nil {
			return err
		}
	}
	return nil
}
