package column

import (
	"context"

	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/rowindex"
)

// RowIndexFromBools builds a row index selecting the rows where the boolean
// column holds true. NA rows are not selected. The scan runs in parallel and
// the result preserves row order.
func RowIndexFromBools(ctx context.Context, cfg *config.Config, c Column) (rowindex.RowIndex, error) {
	if c.Ltype() != LBool {
		return rowindex.RowIndex{}, errors.TypeError(
			"expected a boolean column, got %s", c.Stype())
	}
	return rowindex.FromFilter(ctx, cfg, c.NRows(), func(row int64) bool {
		v, isNA, err := c.GetInt32(row)
		return err == nil && !isNA && v != 0
	})
}

// RowIndexFromInts builds a row index whose entries are the values of the
// integer column, read in order. NA values become NA entries; negative values
// are rejected.
func RowIndexFromInts(cfg *config.Config, c Column) (rowindex.RowIndex, error) {
	lt := c.Ltype()
	if lt != LInt && lt != LBool {
		return rowindex.RowIndex{}, errors.TypeError(
			"expected an integer column, got %s", c.Stype())
	}
	n := c.NRows()
	vals := make([]int64, n)
	sorted := true
	prev := int64(-1)
	for i := int64(0); i < n; i++ {
		v, isNA, err := c.GetInt64(i)
		if err != nil {
			return rowindex.RowIndex{}, err
		}
		if isNA {
			vals[i] = rowindex.NA
			sorted = false
			continue
		}
		if v < 0 {
			return rowindex.RowIndex{}, errors.ValueError(
				"negative row %d at position %d", v, i)
		}
		if v < prev {
			sorted = false
		}
		prev = v
		vals[i] = v
	}
	return rowindex.FromArray64(cfg, vals, sorted)
}
