// Package tabular provides an in-memory columnar data engine built around
// copy-on-write buffers, virtual row selections, and lazily evaluated
// columns.
//
// The engine is organized as a small set of composable layers:
//
// 1. Reference-Counted Buffers: pkg/buffer owns all bulk memory. Buffers are
// shared by reference count and detach on the first write, so cloning a
// column or a frame never copies data until one side mutates it.
//
// 2. Virtual Row Selections: pkg/rowindex describes a selection of rows as a
// value (a slice triple or an index array) rather than as copied data.
// Selections compose, invert, and shrink without touching column storage.
//
// 3. Lazy Columns: pkg/column layers virtual views, ranges, and casts on top
// of physical storage. Reads go through the view chain; Materialize collapses
// it into physical storage in parallel when the caller asks.
//
// 4. Parallel Kernels: pkg/parallel supplies the static, dynamic, and ordered
// scheduling primitives that materialization, filtering, and statistics are
// built on. All blocking entry points accept a context for cancellation.
//
// # Quick Start
//
// Build a column, select rows, and materialize the result:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/tabular/pkg/column"
//	    "github.com/ajitpratap0/tabular/pkg/config"
//	    "github.com/ajitpratap0/tabular/pkg/rowindex"
//	)
//
//	cfg := config.Default()
//	col := column.FromFixed([]int64{10, 20, 30, 40, 50})
//
//	// Every other row, as a view. No data moves yet.
//	ri, _ := rowindex.FromSlice(0, 3, 2)
//	col.ApplyRowIndex(ri)
//
//	// Collapse the view into physical storage.
//	_ = col.Materialize(context.Background(), cfg)
//	defer col.Release()
//
// # Key Packages
//
//	pkg/buffer    - Reference-counted memory with copy-on-write
//	pkg/rowindex  - Virtual row selection algebra
//	pkg/column    - Typed columns, views, casts, and statistics
//	pkg/frame     - Named collections of equal-length columns
//	pkg/parallel  - Chunked parallel scheduling primitives
//	pkg/arrowconv - Conversion to and from Apache Arrow records
//	cmd/tabular   - CLI for inspecting and converting column data
package tabular
