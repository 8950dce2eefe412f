// Package arrowconv bridges frames to Apache Arrow record batches for
// interchange with the wider columnar ecosystem. Export materializes every
// column and rebuilds it through Arrow builders; import copies Arrow arrays
// into physical columns with NA sentinels.
package arrowconv

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/tabular/pkg/column"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/frame"
)

// arrowType maps a storage type to its Arrow equivalent. Object columns
// hold opaque host values and have no interchange representation.
func arrowType(st column.SType) (arrow.DataType, error) {
	switch st {
	case column.Void:
		return arrow.Null, nil
	case column.Bool8:
		return arrow.FixedWidthTypes.Boolean, nil
	case column.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case column.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case column.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case column.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case column.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case column.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case column.Str32:
		return arrow.BinaryTypes.String, nil
	case column.Str64:
		return arrow.BinaryTypes.LargeString, nil
	default:
		return nil, errors.NotImplError("no Arrow representation for %s columns", st)
	}
}

// Schema derives the Arrow schema of a frame. Every field is nullable,
// since any column may hold NA.
func Schema(f *frame.Frame) (*arrow.Schema, error) {
	fields := make([]arrow.Field, f.NCols())
	for i := range fields {
		col, err := f.Column(i)
		if err != nil {
			return nil, err
		}
		dt, err := arrowType(col.Stype())
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: f.Names()[i], Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord converts a frame into one Arrow record batch. The frame is
// materialized first; the caller owns the returned record and must Release
// it.
func ToRecord(ctx context.Context, cfg *config.Config, f *frame.Frame, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema, err := Schema(f)
	if err != nil {
		return nil, err
	}
	if err := f.Materialize(ctx, cfg); err != nil {
		return nil, err
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	for i := 0; i < f.NCols(); i++ {
		col, err := f.Column(i)
		if err != nil {
			return nil, err
		}
		if err := appendColumn(rb.Field(i), col); err != nil {
			return nil, err
		}
	}
	return rb.NewRecord(), nil
}

func appendColumn(b array.Builder, col column.Column) error {
	n := col.NRows()
	switch bld := b.(type) {
	case *array.NullBuilder:
		for i := int64(0); i < n; i++ {
			bld.AppendNull()
		}
	case *array.BooleanBuilder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetInt32(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v != 0)
			}
		}
	case *array.Int8Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetInt32(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(int8(v))
			}
		}
	case *array.Int16Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetInt32(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(int16(v))
			}
		}
	case *array.Int32Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetInt32(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	case *array.Int64Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetInt64(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	case *array.Float32Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetFloat32(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	case *array.Float64Builder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetFloat64(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	case *array.StringBuilder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetStr(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	case *array.LargeStringBuilder:
		for i := int64(0); i < n; i++ {
			v, na, err := col.GetStr(i)
			if err != nil {
				return err
			}
			if na {
				bld.AppendNull()
			} else {
				bld.Append(v)
			}
		}
	default:
		return errors.NotImplError("unsupported Arrow builder %T", b)
	}
	return nil
}

// FromRecord converts an Arrow record batch into a frame of physical
// columns. Unsupported Arrow types fail with a not-implemented error.
func FromRecord(rec arrow.Record) (*frame.Frame, error) {
	names := make([]string, rec.NumCols())
	cols := make([]column.Column, 0, rec.NumCols())
	release := func() {
		for i := range cols {
			cols[i].Release()
		}
	}
	for i := 0; i < int(rec.NumCols()); i++ {
		names[i] = rec.ColumnName(i)
		col, err := fromArray(rec.Column(i))
		if err != nil {
			release()
			return nil, err
		}
		cols = append(cols, col)
	}
	f, err := frame.New(names, cols)
	if err != nil {
		release()
		return nil, err
	}
	return f, nil
}

func fromArray(a arrow.Array) (column.Column, error) {
	n := a.Len()
	switch arr := a.(type) {
	case *array.Null:
		return column.NewVoid(int64(n))
	case *array.Boolean:
		vals := make([]bool, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			valid[i] = arr.IsValid(i)
			if valid[i] {
				vals[i] = arr.Value(i)
			}
		}
		return column.FromBools(vals, valid)
	case *array.Int8:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAInt8)
	case *array.Int16:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAInt16)
	case *array.Int32:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAInt32)
	case *array.Int64:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAInt64)
	case *array.Float32:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAFloat32())
	case *array.Float64:
		return fixedFromArrow(n, arr.IsValid, arr.Value, column.NAFloat64())
	case *array.String:
		return strFromArrow(n, arr.IsValid, arr.Value)
	case *array.LargeString:
		return strFromArrow(n, arr.IsValid, arr.Value)
	default:
		return column.Column{}, errors.NotImplError(
			"cannot import Arrow array of type %s", a.DataType())
	}
}

func fixedFromArrow[T int8 | int16 | int32 | int64 | float32 | float64](
	n int, isValid func(int) bool, value func(int) T, na T) (column.Column, error) {
	vals := make([]T, n)
	for i := 0; i < n; i++ {
		if isValid(i) {
			vals[i] = value(i)
		} else {
			vals[i] = na
		}
	}
	return column.FromFixed(vals)
}

func strFromArrow(n int, isValid func(int) bool, value func(int) string) (column.Column, error) {
	vals := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		valid[i] = isValid(i)
		if valid[i] {
			vals[i] = value(i)
		}
	}
	return column.FromStrs(vals, valid)
}
