package column

import (
	"math"
)

// NA sentinels: each fixed-width type reserves one bit pattern inside its
// value range to mean "missing". Integer types use their minimum value;
// floats use NaN. The patterns are load-bearing: they make NA checks
// branch-free and storage free of side bitmaps. This file is the single
// owner of the sentinel constants and the string-offset NA-bit encoding.

const (
	// NABool8 is the missing-value sentinel for bool8 storage.
	NABool8 int8 = math.MinInt8
	// NAInt8 is the missing-value sentinel for int8 storage.
	NAInt8 int8 = math.MinInt8
	// NAInt16 is the missing-value sentinel for int16 storage.
	NAInt16 int16 = math.MinInt16
	// NAInt32 is the missing-value sentinel for int32 storage.
	NAInt32 int32 = math.MinInt32
	// NAInt64 is the missing-value sentinel for int64 storage.
	NAInt64 int64 = math.MinInt64
)

// NAFloat32 returns the missing-value sentinel for float32 storage.
func NAFloat32() float32 { return float32(math.NaN()) }

// NAFloat64 returns the missing-value sentinel for float64 storage.
func NAFloat64() float64 { return math.NaN() }

// String-offset NA encoding: an NA string entry stores the previous offset
// with the top bit of the unsigned offset type flipped. Monotonicity of the
// magnitudes is preserved while "no bytes, and missing" stays distinct from
// "valid empty string".
const (
	// NABit32 flags a missing entry in a 32-bit string offsets array.
	NABit32 uint32 = 1 << 31
	// NABit64 flags a missing entry in a 64-bit string offsets array.
	NABit64 uint64 = 1 << 63
)

// fixed constrains the element types storable in fixed-width columns.
type fixed interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// naValue returns the NA sentinel for a fixed-width element type.
func naValue[T fixed]() T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(NAInt8).(T)
	case int16:
		return any(NAInt16).(T)
	case int32:
		return any(NAInt32).(T)
	case int64:
		return any(NAInt64).(T)
	case float32:
		return any(NAFloat32()).(T)
	default:
		return any(NAFloat64()).(T)
	}
}

// isNA reports whether a fixed-width element holds its type's NA sentinel.
// NaN compares unequal to itself, which covers both float widths.
func isNA[T fixed](v T) bool {
	if v != v {
		return true
	}
	return v == naValue[T]()
}
