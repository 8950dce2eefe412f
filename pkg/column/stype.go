// Package column implements the typed, polymorphic column representation at
// the heart of Tabular: physical fixed-width, string and object columns,
// virtual columns (row-subset views, range generators, lazy casts), and the
// copy-on-write Column handle every other subsystem consumes.
package column

// SType is the storage type tag: the physical encoding of a column's values.
type SType uint8

const (
	// Void is the all-NA placeholder storage type.
	Void SType = iota
	// Bool8 stores booleans as one int8 per value (0, 1 or the NA sentinel).
	Bool8
	// Int8 stores 8-bit signed integers.
	Int8
	// Int16 stores 16-bit signed integers.
	Int16
	// Int32 stores 32-bit signed integers.
	Int32
	// Int64 stores 64-bit signed integers.
	Int64
	// Float32 stores 32-bit floats.
	Float32
	// Float64 stores 64-bit floats.
	Float64
	// Str32 stores strings with 32-bit offsets.
	Str32
	// Str64 stores strings with 64-bit offsets.
	Str64
	// Obj64 stores opaque host-object handles.
	Obj64
)

// LType is the logical type grouping used for promotion and compatibility
// decisions across storage types.
type LType uint8

const (
	// LVoid groups the void placeholder.
	LVoid LType = iota
	// LBool groups boolean storage.
	LBool
	// LInt groups the integer storage types.
	LInt
	// LReal groups the floating-point storage types.
	LReal
	// LString groups the string storage types.
	LString
	// LObject groups object storage.
	LObject
)

// String returns the stype name.
func (s SType) String() string {
	switch s {
	case Void:
		return "void"
	case Bool8:
		return "bool8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Str32:
		return "str32"
	case Str64:
		return "str64"
	case Obj64:
		return "obj64"
	default:
		return "invalid"
	}
}

// String returns the ltype name.
func (l LType) String() string {
	switch l {
	case LVoid:
		return "void"
	case LBool:
		return "bool"
	case LInt:
		return "int"
	case LReal:
		return "real"
	case LString:
		return "string"
	case LObject:
		return "object"
	default:
		return "invalid"
	}
}

// Ltype returns the logical type grouping of an stype.
func (s SType) Ltype() LType {
	switch s {
	case Bool8:
		return LBool
	case Int8, Int16, Int32, Int64:
		return LInt
	case Float32, Float64:
		return LReal
	case Str32, Str64:
		return LString
	case Obj64:
		return LObject
	default:
		return LVoid
	}
}

// ElemSize returns the per-element byte width for fixed-width stypes, or the
// offset width for string stypes. Obj64 reports the host pointer width.
func (s SType) ElemSize() int64 {
	switch s {
	case Bool8, Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32, Str32:
		return 4
	case Int64, Float64, Str64, Obj64:
		return 8
	default:
		return 0
	}
}

// IsFixedWidth reports whether values are stored as fixed-width elements in
// a single data buffer.
func (s SType) IsFixedWidth() bool {
	switch s {
	case Bool8, Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	default:
		return false
	}
}

// promotion rank implements the ordering
// BOOL < INT8 < INT16 < INT32 < INT64 < FLOAT32 < FLOAT64 < STR32 < STR64 < OBJ.
// Void ranks below everything: it promotes to any other stype.
func (s SType) rank() int {
	switch s {
	case Void:
		return 0
	case Bool8:
		return 1
	case Int8:
		return 2
	case Int16:
		return 3
	case Int32:
		return 4
	case Int64:
		return 5
	case Float32:
		return 6
	case Float64:
		return 7
	case Str32:
		return 8
	case Str64:
		return 9
	default:
		return 10
	}
}

// Promote returns the smallest common stype of a and b under the promotion
// ordering. Used by rbind to choose the concatenation target.
func Promote(a, b SType) SType {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}
