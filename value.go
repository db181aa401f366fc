package svm

import "fmt"

// ValueType tags the four numeric kinds a Value may carry.
type ValueType uint8

const (
	// TypeVoid is the zero-result sentinel; it is never carried on the
	// value stack, only returned from Run when a function has no result.
	TypeVoid ValueType = iota
	TypeI32
	TypeI64
	TypeF32
	TypeF64
)

func (t ValueType) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	default:
		return "void"
	}
}

func parseValueType(s string) (ValueType, bool) {
	switch s {
	case "i32":
		return TypeI32, true
	case "i64":
		return TypeI64, true
	case "f32":
		return TypeF32, true
	case "f64":
		return TypeF64, true
	default:
		return TypeVoid, false
	}
}

// Value is a tagged union over i32, i64, f32, f64 and the void sentinel.
// Values are passed by copy throughout the interpreter.
type Value struct {
	Type ValueType
	i64  int64   // backs I32 (sign-extended) and I64
	f64  float64 // backs F32 (widened) and F64
}

// Void is the zero-result sentinel value.
var Void = Value{Type: TypeVoid}

func I32(v int32) Value { return Value{Type: TypeI32, i64: int64(v)} }
func I64(v int64) Value { return Value{Type: TypeI64, i64: v} }
func F32(v float32) Value { return Value{Type: TypeF32, f64: float64(v)} }
func F64(v float64) Value { return Value{Type: TypeF64, f64: v} }

// I32 reads the payload as an i32 without inspecting the tag, matching the
// stack discipline expected of a validated instruction body (see
// DESIGN NOTES in spec.md: "Implementations should avoid implicit numeric
// coercion").
func (v Value) I32() int32 { return int32(v.i64) }
func (v Value) I64() int64 { return v.i64 }
func (v Value) F32() float32 { return float32(v.f64) }
func (v Value) F64() float64 { return v.f64 }

func (v Value) String() string {
	switch v.Type {
	case TypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case TypeI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case TypeF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case TypeF64:
		return fmt.Sprintf("f64:%g", v.F64())
	default:
		return "void"
	}
}

func zeroOf(t ValueType) Value {
	switch t {
	case TypeI32:
		return I32(0)
	case TypeI64:
		return I64(0)
	case TypeF32:
		return F32(0)
	case TypeF64:
		return F64(0)
	default:
		return Void
	}
}
