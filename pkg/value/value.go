// Package value defines the tagged runtime value used by the compiler,
// the bytecode instruction stream, and the virtual machine.
//
// A Value is a small sum type over the five kinds the language knows
// about: integers, floats, bools, and handles into the VM's string and
// list heaps. Handles are plain integer indices — cheap to copy, never
// individually freed. The zero Value is KindInt with Int 0, which keeps
// zero-valued Instruction operands harmless.
package value

import "fmt"

// Kind discriminates the case a Value holds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindList

	// KindStringLiteral only ever appears as a PUSH operand straight out
	// of the compiler: it carries the literal's bytes directly (in Str)
	// rather than a heap handle, because the heap doesn't exist yet at
	// compile time. The VM resolves every occurrence to a real
	// KindString handle once, when it loads the instruction stream, and
	// KindStringLiteral never appears on the stack or in globals.
	KindStringLiteral
)

// String returns a human-readable name for a Kind, used in error
// messages and disassembly.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindStringLiteral:
		return "StringLiteral"
	default:
		return "Unknown"
	}
}

// Value is a tagged variant over the five runtime value kinds. String
// and List hold handles (dense integer ids) into the owning VM's heap
// registries rather than the bytes/elements directly.
type Value struct {
	Kind   Kind
	Int    int32
	Float  float64
	Bool   bool
	Handle int
	Str    string // only meaningful for KindStringLiteral
}

// Int32 constructs an Integer value.
func Int32(i int32) Value { return Value{Kind: KindInt, Int: i} }

// Float64 constructs a Float value.
func Float64(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Bool constructs a Bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// StringHandle constructs a String value from a string-heap handle.
func StringHandle(h int) Value { return Value{Kind: KindString, Handle: h} }

// ListHandle constructs a List value from a list-heap handle.
func ListHandle(h int) Value { return Value{Kind: KindList, Handle: h} }

// StringLiteral constructs the compile-time-only literal form of a
// string PUSH operand; see KindStringLiteral.
func StringLiteral(s string) Value { return Value{Kind: KindStringLiteral, Str: s} }

// IsNumeric reports whether v is an Integer or a Float.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// AsFloat64 widens an Integer or Float value to float64. Callers must
// check IsNumeric first; AsFloat64 on any other kind returns 0.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	default:
		return 0
	}
}

// GoString renders v the way Go's %#v would, for debugger/disassembly
// output — not the language-level printed form (see vm.Machine.Format).
func (v Value) GoString() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("Integer(%d)", v.Int)
	case KindFloat:
		return fmt.Sprintf("Float(%f)", v.Float)
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.Bool)
	case KindString:
		return fmt.Sprintf("String(#%d)", v.Handle)
	case KindList:
		return fmt.Sprintf("List(#%d)", v.Handle)
	default:
		return "?"
	}
}
