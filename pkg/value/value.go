// Package value defines the runtime value representation shared by the
// compiler and the virtual machine.
//
// A Value is a small tagged union: it is either a boolean, nil, a
// double-precision number, or a reference to a heap Object (string,
// function, closure, class, instance, list, map, ...). The spec this VM
// implements allows an alternative NaN-boxed 64-bit representation with
// identical observable semantics; loxgo uses the tagged-union form because
// it needs no unsafe pointer arithmetic and every other module in the
// retrieval pack that represents dynamic values (smog's
// map[string]interface{} locals/globals, nilan's token-tagged AST nodes)
// favors a plain tagged representation over bit-packing.
package value

import "fmt"

// Kind identifies which alternative of the Value union is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is the dynamically typed value every expression in the source
// language produces. It is passed by value throughout the compiler and VM,
// the same way smog passes interface{} by value on its operand stack.
type Value struct {
	kind Kind
	num  float64
	obj  Obj
}

// Nil is the singleton nil value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean as a Value.
func Bool(b bool) Value {
	n := 0.0
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// Number wraps a float64 as a Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// FromObj wraps a heap Object as a Value.
func FromObj(o Obj) Value {
	return Value{kind: KindObj, obj: o}
}

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool     { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() Obj        { return v.obj }

// IsObjKind reports whether v holds an object of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.kind == KindObj && v.obj != nil && v.obj.Kind() == k
}

// IsString reports whether v is an interned string.
func (v Value) IsString() bool { return v.IsObjKind(ObjKindString) }

// AsString returns the underlying Go string of a string Value. Panics if v
// is not a string; callers must check IsString first, mirroring the
// AS_STRING()-after-IS_STRING() discipline of the reference implementation.
func (v Value) AsString() string {
	return v.obj.(*ObjString).Chars
}

// Truthy implements the source language's truthiness rule: nil and false
// are falsey, everything else (including 0 and "") is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal implements value equality. Numbers compare with IEEE == (so NaN is
// never equal to itself); objects compare by identity, which is correct
// for interned strings and gives every other object reference semantics.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindNumber:
		return a.num == b.num
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// TypeName returns a human-readable type name. Nothing in this module
// calls it: the VM's runtime error messages do not name operand types, and
// clock() is the only native.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObj:
		return v.obj.Kind().String()
	default:
		return "unknown"
	}
}

// String renders a Value the way `print` does.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n != n {
		return "nan"
	}
	// Matches value.c's printValue: "%g" already renders whole-number
	// doubles without a trailing ".0" (e.g. 7, not 7.0).
	return fmt.Sprintf("%g", n)
}
