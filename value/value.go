// Package value defines Crow's tagged runtime value type: the payload that
// lives on the VM's stack, in the constant pool, and in the globals table.
package value

import (
	"fmt"
	"math"

	"crowbc/object"
)

// Kind tags which variant a Value currently holds.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindChar
	KindObject
)

// Value is a small tagged union. Only one of the payload fields is
// meaningful at a time, selected by Kind.
type Value struct {
	Kind    Kind
	boolean bool
	number  float64
	char    byte
	obj     *object.Object
}

// Nil is the singleton nil value.
var Nil = Value{Kind: KindNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, boolean: b} }

// Number constructs a numeric (float64) value.
func Number(n float64) Value { return Value{Kind: KindNumber, number: n} }

// Char constructs a single-byte character value.
func Char(c byte) Value { return Value{Kind: KindChar, char: c} }

// Obj constructs a value wrapping a heap object reference (always an
// interned string, the only object kind this dialect has).
func Obj(o *object.Object) Value { return Value{Kind: KindObject, obj: o} }

func (v Value) IsNil() bool    { return v.Kind == KindNil }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsChar() bool   { return v.Kind == KindChar }
func (v Value) IsObject() bool { return v.Kind == KindObject }
func (v Value) IsString() bool { return v.Kind == KindObject && v.obj != nil && v.obj.Kind == object.KindString }

func (v Value) AsBool() bool             { return v.boolean }
func (v Value) AsNumber() float64        { return v.number }
func (v Value) AsChar() byte             { return v.char }
func (v Value) AsObject() *object.Object { return v.obj }

// AsString returns the underlying *object.Object. Callers must check
// IsString first.
func (v Value) AsString() *object.Object { return v.obj }

// Falsy reports whether v is a "falsy" value: nil or boolean false.
// Everything else -- including 0, "", and '\x00' -- is truthy.
func (v Value) Falsy() bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.boolean)
}

// Equals implements Crow's `==` semantics: same kind and equal payload.
// Strings compare by identity, since every live string is interned -- two
// string values are equal iff they point at the same *object.Object.
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindChar:
		return v.char == other.char
	case KindObject:
		return v.obj == other.obj
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		if math.IsNaN(v.number) {
			return "nan"
		}
		return formatNumber(v.number)
	case KindChar:
		return fmt.Sprintf("'%c'", v.char)
	case KindObject:
		if v.IsString() {
			return v.obj.Chars
		}
		return "<object>"
	}
	return "<invalid value>"
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		return fmt.Sprintf("%g", n)
	}
	return fmt.Sprintf("%v", n)
}
