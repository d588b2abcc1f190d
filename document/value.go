// Package document models a nested DynamoDB record as an explicit
// tagged-value tree. The tree is the one shared representation used by the
// update-expression compiler, the merge logic and the wire codec, so shape
// decisions are made by matching on Kind instead of probing runtime types.
package document

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindBinary
	KindStringSet
	KindNumberSet
	KindBinarySet
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindBinary:
		return "Binary"
	case KindStringSet:
		return "StringSet"
	case KindNumberSet:
		return "NumberSet"
	case KindBinarySet:
		return "BinarySet"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is one node of a record tree: a scalar, a homogeneous set, a list
// or a map of child values. The zero value is Null.
//
// Numbers are carried as decimal strings, exactly as DynamoDB transmits
// them, so no precision is lost on round trips.
type Value struct {
	kind Kind
	val  any
}

func String(s string) Value { return Value{kind: KindString, val: s} }

func Bool(b bool) Value { return Value{kind: KindBool, val: b} }

func Null() Value { return Value{kind: KindNull} }

func Binary(b []byte) Value { return Value{kind: KindBinary, val: b} }

// Number builds a numeric value from any integer or float type.
func Number[T constraints.Integer | constraints.Float](n T) Value {
	return Value{kind: KindNumber, val: formatNumber(n)}
}

// NumberString builds a numeric value from an already-formatted decimal
// string, for callers that need more precision than float64 carries.
func NumberString(s string) Value { return Value{kind: KindNumber, val: s} }

func StringSet(members ...string) Value {
	return Value{kind: KindStringSet, val: append([]string(nil), members...)}
}

func NumberSet(members ...string) Value {
	return Value{kind: KindNumberSet, val: append([]string(nil), members...)}
}

func BinarySet(members ...[]byte) Value {
	return Value{kind: KindBinarySet, val: append([][]byte(nil), members...)}
}

func List(elems ...Value) Value {
	return Value{kind: KindList, val: append([]Value(nil), elems...)}
}

func Map(children Document) Value {
	if children == nil {
		children = Document{}
	}
	return Value{kind: KindMap, val: children}
}

func formatNumber[T constraints.Integer | constraints.Float](n T) string {
	switch v := any(n).(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		// only integer kinds reach here; %v prints them in decimal and,
		// unlike %d, is valid for every type in the constraint
		return fmt.Sprintf("%v", n)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsMap() bool { return v.kind == KindMap }

// StringValue returns the string payload; ok is false for other kinds.
func (v Value) StringValue() (string, bool) {
	s, ok := v.val.(string)
	return s, ok && v.kind == KindString
}

// NumberValue returns the decimal string payload of a number.
func (v Value) NumberValue() (string, bool) {
	s, ok := v.val.(string)
	return s, ok && v.kind == KindNumber
}

func (v Value) BoolValue() (bool, bool) {
	b, ok := v.val.(bool)
	return b, ok && v.kind == KindBool
}

func (v Value) BinaryValue() ([]byte, bool) {
	b, ok := v.val.([]byte)
	return b, ok && v.kind == KindBinary
}

func (v Value) SetMembers() ([]string, bool) {
	s, ok := v.val.([]string)
	return s, ok && (v.kind == KindStringSet || v.kind == KindNumberSet)
}

func (v Value) BinarySetMembers() ([][]byte, bool) {
	b, ok := v.val.([][]byte)
	return b, ok && v.kind == KindBinarySet
}

func (v Value) ListElems() ([]Value, bool) {
	l, ok := v.val.([]Value)
	return l, ok && v.kind == KindList
}

// MapValue returns the child document of a map node.
func (v Value) MapValue() (Document, bool) {
	m, ok := v.val.(Document)
	return m, ok && v.kind == KindMap
}

// Equal reports deep equality of two values, including kind.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindNumber:
		return v.val.(string) == o.val.(string)
	case KindBool:
		return v.val.(bool) == o.val.(bool)
	case KindBinary:
		return bytes.Equal(v.val.([]byte), o.val.([]byte))
	case KindStringSet, KindNumberSet:
		return stringSlicesEqual(v.val.([]string), o.val.([]string))
	case KindBinarySet:
		a, b := v.val.([][]byte), o.val.([][]byte)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !bytes.Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case KindList:
		a, b := v.val.([]Value), o.val.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindMap:
		a, b := v.val.(Document), o.val.(Document)
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (v Value) Clone() Value {
	switch v.kind {
	case KindBinary:
		return Binary(append([]byte(nil), v.val.([]byte)...))
	case KindStringSet:
		return StringSet(v.val.([]string)...)
	case KindNumberSet:
		return NumberSet(v.val.([]string)...)
	case KindBinarySet:
		members := v.val.([][]byte)
		copied := make([][]byte, len(members))
		for i, m := range members {
			copied[i] = append([]byte(nil), m...)
		}
		return Value{kind: KindBinarySet, val: copied}
	case KindList:
		elems := v.val.([]Value)
		copied := make([]Value, len(elems))
		for i, e := range elems {
			copied[i] = e.Clone()
		}
		return Value{kind: KindList, val: copied}
	case KindMap:
		return Map(v.val.(Document).Clone())
	default:
		return v
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
