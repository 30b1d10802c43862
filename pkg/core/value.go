package core

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindBool
	KindTime
	KindBytes
	KindList
)

var kindNames = [...]string{
	KindNull:    "null",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindString:  "string",
	KindBool:    "bool",
	KindTime:    "time",
	KindBytes:   "bytes",
	KindList:    "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a typed cell value. The zero Value is null.
type Value struct {
	kind  Kind
	i     int64
	f     float64
	s     string
	b     bool
	t     time.Time
	raw   []byte
	elem  Kind
	items []Value
}

// Null returns the missing/null marker.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Decimal returns an exact numeric value held by its canonical text.
func Decimal(text string) Value { return Value{kind: KindDecimal, s: canonicalDecimal(text)} }

// String returns a text value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time returns a date/time value.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// Bytes returns a byte array value. The slice is copied.
func Bytes(v []byte) Value {
	if v == nil {
		return Null()
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, raw: cp}
}

// List returns an array value whose items all share the element kind.
// Null items are allowed.
func List(elem Kind, items ...Value) (Value, error) {
	for n, it := range items {
		if !it.IsNull() && it.kind != elem {
			return Null(), fmt.Errorf("list item %d is %s, expected %s", n, it.kind, elem)
		}
	}
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, elem: elem, items: cp}, nil
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null marker.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the text payload of a string or decimal value.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString || v.kind == KindDecimal
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the time payload.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// AsBytes returns the byte array payload.
func (v Value) AsBytes() ([]byte, bool) { return v.raw, v.kind == KindBytes }

// Items returns the element kind and items of a list value.
func (v Value) Items() (Kind, []Value, bool) { return v.elem, v.items, v.kind == KindList }

// Equal is the comparison rule used by the value differ. Two values are equal
// when both are null, both are scalars of the same kind with equal payloads,
// or both are arrays of the same element kind and length with equal elements.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindInt:
		return a.i == b.i
	case KindFloat:
		if math.IsNaN(a.f) && math.IsNaN(b.f) {
			return true
		}
		return a.f == b.f
	case KindDecimal, KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindTime:
		return a.t.Equal(b.t)
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindList:
		if a.elem != b.elem || len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String formats the value for messages. Null renders as "NULL".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDecimal, KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format("2006-01-02 15:04:05.9999999")
	case KindBytes:
		return fmt.Sprintf("0x%X", v.raw)
	case KindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

// canonicalDecimal strips a leading plus sign and redundant zeros so that
// 1.50 and 1.5 compare equal.
func canonicalDecimal(text string) string {
	s := strings.TrimSpace(text)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if hasFrac {
		frac = strings.TrimRight(frac, "0")
	}
	out := intPart
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}
