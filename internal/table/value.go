// Package table implements the in-memory tabular model shared by all
// screening stages: ordered columns, row-major storage, and an explicit
// absent-value scalar that is distinct from numeric zero.
package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type of a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a nullable scalar cell. The zero value is Absent.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Absent is the missing-value sentinel. It propagates through arithmetic
// and scores as zero points; it is never equal to a numeric zero.
var Absent = Value{}

// Number returns a numeric Value. Non-finite inputs collapse to Absent so
// NaN and Inf never enter a table.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Absent
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a textual Value. Empty strings are Absent.
func Text(s string) Value {
	if s == "" {
		return Absent
	}
	return Value{kind: KindText, str: s}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind reports the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value is missing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Float coerces the value to a float64. Text values parse leniently
// (surrounding whitespace ignored), booleans coerce to 0/1. The second
// return is false for absent or unparseable values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// True reports whether the value is a boolean true.
func (v Value) True() bool { return v.kind == KindBool && v.b }

// String renders the value for export. Absent renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}
