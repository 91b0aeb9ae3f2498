// Package attr provides the typed attribute bag an external graph node carries.
//
// A Value is a tagged union over the attribute types both supported interchange
// formats can express: string, int, float, bool and homogeneous lists of them.
// Values are compared and converted by Kind; no reflection is involved.
package attr

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind int

// Attribute kinds.
const (
	KindUndefined Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStrings
	KindInts
	KindFloats
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindString:    "string",
	KindInt:       "int",
	KindFloat:     "float",
	KindBool:      "bool",
	KindStrings:   "strings",
	KindInts:      "ints",
	KindFloats:    "floats",
}

// String returns the kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// IsList reports whether k is a list kind.
func (k Kind) IsList() bool {
	return k == KindStrings || k == KindInts || k == KindFloats
}

// Value is a single typed attribute value. Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	S       string
	I       int64
	F       float64
	B       bool
	Strings []string
	Ints    []int64
	Floats  []float64
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Int returns an int Value.
func Int(i int64) Value { return Value{Kind: KindInt, I: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Strings returns a string list Value.
func Strings(s ...string) Value { return Value{Kind: KindStrings, Strings: slices.Clone(s)} }

// Ints returns an int list Value.
func Ints(i ...int64) Value { return Value{Kind: KindInts, Ints: slices.Clone(i)} }

// Floats returns a float list Value.
func Floats(f ...float64) Value { return Value{Kind: KindFloats, Floats: slices.Clone(f)} }

// IsZero reports whether v holds no value.
func (v Value) IsZero() bool {
	return v.Kind == KindUndefined
}

// Len returns the number of elements: list length for list kinds, 1 for scalars.
func (v Value) Len() int {
	switch v.Kind {
	case KindUndefined:
		return 0
	case KindStrings:
		return len(v.Strings)
	case KindInts:
		return len(v.Ints)
	case KindFloats:
		return len(v.Floats)
	default:
		return 1
	}
}

// Element returns element i of a list Value as a scalar.
// A scalar Value is its own element 0.
func (v Value) Element(i int) (Value, bool) {
	if i < 0 || i >= v.Len() {
		return Value{}, false
	}
	switch v.Kind {
	case KindStrings:
		return String(v.Strings[i]), true
	case KindInts:
		return Int(v.Ints[i]), true
	case KindFloats:
		return Float(v.Floats[i]), true
	default:
		return v, true
	}
}

// Convert returns v as kind k.
//
// Conversions are the lossless ones the interchange formats rely on: ints widen
// to floats and integral floats narrow to ints. Bools and 0/1 ints are
// interchangeable (ONNX has no bool attribute). A one-element list narrows to
// its scalar and a scalar widens to a one-element list.
//
//nolint:gocyclo,cyclop // One case per target kind.
func (v Value) Convert(k Kind) (Value, bool) {
	if v.Kind == k {
		return v, true
	}
	if !k.IsList() && v.Kind.IsList() {
		if v.Len() != 1 {
			return Value{}, false
		}
		e, _ := v.Element(0)
		return e.Convert(k)
	}

	switch k {
	case KindInt:
		switch v.Kind {
		case KindBool:
			if v.B {
				return Int(1), true
			}
			return Int(0), true
		case KindFloat:
			if v.F == math.Trunc(v.F) && math.Abs(v.F) < 1<<53 {
				return Int(int64(v.F)), true
			}
		}
	case KindFloat:
		if v.Kind == KindInt {
			return Float(float64(v.I)), true
		}
	case KindBool:
		if v.Kind == KindInt && (v.I == 0 || v.I == 1) {
			return Bool(v.I == 1), true
		}
	case KindStrings:
		if v.Kind == KindString {
			return Strings(v.S), true
		}
	case KindInts:
		if v.Kind == KindInt {
			return Ints(v.I), true
		}
	case KindFloats:
		switch v.Kind {
		case KindFloat:
			return Floats(v.F), true
		case KindInt:
			return Floats(float64(v.I)), true
		case KindInts:
			out := make([]float64, len(v.Ints))
			for i, x := range v.Ints {
				out[i] = float64(x)
			}
			return Value{Kind: KindFloats, Floats: out}, true
		}
	}
	return Value{}, false
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.S == o.S
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindBool:
		return v.B == o.B
	case KindStrings:
		return slices.Equal(v.Strings, o.Strings)
	case KindInts:
		return slices.Equal(v.Ints, o.Ints)
	case KindFloats:
		return slices.Equal(v.Floats, o.Floats)
	default:
		return true
	}
}

// String formats the value for logs and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.S)
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindStrings:
		quoted := make([]string, len(v.Strings))
		for i, s := range v.Strings {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	case KindInts:
		return fmt.Sprint(v.Ints)
	case KindFloats:
		return fmt.Sprint(v.Floats)
	default:
		return "<undefined>"
	}
}
