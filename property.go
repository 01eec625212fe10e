// Package cambium is a type-driven data-conversion route planner. A caller
// declares the properties of data it has and a pattern for the data it
// wants; the planner searches a graph of registered converters for a
// minimum-cost plan, and an executor runs that plan, fanning out, fanning
// in, or batching as the plan requires, subject to a memory budget.
package cambium

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
)

// Kind tags the variant held by a PropertyValue.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// PropertyValue is a tagged scalar. Equality is structural; ordering is
// not defined across variants. Floats compare bitwise, so NaN is never
// equal to anything, including itself.
type PropertyValue struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	b    bool
	byt  []byte
}

// Null returns the null PropertyValue.
func Null() PropertyValue { return PropertyValue{kind: KindNull} }

// String wraps a string value.
func String(s string) PropertyValue { return PropertyValue{kind: KindString, str: s} }

// Integer wraps an int64 value.
func Integer(i int64) PropertyValue { return PropertyValue{kind: KindInteger, i64: i} }

// Float wraps a float64 value.
func Float(f float64) PropertyValue { return PropertyValue{kind: KindFloat, f64: f} }

// Bool wraps a bool value.
func Bool(b bool) PropertyValue { return PropertyValue{kind: KindBool, b: b} }

// Bytes wraps a byte slice value. The slice is copied so the PropertyValue
// is safe to retain past the caller's mutation of its argument.
func Bytes(b []byte) PropertyValue {
	cp := make([]byte, len(b))
	copy(cp, b)
	return PropertyValue{kind: KindBytes, byt: cp}
}

// Kind reports which variant is held.
func (v PropertyValue) Kind() Kind { return v.kind }

// AsString returns the string payload and whether v holds a string.
func (v PropertyValue) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInteger returns the int64 payload and whether v holds an integer.
func (v PropertyValue) AsInteger() (int64, bool) { return v.i64, v.kind == KindInteger }

// AsFloat returns the float64 payload and whether v holds a float.
func (v PropertyValue) AsFloat() (float64, bool) { return v.f64, v.kind == KindFloat }

// AsBool returns the bool payload and whether v holds a bool.
func (v PropertyValue) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsBytes returns the byte payload and whether v holds bytes. The returned
// slice is a copy.
func (v PropertyValue) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	cp := make([]byte, len(v.byt))
	copy(cp, v.byt)
	return cp, true
}

// IsNull reports whether v holds the null variant.
func (v PropertyValue) IsNull() bool { return v.kind == KindNull }

// Equal reports structural equality. Floats are compared bitwise: NaN is
// never equal to anything, and +0 and -0 differ in their bit pattern but
// not their ordinary float equality, so we compare the IEEE-754 bit
// pattern directly rather than using `==`.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInteger:
		return v.i64 == other.i64
	case KindFloat:
		if math.IsNaN(v.f64) || math.IsNaN(other.f64) {
			return false
		}
		return math.Float64bits(v.f64) == math.Float64bits(other.f64)
	case KindBool:
		return v.b == other.b
	case KindBytes:
		if len(v.byt) != len(other.byt) {
			return false
		}
		for i := range v.byt {
			if v.byt[i] != other.byt[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a human-readable form, primarily for error messages and
// trace output.
func (v PropertyValue) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindInteger:
		return fmt.Sprintf("%d", v.i64)
	case KindFloat:
		return fmt.Sprintf("%g", v.f64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindBytes:
		if len(v.byt) > 16 {
			return fmt.Sprintf("bytes(%d)", len(v.byt))
		}
		return fmt.Sprintf("%x", v.byt)
	default:
		return "?"
	}
}

// gobPropertyValue is the exported shape PropertyValue (un)marshals
// through, since encoding/gob cannot see unexported struct fields
// directly. Used by overlay/planstore to persist plans across runs.
type gobPropertyValue struct {
	Kind Kind
	Str  string
	I64  int64
	F64  float64
	B    bool
	Byt  []byte
}

// GobEncode implements gob.GobEncoder.
func (v PropertyValue) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gobPropertyValue{
		Kind: v.kind, Str: v.str, I64: v.i64, F64: v.f64, B: v.b, Byt: v.byt,
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (v *PropertyValue) GobDecode(data []byte) error {
	var g gobPropertyValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	v.kind, v.str, v.i64, v.f64, v.b, v.byt = g.Kind, g.Str, g.I64, g.F64, g.B, g.Byt
	return nil
}
