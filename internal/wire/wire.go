// Package wire walks protobuf-encoded messages field by field.
//
// The graph formats are decoded without generated code: each decoder switches
// on field numbers and pulls typed values out of a Field. Unknown fields are
// skipped.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one encoded field of a message.
type Field struct {
	Num  protowire.Number
	Type protowire.Type
	raw  []byte // Encoded value without the tag
}

// ForEachField calls fn for every field of the message encoded in b, in wire order.
func ForEachField(b []byte, fn func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("reading tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		if err := fn(Field{Num: num, Type: typ, raw: b[:m]}); err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		b = b[m:]
	}
	return nil
}

func (f Field) expect(typ protowire.Type) error {
	if f.Type != typ {
		return fmt.Errorf("wire type %d, want %d", f.Type, typ)
	}
	return nil
}

// Bytes returns a length-delimited value: bytes, a string or an embedded message.
func (f Field) Bytes() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(f.raw)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return v, nil
}

// String returns a string value.
func (f Field) String() (string, error) {
	b, err := f.Bytes()
	return string(b), err
}

// Uint64 returns a varint value.
func (f Field) Uint64() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

// Int64 returns an int64, int32 or enum value.
func (f Field) Int64() (int64, error) {
	v, err := f.Uint64()
	return int64(v), err //nolint:gosec // G115: two's complement reinterpretation is the wire encoding.
}

// Bool returns a bool value.
func (f Field) Bool() (bool, error) {
	v, err := f.Uint64()
	return v != 0, err
}

// Float32 returns a float value.
func (f Field) Float32() (float32, error) {
	if err := f.expect(protowire.Fixed32Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed32(f.raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return math.Float32frombits(v), nil
}

// Float64 returns a double value.
func (f Field) Float64() (float64, error) {
	if err := f.expect(protowire.Fixed64Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed64(f.raw)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return math.Float64frombits(v), nil
}

// Int64s returns the elements of a repeated integer field occurrence, packed or not.
func (f Field) Int64s() ([]int64, error) {
	if f.Type == protowire.VarintType {
		v, err := f.Int64()
		return []int64{v}, err
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	var out []int64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, int64(v)) //nolint:gosec // G115: see Int64.
		b = b[n:]
	}
	return out, nil
}

// Float32s returns the elements of a repeated float field occurrence, packed or not.
func (f Field) Float32s() ([]float32, error) {
	if f.Type == protowire.Fixed32Type {
		v, err := f.Float32()
		return []float32{v}, err
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("packed floats: %d bytes is not a multiple of 4", len(b))
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

// Float64s returns the elements of a repeated double field occurrence, packed or not.
func (f Field) Float64s() ([]float64, error) {
	if f.Type == protowire.Fixed64Type {
		v, err := f.Float64()
		return []float64{v}, err
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed doubles: %d bytes is not a multiple of 8", len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out, nil
}
