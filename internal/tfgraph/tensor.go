package tfgraph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/parallel"
	"github.com/born-ml/opbind/internal/wire"
)

// tensorProto holds the TensorProto fields constants use.
type tensorProto struct {
	dtype   int64
	dims    []int64
	content []byte
	floats  []float64 // float_val, double_val
	ints    []int64   // int_val, int64_val, bool_val
}

// TensorValue decodes an encoded TensorProto into a Value. A scalar shape
// yields a scalar. Shorter *_val lists are padded with their last element and
// an empty tensor is all zeros, as TensorFlow does.
func TensorValue(b []byte) (attr.Value, error) {
	t, err := readTensorProto(b)
	if err != nil {
		return attr.Value{}, err
	}

	n, err := numElements(t.dims)
	if err != nil {
		return attr.Value{}, err
	}

	var v attr.Value
	switch t.dtype {
	case DTFloat, DTDouble:
		vals := t.floats
		if len(t.content) > 0 {
			if vals, err = decodeFloats(t.content, t.dtype); err != nil {
				return attr.Value{}, err
			}
		}
		v = attr.Floats(pad(vals, n)...)
	case DTInt32, DTInt64, DTInt16, DTInt8, DTUint8, DTBool:
		vals := t.ints
		if len(t.content) > 0 {
			if vals, err = decodeInts(t.content, t.dtype); err != nil {
				return attr.Value{}, err
			}
		}
		v = attr.Ints(pad(vals, n)...)
	default:
		return attr.Value{}, fmt.Errorf("unsupported tensor dtype %d", t.dtype)
	}

	if v.Len() != n {
		return attr.Value{}, fmt.Errorf("shape %v holds %d elements, data has %d", t.dims, n, v.Len())
	}
	if len(t.dims) == 0 {
		e, _ := v.Element(0)
		return e, nil
	}
	return v, nil
}

// MaxConstantElements bounds the element count of a decoded constant. Shapes
// are checked against it before short value lists are expanded.
const MaxConstantElements = 1 << 24

func numElements(dims []int64) (int, error) {
	n := int64(1)
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("constant with unknown dimension in shape %v", dims)
		}
		if d > 0 && n > MaxConstantElements/d {
			return 0, fmt.Errorf("constant of shape %v exceeds %d elements", dims, MaxConstantElements)
		}
		n *= d
	}
	if n > MaxConstantElements {
		return 0, fmt.Errorf("constant of shape %v exceeds %d elements", dims, MaxConstantElements)
	}
	return int(n), nil
}

func readTensorProto(b []byte) (*tensorProto, error) {
	t := &tensorProto{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // dtype
			t.dtype, err = f.Int64()
		case 2: // tensor_shape
			var shape []byte
			if shape, err = f.Bytes(); err == nil {
				t.dims, err = readShape(shape)
			}
		case 4: // tensor_content
			t.content, err = f.Bytes()
		case 5: // float_val
			var v []float32
			if v, err = f.Float32s(); err == nil {
				for _, x := range v {
					t.floats = append(t.floats, float64(x))
				}
			}
		case 6: // double_val
			var v []float64
			if v, err = f.Float64s(); err == nil {
				t.floats = append(t.floats, v...)
			}
		case 7, 10, 11: // int_val, int64_val, bool_val
			var v []int64
			if v, err = f.Int64s(); err == nil {
				t.ints = append(t.ints, v...)
			}
		}
		return err
	})
	return t, err
}

// readShape reads TensorShapeProto dims. Unknown sizes (-1) are kept.
func readShape(b []byte) ([]int64, error) {
	var dims []int64
	err := wire.ForEachField(b, func(f wire.Field) error {
		if f.Num != 2 { // dim
			return nil
		}
		dim, err := f.Bytes()
		if err != nil {
			return err
		}
		var size int64
		err = wire.ForEachField(dim, func(f wire.Field) error {
			if f.Num != 1 { // size
				return nil
			}
			v, err := f.Int64()
			size = v
			return err
		})
		dims = append(dims, size)
		return err
	})
	return dims, err
}

func pad[T any](vals []T, n int) []T {
	if len(vals) >= n {
		return vals
	}
	out := make([]T, n)
	if len(vals) == 0 {
		return out
	}
	copy(out, vals)
	for i := len(vals); i < n; i++ {
		out[i] = vals[len(vals)-1]
	}
	return out
}

func decodeFloats(b []byte, dtype int64) ([]float64, error) {
	size := 4
	if dtype == DTDouble {
		size = 8
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("tensor content: %d bytes is not a multiple of %d", len(b), size)
	}
	return parallel.Decode(len(b)/size, func(i int) float64 {
		if size == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}, parallel.DefaultConfig()), nil
}

func decodeInts(b []byte, dtype int64) ([]int64, error) {
	size := 1
	switch dtype {
	case DTInt64:
		size = 8
	case DTInt32:
		size = 4
	case DTInt16:
		size = 2
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("tensor content: %d bytes is not a multiple of %d", len(b), size)
	}
	return parallel.Decode(len(b)/size, func(i int) int64 {
		e := b[size*i:]
		switch dtype {
		case DTInt64:
			return int64(binary.LittleEndian.Uint64(e)) //nolint:gosec // G115: two's complement.
		case DTInt32:
			return int64(int32(binary.LittleEndian.Uint32(e))) //nolint:gosec // G115: two's complement.
		case DTInt16:
			return int64(int16(binary.LittleEndian.Uint16(e))) //nolint:gosec // G115: two's complement.
		case DTInt8:
			return int64(int8(e[0])) //nolint:gosec // G115: two's complement.
		default:
			return int64(e[0])
		}
	}, parallel.DefaultConfig()), nil
}
