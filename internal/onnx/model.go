package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/binder"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/parallel"
)

// OpsetVersion returns the default-domain opset the model imports, or 0.
func (m *ModelProto) OpsetVersion() int64 {
	for _, opset := range m.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			return opset.Version
		}
	}
	return 0
}

// ExternalGraph converts the model graph into the format-neutral form the
// binder imports. Initializers and Constant nodes become constants; Constant
// nodes are not kept as nodes.
func (m *ModelProto) ExternalGraph() (*binder.ExternalGraph, error) {
	if m.Graph == nil {
		return nil, errors.New("model has no graph")
	}
	g := m.Graph

	out := &binder.ExternalGraph{
		Format:    mapping.FormatONNX,
		Name:      g.Name,
		Inputs:    slices.Clone(g.Inputs),
		Outputs:   slices.Clone(g.Outputs),
		Constants: make(map[string]attr.Value, len(g.Initializers)),
		Nodes:     make([]binder.Node, 0, len(g.Nodes)),
	}

	for i := range g.Initializers {
		t := &g.Initializers[i]
		v, err := TensorValue(t)
		if err != nil {
			return nil, fmt.Errorf("initializer %q: %w", t.Name, err)
		}
		out.Constants[t.Name] = v
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		attrs, err := Attributes(node.Attributes)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): %w", node.Name, node.OpType, err)
		}

		if node.OpType == "Constant" && (node.Domain == "" || node.Domain == "ai.onnx") {
			v, err := constantValue(node, attrs)
			if err != nil {
				return nil, fmt.Errorf("node %q (Constant): %w", node.Name, err)
			}
			out.Constants[node.Outputs[0]] = v
			continue
		}

		out.Nodes = append(out.Nodes, binder.Node{
			Name:    node.Name,
			OpType:  node.OpType,
			Domain:  node.Domain,
			Inputs:  slices.Clone(node.Inputs),
			Outputs: slices.Clone(node.Outputs),
			Attrs:   attrs,
		})
	}

	return out, nil
}

// constantAttrs are the mutually exclusive value attributes of a Constant node.
var constantAttrs = []string{
	"value", "value_float", "value_floats", "value_int", "value_ints", "value_string", "value_strings",
}

func constantValue(node *NodeProto, attrs attr.Bag) (attr.Value, error) {
	if len(node.Outputs) == 0 {
		return attr.Value{}, errors.New("no output")
	}
	for _, name := range constantAttrs {
		if v, ok := attrs.Get(name); ok {
			return v, nil
		}
	}
	return attr.Value{}, fmt.Errorf("no value attribute (want one of %v)", constantAttrs)
}

// Attributes converts node attributes into a bag. Graph-valued attributes
// are not representable and are left out.
func Attributes(attrs []AttributeProto) (attr.Bag, error) {
	bag := make(attr.Bag, len(attrs))
	for i := range attrs {
		a := &attrs[i]
		var v attr.Value
		switch a.Type {
		case AttributeProtoFloat:
			v = attr.Float(float64(a.F))
		case AttributeProtoInt:
			v = attr.Int(a.I)
		case AttributeProtoString:
			v = attr.String(string(a.S))
		case AttributeProtoFloats:
			v = attr.Floats(widen(a.Floats)...)
		case AttributeProtoInts:
			v = attr.Ints(a.Ints...)
		case AttributeProtoStrings:
			s := make([]string, len(a.Strings))
			for j, b := range a.Strings {
				s[j] = string(b)
			}
			v = attr.Strings(s...)
		case AttributeProtoTensor:
			if a.T == nil {
				return nil, fmt.Errorf("attribute %q: empty tensor", a.Name)
			}
			tv, err := TensorValue(a.T)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
			}
			v = tv
		case AttributeProtoGraph:
			continue
		default:
			return nil, fmt.Errorf("attribute %q: unsupported type %d", a.Name, a.Type)
		}
		bag[a.Name] = v
	}
	return bag, nil
}

// TensorValue converts a constant tensor into a list Value; a tensor without
// dims holding one element becomes a scalar.
//
//nolint:gocyclo,cyclop // One case per data type.
func TensorValue(t *TensorProto) (attr.Value, error) {
	raw := len(t.RawData) > 0
	var v attr.Value
	switch t.DataType {
	case TensorProtoFloat:
		if raw {
			f, err := rawFloat32s(t.RawData)
			if err != nil {
				return attr.Value{}, err
			}
			v = attr.Floats(widen(f)...)
		} else {
			v = attr.Floats(widen(t.FloatData)...)
		}
	case TensorProtoDouble:
		if raw {
			f, err := rawFloat64s(t.RawData)
			if err != nil {
				return attr.Value{}, err
			}
			v = attr.Floats(f...)
		} else {
			v = attr.Floats(t.DoubleData...)
		}
	case TensorProtoInt64:
		if raw {
			ints, err := rawInts(t.RawData, t.DataType)
			if err != nil {
				return attr.Value{}, err
			}
			v = attr.Ints(ints...)
		} else {
			v = attr.Ints(t.Int64Data...)
		}
	case TensorProtoInt32, TensorProtoInt16, TensorProtoInt8, TensorProtoUint16, TensorProtoUint8, TensorProtoBool:
		if raw {
			ints, err := rawInts(t.RawData, t.DataType)
			if err != nil {
				return attr.Value{}, err
			}
			v = attr.Ints(ints...)
		} else {
			ints := make([]int64, len(t.Int32Data))
			for i, x := range t.Int32Data {
				ints[i] = int64(x)
			}
			v = attr.Ints(ints...)
		}
	default:
		return attr.Value{}, fmt.Errorf("unsupported tensor data type %d", t.DataType)
	}

	if want := numElements(t.Dims); want != v.Len() {
		return attr.Value{}, fmt.Errorf("shape %v holds %d elements, data has %d", t.Dims, want, v.Len())
	}
	if len(t.Dims) == 0 {
		e, _ := v.Element(0)
		return e, nil
	}
	return v, nil
}

func elementSize(dataType int32) int {
	switch dataType {
	case TensorProtoInt64:
		return 8
	case TensorProtoInt32:
		return 4
	case TensorProtoInt16, TensorProtoUint16:
		return 2
	default:
		return 1
	}
}

// rawInts decodes little-endian integer elements of dataType.
func rawInts(b []byte, dataType int32) ([]int64, error) {
	size := elementSize(dataType)
	if len(b)%size != 0 {
		return nil, fmt.Errorf("raw data: %d bytes is not a multiple of %d", len(b), size)
	}
	var decode func(e []byte) int64
	switch dataType {
	case TensorProtoInt64:
		decode = func(e []byte) int64 { return int64(binary.LittleEndian.Uint64(e)) } //nolint:gosec // G115: two's complement.
	case TensorProtoInt32:
		decode = func(e []byte) int64 { return int64(int32(binary.LittleEndian.Uint32(e))) } //nolint:gosec // G115: two's complement.
	case TensorProtoInt16:
		decode = func(e []byte) int64 { return int64(int16(binary.LittleEndian.Uint16(e))) } //nolint:gosec // G115: two's complement.
	case TensorProtoUint16:
		decode = func(e []byte) int64 { return int64(binary.LittleEndian.Uint16(e)) }
	case TensorProtoInt8:
		decode = func(e []byte) int64 { return int64(int8(e[0])) } //nolint:gosec // G115: two's complement.
	default:
		decode = func(e []byte) int64 { return int64(e[0]) }
	}
	return parallel.Decode(len(b)/size, func(i int) int64 {
		return decode(b[size*i:])
	}, parallel.DefaultConfig()), nil
}

func rawFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("raw data: %d bytes is not a multiple of 4", len(b))
	}
	return parallel.Decode(len(b)/4, func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}, parallel.DefaultConfig()), nil
}

func rawFloat64s(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("raw data: %d bytes is not a multiple of 8", len(b))
	}
	return parallel.Decode(len(b)/8, func(i int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}, parallel.DefaultConfig()), nil
}

func widen(f []float32) []float64 {
	out := make([]float64, len(f))
	for i, x := range f {
		out[i] = float64(x)
	}
	return out
}

func numElements(dims []int64) int {
	n := 1
	for _, d := range dims {
		n *= int(d)
	}
	return n
}
