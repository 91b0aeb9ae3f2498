package onnx

import (
	"fmt"
	"os"

	"github.com/born-ml/opbind/internal/wire"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for ONNX model loading
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	model, err := readModelProto(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

func readModelProto(b []byte) (*ModelProto, error) {
	m := &ModelProto{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // ir_version
			m.IRVersion, err = f.Int64()
		case 2: // producer_name
			m.ProducerName, err = f.String()
		case 3: // producer_version
			m.ProducerVersion, err = f.String()
		case 5: // model_version
			m.ModelVersion, err = f.Int64()
		case 7: // graph
			m.Graph, err = readEmbedded(f, readGraphProto)
		case 8: // opset_import
			var opset *OperatorSetID
			if opset, err = readEmbedded(f, readOperatorSetID); err == nil {
				m.OpsetImport = append(m.OpsetImport, *opset)
			}
		}
		return err
	})
	return m, err
}

func readOperatorSetID(b []byte) (*OperatorSetID, error) {
	m := &OperatorSetID{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // domain
			m.Domain, err = f.String()
		case 2: // version
			m.Version, err = f.Int64()
		}
		return err
	})
	return m, err
}

func readGraphProto(b []byte) (*GraphProto, error) {
	m := &GraphProto{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // node
			var node *NodeProto
			if node, err = readEmbedded(f, readNodeProto); err == nil {
				m.Nodes = append(m.Nodes, *node)
			}
		case 2: // name
			m.Name, err = f.String()
		case 5: // initializer
			var t *TensorProto
			if t, err = readEmbedded(f, readTensorProto); err == nil {
				m.Initializers = append(m.Initializers, *t)
			}
		case 11: // input
			var name string
			if name, err = readValueInfoName(f); err == nil {
				m.Inputs = append(m.Inputs, name)
			}
		case 12: // output
			var name string
			if name, err = readValueInfoName(f); err == nil {
				m.Outputs = append(m.Outputs, name)
			}
		}
		return err
	})
	return m, err
}

// readValueInfoName reads the name of a ValueInfoProto; type info is not needed.
func readValueInfoName(f wire.Field) (string, error) {
	b, err := f.Bytes()
	if err != nil {
		return "", err
	}
	var name string
	err = wire.ForEachField(b, func(f wire.Field) error {
		if f.Num != 1 {
			return nil
		}
		s, err := f.String()
		name = s
		return err
	})
	return name, err
}

func readNodeProto(b []byte) (*NodeProto, error) {
	m := &NodeProto{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // input
			var s string
			if s, err = f.String(); err == nil {
				m.Inputs = append(m.Inputs, s)
			}
		case 2: // output
			var s string
			if s, err = f.String(); err == nil {
				m.Outputs = append(m.Outputs, s)
			}
		case 3: // name
			m.Name, err = f.String()
		case 4: // op_type
			m.OpType, err = f.String()
		case 5: // attribute
			var a *AttributeProto
			if a, err = readEmbedded(f, readAttributeProto); err == nil {
				m.Attributes = append(m.Attributes, *a)
			}
		case 7: // domain
			m.Domain, err = f.String()
		}
		return err
	})
	return m, err
}

// readAttributeProto reads an AttributeProto. Producers older than IR version 2
// leave type unset; it is then inferred from the value field present.
//
//nolint:gocyclo,cyclop // One case per value field.
func readAttributeProto(b []byte) (*AttributeProto, error) {
	m := &AttributeProto{}
	var seen int32
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // name
			m.Name, err = f.String()
		case 2: // f
			m.F, err = f.Float32()
			seen = AttributeProtoFloat
		case 3: // i
			m.I, err = f.Int64()
			seen = AttributeProtoInt
		case 4: // s
			m.S, err = f.Bytes()
			seen = AttributeProtoString
		case 5: // t
			m.T, err = readEmbedded(f, readTensorProto)
			seen = AttributeProtoTensor
		case 6: // g
			seen = AttributeProtoGraph
		case 7: // floats
			var v []float32
			if v, err = f.Float32s(); err == nil {
				m.Floats = append(m.Floats, v...)
			}
			seen = AttributeProtoFloats
		case 8: // ints
			var v []int64
			if v, err = f.Int64s(); err == nil {
				m.Ints = append(m.Ints, v...)
			}
			seen = AttributeProtoInts
		case 9: // strings
			var s []byte
			if s, err = f.Bytes(); err == nil {
				m.Strings = append(m.Strings, s)
			}
			seen = AttributeProtoStrings
		case 20: // type
			var t int64
			t, err = f.Int64()
			m.Type = int32(t) //nolint:gosec // G115: enum value.
		}
		return err
	})
	if m.Type == AttributeProtoUndefined {
		m.Type = seen
	}
	return m, err
}

//nolint:gocyclo,cyclop // One case per data field.
func readTensorProto(b []byte) (*TensorProto, error) {
	m := &TensorProto{}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // dims
			var v []int64
			if v, err = f.Int64s(); err == nil {
				m.Dims = append(m.Dims, v...)
			}
		case 2: // data_type
			var t int64
			t, err = f.Int64()
			m.DataType = int32(t) //nolint:gosec // G115: enum value.
		case 4: // float_data
			var v []float32
			if v, err = f.Float32s(); err == nil {
				m.FloatData = append(m.FloatData, v...)
			}
		case 5: // int32_data
			var v []int64
			if v, err = f.Int64s(); err == nil {
				for _, x := range v {
					m.Int32Data = append(m.Int32Data, int32(x)) //nolint:gosec // G115: ONNX protobuf varint fits in int32.
				}
			}
		case 7: // int64_data
			var v []int64
			if v, err = f.Int64s(); err == nil {
				m.Int64Data = append(m.Int64Data, v...)
			}
		case 8: // name
			m.Name, err = f.String()
		case 9: // raw_data
			m.RawData, err = f.Bytes()
		case 10: // double_data
			var v []float64
			if v, err = f.Float64s(); err == nil {
				m.DoubleData = append(m.DoubleData, v...)
			}
		}
		return err
	})
	return m, err
}

// readEmbedded decodes an embedded message field with read.
func readEmbedded[T any](f wire.Field, read func([]byte) (*T, error)) (*T, error) {
	b, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	return read(b)
}
