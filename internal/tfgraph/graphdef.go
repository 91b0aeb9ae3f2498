// Package tfgraph decodes TensorFlow GraphDef protobufs into external graphs
// the binder imports.
//
// Const nodes are folded into constants, Placeholder nodes become graph
// inputs, and every other node is handed to the binder with its attribute map
// converted to an attribute bag. Nodes nobody consumes are the graph outputs.
package tfgraph

import (
	"fmt"
	"os"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/wire"
)

// GraphDef is a decoded TensorFlow graph.
type GraphDef struct {
	Nodes    []NodeDef
	Producer int64 // versions.producer
}

// NodeDef is a decoded TensorFlow node.
type NodeDef struct {
	Name   string
	Op     string
	Inputs []string // "name", "name:port" or "^control"
	Device string
	Attrs  attr.Bag
}

// TensorFlow data types (DataType enum).
const (
	DTFloat  = 1
	DTDouble = 2
	DTInt32  = 3
	DTUint8  = 4
	DTInt16  = 5
	DTInt8   = 6
	DTString = 7
	DTInt64  = 9
	DTBool   = 10
)

// ParseFile parses a binary GraphDef from file.
//
//nolint:gosec // G304: Path is provided by user.
func ParseFile(path string) (*GraphDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses a binary GraphDef.
func Parse(data []byte) (*GraphDef, error) {
	g := &GraphDef{}
	err := wire.ForEachField(data, func(f wire.Field) error {
		switch f.Num {
		case 1: // node
			b, err := f.Bytes()
			if err != nil {
				return err
			}
			n, err := readNodeDef(b)
			if err != nil {
				return err
			}
			g.Nodes = append(g.Nodes, *n)
		case 4: // versions
			b, err := f.Bytes()
			if err != nil {
				return err
			}
			return wire.ForEachField(b, func(f wire.Field) error {
				if f.Num != 1 {
					return nil
				}
				v, err := f.Int64()
				g.Producer = v
				return err
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return g, nil
}

func readNodeDef(b []byte) (*NodeDef, error) {
	n := &NodeDef{Attrs: attr.Bag{}}
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // name
			n.Name, err = f.String()
		case 2: // op
			n.Op, err = f.String()
		case 3: // input
			var s string
			if s, err = f.String(); err == nil {
				n.Inputs = append(n.Inputs, s)
			}
		case 4: // device
			n.Device, err = f.String()
		case 5: // attr map entry
			var entry []byte
			if entry, err = f.Bytes(); err == nil {
				err = readAttrEntry(entry, n.Attrs)
			}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.Name, err)
	}
	return n, nil
}

// readAttrEntry reads one map<string, AttrValue> entry into bag. Values with no
// attribute representation (shapes, functions, placeholders) are left out.
func readAttrEntry(b []byte, bag attr.Bag) error {
	var (
		key   string
		value attr.Value
		ok    bool
	)
	err := wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			key, err = f.String()
		case 2:
			var v []byte
			if v, err = f.Bytes(); err == nil {
				value, ok, err = readAttrValue(v)
			}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("attr %q: %w", key, err)
	}
	if ok {
		bag[key] = value
	}
	return nil
}

//nolint:gocyclo,cyclop // One case per AttrValue field.
func readAttrValue(b []byte) (v attr.Value, ok bool, err error) {
	err = wire.ForEachField(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1: // list
			var list []byte
			if list, err = f.Bytes(); err == nil {
				v, err = readListValue(list)
				ok = err == nil
			}
		case 2: // s
			var s string
			s, err = f.String()
			v, ok = attr.String(s), true
		case 3: // i
			var i int64
			i, err = f.Int64()
			v, ok = attr.Int(i), true
		case 4: // f
			var x float32
			x, err = f.Float32()
			v, ok = attr.Float(float64(x)), true
		case 5: // b
			var x bool
			x, err = f.Bool()
			v, ok = attr.Bool(x), true
		case 6: // type
			var t int64
			t, err = f.Int64()
			v, ok = attr.Int(t), true
		case 8: // tensor
			var t []byte
			if t, err = f.Bytes(); err == nil {
				v, err = TensorValue(t)
				ok = err == nil
			}
		}
		return err
	})
	return v, ok, err
}

// readListValue reads an AttrValue.ListValue. The first non-empty element
// type wins; an empty list is an empty int list.
func readListValue(b []byte) (attr.Value, error) {
	var (
		strs   []string
		ints   []int64
		floats []float64
	)
	err := wire.ForEachField(b, func(f wire.Field) error {
		switch f.Num {
		case 2: // s
			s, err := f.String()
			strs = append(strs, s)
			return err
		case 3, 5, 6: // i, b, type
			v, err := f.Int64s()
			ints = append(ints, v...)
			return err
		case 4: // f
			v, err := f.Float32s()
			for _, x := range v {
				floats = append(floats, float64(x))
			}
			return err
		}
		return nil
	})
	switch {
	case err != nil:
		return attr.Value{}, err
	case len(strs) > 0:
		return attr.Strings(strs...), nil
	case len(floats) > 0:
		return attr.Floats(floats...), nil
	default:
		return attr.Ints(ints...), nil
	}
}
