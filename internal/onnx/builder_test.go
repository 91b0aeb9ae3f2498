package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Helpers encoding ONNX messages for tests.

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v)) //nolint:gosec // test encoding
}

func intAttr(name string, v int64) []byte {
	var b []byte
	b = appendString(b, 1, name)
	b = appendVarint(b, 3, v)
	return appendVarint(b, 20, AttributeProtoInt)
}

func stringAttr(name, v string) []byte {
	var b []byte
	b = appendString(b, 1, name)
	b = appendString(b, 4, v)
	return appendVarint(b, 20, AttributeProtoString)
}

func floatAttr(name string, v float32) []byte {
	var b []byte
	b = appendString(b, 1, name)
	b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(v))
	return appendVarint(b, 20, AttributeProtoFloat)
}

func intsAttr(name string, v ...int64) []byte {
	var packed []byte
	for _, x := range v {
		packed = protowire.AppendVarint(packed, uint64(x)) //nolint:gosec // test encoding
	}
	var b []byte
	b = appendString(b, 1, name)
	b = appendMessage(b, 8, packed)
	return appendVarint(b, 20, AttributeProtoInts)
}

func tensorAttr(name string, tensor []byte) []byte {
	var b []byte
	b = appendString(b, 1, name)
	b = appendMessage(b, 5, tensor)
	return appendVarint(b, 20, AttributeProtoTensor)
}

func node(opType, name string, inputs, outputs []string, attrs ...[]byte) []byte {
	var b []byte
	for _, in := range inputs {
		b = appendString(b, 1, in)
	}
	for _, out := range outputs {
		b = appendString(b, 2, out)
	}
	b = appendString(b, 3, name)
	b = appendString(b, 4, opType)
	for _, a := range attrs {
		b = appendMessage(b, 5, a)
	}
	return b
}

func int64Tensor(name string, dims []int64, data ...int64) []byte {
	var b []byte
	for _, d := range dims {
		b = appendVarint(b, 1, d)
	}
	b = appendVarint(b, 2, TensorProtoInt64)
	var packed []byte
	for _, x := range data {
		packed = protowire.AppendVarint(packed, uint64(x)) //nolint:gosec // test encoding
	}
	b = appendMessage(b, 7, packed)
	if name != "" {
		b = appendString(b, 8, name)
	}
	return b
}

func floatTensor(name string, dims []int64, data ...float32) []byte {
	var b []byte
	for _, d := range dims {
		b = appendVarint(b, 1, d)
	}
	b = appendVarint(b, 2, TensorProtoFloat)
	var packed []byte
	for _, x := range data {
		packed = protowire.AppendFixed32(packed, math.Float32bits(x))
	}
	b = appendMessage(b, 4, packed)
	if name != "" {
		b = appendString(b, 8, name)
	}
	return b
}

func rawTensor(name string, dataType int64, dims []int64, raw []byte) []byte {
	var b []byte
	for _, d := range dims {
		b = appendVarint(b, 1, d)
	}
	b = appendVarint(b, 2, dataType)
	b = appendString(b, 8, name)
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	return protowire.AppendBytes(b, raw)
}

func valueInfo(name string) []byte {
	return appendString(nil, 1, name)
}

type graphSpec struct {
	name         string
	inputs       []string
	outputs      []string
	nodes        [][]byte
	initializers [][]byte
}

func model(g graphSpec) []byte {
	var gb []byte
	for _, n := range g.nodes {
		gb = appendMessage(gb, 1, n)
	}
	gb = appendString(gb, 2, g.name)
	for _, t := range g.initializers {
		gb = appendMessage(gb, 5, t)
	}
	for _, in := range g.inputs {
		gb = appendMessage(gb, 11, valueInfo(in))
	}
	for _, out := range g.outputs {
		gb = appendMessage(gb, 12, valueInfo(out))
	}

	var opset []byte
	opset = appendString(opset, 1, "")
	opset = appendVarint(opset, 2, 13)

	var b []byte
	b = appendVarint(b, 1, 8)
	b = appendString(b, 2, "pytorch")
	b = appendString(b, 3, "2.4")
	b = appendMessage(b, 7, gb)
	return appendMessage(b, 8, opset)
}

// spaceToDepthModel is x -> SpaceToDepth(blocksize=2) -> DepthToSpace(blocksize=2, DCR) -> y.
func spaceToDepthModel() []byte {
	return model(graphSpec{
		name:    "s2d",
		inputs:  []string{"x"},
		outputs: []string{"y"},
		nodes: [][]byte{
			node("SpaceToDepth", "s2d", []string{"x"}, []string{"packed"}, intAttr("blocksize", 2)),
			node("DepthToSpace", "d2s", []string{"packed"}, []string{"y"}, intAttr("blocksize", 2), stringAttr("mode", "DCR")),
		},
	})
}

// oneHotModel is OneHot(indices, depth, values) with depth an initializer and
// values produced by a Constant node.
func oneHotModel() []byte {
	return model(graphSpec{
		name:    "onehot",
		inputs:  []string{"indices", "depth"},
		outputs: []string{"y"},
		nodes: [][]byte{
			node("Constant", "values_const", nil, []string{"values"}, tensorAttr("value", floatTensor("", []int64{2}, -1, 7))),
			node("OneHot", "oh", []string{"indices", "depth", "values"}, []string{"y"}, intAttr("axis", 0)),
		},
		initializers: [][]byte{
			int64Tensor("depth", nil, 12),
		},
	})
}
