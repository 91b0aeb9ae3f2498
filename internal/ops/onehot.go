package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
)

// OneHot field names.
const (
	FieldDepth = "depth"
	FieldAxis  = "axis"
	FieldOn    = "on"
	FieldOff   = "off"
)

// OneHot defaults.
const (
	DefaultOneHotAxis = -1
	DefaultOneHotOn   = 1.0
	DefaultOneHotOff  = 0.0
)

// OneHot expands integer indices into indicator vectors of length depth along
// axis, filled with off except for on at the index position.
//
// Arguments, in this order whatever constructor was used:
//
//	IntArgs   = [depth, axis]
//	FloatArgs = [on, off]
//
// Backward: indices are integral, so their gradient is ZerosLike(indices).
type OneHot struct {
	record
	depth int
	axis  int
	on    float64
	off   float64
}

// NewOneHot creates a OneHot record with axis -1, on 1 and off 0.
func NewOneHot(indices *graph.Variable, depth int) (*OneHot, error) {
	return NewOneHotWithValues(indices, depth, DefaultOneHotAxis, DefaultOneHotOn, DefaultOneHotOff)
}

// NewOneHotWithValues creates a OneHot record with explicit axis and fill values.
func NewOneHotWithValues(indices *graph.Variable, depth, axis int, on, off float64) (*OneHot, error) {
	r, err := newRecord(OneHotName, oneHotTables, indices)
	if err != nil {
		return nil, err
	}
	op := &OneHot{record: r, depth: depth, axis: axis, on: on, off: off}
	op.iArgs, op.fArgs = op.encode()
	return op, nil
}

func (op *OneHot) encode() ([]int64, []float64) {
	return []int64{int64(op.depth), int64(op.axis)}, []float64{op.on, op.off}
}

// Depth returns the indicator length.
func (op *OneHot) Depth() int { return op.depth }

// Axis returns the axis the indicator dimension is inserted at.
func (op *OneHot) Axis() int { return op.axis }

// On returns the value written at the index position.
func (op *OneHot) On() float64 { return op.on }

// Off returns the fill value.
func (op *OneHot) Off() float64 { return op.off }

// Fields returns depth, axis, on and off.
func (op *OneHot) Fields() attr.Bag {
	return attr.Bag{
		FieldDepth: attr.Int(int64(op.depth)),
		FieldAxis:  attr.Int(int64(op.axis)),
		FieldOn:    attr.Float(op.on),
		FieldOff:   attr.Float(op.off),
	}
}

// Gradient returns ZerosLike(indices).
func (op *OneHot) Gradient(outGrads []*graph.Variable) ([]*graph.Variable, error) {
	if _, err := outputGrad(op, outGrads); err != nil {
		return nil, err
	}
	zeros, err := NewZerosLike(op.inputs[0])
	if err != nil {
		return nil, err
	}
	inputGrad, err := Apply(zeros)
	if err != nil {
		return nil, err
	}
	return []*graph.Variable{inputGrad}, nil
}

func buildOneHot(inputs []*graph.Variable, fields attr.Bag) (Operator, error) {
	depth, err := requireInt(OneHotName, fields, FieldDepth)
	if err != nil {
		return nil, err
	}
	axis, err := requireInt(OneHotName, fields, FieldAxis)
	if err != nil {
		return nil, err
	}
	on, err := requireFloat(OneHotName, fields, FieldOn)
	if err != nil {
		return nil, err
	}
	off, err := requireFloat(OneHotName, fields, FieldOff)
	if err != nil {
		return nil, err
	}
	return NewOneHotWithValues(inputs[0], int(depth), int(axis), on, off)
}
