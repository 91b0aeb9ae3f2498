package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
)

// ZerosLike produces a zero tensor with the shape and type of its input.
//
// Backward:
//
//	∂L/∂input = ZerosLike(∂L/∂out)
type ZerosLike struct {
	record
}

// NewZerosLike creates a ZerosLike record.
func NewZerosLike(x *graph.Variable) (*ZerosLike, error) {
	r, err := newRecord(ZerosLikeName, zerosLikeTables, x)
	if err != nil {
		return nil, err
	}
	return &ZerosLike{record: r}, nil
}

// Fields returns an empty bag.
func (op *ZerosLike) Fields() attr.Bag { return attr.Bag{} }

// Gradient returns ZerosLike of the output gradient.
func (op *ZerosLike) Gradient(outGrads []*graph.Variable) ([]*graph.Variable, error) {
	grad, err := outputGrad(op, outGrads)
	if err != nil {
		return nil, err
	}
	zeros, err := NewZerosLike(grad)
	if err != nil {
		return nil, err
	}
	inputGrad, err := Apply(zeros)
	if err != nil {
		return nil, err
	}
	return []*graph.Variable{inputGrad}, nil
}

func buildZerosLike(inputs []*graph.Variable, _ attr.Bag) (Operator, error) {
	return NewZerosLike(inputs[0])
}
