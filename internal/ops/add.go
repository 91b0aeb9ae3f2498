package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
)

// Add represents element-wise addition. It has no configuration.
//
// Backward:
//
//	∂L/∂a = ∂L/∂out
//	∂L/∂b = ∂L/∂out
//
// The output gradient is already registered in the graph, so it is returned for
// both inputs without adding operators.
type Add struct {
	record
}

// NewAdd creates an Add record.
func NewAdd(a, b *graph.Variable) (*Add, error) {
	r, err := newRecord(AddName, addTables, a, b)
	if err != nil {
		return nil, err
	}
	return &Add{record: r}, nil
}

// Fields returns an empty bag.
func (op *Add) Fields() attr.Bag { return attr.Bag{} }

// Gradient passes the output gradient to both inputs.
func (op *Add) Gradient(outGrads []*graph.Variable) ([]*graph.Variable, error) {
	grad, err := outputGrad(op, outGrads)
	if err != nil {
		return nil, err
	}
	return []*graph.Variable{grad, grad}, nil
}

func buildAdd(inputs []*graph.Variable, _ attr.Bag) (Operator, error) {
	return NewAdd(inputs[0], inputs[1])
}
