// Package autodiff builds gradient subgraphs by reverse-mode differentiation
// over operator records.
//
// Nothing is evaluated: every operator contributes its Gradient, which appends
// new operator records to the same graph, and the tape wires the resulting
// variables to the inputs they differentiate.
package autodiff

import (
	"fmt"

	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/ops"
)

// Tape is a snapshot of a graph's operators in registration order.
//
// Operators added to the graph after the snapshot, including the ones a
// backward pass creates, are not part of the tape.
//
// Usage:
//
//	tape := NewTape(g)
//	grads, err := tape.Backward(loss, seed)
//	dx, ok := grads.Of(x)
type Tape struct {
	graph      *graph.Graph
	operations []graph.Op
	outputs    map[graph.Op]*graph.Variable
}

// NewTape records the operators currently registered in g.
func NewTape(g *graph.Graph) *Tape {
	operations := g.Ops()
	outputs := make(map[graph.Op]*graph.Variable, len(operations))
	for _, op := range operations {
		if out, ok := g.Output(op); ok {
			outputs[op] = out
		}
	}
	return &Tape{graph: g, operations: operations, outputs: outputs}
}

// NumOps returns the number of recorded operators.
func (t *Tape) NumOps() int {
	return len(t.operations)
}

// Backward computes the gradient of output with respect to every variable it
// depends on, starting from seed (the gradient of output itself).
//
// Algorithm:
//  1. Seed the gradient of output
//  2. Walk recorded operators in reverse order
//  3. For each operator whose output has a gradient, ask it for input gradients
//  4. Sum gradients of variables consumed more than once with Add records
func (t *Tape) Backward(output, seed *graph.Variable) (*Gradients, error) {
	if output == nil || seed == nil {
		return nil, fmt.Errorf("backward: output and seed are required")
	}
	if output.Graph() != t.graph || seed.Graph() != t.graph {
		return nil, fmt.Errorf("backward: %s and %s must belong to graph %q", output, seed, t.graph.Name())
	}

	grads := &Gradients{byVar: map[*graph.Variable]*graph.Variable{output: seed}}

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		grad, ok := grads.byVar[t.outputs[op]]
		if !ok {
			continue
		}

		inputGrads, err := op.Gradient([]*graph.Variable{grad})
		if err != nil {
			return nil, fmt.Errorf("backward through %s: %w", op.Name(), err)
		}
		inputs := op.Inputs()
		if len(inputGrads) != len(inputs) {
			return nil, fmt.Errorf("backward through %s: %d gradients for %d inputs", op.Name(), len(inputGrads), len(inputs))
		}
		if err := grads.accumulate(inputs, inputGrads); err != nil {
			return nil, fmt.Errorf("backward through %s: %w", op.Name(), err)
		}
	}

	return grads, nil
}

// Backward differentiates output over every operator registered in its graph.
func Backward(output, seed *graph.Variable) (*Gradients, error) {
	if output == nil {
		return nil, fmt.Errorf("backward: output is required")
	}
	return NewTape(output.Graph()).Backward(output, seed)
}

// Gradients maps variables to the variables carrying their gradients.
type Gradients struct {
	byVar map[*graph.Variable]*graph.Variable
}

// Of returns the gradient of v, if any gradient flows to it.
func (g *Gradients) Of(v *graph.Variable) (*graph.Variable, bool) {
	grad, ok := g.byVar[v]
	return grad, ok
}

// Len returns the number of variables with a gradient, the seeded output included.
func (g *Gradients) Len() int {
	return len(g.byVar)
}

// accumulate adds input gradients to the running totals.
func (g *Gradients) accumulate(inputs, inputGrads []*graph.Variable) error {
	for j, input := range inputs {
		inputGrad := inputGrads[j]
		if inputGrad == nil {
			continue
		}
		existing, ok := g.byVar[input]
		if !ok {
			g.byVar[input] = inputGrad
			continue
		}
		sum, err := ops.NewAdd(existing, inputGrad)
		if err != nil {
			return err
		}
		total, err := ops.Apply(sum)
		if err != nil {
			return err
		}
		g.byVar[input] = total
	}
	return nil
}
