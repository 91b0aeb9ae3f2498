// Package ops defines the operator family: records that bind a named tensor
// transformation to its configuration and to its reverse-mode gradient.
//
// Each operator implements Operator, which provides:
//   - Identity: internal name and external aliases per interchange format
//   - Configuration: named typed fields, and the positional IntArgs/FloatArgs
//     derived from them for the execution engine
//   - Gradient: graph operators computing input gradients from the output gradient
//
// Supported operators:
//   - SpaceToDepth: moves spatial blocks into channels (iArgs [blockSize, isNHWC])
//   - DepthToSpace: the structural inverse of SpaceToDepth
//   - OneHot: expands indices to indicator vectors (iArgs [depth, axis], tArgs [on, off])
//   - Add: element-wise sum, used to accumulate gradients
//   - ZerosLike: zero tensor shaped like its input, the gradient of integral inputs
//
// Positional arguments are never set directly. Constructors store fields and
// then derive the arguments, so a record built natively and one built by
// import from the same field values are indistinguishable.
package ops

import (
	"fmt"
	"slices"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
)

// Operator is a graph operator with named configuration fields.
type Operator interface {
	graph.Op

	// Fields returns the operator's configuration by field name.
	Fields() attr.Bag

	// ExternalNames returns the names this operator has in format.
	// The first entry is canonical.
	ExternalNames(format mapping.Format) []string
}

// record holds the state every operator shares. Embedders set iArgs and fArgs
// only from their encode method.
type record struct {
	name   string
	tables []mapping.Table
	inputs []*graph.Variable
	iArgs  []int64
	fArgs  []float64
}

func newRecord(name string, tables []mapping.Table, inputs ...*graph.Variable) (record, error) {
	for i, in := range inputs {
		if in == nil {
			return record{}, fmt.Errorf("%s: input %d is nil", name, i)
		}
	}
	return record{name: name, tables: tables, inputs: inputs}, nil
}

// Name returns the internal operator name.
func (r *record) Name() string { return r.name }

// Inputs returns the input variables.
func (r *record) Inputs() []*graph.Variable { return slices.Clone(r.inputs) }

// IntArgs returns the derived integer arguments.
func (r *record) IntArgs() []int64 { return slices.Clone(r.iArgs) }

// FloatArgs returns the derived floating point arguments.
func (r *record) FloatArgs() []float64 { return slices.Clone(r.fArgs) }

// ExternalNames returns the external names declared for format, in declaration order.
func (r *record) ExternalNames(format mapping.Format) []string {
	var names []string
	for _, t := range r.tables {
		if t.Format == format {
			names = append(names, t.External)
		}
	}
	return names
}

// Apply registers op in the graph owning its first input and returns the output.
func Apply(op Operator) (*graph.Variable, error) {
	inputs := op.Inputs()
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: no inputs to place the operator in a graph", op.Name())
	}
	return inputs[0].Graph().AddOp(op)
}

// outputGrad validates the gradient list handed to a single-output operator.
func outputGrad(op Operator, outGrads []*graph.Variable) (*graph.Variable, error) {
	if len(outGrads) != 1 || outGrads[0] == nil {
		return nil, fmt.Errorf("%s gradient: want 1 output gradient, got %d", op.Name(), len(outGrads))
	}
	grad := outGrads[0]
	if owner := op.Inputs()[0].Graph(); grad.Graph() != owner {
		return nil, fmt.Errorf("%s gradient: %s belongs to graph %q, operator to %q",
			op.Name(), grad.Name(), grad.Graph().Name(), owner.Name())
	}
	return grad, nil
}
