package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/operror"
)

// ModeDCR is the depth-column-row channel ordering shared by TensorFlow and the
// ONNX default. It is the only ordering the kernel ABI encodes.
const ModeDCR = "DCR"

// DepthToSpace moves channel data into blockSize x blockSize spatial blocks.
// It is the structural inverse of SpaceToDepth with the same configuration.
//
// Arguments: IntArgs = [blockSize, isNHWC].
//
// Backward:
//
//	∂L/∂input = SpaceToDepth(∂L/∂output, blockSize, dataFormat)
type DepthToSpace struct {
	record
	blockConfig
}

// NewDepthToSpace creates a DepthToSpace record in DCR mode.
func NewDepthToSpace(x *graph.Variable, blockSize int, dataFormat string) (*DepthToSpace, error) {
	return NewDepthToSpaceWithMode(x, blockSize, dataFormat, ModeDCR)
}

// NewDepthToSpaceWithMode creates a DepthToSpace record. mode must be "DCR";
// ONNX "CRD" is rejected since the kernel has no encoding for it.
func NewDepthToSpaceWithMode(x *graph.Variable, blockSize int, dataFormat, mode string) (*DepthToSpace, error) {
	format, err := ParseDataFormat(DepthToSpaceName, FieldDataFormat, dataFormat)
	if err != nil {
		return nil, err
	}
	if mode != ModeDCR {
		return nil, operror.InvalidField(DepthToSpaceName, FieldMode, mode, "only DCR ordering is supported")
	}
	r, err := newRecord(DepthToSpaceName, depthToSpaceTables, x)
	if err != nil {
		return nil, err
	}
	op := &DepthToSpace{
		record:      r,
		blockConfig: blockConfig{blockSize: blockSize, dataFormat: format},
	}
	op.iArgs = op.encode()
	return op, nil
}

// Fields returns blockSize, dataFormat and mode.
func (op *DepthToSpace) Fields() attr.Bag {
	f := op.fields()
	f[FieldMode] = attr.String(ModeDCR)
	return f
}

// Gradient returns SpaceToDepth of the output gradient with the same block size
// and layout.
func (op *DepthToSpace) Gradient(outGrads []*graph.Variable) ([]*graph.Variable, error) {
	grad, err := outputGrad(op, outGrads)
	if err != nil {
		return nil, err
	}
	inverse, err := NewSpaceToDepth(grad, op.blockSize, op.dataFormat.String())
	if err != nil {
		return nil, err
	}
	inputGrad, err := Apply(inverse)
	if err != nil {
		return nil, err
	}
	return []*graph.Variable{inputGrad}, nil
}

func buildDepthToSpace(inputs []*graph.Variable, fields attr.Bag) (Operator, error) {
	blockSize, err := requireInt(DepthToSpaceName, fields, FieldBlockSize)
	if err != nil {
		return nil, err
	}
	format, err := requireString(DepthToSpaceName, fields, FieldDataFormat)
	if err != nil {
		return nil, err
	}
	mode, err := requireString(DepthToSpaceName, fields, FieldMode)
	if err != nil {
		return nil, err
	}
	return NewDepthToSpaceWithMode(inputs[0], int(blockSize), format, mode)
}
