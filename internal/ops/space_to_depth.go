package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
)

// Field names shared by the block rearrangement operators.
const (
	FieldBlockSize  = "blockSize"
	FieldDataFormat = "dataFormat"
	FieldMode       = "mode"
)

// blockConfig is the configuration SpaceToDepth and DepthToSpace share.
type blockConfig struct {
	blockSize  int
	dataFormat DataFormat
}

// encode returns [blockSize, isNHWC].
func (c blockConfig) encode() []int64 {
	return []int64{int64(c.blockSize), c.dataFormat.Flag()}
}

func (c blockConfig) fields() attr.Bag {
	return attr.Bag{
		FieldBlockSize:  attr.Int(int64(c.blockSize)),
		FieldDataFormat: attr.String(c.dataFormat.String()),
	}
}

// BlockSize returns the block size.
func (c blockConfig) BlockSize() int { return c.blockSize }

// DataFormat returns the layout.
func (c blockConfig) DataFormat() DataFormat { return c.dataFormat }

// SpaceToDepth moves blockSize x blockSize spatial blocks of a 4D tensor into
// the channel dimension.
//
// Example (NHWC, blockSize 2):
//
//	input  [1, 4, 4, 3]
//	output [1, 2, 2, 12]
//
// Arguments: IntArgs = [blockSize, isNHWC].
//
// Backward:
//
//	∂L/∂input = DepthToSpace(∂L/∂output, blockSize, dataFormat)
type SpaceToDepth struct {
	record
	blockConfig
}

// NewSpaceToDepth creates a SpaceToDepth record. dataFormat must be "NCHW" or "NHWC".
func NewSpaceToDepth(x *graph.Variable, blockSize int, dataFormat string) (*SpaceToDepth, error) {
	format, err := ParseDataFormat(SpaceToDepthName, FieldDataFormat, dataFormat)
	if err != nil {
		return nil, err
	}
	r, err := newRecord(SpaceToDepthName, spaceToDepthTables, x)
	if err != nil {
		return nil, err
	}
	op := &SpaceToDepth{
		record:      r,
		blockConfig: blockConfig{blockSize: blockSize, dataFormat: format},
	}
	op.iArgs = op.encode()
	return op, nil
}

// Fields returns blockSize and dataFormat.
func (op *SpaceToDepth) Fields() attr.Bag { return op.fields() }

// Gradient returns DepthToSpace of the output gradient with the same block size
// and layout.
func (op *SpaceToDepth) Gradient(outGrads []*graph.Variable) ([]*graph.Variable, error) {
	grad, err := outputGrad(op, outGrads)
	if err != nil {
		return nil, err
	}
	inverse, err := NewDepthToSpace(grad, op.blockSize, op.dataFormat.String())
	if err != nil {
		return nil, err
	}
	inputGrad, err := Apply(inverse)
	if err != nil {
		return nil, err
	}
	return []*graph.Variable{inputGrad}, nil
}

func buildSpaceToDepth(inputs []*graph.Variable, fields attr.Bag) (Operator, error) {
	blockSize, err := requireInt(SpaceToDepthName, fields, FieldBlockSize)
	if err != nil {
		return nil, err
	}
	format, err := requireString(SpaceToDepthName, fields, FieldDataFormat)
	if err != nil {
		return nil, err
	}
	return NewSpaceToDepth(inputs[0], int(blockSize), format)
}
