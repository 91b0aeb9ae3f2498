// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph builds symbolic computation graphs of operator records.
//
// An operator record carries an operator's typed configuration and the
// positional argument lists a kernel reads. Records are identical whether they
// are constructed here or imported from an ONNX or TensorFlow graph.
//
// Example:
//
//	g := graph.New("model")
//	x, _ := g.Placeholder("x")
//
//	op, err := graph.NewSpaceToDepth(x, 2, "NCHW")
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, graph.ErrInvalidConfiguration)
//	}
//	y, _ := graph.Apply(op)
//	fmt.Println(op.IntArgs()) // [2 0]
package graph

import (
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/operror"
	"github.com/born-ml/opbind/internal/ops"
)

// Graph is a registry of variables and the operators producing them.
type Graph = graph.Graph

// Variable is a symbolic handle to a tensor-valued node.
type Variable = graph.Variable

// Op is an operator registered in a graph.
type Op = graph.Op

// Operator is an operator record: configuration, argument lists and the
// external names it is known by.
type Operator = ops.Operator

// Operator records.
type (
	SpaceToDepth = ops.SpaceToDepth
	DepthToSpace = ops.DepthToSpace
	OneHot       = ops.OneHot
	Add          = ops.Add
	ZerosLike    = ops.ZerosLike
)

// DataFormat is the memory layout of a 4D image tensor.
type DataFormat = ops.DataFormat

// Data formats.
const (
	NCHW = ops.NCHW
	NHWC = ops.NHWC
)

// Errors returned by constructors and importers. Use errors.Is to test for them
// and errors.As with the detail types for the offending field.
var (
	ErrInvalidConfiguration        = operror.ErrInvalidConfiguration
	ErrMissingAttribute            = operror.ErrMissingAttribute
	ErrUnsupportedExternalOperator = operror.ErrUnsupportedExternalOperator
)

// Error details.
type (
	ConfigError      = operror.ConfigError
	AttributeError   = operror.AttributeError
	UnsupportedError = operror.UnsupportedError
)

// New creates an empty graph.
func New(name string) *Graph {
	return graph.New(name)
}

// Apply registers op in the graph owning its inputs and returns its output.
func Apply(op Operator) (*Variable, error) {
	return ops.Apply(op)
}

// NewSpaceToDepth creates a SpaceToDepth record. dataFormat is "NCHW" or "NHWC".
func NewSpaceToDepth(x *Variable, blockSize int, dataFormat string) (*SpaceToDepth, error) {
	return ops.NewSpaceToDepth(x, blockSize, dataFormat)
}

// NewDepthToSpace creates a DepthToSpace record with DCR ordering.
func NewDepthToSpace(x *Variable, blockSize int, dataFormat string) (*DepthToSpace, error) {
	return ops.NewDepthToSpace(x, blockSize, dataFormat)
}

// NewOneHot creates a OneHot record with axis -1, on 1 and off 0.
func NewOneHot(indices *Variable, depth int) (*OneHot, error) {
	return ops.NewOneHot(indices, depth)
}

// NewOneHotWithValues creates a OneHot record with every field given.
func NewOneHotWithValues(indices *Variable, depth, axis int, on, off float64) (*OneHot, error) {
	return ops.NewOneHotWithValues(indices, depth, axis, on, off)
}

// NewAdd creates an elementwise Add record.
func NewAdd(a, b *Variable) (*Add, error) {
	return ops.NewAdd(a, b)
}

// NewZerosLike creates a ZerosLike record.
func NewZerosLike(x *Variable) (*ZerosLike, error) {
	return ops.NewZerosLike(x)
}
