// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx imports ONNX models into symbolic graphs of operator records.
//
// # Supported Features
//
//   - ONNX format parsing (protobuf wire format, no generated code)
//   - Initializers and Constant nodes folded into operator configuration
//   - Strict and lenient import of unsupported operators
//   - Local files and gs://bucket/key objects
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/opbind/onnx"
//	)
//
//	imported, err := onnx.Load(ctx, "space_to_depth.onnx", onnx.DefaultLoadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for name, op := range imported.Ops {
//	    fmt.Println(name, op.Name(), op.IntArgs(), op.FloatArgs())
//	}
//
// # Supported Operators
//
// SpaceToDepth, DepthToSpace (DCR mode), OneHot and Add.
//
// Use [ListSupportedOps] to get the complete list of supported operators.
package onnx

import (
	"context"

	"github.com/born-ml/opbind/internal/binder"
	internalonnx "github.com/born-ml/opbind/internal/onnx"
	"github.com/born-ml/opbind/internal/source"
)

// LoadOptions configures ONNX model loading behavior.
type LoadOptions = binder.LoadOptions

// Imported is the result of a model import: the graph, the operator record of
// every imported node, and what could not be imported.
type Imported = binder.Imported

// DefaultLoadOptions returns the default options for loading ONNX models.
//
// Default configuration:
//   - Strict mode: disabled (unsupported nodes are skipped and reported)
//   - Custom operators: none
func DefaultLoadOptions() LoadOptions {
	return binder.DefaultLoadOptions()
}

// Load imports an ONNX model from a file path or gs:// URI.
//
// Example:
//
//	opts := onnx.DefaultLoadOptions()
//	opts.StrictMode = true // Fail on the first node that cannot be imported
//	imported, err := onnx.Load(ctx, "gs://models/onehot.onnx", opts)
func Load(ctx context.Context, uri string, opts ...LoadOptions) (*Imported, error) {
	return internalonnx.Load(ctx, uri, options(opts))
}

// LoadFromBytes imports an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or received
// from a network source.
func LoadFromBytes(ctx context.Context, data []byte, opts ...LoadOptions) (*Imported, error) {
	return internalonnx.LoadFromBytes(ctx, data, options(opts))
}

// ModelInfo contains metadata about an ONNX model.
//
// Use [GetModelInfo] to quickly inspect a model file before importing it.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo extracts metadata from an ONNX model without importing it.
//
// Example:
//
//	info, err := onnx.GetModelInfo(ctx, "model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Inputs: %v\n", info.InputNames)
func GetModelInfo(ctx context.Context, uri string) (*ModelInfo, error) {
	data, err := source.ReadFile(ctx, uri)
	if err != nil {
		return nil, err
	}
	return internalonnx.GetModelInfo(data)
}

// ListSupportedOps returns the ONNX operators that can be imported.
func ListSupportedOps() []string {
	return internalonnx.ListSupportedOps()
}

func options(opts []LoadOptions) LoadOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultLoadOptions()
}
