// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensorflow imports frozen TensorFlow GraphDef protobufs into
// symbolic graphs of operator records.
//
// Placeholder nodes become graph inputs and Const nodes are folded into
// operator configuration where an operator reads configuration from an input
// (OneHot depth, on and off values). Layout attributes left unset default to
// channel-last (NHWC).
//
// Example:
//
//	imported, err := tensorflow.Load(ctx, "frozen_graph.pb", tensorflow.DefaultLoadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, skipped := range imported.Skipped {
//	    fmt.Println("not imported:", skipped.Name, skipped.Err)
//	}
package tensorflow

import (
	"context"

	"github.com/born-ml/opbind/internal/binder"
	"github.com/born-ml/opbind/internal/tfgraph"
)

// LoadOptions configures graph loading behavior.
type LoadOptions = binder.LoadOptions

// Imported is the result of a graph import.
type Imported = binder.Imported

// DefaultLoadOptions returns the default options (lenient, no custom operators).
func DefaultLoadOptions() LoadOptions {
	return binder.DefaultLoadOptions()
}

// Load imports a binary GraphDef from a file path or gs:// URI.
func Load(ctx context.Context, uri string, opts ...LoadOptions) (*Imported, error) {
	return tfgraph.Load(ctx, uri, options(opts))
}

// LoadFromBytes imports a binary GraphDef from raw bytes. name names the graph.
func LoadFromBytes(ctx context.Context, name string, data []byte, opts ...LoadOptions) (*Imported, error) {
	return tfgraph.LoadFromBytes(ctx, name, data, options(opts))
}

// ListSupportedOps returns the TensorFlow operators that can be imported.
func ListSupportedOps() []string {
	return tfgraph.ListSupportedOps()
}

func options(opts []LoadOptions) LoadOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultLoadOptions()
}
