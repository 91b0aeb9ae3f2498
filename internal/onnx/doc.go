// Package onnx decodes ONNX models into external graphs the binder imports.
//
// Only the graph structure is read: nodes, their attributes, graph inputs and
// outputs, and constant tensors (initializers and Constant nodes), which are
// folded into attribute values so configuration passed as an input can be
// resolved at import time.
//
// Example usage:
//
//	model, err := onnx.ParseFile("space_to_depth.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g, err := model.ExternalGraph()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	imported, err := binder.Load(ctx, g, binder.DefaultLoadOptions())
package onnx
