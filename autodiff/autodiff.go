// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides symbolic reverse-mode differentiation.
//
// Gradients are graph variables, not values: differentiating appends the
// operator records computing them to the same graph. A structural operator
// is differentiated by its inverse (SpaceToDepth by DepthToSpace with the same
// block size and layout, and vice versa).
//
// Example:
//
//	import (
//	    "github.com/born-ml/opbind/autodiff"
//	    "github.com/born-ml/opbind/graph"
//	)
//
//	func main() {
//	    g := graph.New("model")
//	    x, _ := g.Placeholder("x")
//	    dy, _ := g.Placeholder("dy")
//
//	    op, _ := graph.NewSpaceToDepth(x, 2, "NHWC")
//	    y, _ := graph.Apply(op)
//
//	    grads, _ := autodiff.Backward(y, dy)
//	    dx, _ := grads.Of(x) // Produced by DepthToSpace(dy, 2, NHWC)
//	}
package autodiff

import (
	"github.com/born-ml/opbind/internal/autodiff"
	"github.com/born-ml/opbind/internal/graph"
)

// Tape is a snapshot of a graph's operators for a backward pass.
type Tape = autodiff.Tape

// Gradients maps variables to the variables carrying their gradients.
type Gradients = autodiff.Gradients

// NewTape records the operators currently registered in g.
func NewTape(g *graph.Graph) *Tape {
	return autodiff.NewTape(g)
}

// Backward differentiates output with respect to every variable it depends
// on, seeding its gradient with seed.
func Backward(output, seed *graph.Variable) (*Gradients, error) {
	return autodiff.Backward(output, seed)
}
