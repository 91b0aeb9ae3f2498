package tfgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/binder"
	"github.com/born-ml/opbind/internal/mapping"
)

// Nodes handled by the decoder itself rather than the binder.
const (
	opConst       = "Const"
	opPlaceholder = "Placeholder"
)

// EdgeName returns the edge an input string refers to: the producing node for
// output port 0, "node:port" otherwise. Control inputs return "".
func EdgeName(input string) string {
	if strings.HasPrefix(input, "^") {
		return ""
	}
	if name, port, ok := strings.Cut(input, ":"); ok && port == "0" {
		return name
	}
	return input
}

// ExternalGraph converts g into the form the binder imports.
func (g *GraphDef) ExternalGraph(name string) (*binder.ExternalGraph, error) {
	out := &binder.ExternalGraph{
		Format:    mapping.FormatTensorFlow,
		Name:      name,
		Constants: make(map[string]attr.Value),
	}

	consumed := make(map[string]bool)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Name == "" {
			return nil, errors.New("node without a name")
		}

		switch n.Op {
		case opConst:
			v, ok := n.Attrs.Get("value")
			if !ok {
				return nil, fmt.Errorf("node %q (Const): no value", n.Name)
			}
			out.Constants[n.Name] = v
			continue
		case opPlaceholder:
			out.Inputs = append(out.Inputs, n.Name)
			continue
		}

		var inputs []string
		for _, in := range n.Inputs {
			edge := EdgeName(in)
			if edge == "" {
				continue
			}
			inputs = append(inputs, edge)
			consumed[edge] = true
		}
		out.Nodes = append(out.Nodes, binder.Node{
			Name:    n.Name,
			OpType:  n.Op,
			Inputs:  inputs,
			Outputs: []string{n.Name},
			Attrs:   n.Attrs.Clone(),
		})
	}

	for _, n := range out.Nodes {
		if !consumed[n.Name] {
			out.Outputs = append(out.Outputs, n.Name)
		}
	}
	return out, nil
}
