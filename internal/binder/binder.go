// Package binder instantiates operator records from external graph nodes.
//
// A Binder consults the registry's mapping table for a node's external name,
// resolves every declared field from the node's attribute bag, from constant
// extra inputs, or from implicit values and documented defaults, and then runs
// the same constructor the native path uses. Argument encodings are always
// derived from the resolved fields; any positional arguments the external
// format carried are ignored.
//
// The package also provides Load, which walks a whole external graph and
// registers the imported operators in a new graph.Graph.
package binder

import (
	"fmt"
	"slices"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/operror"
	"github.com/born-ml/opbind/internal/ops"
)

// Node is an external graph node after wire decoding.
type Node struct {
	Name    string   // Node name (optional)
	OpType  string   // External operator name (e.g. "SpaceToDepth")
	Domain  string   // Operator domain (empty for the default domain); see QualifiedName
	Inputs  []string // Input edge names; "" marks an omitted optional input
	Outputs []string // Output edge names
	Attrs   attr.Bag // Named attributes
}

// Resolver supplies what a node's input edges refer to. It is implemented by
// whoever wires input edges (Load, or a caller importing nodes one by one).
type Resolver interface {
	// Variable returns the graph variable an edge carries.
	Variable(edge string) (*graph.Variable, error)

	// Constant returns the value of an edge known to be a constant.
	Constant(edge string) (attr.Value, bool)
}

// PendingInput records a field sourced from an input edge that was not a known
// constant. The record was built with the field's default; the edge still has
// to be wired by the caller.
type PendingInput struct {
	Node     string
	Field    string
	Position int
	Edge     string
}

// Result is the outcome of importing one node.
type Result struct {
	Op      ops.Operator
	Fields  attr.Bag // Resolved field values the record was built from
	Pending []PendingInput
}

// Binder imports nodes of one external format.
type Binder struct {
	format   mapping.Format
	registry *Registry
}

// New creates a binder for format. A nil registry means Default().
func New(format mapping.Format, registry *Registry) *Binder {
	if registry == nil {
		registry = Default()
	}
	return &Binder{format: format, registry: registry}
}

// Format returns the external format the binder reads.
func (b *Binder) Format() mapping.Format { return b.format }

// Registry returns the registry the binder consults.
func (b *Binder) Registry() *Registry { return b.registry }

// Import builds the operator record for node. res may be nil when the node has
// no inputs to resolve. No record is returned on failure.
func (b *Binder) Import(node *Node, res Resolver) (*Result, error) {
	if res == nil {
		res = noInputs{}
	}
	def, table, err := b.registry.LookupNode(b.format, node.Domain, node.OpType)
	if err != nil {
		return nil, err
	}

	fields, pending, err := b.resolveFields(node, def, table, res)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.Name, err)
	}

	// Fields are checked against the constructor before any input edge is
	// resolved: resolving may register placeholders in the caller's graph.
	if err := validateFields(def, fields); err != nil {
		return nil, fmt.Errorf("node %q: %w", node.Name, err)
	}

	inputs, err := dataInputs(node, def, table, res)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.Name, err)
	}

	op, err := def.Build(inputs, fields)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.Name, err)
	}
	return &Result{Op: op, Fields: fields, Pending: pending}, nil
}

// resolveFields populates every declared field of def from its mapping source,
// falling back to the field default.
func (b *Binder) resolveFields(node *Node, def ops.Definition, table mapping.Table, res Resolver) (attr.Bag, []PendingInput, error) {
	fields := make(attr.Bag, len(def.Fields))
	var pending []PendingInput

	for _, spec := range def.Fields {
		src, mapped := table.Source(spec.Name)
		if !mapped {
			fields[spec.Name] = spec.Default
			continue
		}

		switch src.Kind() {
		case mapping.FromAttribute:
			v, found, err := node.Attrs.Lookup(src.AttributeName(), spec.Kind)
			if err != nil {
				return nil, nil, operror.InvalidField(def.Name, spec.Name, node.Attrs[src.AttributeName()], err.Error())
			}
			if !found {
				if spec.Required() {
					return nil, nil, operror.MissingAttribute(def.Name, spec.Name, src.AttributeName())
				}
				v = spec.Default
			}
			fields[spec.Name] = v

		case mapping.FromInput:
			v, wait, err := inputField(node, def.Name, spec, src, res)
			if err != nil {
				return nil, nil, err
			}
			if wait {
				pending = append(pending, PendingInput{
					Node:     node.Name,
					Field:    spec.Name,
					Position: src.Position(),
					Edge:     node.Inputs[src.Position()],
				})
			}
			fields[spec.Name] = v

		case mapping.FromImplicit:
			v, ok := src.Value().Convert(spec.Kind)
			if !ok {
				return nil, nil, operror.InvalidField(def.Name, spec.Name, src.Value(), "want "+spec.Kind.String())
			}
			fields[spec.Name] = v
		}
	}
	return fields, pending, nil
}

// inputField resolves a field sourced from an input edge. wait is true when
// the edge exists but is not a known constant and the default was used.
func inputField(node *Node, op string, spec ops.FieldSpec, src mapping.Source, res Resolver) (v attr.Value, wait bool, err error) {
	pos := src.Position()
	if pos >= len(node.Inputs) || node.Inputs[pos] == "" {
		if spec.Required() {
			return attr.Value{}, false, operror.MissingInput(op, spec.Name, pos)
		}
		return spec.Default, false, nil
	}

	edge := node.Inputs[pos]
	c, ok := res.Constant(edge)
	if !ok {
		if spec.Required() {
			return attr.Value{}, false, operror.MissingInput(op, spec.Name, pos)
		}
		return spec.Default, true, nil
	}

	if e := src.Element(); e >= 0 {
		elem, ok := c.Element(e)
		if !ok {
			return attr.Value{}, false, operror.InvalidField(op, spec.Name, c,
				fmt.Sprintf("input %d (%s) has no element %d", pos, edge, e))
		}
		c = elem
	}
	v, ok = c.Convert(spec.Kind)
	if !ok {
		return attr.Value{}, false, operror.InvalidField(op, spec.Name, c,
			fmt.Sprintf("input %d (%s): want %s", pos, edge, spec.Kind))
	}
	return v, false, nil
}

// validateFields runs the definition's constructor on scratch inputs.
func validateFields(def ops.Definition, fields attr.Bag) error {
	scratch := graph.New(def.Name)
	inputs := make([]*graph.Variable, def.Inputs)
	for i := range inputs {
		v, err := scratch.Placeholder("")
		if err != nil {
			return err
		}
		inputs[i] = v
	}
	_, err := def.Build(inputs, fields)
	return err
}

// dataInputs resolves the input edges not claimed by positional field sources.
// The count is checked before any edge is resolved.
func dataInputs(node *Node, def ops.Definition, table mapping.Table, res Resolver) ([]*graph.Variable, error) {
	claimed := table.InputPositions()
	var edges []string
	for pos, edge := range node.Inputs {
		if edge == "" || slices.Contains(claimed, pos) {
			continue
		}
		edges = append(edges, edge)
	}
	if len(edges) != def.Inputs {
		return nil, fmt.Errorf("%s requires %d data inputs, got %d", def.Name, def.Inputs, len(edges))
	}

	inputs := make([]*graph.Variable, len(edges))
	for i, edge := range edges {
		v, err := res.Variable(edge)
		if err != nil {
			return nil, fmt.Errorf("%s input %q: %w", def.Name, edge, err)
		}
		inputs[i] = v
	}
	return inputs, nil
}

type noInputs struct{}

func (noInputs) Variable(edge string) (*graph.Variable, error) {
	return nil, fmt.Errorf("no resolver for input %q", edge)
}

func (noInputs) Constant(string) (attr.Value, bool) {
	return attr.Value{}, false
}
