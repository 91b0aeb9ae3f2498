package binder

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/ops"
)

// LoadOptions configures graph import.
type LoadOptions struct {
	// StrictMode fails on the first node that cannot be imported
	// (default: false = skip the node and everything depending on it).
	StrictMode bool

	// CustomOps adds operator definitions on top of the built-in ones.
	CustomOps []ops.Definition
}

// DefaultLoadOptions returns default loading options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		StrictMode: false,
		CustomOps:  nil,
	}
}

// ExternalGraph is an external graph after wire decoding.
type ExternalGraph struct {
	Format    mapping.Format
	Name      string
	Inputs    []string              // Graph input edges
	Outputs   []string              // Graph output edges
	Constants map[string]attr.Value // Edges whose value is a known constant
	Nodes     []Node
}

// SkippedNode is a node lenient import left out.
type SkippedNode struct {
	Name   string
	OpType string
	Err    error
}

// Imported is the result of Load.
type Imported struct {
	Graph   *graph.Graph
	Values  map[string]*graph.Variable // Edge name -> variable
	Ops     map[string]ops.Operator    // Record name -> imported record; see RecordName
	Order   []string                   // Record names in import order
	Pending []PendingInput
	Skipped []SkippedNode
}

// RecordName returns the key a node's record is stored under in Imported.Ops:
// the node name, or for unnamed nodes the name of the variable the record
// produces.
func RecordName(node *Node, out *graph.Variable) string {
	if node.Name != "" || out == nil {
		return node.Name
	}
	return out.Name()
}

// Output returns the variable carrying a graph output edge.
func (im *Imported) Output(name string) (*graph.Variable, bool) {
	v, ok := im.Values[name]
	return v, ok
}

// Load imports every node of src into a new graph, in dependency order.
//
// Graph inputs become placeholders. Constant edges used as configuration are
// folded into fields; constant edges used as data become placeholders named
// after the edge.
//
//nolint:gocognit // Load orchestrates the full import pipeline.
func Load(ctx context.Context, src *ExternalGraph, opts LoadOptions) (*Imported, error) {
	log := klog.FromContext(ctx)

	registry := Default()
	if len(opts.CustomOps) > 0 {
		r, err := NewRegistry(opts.CustomOps...)
		if err != nil {
			return nil, fmt.Errorf("registering custom operators: %w", err)
		}
		registry = r
	}

	if opts.StrictMode {
		if err := validateOperators(src, registry); err != nil {
			return nil, err
		}
	}

	g := graph.New(src.Name)
	im := &Imported{
		Graph:  g,
		Values: make(map[string]*graph.Variable),
		Ops:    make(map[string]ops.Operator),
	}
	for _, name := range src.Inputs {
		if _, isConst := src.Constants[name]; isConst {
			continue
		}
		v, err := g.Placeholder(name)
		if err != nil {
			return nil, fmt.Errorf("graph input %q: %w", name, err)
		}
		im.Values[name] = v
	}

	res := &edgeResolver{graph: g, values: im.Values, constants: src.Constants}
	b := New(src.Format, registry)

	for _, node := range topologicalSort(src.Nodes) {
		var out *graph.Variable
		result, err := b.Import(&node, res)
		if err == nil {
			name := ""
			if len(node.Outputs) > 0 {
				name = node.Outputs[0]
			}
			if out, err = g.AddNamedOp(name, result.Op); err == nil && name != "" {
				im.Values[name] = out
			}
		}
		if err != nil {
			err = fmt.Errorf("%s node %q (%s): %w", src.Format, node.Name, node.OpType, err)
			if opts.StrictMode {
				return nil, err
			}
			log.Info("skipping node", "node", node.Name, "op", node.OpType, "reason", err.Error())
			im.Skipped = append(im.Skipped, SkippedNode{Name: node.Name, OpType: node.OpType, Err: err})
			continue
		}

		key := RecordName(&node, out)
		im.Ops[key] = result.Op
		im.Order = append(im.Order, key)
		im.Pending = append(im.Pending, result.Pending...)
		for _, p := range result.Pending {
			log.Info("configuration input is not constant, using default", "node", p.Node, "field", p.Field, "input", p.Position, "edge", p.Edge)
		}
		log.V(2).Info("imported node", "node", node.Name, "op", result.Op.Name(),
			"iArgs", result.Op.IntArgs(), "tArgs", result.Op.FloatArgs())
	}

	for _, name := range src.Outputs {
		if _, ok := im.Values[name]; ok {
			continue
		}
		err := fmt.Errorf("graph output %q was not produced", name)
		if opts.StrictMode {
			return nil, err
		}
		log.Info("graph output missing", "output", name)
	}

	log.V(1).Info("imported graph", "graph", src.Name, "format", src.Format,
		"ops", len(im.Ops), "skipped", len(im.Skipped), "pending", len(im.Pending))
	return im, nil
}

// validateOperators checks that every node's operator is registered.
func validateOperators(src *ExternalGraph, registry *Registry) error {
	var errs []error
	seen := make(map[string]bool)
	for i := range src.Nodes {
		name := QualifiedName(src.Nodes[i].Domain, src.Nodes[i].OpType)
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, _, err := registry.Lookup(src.Format, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// edgeResolver resolves edges against the graph being built.
type edgeResolver struct {
	graph     *graph.Graph
	values    map[string]*graph.Variable
	constants map[string]attr.Value
}

func (r *edgeResolver) Variable(edge string) (*graph.Variable, error) {
	if v, ok := r.values[edge]; ok {
		return v, nil
	}
	if _, ok := r.constants[edge]; ok {
		v, err := r.graph.Placeholder(edge)
		if err != nil {
			return nil, err
		}
		r.values[edge] = v
		return v, nil
	}
	return nil, fmt.Errorf("edge %q is not produced by any imported node", edge)
}

func (r *edgeResolver) Constant(edge string) (attr.Value, bool) {
	v, ok := r.constants[edge]
	return v, ok
}

// topologicalSort orders nodes so producers come before consumers.
// The relative order of independent nodes is preserved.
func topologicalSort(nodes []Node) []Node {
	outputToNode := make(map[string]int)
	for i := range nodes {
		for _, output := range nodes[i].Outputs {
			outputToNode[output] = i
		}
	}

	visited := make([]bool, len(nodes))
	result := make([]Node, 0, len(nodes))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true

		for _, input := range nodes[i].Inputs {
			if depIdx, ok := outputToNode[input]; ok {
				visit(depIdx)
			}
		}

		result = append(result, nodes[i])
	}

	for i := range nodes {
		visit(i)
	}

	return result
}
