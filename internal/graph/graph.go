// Package graph holds the symbolic computation graph operators are registered in.
//
// A Graph owns its variables and operator instances. Operators refer to their
// inputs by *Variable identity and never outlive the graph that registered
// them. Every operator produces exactly one output variable.
//
// A Graph is built by one goroutine at a time; distinct graphs may be built
// concurrently.
package graph

import (
	"fmt"
	"strconv"
)

// Op is an operator instance as seen by the graph, the execution engine and the
// differentiation subsystem.
type Op interface {
	// Name returns the internal operator name (e.g. "space_to_depth").
	Name() string

	// Inputs returns the operator's input variables in order.
	Inputs() []*Variable

	// IntArgs returns the positional integer arguments the kernel reads.
	IntArgs() []int64

	// FloatArgs returns the positional floating point arguments the kernel reads.
	FloatArgs() []float64

	// Gradient builds the operators computing input gradients from the output
	// gradient and returns one variable per input, in input order. New
	// operators are registered in the graph owning outGrads.
	Gradient(outGrads []*Variable) ([]*Variable, error)
}

// Variable is a symbolic handle to a tensor-valued node. It carries no data.
type Variable struct {
	id    int
	name  string
	graph *Graph
}

// ID returns the variable's index within its graph.
func (v *Variable) ID() int { return v.id }

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Graph returns the graph owning v.
func (v *Variable) Graph() *Graph { return v.graph }

// String implements fmt.Stringer.
func (v *Variable) String() string { return v.name }

// Graph is a registry of variables and the operators producing them.
type Graph struct {
	name      string
	vars      []*Variable
	byName    map[string]*Variable
	ops       []Op
	producers map[*Variable]Op
	outputs   map[Op]*Variable
	counters  map[string]int
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:      name,
		byName:    make(map[string]*Variable),
		producers: make(map[*Variable]Op),
		outputs:   make(map[Op]*Variable),
		counters:  make(map[string]int),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Placeholder adds a variable with no producer (a graph input or external
// constant). An empty name is replaced by a generated one.
func (g *Graph) Placeholder(name string) (*Variable, error) {
	if name == "" {
		name = g.uniqueName("placeholder")
	}
	return g.newVariable(name)
}

// AddOp registers op and returns its output variable under a generated name.
func (g *Graph) AddOp(op Op) (*Variable, error) {
	return g.AddNamedOp("", op)
}

// AddNamedOp registers op and names its output. An empty name is replaced by
// a generated one derived from the operator name.
func (g *Graph) AddNamedOp(name string, op Op) (*Variable, error) {
	if op == nil {
		return nil, fmt.Errorf("graph %q: nil operator", g.name)
	}
	if _, ok := g.outputs[op]; ok {
		return nil, fmt.Errorf("graph %q: operator %s already registered", g.name, op.Name())
	}
	for i, in := range op.Inputs() {
		if in == nil {
			return nil, fmt.Errorf("graph %q: %s input %d is nil", g.name, op.Name(), i)
		}
		if in.graph != g {
			return nil, fmt.Errorf("graph %q: %s input %d (%s) belongs to graph %q", g.name, op.Name(), i, in.name, in.graph.name)
		}
	}

	if name == "" {
		name = g.uniqueName(op.Name())
	}
	out, err := g.newVariable(name)
	if err != nil {
		return nil, err
	}
	g.ops = append(g.ops, op)
	g.producers[out] = op
	g.outputs[op] = out
	return out, nil
}

// Ops returns the registered operators in registration order.
func (g *Graph) Ops() []Op {
	out := make([]Op, len(g.ops))
	copy(out, g.ops)
	return out
}

// Variables returns all variables in creation order.
func (g *Graph) Variables() []*Variable {
	out := make([]*Variable, len(g.vars))
	copy(out, g.vars)
	return out
}

// Variable looks up a variable by name.
func (g *Graph) Variable(name string) (*Variable, bool) {
	v, ok := g.byName[name]
	return v, ok
}

// Producer returns the operator producing v, if any.
func (g *Graph) Producer(v *Variable) (Op, bool) {
	op, ok := g.producers[v]
	return op, ok
}

// Output returns the variable produced by op.
func (g *Graph) Output(op Op) (*Variable, bool) {
	v, ok := g.outputs[op]
	return v, ok
}

func (g *Graph) newVariable(name string) (*Variable, error) {
	if _, exists := g.byName[name]; exists {
		return nil, fmt.Errorf("graph %q: variable %q already exists", g.name, name)
	}
	v := &Variable{id: len(g.vars), name: name, graph: g}
	g.vars = append(g.vars, v)
	g.byName[name] = v
	return v, nil
}

// uniqueName returns prefix_N for the first N not yet taken.
func (g *Graph) uniqueName(prefix string) string {
	for {
		n := g.counters[prefix]
		g.counters[prefix] = n + 1
		name := prefix + "_" + strconv.Itoa(n)
		if _, taken := g.byName[name]; !taken {
			return name
		}
	}
}
