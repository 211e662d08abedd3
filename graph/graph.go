// Package graph implements a small computation-graph builder and interpreter, playing the role
// gomlx's graph package plays for the full framework: callers build a Graph out of Node values by
// calling op constructors (Add, MatMul, Iota, ...), and later hand concrete tensor.Tensor values
// to Graph.Run to evaluate it.
//
// Every Node's Shape is fixed at construction time; there is no dynamic shape or dynamic control
// flow anywhere in this package. Loops with a statically known trip count are expected to be
// unrolled by the caller while building the graph, not represented as a graph-level loop node.
package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

// Node is a single value-producing step of a Graph: a parameter, a constant, or the application of
// an op to previously created Nodes. Nodes are immutable once created.
type Node struct {
	graph      *Graph
	id         int
	shape      shapes.Shape
	kind       string
	inputNodes []*Node
	paramName  string
	compute    func(inputs []*tensor.Tensor) *tensor.Tensor
}

// Graph returns the Graph that owns n.
func (n *Node) Graph() *Graph { return n.graph }

// Shape returns n's static shape.
func (n *Node) Shape() shapes.Shape { return n.shape }

// DType returns n's element type.
func (n *Node) DType() shapes.DType { return n.shape.DType }

// Rank returns the rank of n's shape.
func (n *Node) Rank() int { return n.shape.Rank() }

// Id returns the node's creation-order identifier within its Graph.
func (n *Node) Id() int { return n.id }

// String renders a short debug description, not the node's value.
func (n *Node) String() string {
	return fmt.Sprintf("Node#%d{%s, shape=%s}", n.id, n.kind, n.shape)
}

// Graph accumulates Nodes in the order they are created. Because every op constructor takes its
// inputs as already-built *Node values, the accumulated slice is always in dependency order:
// evaluating it front-to-back never requires a topological sort.
type Graph struct {
	name   string
	nodes  []*Node
	params []*Node
}

// NewGraph creates an empty, named Graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// NumNodes returns how many nodes have been built so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Parameters returns the parameter nodes, in the order Parameter was called.
func (g *Graph) Parameters() []*Node {
	return append([]*Node(nil), g.params...)
}

func (g *Graph) newNode(shape shapes.Shape, kind string, inputs []*Node, compute func([]*tensor.Tensor) *tensor.Tensor) *Node {
	for _, in := range inputs {
		if in.graph != g {
			exceptions.Panicf("graph: node %s belongs to a different Graph than %q", in, g.name)
		}
	}
	n := &Node{
		graph:      g,
		id:         len(g.nodes),
		shape:      shape,
		kind:       kind,
		inputNodes: inputs,
		compute:    compute,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Parameter declares a named input of the given shape. Its value is supplied per call to Run.
func (g *Graph) Parameter(name string, shape shapes.Shape) *Node {
	n := g.newNode(shape, "Parameter:"+name, nil, nil)
	n.paramName = name
	g.params = append(g.params, n)
	return n
}

// Run evaluates outputs against the given parameter feeds. Every node of the graph is evaluated
// front to back, so every Parameter of the graph must have an entry in feeds, whether or not it is
// reachable from outputs.
func (g *Graph) Run(feeds map[string]*tensor.Tensor, outputs ...*Node) ([]*tensor.Tensor, error) {
	values := make([]*tensor.Tensor, len(g.nodes))
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("graph %q: evaluation failed: %v", g.name, r)
			}
		}()
		for _, n := range g.nodes {
			if n.paramName != "" {
				v, ok := feeds[n.paramName]
				if !ok {
					exceptions.Panicf("graph %q: missing feed for parameter %q", g.name, n.paramName)
				}
				if !v.Shape().Equal(n.shape) {
					exceptions.Panicf("graph %q: parameter %q expects shape %s, got %s", g.name, n.paramName, n.shape, v.Shape())
				}
				values[n.id] = v
				continue
			}
			ins := make([]*tensor.Tensor, len(n.inputNodes))
			for i, in := range n.inputNodes {
				ins[i] = values[in.id]
			}
			values[n.id] = n.compute(ins)
		}
	}()
	if runErr != nil {
		return nil, runErr
	}
	results := make([]*tensor.Tensor, len(outputs))
	for i, o := range outputs {
		if o.graph != g {
			return nil, fmt.Errorf("graph %q: output %s belongs to a different graph", g.name, o)
		}
		results[i] = values[o.id]
	}
	return results, nil
}
