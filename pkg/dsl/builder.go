package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// Builder manages the graph construction.
type Builder struct {
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
	start string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*NodeBuilder),
	}
}

// Add places a single node in the graph.
// If a node with that name already exists, the existing builder is returned
// and the duplicate is reported by Build.
func (b *Builder) Add(name string, n flow.Node, opts ...flow.VertexOption) *NodeBuilder {
	return b.add(flow.NewNode(name, n, opts...))
}

// Batch places a batch node in the graph.
func (b *Builder) Batch(name string, n flow.BatchNode, opts ...flow.VertexOption) *NodeBuilder {
	return b.add(flow.NewBatch(name, n, opts...))
}

// Start overrides the start node. Defaults to the first node added.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

func (b *Builder) add(v *flow.Vertex) *NodeBuilder {
	if nb, ok := b.index[v.Name()]; ok {
		nb.errs = append(nb.errs, &domain.GraphConfigurationError{Node: v.Name(), Reason: "added twice"})
		return nb
	}
	nb := &NodeBuilder{vertex: v, builder: b}
	b.index[v.Name()] = nb
	b.nodes = append(b.nodes, nb)
	return nb
}

// Build compiles the declared nodes and transitions into a flow.Graph.
// All configuration errors are reported together.
func (b *Builder) Build() (*flow.Graph, error) {
	g := flow.NewGraph()
	var errs []error

	for _, nb := range b.nodes {
		errs = append(errs, nb.errs...)
		if err := g.Add(nb.vertex); err != nil {
			errs = append(errs, err)
		}
	}
	for _, nb := range b.nodes {
		for _, t := range nb.transitions {
			if err := g.Connect(nb.vertex.Name(), t.action, t.target); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if b.start != "" {
		if err := g.SetStart(b.start); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// MustBuild is like Build but panics on error. Intended for graphs defined in code.
func (b *Builder) MustBuild() *flow.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
