package dsl

import "github.com/aretw0/wayfarer/pkg/flow"

type transition struct {
	action string
	target string
}

// NodeBuilder provides a fluent API for wiring a node's transitions.
type NodeBuilder struct {
	vertex      *flow.Vertex
	transitions []transition
	errs        []error
	builder     *Builder
}

// Then adds the default transition to the target node.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	return n.On(flow.DefaultAction, target)
}

// On adds a transition taken when the node returns action.
func (n *NodeBuilder) On(action, target string) *NodeBuilder {
	n.transitions = append(n.transitions, transition{action: action, target: target})
	return n
}

// Builder returns the parent builder, for chaining further declarations.
func (n *NodeBuilder) Builder() *Builder {
	return n.builder
}
