package flow

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/wayfarer/pkg/domain"
)

// Edge is a labelled transition between two vertices.
type Edge struct {
	From   string
	Action string
	To     string
}

type edgeKey struct {
	from   string
	action string
}

// Graph holds vertices keyed by name and the labelled edges between them.
//
// At most one edge may leave a vertex per action: a second Connect for the
// same (from, action) pair is rejected, so routing never changes once set.
// A Graph is sealed when a Flow is built from it.
type Graph struct {
	mu       sync.RWMutex
	vertices map[string]*Vertex
	order    []string
	edges    map[edgeKey]string
	start    string
	sealed   bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		vertices: make(map[string]*Vertex),
		edges:    make(map[edgeKey]string),
	}
}

// Add registers a vertex. The first vertex added becomes the start vertex
// unless SetStart is called.
func (g *Graph) Add(v *Vertex) error {
	if v == nil {
		return &domain.GraphConfigurationError{Reason: "nil vertex"}
	}
	if err := v.validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return &domain.GraphConfigurationError{Node: v.name, Reason: "graph is sealed"}
	}
	if _, exists := g.vertices[v.name]; exists {
		return &domain.GraphConfigurationError{Node: v.name, Reason: "duplicate vertex"}
	}
	g.vertices[v.name] = v
	g.order = append(g.order, v.name)
	if g.start == "" {
		g.start = v.name
	}
	return nil
}

// Connect routes action from one vertex to another. An empty action means DefaultAction.
func (g *Graph) Connect(from, action, to string) error {
	action = normalizeAction(action)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return &domain.GraphConfigurationError{Node: from, Reason: "graph is sealed"}
	}
	if _, ok := g.vertices[from]; !ok {
		return &domain.GraphConfigurationError{Node: from, Reason: "unknown source vertex"}
	}
	if _, ok := g.vertices[to]; !ok {
		return &domain.GraphConfigurationError{Node: to, Reason: "unknown target vertex"}
	}
	key := edgeKey{from: from, action: action}
	if existing, ok := g.edges[key]; ok {
		return &domain.GraphConfigurationError{
			Node:   from,
			Reason: fmt.Sprintf("action %q already routes to %q", action, existing),
		}
	}
	g.edges[key] = to
	return nil
}

// SetStart selects the vertex every run begins at.
func (g *Graph) SetStart(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return &domain.GraphConfigurationError{Node: name, Reason: "graph is sealed"}
	}
	if _, ok := g.vertices[name]; !ok {
		return &domain.GraphConfigurationError{Node: name, Reason: "unknown start vertex"}
	}
	g.start = name
	return nil
}

// Start returns the start vertex name.
func (g *Graph) Start() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.start
}

// Vertex looks up a vertex by name.
func (g *Graph) Vertex(name string) (*Vertex, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vertices[name]
	return v, ok
}

// Next resolves the vertex reached from "from" via action. A false result
// means the run terminates.
func (g *Graph) Next(from, action string) (*Vertex, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	to, ok := g.edges[edgeKey{from: from, action: normalizeAction(action)}]
	if !ok {
		return nil, false
	}
	return g.vertices[to], true
}

// Vertices returns the vertices in insertion order.
func (g *Graph) Vertices() []*Vertex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Vertex, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.vertices[name])
	}
	return out
}

// Edges returns every edge ordered by source insertion order, then action.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pos := make(map[string]int, len(g.order))
	for i, name := range g.order {
		pos[name] = i
	}
	out := make([]Edge, 0, len(g.edges))
	for k, to := range g.edges {
		out = append(out, Edge{From: k.from, Action: k.action, To: to})
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if d := pos[a.From] - pos[b.From]; d != 0 {
			return d
		}
		switch {
		case a.Action < b.Action:
			return -1
		case a.Action > b.Action:
			return 1
		}
		return 0
	})
	return out
}

// Validate checks that the graph has a start vertex.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.vertices) == 0 {
		return &domain.GraphConfigurationError{Reason: "graph has no vertices"}
	}
	if g.start == "" {
		return &domain.GraphConfigurationError{Reason: "graph has no start vertex"}
	}
	return nil
}

// Seal makes the graph immutable.
func (g *Graph) Seal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sealed = true
}

// Sealed reports whether the graph has been sealed.
func (g *Graph) Sealed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sealed
}
