package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	order    []string
	nodes    map[string]*NodeBuilder
	edges    []domain.Edge
	viewport *domain.Viewport
	errs     []error
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect adds an edge between two nodes. Handles are optional: the first
// one is the source handle, the second the target handle.
func (b *Builder) Connect(source, target string, handles ...string) *Builder {
	edge := domain.Edge{Source: source, Target: target}
	if len(handles) > 0 {
		edge.SourceHandle = handles[0]
	}
	if len(handles) > 1 {
		edge.TargetHandle = handles[1]
	}
	edge.ID = edge.Key()
	b.edges = append(b.edges, edge)
	return b
}

// Viewport sets the initial canvas viewport.
func (b *Builder) Viewport(x, y, zoom float64) *Builder {
	b.viewport = &domain.Viewport{X: x, Y: y, Zoom: zoom}
	return b
}

// Build assembles the graph in insertion order and validates it.
// The graph is returned even when validation fails so callers can inspect it.
func (b *Builder) Build() (domain.Graph, error) {
	g := domain.Graph{
		Nodes: make([]domain.Node, 0, len(b.order)),
		Edges: append([]domain.Edge{}, b.edges...),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].Build())
	}
	if b.viewport != nil {
		vp := *b.viewport
		g.Viewport = &vp
	}

	if len(b.errs) > 0 {
		return g, fmt.Errorf("failed to build graph: %w", errors.Join(b.errs...))
	}
	if err := connectivity.ValidateGraph(g); err != nil {
		return g, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// MustBuild is Build for fixtures known to be valid. It panics on error.
func (b *Builder) MustBuild() domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
