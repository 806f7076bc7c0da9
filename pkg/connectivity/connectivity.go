// Package connectivity keeps the edge set of a workflow graph acyclic.
package connectivity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

var (
	// ErrSelfLoop is returned for an edge whose source is its target.
	ErrSelfLoop = errors.New("connection would link a node to itself")

	// ErrCycle is returned when the proposed edge would close a cycle.
	ErrCycle = errors.New("connection would create a cycle")

	// ErrUnknownNode is returned when an edge endpoint is not in the graph.
	ErrUnknownNode = errors.New("connection references an unknown node")
)

// IsValidConnection reports whether edge can be added to the graph without
// creating a self loop or a cycle. It never mutates its arguments.
func IsValidConnection(edge domain.Edge, nodes []domain.Node, edges []domain.Edge) bool {
	return CheckConnection(edge, nodes, edges) == nil
}

// CheckConnection is IsValidConnection with the reason for a rejection.
func CheckConnection(edge domain.Edge, nodes []domain.Node, edges []domain.Edge) error {
	if edge.Source == edge.Target {
		return ErrSelfLoop
	}
	if reaches(adjacency(edges), edge.Target, edge.Source) {
		return fmt.Errorf("%w: %s already reaches %s", ErrCycle, edge.Target, edge.Source)
	}
	return nil
}

func adjacency(edges []domain.Edge) map[string][]string {
	out := make(map[string][]string, len(edges))
	for _, e := range edges {
		out[e.Source] = append(out[e.Source], e.Target)
	}
	return out
}

// reaches performs a depth-first walk from start along outgoing edges.
// The visited set guarantees termination on graphs that already hold a cycle.
func reaches(adj map[string][]string, start, goal string) bool {
	visited := make(map[string]bool)
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == goal {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, next := range adj[current] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// ValidationError aggregates the structural problems found in a graph.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("found %d errors:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// ValidateGraph checks a loaded graph for duplicate node ids, dangling edges,
// self loops and cycles. It returns a *ValidationError listing every problem.
func ValidateGraph(g domain.Graph) error {
	var problems []string

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			problems = append(problems, "Node with empty id")
			continue
		}
		if known[n.ID] {
			problems = append(problems, fmt.Sprintf("Duplicate node id: '%s'", n.ID))
		}
		known[n.ID] = true
	}

	seenEdges := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		key := e.Key()
		if seenEdges[key] {
			problems = append(problems, fmt.Sprintf("Duplicate edge: '%s'", key))
		}
		seenEdges[key] = true

		if !known[e.Source] {
			problems = append(problems, fmt.Sprintf("Edge '%s' has missing source: '%s'", key, e.Source))
		}
		if !known[e.Target] {
			problems = append(problems, fmt.Sprintf("Edge '%s' has missing target: '%s'", key, e.Target))
		}
		if e.Source == e.Target {
			problems = append(problems, fmt.Sprintf("Edge '%s' is a self loop", key))
		}
	}

	for _, cycle := range findCycles(g.Nodes, g.Edges) {
		problems = append(problems, fmt.Sprintf("Cycle detected: %s", strings.Join(cycle, " -> ")))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Cycles lists every cycle found in g as a node path that ends where it starts.
func Cycles(g domain.Graph) [][]string {
	return findCycles(g.Nodes, g.Edges)
}

// findCycles reports one representative path per back edge, using the
// classic white/grey/black colouring. Self loops are reported separately.
func findCycles(nodes []domain.Node, edges []domain.Edge) [][]string {
	const (
		white = iota
		grey
		black
	)

	adj := adjacency(edges)
	color := make(map[string]int, len(nodes))
	var path []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		path = append(path, id)
		for _, next := range adj[id] {
			if next == id {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), next)
				cycles = append(cycles, cycle)
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}

	for _, n := range nodes {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	return cycles
}
