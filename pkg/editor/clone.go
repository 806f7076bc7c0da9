package editor

import "github.com/aretw0/weave/pkg/domain"

// cloneGraph copies everything an edit can mutate: node and edge slices,
// positions and input trees. Property specifications are shared since the
// editor never writes to them.
func cloneGraph(g domain.Graph) domain.Graph {
	out := domain.Graph{}
	if g.Nodes != nil {
		out.Nodes = make([]domain.Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = cloneNode(n)
		}
	}
	if g.Edges != nil {
		out.Edges = append([]domain.Edge(nil), g.Edges...)
	}
	if g.Viewport != nil {
		vp := *g.Viewport
		out.Viewport = &vp
	}
	return out
}

func cloneNode(n domain.Node) domain.Node {
	out := n
	if n.Data.Versions != nil {
		out.Data.Versions = make([]domain.NodeVersion, len(n.Data.Versions))
		for i, v := range n.Data.Versions {
			v.Inputs = cloneMap(v.Inputs)
			out.Data.Versions[i] = v
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
