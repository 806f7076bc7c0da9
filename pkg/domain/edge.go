package domain

import "strings"

// Edge connects the output of one node to the input of another.
type Edge struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Source       string `json:"source" yaml:"source" mapstructure:"source"`
	Target       string `json:"target" yaml:"target" mapstructure:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty" mapstructure:"sourceHandle"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty" mapstructure:"targetHandle"`
}

// Key returns the edge identifier, deriving one from its endpoints when ID is empty.
func (e Edge) Key() string {
	if e.ID != "" {
		return e.ID
	}
	var sb strings.Builder
	sb.WriteString(e.Source)
	if e.SourceHandle != "" {
		sb.WriteString(":" + e.SourceHandle)
	}
	sb.WriteString("->")
	sb.WriteString(e.Target)
	if e.TargetHandle != "" {
		sb.WriteString(":" + e.TargetHandle)
	}
	return sb.String()
}

// Viewport is the pan/zoom state of the canvas.
type Viewport struct {
	X    float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y    float64 `json:"y" yaml:"y" mapstructure:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom" mapstructure:"zoom"`
}

// Graph is the node/edge set the canvas produces and consumes.
type Graph struct {
	Nodes    []Node    `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges    []Edge    `json:"edges" yaml:"edges" mapstructure:"edges"`
	Viewport *Viewport `json:"viewport,omitempty" yaml:"viewport,omitempty" mapstructure:"viewport"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}
