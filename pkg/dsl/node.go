package dsl

import (
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Type sets the node type, which is also the name handed to property loaders.
func (n *NodeBuilder) Type(nodeType string) *NodeBuilder {
	n.node.Type = nodeType
	return n
}

// Name sets the label shown on the canvas.
func (n *NodeBuilder) Name(name string) *NodeBuilder {
	n.node.Name = name
	return n
}

// At places the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Version declares a node version with its property tree and selects it.
// Declaring the same version twice appends to its properties.
func (n *NodeBuilder) Version(version int, props ...domain.Property) *NodeBuilder {
	n.node.Data.SelectedVersion = version
	v := n.version(version)
	v.Properties = append(v.Properties, props...)
	return n
}

// Input writes value at the dot-path of the selected version's inputs.
// A version 1 is created when none was declared. Invalid paths fail Build.
func (n *NodeBuilder) Input(path string, value any) *NodeBuilder {
	v := n.active()
	if v.Inputs == nil {
		v.Inputs = make(map[string]any)
	}
	if err := paths.Set(v.Inputs, path, value); err != nil {
		n.builder.errs = append(n.builder.errs, fmt.Errorf("node %s: %w", n.node.ID, err))
	}
	return n
}

// Credential declares credential types on the selected version.
func (n *NodeBuilder) Credential(creds ...domain.CredentialDescriptor) *NodeBuilder {
	v := n.active()
	v.Credentials = append(v.Credentials, creds...)
	return n
}

// To adds an edge from this node to target. See Builder.Connect for handles.
func (n *NodeBuilder) To(target string, handles ...string) *NodeBuilder {
	n.builder.Connect(n.node.ID, target, handles...)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}

func (n *NodeBuilder) active() *domain.NodeVersion {
	if v := n.node.ActiveVersion(); v != nil {
		return v
	}
	n.node.Data.SelectedVersion = 1
	return n.version(1)
}

func (n *NodeBuilder) version(version int) *domain.NodeVersion {
	for i := range n.node.Data.Versions {
		if n.node.Data.Versions[i].Version == version {
			return &n.node.Data.Versions[i]
		}
	}
	n.node.Data.Versions = append(n.node.Data.Versions, domain.NodeVersion{Version: version})
	return &n.node.Data.Versions[len(n.node.Data.Versions)-1]
}
