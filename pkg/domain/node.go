package domain

// Position is the canvas coordinate of a node.
type Position struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// Node represents a configurable step on the canvas.
// Its identifier must be unique within a graph.
type Node struct {
	ID       string   `json:"id" yaml:"id" mapstructure:"id"`
	Type     string   `json:"type" yaml:"type" mapstructure:"type"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Position Position `json:"position" yaml:"position" mapstructure:"position"`
	Data     NodeData `json:"data" yaml:"data" mapstructure:"data"`
}

// NodeData holds the versioned configuration of a node.
type NodeData struct {
	// SelectedVersion is the version number the user is currently editing.
	SelectedVersion int           `json:"selectedVersion,omitempty" yaml:"selectedVersion,omitempty" mapstructure:"selectedVersion"`
	Versions        []NodeVersion `json:"versions,omitempty" yaml:"versions,omitempty" mapstructure:"versions"`
}

// NodeVersion pairs a property specification tree with the values entered for it.
type NodeVersion struct {
	Version     int                    `json:"version" yaml:"version" mapstructure:"version"`
	Properties  []Property             `json:"properties,omitempty" yaml:"properties,omitempty" mapstructure:"properties"`
	Inputs      map[string]any         `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`
	Credentials []CredentialDescriptor `json:"credentials,omitempty" yaml:"credentials,omitempty" mapstructure:"credentials"`
}

// ActiveVersion returns the version matching SelectedVersion.
// When SelectedVersion is unset or unknown, the last declared version wins.
func (n *Node) ActiveVersion() *NodeVersion {
	if len(n.Data.Versions) == 0 {
		return nil
	}
	for i := range n.Data.Versions {
		if n.Data.Versions[i].Version == n.Data.SelectedVersion {
			return &n.Data.Versions[i]
		}
	}
	return &n.Data.Versions[len(n.Data.Versions)-1]
}

// DisplayName returns the human facing label of the node.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
