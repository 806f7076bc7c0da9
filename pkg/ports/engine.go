package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// Editor is the workflow editing surface consumed by transport adapters
// (HTTP, MCP, CLI). Every method is scoped to one workflow id.
type Editor interface {
	// Open loads a graph for editing and makes it the history baseline
	// unless a persisted history already exists for the workflow.
	Open(ctx context.Context, workflowID string, graph domain.Graph) error

	// Graph returns a copy of the current graph.
	Graph(ctx context.Context, workflowID string) (domain.Graph, error)

	AddNode(ctx context.Context, workflowID string, node domain.Node) error
	RemoveNode(ctx context.Context, workflowID, nodeID string) error

	// Connect validates and commits an edge. Rejected edges leave the graph untouched.
	Connect(ctx context.Context, workflowID string, edge domain.Edge) (domain.Edge, error)
	Disconnect(ctx context.Context, workflowID, edgeID string) error

	// ValidateConnection reports whether Connect would accept edge.
	ValidateConnection(ctx context.Context, workflowID string, edge domain.Edge) error

	StartDrag(ctx context.Context, workflowID, nodeID string) error
	MoveNode(ctx context.Context, workflowID, nodeID string, pos domain.Position) error
	SetViewport(ctx context.Context, workflowID string, vp domain.Viewport) error

	// UpdateInput writes value at the dot-path of the node's active inputs
	// and returns the recomputed form.
	UpdateInput(ctx context.Context, workflowID, nodeID, path string, value any) (domain.FormState, error)
	Form(ctx context.Context, workflowID, nodeID string) (domain.FormState, error)

	Undo(ctx context.Context, workflowID string) (domain.Graph, bool, error)
	Redo(ctx context.Context, workflowID string) (domain.Graph, bool, error)

	// Save makes the current graph the new history baseline.
	Save(ctx context.Context, workflowID string) (domain.Snapshot, error)
	History(ctx context.Context, workflowID string) (domain.HistoryStatus, error)
}
