package editor

import (
	"context"
	"fmt"

	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/visibility"
	"github.com/google/uuid"
)

// Open loads graph for editing. The graph must pass connectivity.ValidateGraph.
// Node inputs are initialised from property defaults.
func (e *Editor) Open(ctx context.Context, workflowID string, graph domain.Graph) error {
	if err := connectivity.ValidateGraph(graph); err != nil {
		return err
	}

	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf := &workflow{graph: cloneGraph(graph)}
		for i := range wf.graph.Nodes {
			initInputs(&wf.graph.Nodes[i])
		}

		e.mu.Lock()
		e.workflows[workflowID] = wf
		e.mu.Unlock()

		if _, ok := e.history.Record(workflowID); ok {
			e.logger.Debug("Reusing existing history", "workflow_id", workflowID)
			return nil
		}
		e.history.ResetHistory(workflowID, e.snapshot(wf, "open"))
		e.persist(ctx, workflowID)
		e.logger.Info("Workflow opened", "workflow_id", workflowID, "nodes", len(graph.Nodes), "edges", len(graph.Edges))
		return nil
	})
}

// Graph returns a copy of the current graph.
func (e *Editor) Graph(ctx context.Context, workflowID string) (domain.Graph, error) {
	var out domain.Graph
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		out = cloneGraph(wf.graph)
		return nil
	})
	return out, err
}

// AddNode appends a node. Its id must be new to the graph.
func (e *Editor) AddNode(ctx context.Context, workflowID string, node domain.Node) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		if _, exists := wf.graph.Node(node.ID); exists {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateNode, node.ID)
		}

		e.checkpoint(workflowID, wf, "add node "+node.ID)
		added := cloneNode(node)
		initInputs(&added)
		wf.graph.Nodes = append(wf.graph.Nodes, added)
		e.persist(ctx, workflowID)
		return nil
	})
}

// RemoveNode deletes a node together with every edge touching it.
func (e *Editor) RemoveNode(ctx context.Context, workflowID, nodeID string) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		idx := nodeIndex(wf.graph, nodeID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
		}

		e.checkpoint(workflowID, wf, "remove node "+nodeID)

		nodes := make([]domain.Node, 0, len(wf.graph.Nodes)-1)
		nodes = append(nodes, wf.graph.Nodes[:idx]...)
		nodes = append(nodes, wf.graph.Nodes[idx+1:]...)
		wf.graph.Nodes = nodes

		edges := wf.graph.Edges[:0:0]
		for _, edge := range wf.graph.Edges {
			if edge.Source != nodeID && edge.Target != nodeID {
				edges = append(edges, edge)
			}
		}
		wf.graph.Edges = edges

		e.forgetNode(workflowID, nodeID)
		e.persist(ctx, workflowID)
		return nil
	})
}

// ValidateConnection reports why Connect would reject edge, or nil.
func (e *Editor) ValidateConnection(ctx context.Context, workflowID string, edge domain.Edge) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		return checkEdge(wf.graph, edge)
	})
}

// Connect validates edge against the committed graph and appends it.
// An edge identical to an existing one is returned as is.
func (e *Editor) Connect(ctx context.Context, workflowID string, edge domain.Edge) (domain.Edge, error) {
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		if err := checkEdge(wf.graph, edge); err != nil {
			e.logger.Warn("Connection rejected",
				"workflow_id", workflowID,
				"source", edge.Source,
				"target", edge.Target,
				"err", err,
			)
			return err
		}

		for _, existing := range wf.graph.Edges {
			if sameEndpoints(existing, edge) {
				edge = existing
				return nil
			}
		}

		if edge.ID == "" {
			edge.ID = "e-" + uuid.NewString()
		}
		e.checkpoint(workflowID, wf, "connect "+edge.Source+" -> "+edge.Target)
		wf.graph.Edges = append(wf.graph.Edges, edge)
		e.persist(ctx, workflowID)
		return nil
	})
	return edge, err
}

// Disconnect removes the edge whose Key matches edgeID.
func (e *Editor) Disconnect(ctx context.Context, workflowID, edgeID string) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		idx := -1
		for i, edge := range wf.graph.Edges {
			if edge.Key() == edgeID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, edgeID)
		}

		e.checkpoint(workflowID, wf, "disconnect "+edgeID)
		edges := make([]domain.Edge, 0, len(wf.graph.Edges)-1)
		edges = append(edges, wf.graph.Edges[:idx]...)
		edges = append(edges, wf.graph.Edges[idx+1:]...)
		wf.graph.Edges = edges
		e.persist(ctx, workflowID)
		return nil
	})
}

// StartDrag checkpoints the graph before a node is moved.
func (e *Editor) StartDrag(ctx context.Context, workflowID, nodeID string) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		if nodeIndex(wf.graph, nodeID) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
		}
		e.checkpoint(workflowID, wf, "move node "+nodeID)
		e.persist(ctx, workflowID)
		return nil
	})
}

// MoveNode updates a node position. Moves are not checkpointed; StartDrag is.
func (e *Editor) MoveNode(ctx context.Context, workflowID, nodeID string, pos domain.Position) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		idx := nodeIndex(wf.graph, nodeID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
		}
		wf.graph.Nodes[idx].Position = pos
		return nil
	})
}

// SetViewport records the canvas pan and zoom.
func (e *Editor) SetViewport(ctx context.Context, workflowID string, vp domain.Viewport) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		wf.graph.Viewport = &vp
		return nil
	})
}

// Undo restores the newest checkpoint. ok is false when there is nothing to undo.
func (e *Editor) Undo(ctx context.Context, workflowID string) (domain.Graph, bool, error) {
	return e.restore(ctx, workflowID, true)
}

// Redo re-applies the last undone state.
func (e *Editor) Redo(ctx context.Context, workflowID string) (domain.Graph, bool, error) {
	return e.restore(ctx, workflowID, false)
}

func (e *Editor) restore(ctx context.Context, workflowID string, undo bool) (domain.Graph, bool, error) {
	var (
		out domain.Graph
		ok  bool
	)
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}

		current := e.snapshot(wf, "current")
		var target domain.Snapshot
		if undo {
			target, ok = e.history.Undo(workflowID, current)
		} else {
			target, ok = e.history.Redo(workflowID, current)
		}
		if !ok {
			out = cloneGraph(wf.graph)
			return nil
		}

		wf.graph = cloneGraph(target.Graph())
		// Without a settle window nothing else will end the restore.
		if e.history.Settle() <= 0 {
			e.history.FinishApplying(workflowID)
		}
		e.persist(ctx, workflowID)
		out = cloneGraph(wf.graph)
		return nil
	})
	return out, ok, err
}

// Save makes the current graph the single history baseline.
func (e *Editor) Save(ctx context.Context, workflowID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		wf, err := e.live(workflowID)
		if err != nil {
			return err
		}
		snap = e.snapshot(wf, "save")
		e.history.ResetHistory(workflowID, snap)
		if err := e.history.PersistWorkflows(ctx, workflowID); err != nil {
			return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
		}
		return nil
	})
	return snap, err
}

// History reports the undo/redo state of a workflow.
func (e *Editor) History(ctx context.Context, workflowID string) (domain.HistoryStatus, error) {
	rec, ok := e.history.Record(workflowID)
	if !ok {
		return domain.HistoryStatus{}, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, workflowID)
	}
	return domain.HistoryStatus{
		CanUndo:    len(rec.UndoStack) > 1,
		CanRedo:    len(rec.RedoStack) > 0,
		UndoDepth:  len(rec.UndoStack),
		RedoDepth:  len(rec.RedoStack),
		IsApplying: rec.IsApplyingSnapshot,
	}, nil
}

func checkEdge(g domain.Graph, edge domain.Edge) error {
	for _, id := range []string{edge.Source, edge.Target} {
		if nodeIndex(g, id) < 0 {
			return fmt.Errorf("%w: %s", connectivity.ErrUnknownNode, id)
		}
	}
	return connectivity.CheckConnection(edge, g.Nodes, g.Edges)
}

func sameEndpoints(a, b domain.Edge) bool {
	return a.Source == b.Source && a.Target == b.Target &&
		a.SourceHandle == b.SourceHandle && a.TargetHandle == b.TargetHandle
}

func nodeIndex(g domain.Graph, id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// initInputs fills the active version's inputs from property defaults.
func initInputs(n *domain.Node) {
	v := n.ActiveVersion()
	if v == nil {
		return
	}
	if v.Inputs == nil {
		v.Inputs = make(map[string]any)
	}
	visibility.ApplyDefaults(v.Properties, v.Inputs)
}

func (e *Editor) forgetNode(workflowID, nodeID string) {
	prefix := slotPrefix(workflowID, nodeID)
	e.tracker.Forget(prefix)
	if e.cache != nil {
		e.cache.Drop(prefix)
	}
}
