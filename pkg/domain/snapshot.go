package domain

import "time"

// Snapshot is an immutable capture of the whole graph at a point in time.
// Callers must not mutate a snapshot after handing it to the history.
type Snapshot struct {
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	Viewport    *Viewport `json:"viewport,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// Graph returns the graph portion of the snapshot.
func (s Snapshot) Graph() Graph {
	return Graph{Nodes: s.Nodes, Edges: s.Edges, Viewport: s.Viewport}
}

// HistoryRecord is the undo/redo state of a single workflow.
type HistoryRecord struct {
	// UndoStack is ordered oldest to newest.
	UndoStack []Snapshot `json:"undoStack"`
	RedoStack []Snapshot `json:"redoStack"`

	// IsApplyingSnapshot suppresses capture while a restore settles.
	IsApplyingSnapshot bool `json:"isApplyingSnapshot"`
}
