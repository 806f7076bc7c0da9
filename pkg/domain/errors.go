package domain

import "errors"

// ErrWorkflowNotFound is returned when a workflow has not been opened in the editor.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrHistoryNotFound is returned when no persisted history exists under a key.
var ErrHistoryNotFound = errors.New("history not found")

// ErrNodeNotFound is returned when a node id is not part of the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrEdgeNotFound is returned when an edge id is not part of the graph.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrDuplicateNode is returned when adding a node whose id already exists.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrInvalidInput is returned when an input path cannot be written.
var ErrInvalidInput = errors.New("invalid input")
