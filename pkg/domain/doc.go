/*
Package domain contains the core models shared by the Weave authoring engines.

It defines the canvas graph (Nodes, Edges, Viewport), the declarative
property specification that drives node configuration forms, display
conditions, and the snapshot/history records used by undo and redo. The
package is free of I/O and persistence concerns.

# Key Entities

  - Node / Edge / Graph: the directed graph edited on the canvas.
  - Property: one configuration field, with show/hide rules and optional async loading.
  - Condition: a tagged variant describing a display predicate (literal or _cnd operator).
  - Snapshot: immutable capture of a graph used by the history.
  - HistoryRecord: per-workflow undo and redo stacks.
*/
package domain
