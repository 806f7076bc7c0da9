/*
Package weave is the authoring core of a node-based workflow editor.

It keeps a workflow graph consistent while a user edits it: which node
properties are visible for the current inputs, when dynamically loaded option
lists must be fetched again, whether a new connection would create a cycle, and
how to move backwards and forwards through the edit history.

# Layout

The engines are plain packages with no I/O:

  - pkg/paths resolves dot-paths ("headers.0.name") inside nested input trees.
  - pkg/condition evaluates display conditions against a value.
  - pkg/visibility prunes property trees and credential lists.
  - pkg/asyncprop tracks async property dependencies and caches their loads.
  - pkg/connectivity rejects self loops and cycles before an edge is committed.
  - pkg/history keeps per-workflow undo/redo stacks of graph snapshots.

pkg/editor wires them behind the ports.Editor interface. Transports live in
pkg/adapters (HTTP, MCP) next to the history stores (memory, file, redis) and
the async loaders (memory, process).

# Usage

	store, _ := file.New(".weave/history")
	h := history.NewManager(history.WithStore(store))
	_ = h.Restore(ctx)

	ed := editor.New(h, editor.WithLoader(process.NewLoader(cfg)))
	_ = ed.Open(ctx, "wf-1", graph)

	form, err := ed.UpdateInput(ctx, "wf-1", "chat", "model_provider", "openai")
*/
package weave
