/*
Package ports defines the driven ports (interfaces) of the Weave editor core.

These interfaces decouple the engines from external implementations, allowing
the editor to work with various storage backends and async data providers.

# Key Interfaces

  - HistoryStore: persists the serialized undo/redo history blob (Memory, File, Redis).
  - PropertyLoader: fetches options, sub-fields or credential types for async properties.
  - DistributedLocker: serialises history writes across editor instances.
  - Editor: the editing surface consumed by the HTTP and MCP adapters.
*/
package ports
