package ports

import (
	"context"
)

// HistoryStore persists the serialized undo/redo history.
// The history is an opaque blob; the store only preserves it byte for byte.
type HistoryStore interface {
	// Save persists the blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error

	// Load retrieves the blob stored under key.
	// Returns domain.ErrHistoryNotFound if nothing was saved.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error

	// List returns the keys currently stored.
	List(ctx context.Context) ([]string, error)
}
