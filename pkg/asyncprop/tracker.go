package asyncprop

import (
	"strings"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
)

// Decision is the outcome of observing an input change for one async property.
type Decision struct {
	// Refetch is true when no baseline existed or the relevant inputs changed.
	Refetch  bool
	Key      string
	Relevant map[string]any
}

// Tracker remembers the last relevant-input projection of every async
// property it has seen, keyed by a caller-chosen slot (node id + property path).
type Tracker struct {
	mu        sync.Mutex
	baselines map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{baselines: make(map[string]string)}
}

// Observe applies the refetch policy for prop in slot and updates the baseline.
// currentPath is the path of the collection or array item holding prop, empty
// at the top level.
func (t *Tracker) Observe(slot, nodeName, currentPath string, prop *domain.Property, inputs map[string]any) Decision {
	relevant := ExtractRelevantInputsAt(inputs, currentPath, ExtractDependencies(prop))
	key := CacheKey(nodeName, prop.LoadMethod, relevant)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.baselines[slot]
	if seen && prev == key {
		return Decision{Key: key, Relevant: relevant}
	}
	t.baselines[slot] = key
	return Decision{Refetch: true, Key: key, Relevant: relevant}
}

// Forget drops the baselines of every slot with the given prefix.
func (t *Tracker) Forget(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slot := range t.baselines {
		if strings.HasPrefix(slot, prefix) {
			delete(t.baselines, slot)
		}
	}
}
