package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
)

// LoadFunc computes a load result from the current inputs.
type LoadFunc func(inputs map[string]any) (*domain.LoadResult, error)

// Loader implements ports.PropertyLoader from registered functions.
// It is used by tests and by the CLI when no external loader is configured.
type Loader struct {
	mu      sync.RWMutex
	methods map[string]LoadFunc
}

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{methods: make(map[string]LoadFunc)}
}

// NewStaticLoader creates a Loader returning fixed results keyed by "node.method".
func NewStaticLoader(results map[string]*domain.LoadResult) *Loader {
	l := NewLoader()
	for key, res := range results {
		res := res
		l.methods[key] = func(map[string]any) (*domain.LoadResult, error) { return res, nil }
	}
	return l
}

// Register binds fn to nodeName.methodName, replacing any previous binding.
func (l *Loader) Register(nodeName, methodName string, fn LoadFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methods[methodKey(nodeName, methodName)] = fn
}

// Load dispatches to the registered function.
func (l *Loader) Load(ctx context.Context, nodeName, methodName string, inputs map[string]any) (*domain.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	fn, ok := l.methods[methodKey(nodeName, methodName)]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load method not found: %s", methodKey(nodeName, methodName))
	}
	return fn(inputs)
}

func methodKey(nodeName, methodName string) string {
	return nodeName + "." + methodName
}
