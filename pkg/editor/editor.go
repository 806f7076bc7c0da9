// Package editor wires the authoring engines behind one workflow editing API.
//
// Structural edits are checkpointed into the history before they mutate the
// graph. Connections are validated before they are committed. Input changes
// recompute the visible form and schedule async property refreshes.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/history"
	"github.com/aretw0/weave/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// workflow is the live state of one open workflow.
type workflow struct {
	graph domain.Graph
}

// Editor implements ports.Editor.
type Editor struct {
	history *history.Manager
	tracker *asyncprop.Tracker
	cache   *asyncprop.Cache // nil without a loader

	mu        sync.Mutex
	locks     map[string]*lockEntry
	workflows map[string]*workflow

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.Editor = (*Editor)(nil)

// Option configures the Editor.
type Option func(*Editor)

// WithLoader enables async property loading.
func WithLoader(loader ports.PropertyLoader, opts ...asyncprop.CacheOption) Option {
	return func(e *Editor) {
		e.cache = asyncprop.NewCache(loader, opts...)
	}
}

// WithLocker enables distributed locking around every transition.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Editor) {
		e.locker = locker
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		e.now = now
	}
}

// New creates an Editor on top of a history manager.
func New(h *history.Manager, opts ...Option) *Editor {
	e := &Editor{
		history:   h,
		tracker:   asyncprop.NewTracker(),
		locks:     make(map[string]*lockEntry),
		workflows: make(map[string]*workflow),
		lockTTL:   30 * time.Second,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HistoryManager returns the underlying history manager.
func (e *Editor) HistoryManager() *history.Manager {
	return e.history
}

// Workflows lists the open workflow ids.
func (e *Editor) Workflows() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.workflows))
	for id := range e.workflows {
		ids = append(ids, id)
	}
	return ids
}

// Close forgets the live graph and cached async data of a workflow.
// Its history is kept so the workflow can be reopened.
func (e *Editor) Close(ctx context.Context, workflowID string) error {
	return e.withLock(ctx, workflowID, func(ctx context.Context) error {
		e.mu.Lock()
		delete(e.workflows, workflowID)
		e.mu.Unlock()

		e.tracker.Forget(slotPrefix(workflowID, ""))
		if e.cache != nil {
			e.cache.Drop(slotPrefix(workflowID, ""))
		}
		return nil
	})
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (e *Editor) acquire(id string) *lockEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, exists := e.locks[id]
	if !exists {
		entry = &lockEntry{}
		e.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (e *Editor) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, exists := e.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(e.locks, id)
	}
}

// withLock serializes transitions of one workflow.
func (e *Editor) withLock(ctx context.Context, workflowID string, fn func(context.Context) error) error {
	entry := e.acquire(workflowID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		e.release(workflowID)
	}()

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, workflowID, e.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				e.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"workflow_id", workflowID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// live returns the open workflow. Caller holds the workflow lock.
func (e *Editor) live(workflowID string) (*workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wf, ok := e.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, workflowID)
	}
	return wf, nil
}

// snapshot captures the current graph. The copy is deep so later edits
// never reach into the history.
func (e *Editor) snapshot(wf *workflow, description string) domain.Snapshot {
	g := cloneGraph(wf.graph)
	return domain.Snapshot{
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Viewport:    g.Viewport,
		Timestamp:   e.now(),
		Description: description,
	}
}

// checkpoint records the pre-edit state of a structural edit.
// Restores apply synchronously under the workflow lock, so an edit arriving
// after one is always a manual edit and ends the settle window.
func (e *Editor) checkpoint(workflowID string, wf *workflow, description string) {
	e.history.FinishApplying(workflowID)
	if !e.history.SaveSnapshot(workflowID, e.snapshot(wf, description)) {
		e.logger.Debug("Checkpoint skipped", "workflow_id", workflowID, "edit", description)
	}
}

// persist writes the history of one workflow, leaving the stored records of
// other workflows alone. Storage failures are logged, never surfaced as edit
// failures: the in-memory history stays authoritative.
func (e *Editor) persist(ctx context.Context, workflowID string) {
	if err := e.history.PersistWorkflows(ctx, workflowID); err != nil {
		e.logger.Warn("Failed to persist history", "workflow_id", workflowID, "err", err)
	}
}

func slotPrefix(workflowID, nodeID string) string {
	if nodeID == "" {
		return workflowID + "/"
	}
	return workflowID + "/" + nodeID + "/"
}
