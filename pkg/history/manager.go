// Package history keeps per-workflow undo/redo stacks of graph snapshots.
//
// All mutation goes through the Manager's named transitions. Restores put a
// workflow into the "applying" state, during which SaveSnapshot is ignored so
// that change events triggered by the restore itself are not captured.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

const (
	// DefaultMaxSize bounds the undo stack of each workflow.
	DefaultMaxSize = 50

	// DefaultSettle is how long a workflow stays in the applying state after
	// an undo or redo.
	DefaultSettle = 100 * time.Millisecond

	// DefaultStorageKey is the fixed key the whole history map is stored under.
	DefaultStorageKey = "workflow-history"
)

// Manager owns the history of every open workflow.
type Manager struct {
	mu      sync.Mutex
	records map[string]*domain.HistoryRecord
	timers  map[string]*time.Timer

	maxSize int
	settle  time.Duration
	store   ports.HistoryStore
	key     string
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithMaxSize sets the maximum undo stack depth. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithSettle sets the applying window after a restore.
// A zero duration disables the timer; the caller must then call FinishApplying.
func WithSettle(d time.Duration) Option {
	return func(m *Manager) {
		m.settle = d
	}
}

// WithStore enables Persist and Restore.
func WithStore(store ports.HistoryStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker guards the read-merge-write of PersistWorkflows with a
// distributed lock, so several managers can share one store.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) Option {
	return func(m *Manager) {
		m.key = key
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty history manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		records: make(map[string]*domain.HistoryRecord),
		timers:  make(map[string]*time.Timer),
		maxSize: DefaultMaxSize,
		settle:  DefaultSettle,
		key:     DefaultStorageKey,
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// record returns the record for id, creating it. Caller holds m.mu.
func (m *Manager) record(id string) *domain.HistoryRecord {
	rec, ok := m.records[id]
	if !ok {
		rec = &domain.HistoryRecord{}
		m.records[id] = rec
	}
	return rec
}

// SaveSnapshot captures snap as a new checkpoint for workflow id.
// It reports whether the snapshot was pushed.
func (m *Manager) SaveSnapshot(id string, snap domain.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(id)
	if rec.IsApplyingSnapshot {
		m.logger.Debug("Snapshot ignored while applying", "workflow_id", id)
		return false
	}

	if n := len(rec.UndoStack); n > 1 && sameStructure(rec.UndoStack[n-1], snap) {
		m.logger.Debug("Snapshot ignored as duplicate", "workflow_id", id)
		return false
	}

	rec.UndoStack = append(rec.UndoStack, snap)
	if over := len(rec.UndoStack) - m.maxSize; over > 0 {
		rec.UndoStack = append([]domain.Snapshot(nil), rec.UndoStack[over:]...)
	}
	rec.RedoStack = nil
	return true
}

// Undo pops the newest checkpoint and returns it for the caller to restore.
// current is pushed onto the redo stack. The baseline checkpoint is never popped.
func (m *Manager) Undo(id string, current domain.Snapshot) (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(id)
	n := len(rec.UndoStack)
	if n <= 1 {
		return domain.Snapshot{}, false
	}

	target := rec.UndoStack[n-1]
	rec.UndoStack = rec.UndoStack[:n-1]
	rec.RedoStack = append(rec.RedoStack, current)
	m.beginApplying(id, rec)
	return target, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(id string, current domain.Snapshot) (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(id)
	n := len(rec.RedoStack)
	if n == 0 {
		return domain.Snapshot{}, false
	}

	target := rec.RedoStack[n-1]
	rec.RedoStack = rec.RedoStack[:n-1]
	rec.UndoStack = append(rec.UndoStack, current)
	if over := len(rec.UndoStack) - m.maxSize; over > 0 {
		rec.UndoStack = append([]domain.Snapshot(nil), rec.UndoStack[over:]...)
	}
	m.beginApplying(id, rec)
	return target, true
}

// beginApplying enters the applying state and arms the settle timer.
// Caller holds m.mu.
func (m *Manager) beginApplying(id string, rec *domain.HistoryRecord) {
	rec.IsApplyingSnapshot = true
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	if m.settle <= 0 {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(m.settle, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// A newer restore replaced this timer.
		if m.timers[id] != timer {
			return
		}
		delete(m.timers, id)
		if rec, ok := m.records[id]; ok {
			rec.IsApplyingSnapshot = false
		}
	})
	m.timers[id] = timer
}

// Settle returns the configured applying window.
func (m *Manager) Settle() time.Duration {
	return m.settle
}

// FinishApplying leaves the applying state immediately.
func (m *Manager) FinishApplying(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	if rec, ok := m.records[id]; ok {
		rec.IsApplyingSnapshot = false
	}
}

// IsApplying reports whether a restore is still settling for workflow id.
func (m *Manager) IsApplying(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return ok && rec.IsApplyingSnapshot
}

// ResetHistory makes checkpoint the only entry of the undo stack and clears redo.
func (m *Manager) ResetHistory(id string, checkpoint domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(id)
	rec.UndoStack = []domain.Snapshot{checkpoint}
	rec.RedoStack = nil
}

// CanUndo reports whether Undo would return a snapshot.
func (m *Manager) CanUndo(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return ok && len(rec.UndoStack) > 1
}

// CanRedo reports whether Redo would return a snapshot.
func (m *Manager) CanRedo(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return ok && len(rec.RedoStack) > 0
}

// Record returns a copy of the history of workflow id.
func (m *Manager) Record(id string) (domain.HistoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return domain.HistoryRecord{}, false
	}
	return copyRecord(rec), true
}

// Forget drops the history of workflow id.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	delete(m.records, id)
}

// Workflows lists the ids with a history, sorted.
func (m *Manager) Workflows() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Persist writes the whole history map to the configured store, replacing
// whatever is stored. It is a no-op without a store. Managers sharing a
// store use PersistWorkflows instead.
func (m *Manager) Persist(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	blob, err := Encode(m.records)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.store.Save(ctx, m.key, blob); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// PersistWorkflows writes the records of ids into the stored blob and keeps
// the records of every other workflow as stored. An id without a local
// record is removed from the blob.
func (m *Manager) PersistWorkflows(ctx context.Context, ids ...string) error {
	if m.store == nil || len(ids) == 0 {
		return nil
	}

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "blob:"+m.key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock history: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release history lock (will expire via TTL)", "err", err)
			}
		}()
	}

	stored, err := m.load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			cp := copyRecord(rec)
			cp.IsApplyingSnapshot = false
			stored[id] = &cp
		} else {
			delete(stored, id)
		}
	}
	blob, err := Encode(stored)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.store.Save(ctx, m.key, blob); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// load reads and decodes the stored blob. A missing blob is an empty map.
func (m *Manager) load(ctx context.Context) (map[string]*domain.HistoryRecord, error) {
	blob, err := m.store.Load(ctx, m.key)
	if errors.Is(err, domain.ErrHistoryNotFound) {
		return map[string]*domain.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return Decode(blob)
}

// Restore replaces the in-memory history with the persisted one.
// A missing blob leaves the manager empty and is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	blob, err := m.store.Load(ctx, m.key)
	if errors.Is(err, domain.ErrHistoryNotFound) {
		m.logger.Debug("No persisted history", "key", m.key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	records, err := Decode(blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.records = records
	m.logger.Info("History restored", "workflows", len(records))
	return nil
}

func copyRecord(rec *domain.HistoryRecord) domain.HistoryRecord {
	return domain.HistoryRecord{
		UndoStack:          append([]domain.Snapshot(nil), rec.UndoStack...),
		RedoStack:          append([]domain.Snapshot(nil), rec.RedoStack...),
		IsApplyingSnapshot: rec.IsApplyingSnapshot,
	}
}

// sameStructure compares nodes and edges through their canonical JSON form.
// Viewport, timestamp and description do not count as edits.
func sameStructure(a, b domain.Snapshot) bool {
	ka, errA := structureKey(a)
	kb, errB := structureKey(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ka, kb)
}

func structureKey(s domain.Snapshot) ([]byte, error) {
	return json.Marshal(struct {
		Nodes []domain.Node `json:"nodes"`
		Edges []domain.Edge `json:"edges"`
	}{s.Nodes, s.Edges})
}
