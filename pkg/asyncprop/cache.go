package asyncprop

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by Fetch when a newer request replaced the one
// in flight. The stale response has been discarded.
var ErrSuperseded = errors.New("async property request superseded")

// Status describes what the caller should render for an async property.
type Status string

const (
	StatusIdle              Status = "idle"
	StatusLoading           Status = "loading"            // no data yet
	StatusBackgroundLoading Status = "background_loading" // stale data shown while refreshing
	StatusReady             Status = "ready"
	StatusWarning           Status = "warning" // refresh failed, last good data still shown
	StatusError             Status = "error"   // failed and nothing to show
)

// Entry is the cached state of one async property slot.
type Entry struct {
	Data *domain.LoadResult
	// DataKey is the cache key Data was loaded for.
	DataKey string
	// Key is the currently active cache key.
	Key        string
	IsFetching bool
	Err        error
	UpdatedAt  time.Time
}

// Status derives the render status from the entry.
func (e Entry) Status() Status {
	switch {
	case e.IsFetching && e.Data == nil:
		return StatusLoading
	case e.IsFetching:
		return StatusBackgroundLoading
	case e.Err != nil && e.Data != nil:
		return StatusWarning
	case e.Err != nil:
		return StatusError
	case e.Data != nil:
		return StatusReady
	}
	return StatusIdle
}

// Request identifies one load for a slot.
type Request struct {
	Slot       string
	NodeName   string
	MethodName string
	Key        string
	Inputs     map[string]any
}

// Cache is a stale-while-revalidate store of async property data.
// Identical concurrent loads (same cache key) are collapsed into one call.
type Cache struct {
	loader  ports.PropertyLoader
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*Entry
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	notify  func(slot string, e Entry)
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithTimeout bounds every background load.
func WithTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.timeout = d
	}
}

// WithNotify registers a callback invoked after a slot settles.
func WithNotify(fn func(slot string, e Entry)) CacheOption {
	return func(c *Cache) {
		c.notify = fn
	}
}

// NewCache creates a cache backed by loader.
func NewCache(loader ports.PropertyLoader, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  loader,
		entries: make(map[string]*Entry),
		timeout: 30 * time.Second,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the entry for slot.
func (c *Cache) Get(slot string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[slot]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// begin marks req as the active request of its slot.
func (c *Cache) begin(req Request) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[req.Slot]
	if !ok {
		e = &Entry{}
		c.entries[req.Slot] = e
	}
	e.Key = req.Key
	e.IsFetching = true
	return *e
}

// Fetch loads req and waits for the result. Data for a superseded key is
// discarded and ErrSuperseded returned together with the current entry.
func (c *Cache) Fetch(ctx context.Context, req Request) (Entry, error) {
	c.begin(req)
	return c.run(ctx, req)
}

// Refresh starts loading req in the background and returns immediately with
// the entry as it stands, so previously fetched data stays visible.
func (c *Cache) Refresh(ctx context.Context, req Request) Entry {
	snapshot := c.begin(req)

	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, c.timeout)
		defer cancel()
		if _, err := c.run(ctx, req); err != nil && !errors.Is(err, ErrSuperseded) {
			c.logger.Warn("async property load failed",
				"slot", req.Slot,
				"node", req.NodeName,
				"method", req.MethodName,
				"err", err,
			)
		}
	}()

	return snapshot
}

func (c *Cache) run(ctx context.Context, req Request) (Entry, error) {
	v, err, shared := c.group.Do(req.Key, func() (any, error) {
		return c.loader.Load(ctx, req.NodeName, req.MethodName, req.Inputs)
	})
	if shared {
		c.logger.Debug("async property load deduplicated", "slot", req.Slot, "key", req.Key)
	}
	result, _ := v.(*domain.LoadResult)

	c.mu.Lock()
	e, ok := c.entries[req.Slot]
	if !ok || e.Key != req.Key {
		var current Entry
		if ok {
			current = *e
		}
		c.mu.Unlock()
		c.logger.Debug("discarding stale async property response", "slot", req.Slot, "key", req.Key)
		return current, ErrSuperseded
	}

	e.IsFetching = false
	e.UpdatedAt = c.now()
	if err != nil {
		e.Err = err
	} else {
		e.Err = nil
		e.Data = result
		e.DataKey = req.Key
	}
	settled := *e
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(req.Slot, settled)
	}
	return settled, err
}

// Drop removes every slot with the given prefix. In-flight loads for those
// slots are discarded on arrival.
func (c *Cache) Drop(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for slot := range c.entries {
		if strings.HasPrefix(slot, prefix) {
			delete(c.entries, slot)
		}
	}
}
