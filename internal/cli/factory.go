// Package cli assembles the editor runtime shared by the weave commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/pkg/adapters/file"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/adapters/process"
	"github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/editor"
	"github.com/aretw0/weave/pkg/history"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
)

// Runtime is a fully wired editor and the resources behind it.
type Runtime struct {
	Editor  *editor.Editor
	History *history.Manager
	Store   ports.HistoryStore
	Loader  *process.Loader

	closers []func() error
}

// Close releases the storage backend.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build creates the history store, restores persisted history and wires the
// editor. notify, when set, receives every settled async property load.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, notify func(slot string, e asyncprop.Entry)) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{}

	var (
		editorOpts  []editor.Option
		historyOpts []history.Option
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		rt.Store = memory.NewStore()
	case config.BackendFile:
		rt.Store = file.New(cfg.Storage.Dir)
	case config.BackendRedis:
		rc := cfg.Storage.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		rt.Store = store
		rt.closers = append(rt.closers, store.Close)
		locker := redis.NewLocker(store.Client(), rc.Prefix)
		editorOpts = append(editorOpts, editor.WithLocker(locker, 0))
		historyOpts = append(historyOpts, history.WithLocker(locker, 0))
	}

	var mws []middleware.Middleware
	if len(cfg.Storage.RedactInputs) > 0 {
		mws = append(mws, middleware.NewRedactionMiddleware(cfg.Storage.RedactInputs))
	}
	if cfg.Storage.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.Storage.EncryptionKey)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	rt.Store = middleware.Chain(rt.Store, mws...)

	historyOpts = append(historyOpts,
		history.WithStore(rt.Store),
		history.WithMaxSize(cfg.History.MaxSize),
		history.WithSettle(cfg.History.Settle),
		history.WithLogger(logger),
	)
	rt.History = history.NewManager(historyOpts...)
	if err := rt.History.Restore(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to restore history: %w", err)
	}

	rt.Loader = process.NewLoader(
		process.WithRegistry(process.Index(cfg.Loaders)),
		process.WithLogger(logger),
	)
	cacheOpts := []asyncprop.CacheOption{asyncprop.WithLogger(logger)}
	if notify != nil {
		cacheOpts = append(cacheOpts, asyncprop.WithNotify(notify))
	}
	editorOpts = append(editorOpts,
		editor.WithLoader(rt.Loader, cacheOpts...),
		editor.WithLogger(logger),
	)

	rt.Editor = editor.New(rt.History, editorOpts...)
	logger.Debug("Runtime ready",
		"backend", cfg.Storage.Backend,
		"encrypted", cfg.Storage.EncryptionKey != "",
		"loaders", len(cfg.Loaders),
	)
	return rt, nil
}
