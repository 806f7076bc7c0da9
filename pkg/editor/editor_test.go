package editor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/editor"
	"github.com/aretw0/weave/pkg/history"
	"github.com/aretw0/weave/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wf = "wf-1"

func chatNode(id string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: "chatModel",
		Data: domain.NodeData{
			SelectedVersion: 1,
			Versions: []domain.NodeVersion{{
				Version: 1,
				Properties: []domain.Property{
					{Name: "model_provider", Type: domain.PropertyOptions, Default: "openai"},
					{
						Name:       "model",
						Type:       domain.PropertyAsyncOptions,
						LoadMethod: "listModels",
						DisplayOptions: &domain.DisplayOptions{
							Show: map[string][]domain.Condition{"model_provider": {domain.Exists()}},
						},
					},
					{
						Name: "temperature",
						Type: domain.PropertyNumber,
						DisplayOptions: &domain.DisplayOptions{
							Show: map[string][]domain.Condition{"mode": {domain.Eq("advanced")}},
						},
					},
					{Name: "mode", Type: domain.PropertyOptions, Default: "basic"},
				},
			}},
		},
	}
}

func baseGraph() domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{{ID: "a", Type: "trigger"}, {ID: "b", Type: "noop"}, {ID: "c", Type: "noop"}},
		Edges: []domain.Edge{{ID: "a-b", Source: "a", Target: "b"}},
	}
}

func newEditor(t *testing.T, opts ...editor.Option) (*editor.Editor, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	h := history.NewManager(history.WithStore(store), history.WithSettle(0))
	e := editor.New(h, opts...)
	require.NoError(t, e.Open(context.Background(), wf, baseGraph()))
	return e, store
}

func TestEditor_OpenRejectsInvalidGraph(t *testing.T) {
	e := editor.New(history.NewManager())
	g := domain.Graph{
		Nodes: []domain.Node{{ID: "a"}, {ID: "b"}},
		Edges: []domain.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}
	var vErr *connectivity.ValidationError
	assert.ErrorAs(t, e.Open(context.Background(), wf, g), &vErr)

	_, err := e.Graph(context.Background(), wf)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestEditor_ConnectRejectsCycleWithoutMutation(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	_, err := e.Connect(ctx, wf, domain.Edge{Source: "b", Target: "c"})
	require.NoError(t, err)

	before, _ := e.History(ctx, wf)

	_, err = e.Connect(ctx, wf, domain.Edge{Source: "c", Target: "a"})
	assert.ErrorIs(t, err, connectivity.ErrCycle)
	_, err = e.Connect(ctx, wf, domain.Edge{Source: "a", Target: "a"})
	assert.ErrorIs(t, err, connectivity.ErrSelfLoop)
	_, err = e.Connect(ctx, wf, domain.Edge{Source: "a", Target: "ghost"})
	assert.ErrorIs(t, err, connectivity.ErrUnknownNode)

	g, err := e.Graph(ctx, wf)
	require.NoError(t, err)
	assert.Len(t, g.Edges, 2)

	after, _ := e.History(ctx, wf)
	assert.Equal(t, before.UndoDepth, after.UndoDepth, "rejected edges are not checkpointed")

	assert.ErrorIs(t, e.ValidateConnection(ctx, wf, domain.Edge{Source: "c", Target: "b"}), connectivity.ErrCycle)
	assert.NoError(t, e.ValidateConnection(ctx, wf, domain.Edge{Source: "a", Target: "c"}))
}

func TestEditor_ConnectAssignsIDAndIgnoresDuplicates(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	edge, err := e.Connect(ctx, wf, domain.Edge{Source: "b", Target: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, edge.ID)

	again, err := e.Connect(ctx, wf, domain.Edge{Source: "b", Target: "c"})
	require.NoError(t, err)
	assert.Equal(t, edge.ID, again.ID)

	g, _ := e.Graph(ctx, wf)
	assert.Len(t, g.Edges, 2)
}

func TestEditor_UndoRestoresPreEditState(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "d", Type: "noop"}))
	_, err := e.Connect(ctx, wf, domain.Edge{Source: "c", Target: "d"})
	require.NoError(t, err)

	g, ok, err := e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 1, "connection undone")

	g, ok, err = e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Nodes, 3, "node addition undone")

	g, ok, err = e.Redo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Nodes, 4)

	g, ok, err = e.Redo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Edges, 2)

	_, ok, err = e.Redo(ctx, wf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditor_EditAfterUndoWithinSettleWindow(t *testing.T) {
	h := history.NewManager(history.WithStore(memory.NewStore()))
	require.Equal(t, history.DefaultSettle, h.Settle())
	e := editor.New(h)
	ctx := context.Background()
	require.NoError(t, e.Open(ctx, wf, baseGraph()))

	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "d", Type: "noop"}))
	_, ok, err := e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, h.IsApplying(wf))

	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "x", Type: "noop"}))
	assert.False(t, h.IsApplying(wf))

	status, err := e.History(ctx, wf)
	require.NoError(t, err)
	assert.Equal(t, 0, status.RedoDepth, "a new edit clears the redo branch")
	assert.True(t, status.CanUndo)

	_, ok, err = e.Redo(ctx, wf)
	require.NoError(t, err)
	assert.False(t, ok)

	g, ok, err := e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Nodes, 3, "undo removes x")
}

func TestEditor_RemoveNodeDropsEdges(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	require.NoError(t, e.RemoveNode(ctx, wf, "b"))
	g, _ := e.Graph(ctx, wf)
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)

	assert.ErrorIs(t, e.RemoveNode(ctx, wf, "b"), domain.ErrNodeNotFound)
	assert.ErrorIs(t, e.Disconnect(ctx, wf, "a-b"), domain.ErrEdgeNotFound)

	g, ok, err := e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Edges, 1)
}

func TestEditor_DragIsOneCheckpoint(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	require.NoError(t, e.StartDrag(ctx, wf, "a"))
	for i := 1; i <= 5; i++ {
		require.NoError(t, e.MoveNode(ctx, wf, "a", domain.Position{X: float64(i * 10), Y: 0}))
	}
	require.NoError(t, e.SetViewport(ctx, wf, domain.Viewport{Zoom: 2}))

	g, _ := e.Graph(ctx, wf)
	assert.Equal(t, 50.0, g.Nodes[0].Position.X)

	g, ok, err := e.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, g.Nodes[0].Position.X)

	_, ok, _ = e.Undo(ctx, wf)
	assert.False(t, ok, "baseline reached")
}

func TestEditor_SaveResetsBaseline(t *testing.T) {
	e, store := newEditor(t)
	ctx := context.Background()

	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "d", Type: "noop"}))
	status, err := e.History(ctx, wf)
	require.NoError(t, err)
	assert.True(t, status.CanUndo)

	snap, err := e.Save(ctx, wf)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 4)

	status, _ = e.History(ctx, wf)
	assert.False(t, status.CanUndo)
	assert.Equal(t, 1, status.UndoDepth)

	_, err = store.Load(ctx, history.DefaultStorageKey)
	assert.NoError(t, err, "history is persisted")
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Save(ctx context.Context, key string, blob []byte) error {
	return errors.New("disk full")
}

func TestEditor_SaveSurfacesStorageFailure(t *testing.T) {
	h := history.NewManager(history.WithStore(failingStore{memory.NewStore()}), history.WithSettle(0))
	e := editor.New(h)
	ctx := context.Background()

	// Transitions only log the failure.
	require.NoError(t, e.Open(ctx, wf, baseGraph()))
	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "d", Type: "noop"}))

	_, err := e.Save(ctx, wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEditor_HistorySurvivesRestart(t *testing.T) {
	e, store := newEditor(t)
	ctx := context.Background()
	require.NoError(t, e.AddNode(ctx, wf, domain.Node{ID: "d", Type: "noop"}))

	h := history.NewManager(history.WithStore(store), history.WithSettle(0))
	require.NoError(t, h.Restore(ctx))
	reopened := editor.New(h)

	current, _ := e.Graph(ctx, wf)
	require.NoError(t, reopened.Open(ctx, wf, current))

	g, ok, err := reopened.Undo(ctx, wf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Nodes, 3)
}

func TestEditor_UpdateInputRecomputesForm(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	loader := memory.NewLoader()
	loader.Register("chatModel", "listModels", func(inputs map[string]any) (*domain.LoadResult, error) {
		provider, _ := inputs["model_provider"].(string)
		mu.Lock()
		calls[provider]++
		mu.Unlock()
		return &domain.LoadResult{Options: []domain.PropertyOption{{Name: provider + "-large", Value: provider + "-large"}}}, nil
	})

	settled := make(chan asyncprop.Entry, 8)
	e, _ := newEditor(t, editor.WithLoader(loader, asyncprop.WithNotify(func(slot string, entry asyncprop.Entry) {
		settled <- entry
	})))
	ctx := context.Background()
	require.NoError(t, e.AddNode(ctx, wf, chatNode("llm")))

	form, err := e.Form(ctx, wf, "llm")
	require.NoError(t, err)
	assert.Equal(t, "openai", form.Inputs["model_provider"], "defaults applied")
	assert.Equal(t, []string{"model_provider", "model", "mode"}, names(form.Properties))
	assert.Equal(t, string(asyncprop.StatusLoading), form.Async["model"].Status)
	waitSettled(t, settled)

	form, err = e.UpdateInput(ctx, wf, "llm", "mode", "advanced")
	require.NoError(t, err)
	assert.Contains(t, names(form.Properties), "temperature")
	assert.Equal(t, string(asyncprop.StatusReady), form.Async["model"].Status, "unrelated input keeps cached data")
	assert.Equal(t, "openai-large", form.Async["model"].Options[0].Name)

	form, err = e.UpdateInput(ctx, wf, "llm", "model_provider", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, string(asyncprop.StatusBackgroundLoading), form.Async["model"].Status)
	assert.Equal(t, "openai-large", form.Async["model"].Options[0].Name, "stale data stays visible")
	entry := waitSettled(t, settled)
	assert.Equal(t, "anthropic-large", entry.Data.Options[0].Name)

	mu.Lock()
	assert.Equal(t, map[string]int{"openai": 1, "anthropic": 1}, calls)
	mu.Unlock()

	status, _ := e.History(ctx, wf)
	assert.Equal(t, 2, status.UndoDepth, "input edits are not checkpointed")
}

func TestEditor_ArrayItemAsyncDependencies(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	loader := memory.NewLoader()
	loader.Register("agent", "listModels", func(inputs map[string]any) (*domain.LoadResult, error) {
		provider, _ := inputs["model_provider"].(string)
		mu.Lock()
		calls[provider]++
		mu.Unlock()
		return &domain.LoadResult{Options: []domain.PropertyOption{{Name: provider + "-large", Value: provider + "-large"}}}, nil
	})

	settled := make(chan asyncprop.Entry, 8)
	e, _ := newEditor(t, editor.WithLoader(loader, asyncprop.WithNotify(func(slot string, entry asyncprop.Entry) {
		settled <- entry
	})))
	ctx := context.Background()

	agent := domain.Node{
		ID:   "agent",
		Type: "agent",
		Data: domain.NodeData{Versions: []domain.NodeVersion{{
			Version: 1,
			Properties: []domain.Property{{
				Name: "tools",
				Type: domain.PropertyArray,
				Collection: []domain.Property{
					{Name: "model_provider", Type: domain.PropertyOptions},
					{
						Name:       "model",
						Type:       domain.PropertyAsyncOptions,
						LoadMethod: "listModels",
						DisplayOptions: &domain.DisplayOptions{
							Show: map[string][]domain.Condition{"model_provider": {domain.Exists()}},
						},
					},
				},
			}},
		}}},
	}
	require.NoError(t, e.AddNode(ctx, wf, agent))

	form, err := e.UpdateInput(ctx, wf, "agent", "tools.0.model_provider", "openai")
	require.NoError(t, err)
	require.Contains(t, form.Async, "tools.0.model")
	entry := waitSettled(t, settled)
	assert.Equal(t, "openai-large", entry.Data.Options[0].Name, "loader sees the item's provider")

	form, err = e.UpdateInput(ctx, wf, "agent", "tools.0.model_provider", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, string(asyncprop.StatusBackgroundLoading), form.Async["tools.0.model"].Status)
	entry = waitSettled(t, settled)
	assert.Equal(t, "anthropic-large", entry.Data.Options[0].Name)

	mu.Lock()
	assert.Equal(t, map[string]int{"openai": 1, "anthropic": 1}, calls)
	mu.Unlock()
}

func TestEditor_FormReportsInputIssues(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()
	require.NoError(t, e.AddNode(ctx, wf, chatNode("llm")))

	form, err := e.Form(ctx, wf, "llm")
	require.NoError(t, err)
	assert.Empty(t, form.Issues, "hidden temperature is not checked")

	form, err = e.UpdateInput(ctx, wf, "llm", "mode", "advanced")
	require.NoError(t, err)
	assert.Equal(t, []string{`field "temperature": required`}, form.Issues)

	form, err = e.UpdateInput(ctx, wf, "llm", "temperature", "hot")
	require.NoError(t, err)
	assert.Equal(t, []string{`field "temperature": expected number, got string`}, form.Issues)

	form, err = e.UpdateInput(ctx, wf, "llm", "temperature", 0.7)
	require.NoError(t, err)
	assert.Empty(t, form.Issues)
}

func TestEditor_UpdateInputErrors(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	_, err := e.UpdateInput(ctx, "other", "a", "x", 1)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	_, err = e.UpdateInput(ctx, wf, "ghost", "x", 1)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	_, err = e.UpdateInput(ctx, wf, "a", "", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, e.AddNode(ctx, wf, chatNode("m")))
	_, err = e.UpdateInput(ctx, wf, "m", "items.20000000", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, paths.ErrIndexOutOfRange)
	form, err := e.Form(ctx, wf, "m")
	require.NoError(t, err)
	assert.NotContains(t, form.Inputs, "items")
}

func TestEditor_ConcurrentEditsAreSerialized(t *testing.T) {
	e, _ := newEditor(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = e.MoveNode(ctx, wf, "a", domain.Position{X: float64(i)})
			_, _ = e.Graph(ctx, wf)
		}(i)
	}
	wg.Wait()

	_, err := e.Graph(ctx, wf)
	assert.NoError(t, err)
}

func names(props []domain.Property) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.Name)
	}
	return out
}

func waitSettled(t *testing.T, ch <-chan asyncprop.Entry) asyncprop.Entry {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("async property never settled")
	}
	return asyncprop.Entry{}
}
