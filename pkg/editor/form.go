package editor

import (
	"context"
	"fmt"

	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
	"github.com/aretw0/weave/pkg/schema"
	"github.com/aretw0/weave/pkg/visibility"
)

// UpdateInput writes value at path in the node's active inputs and returns
// the recomputed form. Input edits are not checkpointed.
func (e *Editor) UpdateInput(ctx context.Context, workflowID, nodeID, path string, value any) (domain.FormState, error) {
	if path == "" {
		return domain.FormState{}, fmt.Errorf("%w: input path cannot be empty", domain.ErrInvalidInput)
	}

	var form domain.FormState
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		node, err := e.node(workflowID, nodeID)
		if err != nil {
			return err
		}
		v := node.ActiveVersion()
		if v == nil {
			return fmt.Errorf("node %s has no versions", nodeID)
		}
		if v.Inputs == nil {
			v.Inputs = make(map[string]any)
		}
		if err := paths.Set(v.Inputs, path, value); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}

		form = e.form(ctx, workflowID, node)
		return nil
	})
	return form, err
}

// Form returns the visible form of a node and refreshes async properties
// whose relevant inputs changed.
func (e *Editor) Form(ctx context.Context, workflowID, nodeID string) (domain.FormState, error) {
	var form domain.FormState
	err := e.withLock(ctx, workflowID, func(ctx context.Context) error {
		node, err := e.node(workflowID, nodeID)
		if err != nil {
			return err
		}
		form = e.form(ctx, workflowID, node)
		return nil
	})
	return form, err
}

// node returns a pointer into the live graph. Caller holds the workflow lock.
func (e *Editor) node(workflowID, nodeID string) (*domain.Node, error) {
	wf, err := e.live(workflowID)
	if err != nil {
		return nil, err
	}
	node, ok := wf.graph.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	return node, nil
}

func (e *Editor) form(ctx context.Context, workflowID string, node *domain.Node) domain.FormState {
	form := domain.FormState{NodeID: node.ID, Inputs: map[string]any{}}
	v := node.ActiveVersion()
	if v == nil {
		return form
	}

	form.Version = v.Version
	if v.Inputs != nil {
		form.Inputs = cloneMap(v.Inputs)
	}
	form.Properties = visibility.VisibleProperties(v.Properties, v.Inputs, "", v.Version)
	form.Credentials = visibility.VisibleCredentials(v.Credentials, v.Inputs, v.Version)
	form.Issues = schema.Issues(schema.ValidateInputs(v.Properties, v.Inputs, v.Version))

	async := make(map[string]domain.AsyncState)
	e.walkAsync(ctx, workflowID, node, v, form.Properties, "", async)
	if len(async) > 0 {
		form.Async = async
	}
	return form
}

// walkAsync visits the visible tree and tracks every async property in it.
func (e *Editor) walkAsync(ctx context.Context, workflowID string, node *domain.Node, v *domain.NodeVersion, props []domain.Property, currentPath string, out map[string]domain.AsyncState) {
	for i := range props {
		prop := &props[i]
		path := paths.Join(currentPath, prop.Name)

		switch {
		case prop.Type == domain.PropertySection:
			e.walkAsync(ctx, workflowID, node, v, prop.Collection, currentPath, out)
			continue
		case prop.Type == domain.PropertyArray:
			items, _ := paths.Get(v.Inputs, path)
			list, _ := items.([]any)
			for idx := range list {
				itemPath := paths.Item(path, idx)
				children := visibility.VisibleArrayItem(prop, v.Inputs, currentPath, idx, v.Version)
				e.walkAsync(ctx, workflowID, node, v, children, itemPath, out)
			}
			continue
		case prop.Type == domain.PropertyCollection && !prop.IsAsync():
			e.walkAsync(ctx, workflowID, node, v, prop.Collection, path, out)
			continue
		}

		if !prop.IsAsync() {
			continue
		}
		out[path] = e.trackAsync(ctx, workflowID, node, v, prop, currentPath)
	}
}

func (e *Editor) trackAsync(ctx context.Context, workflowID string, node *domain.Node, v *domain.NodeVersion, prop *domain.Property, currentPath string) domain.AsyncState {
	if e.cache == nil {
		return domain.AsyncState{Status: string(asyncprop.StatusIdle)}
	}

	slot := slotPrefix(workflowID, node.ID) + paths.Join(currentPath, prop.Name)
	decision := e.tracker.Observe(slot, node.Type, currentPath, prop, v.Inputs)

	entry, ok := e.cache.Get(slot)
	if decision.Refetch || !ok {
		e.logger.Debug("Refreshing async property", "slot", slot, "method", prop.LoadMethod)
		entry = e.cache.Refresh(ctx, asyncprop.Request{
			Slot:       slot,
			NodeName:   node.Type,
			MethodName: prop.LoadMethod,
			Key:        decision.Key,
			Inputs:     loaderInputs(v.Inputs, currentPath, decision.Relevant),
		})
	}
	return asyncState(entry)
}

// loaderInputs copies inputs for a loader call. Below the top level, the
// resolved dependencies are written at their declared paths so the loader
// sees the values of the item it is loading for.
func loaderInputs(inputs map[string]any, currentPath string, relevant map[string]any) map[string]any {
	out := cloneMap(inputs)
	if out == nil {
		out = make(map[string]any)
	}
	if currentPath == "" {
		return out
	}
	for dep, value := range relevant {
		// A dependency path that cannot be written is left to the loader's own lookup.
		_ = paths.Set(out, dep, value)
	}
	return out
}

func asyncState(entry asyncprop.Entry) domain.AsyncState {
	state := domain.AsyncState{Status: string(entry.Status())}
	if entry.Data != nil {
		state.Options = entry.Data.Options
		state.Collection = entry.Data.Collection
		state.CredentialName = entry.Data.CredentialName
	}
	if entry.Err != nil {
		state.Error = entry.Err.Error()
	}
	return state
}
