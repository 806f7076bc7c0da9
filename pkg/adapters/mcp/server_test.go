package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/dsl"
	"github.com/aretw0/weave/pkg/editor"
	"github.com/aretw0/weave/pkg/history"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wf = "wf-1"

func newServer(t *testing.T) *Server {
	t.Helper()
	ed := editor.New(history.NewManager(history.WithSettle(0)))
	b := dsl.New()
	b.Add("a").Type("trigger").To("b")
	b.Add("b").Type("noop")
	b.Add("c").Type("set").Version(1,
		domain.Property{Name: "keepOnlySet", Type: domain.PropertyBoolean, Default: false},
		domain.Property{
			Name: "fields",
			Type: domain.PropertyString,
			DisplayOptions: &domain.DisplayOptions{
				Show: map[string][]domain.Condition{"keepOnlySet": {domain.Literal(true)}},
			},
		},
	)
	graph := b.MustBuild()
	require.NoError(t, ed.Open(context.Background(), wf, graph))
	return NewServer(ed)
}

func TestHandleValidateConnection(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleValidateConnection(ctx, mcp.CallToolRequest{}, EdgeArgs{WorkflowID: wf, Source: "b", Target: "a"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "cycle")

	res, err = s.handleValidateConnection(ctx, mcp.CallToolRequest{}, EdgeArgs{WorkflowID: wf, Source: "b", Target: "c"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = s.handleValidateConnection(ctx, mcp.CallToolRequest{}, EdgeArgs{WorkflowID: "ghost", Source: "a", Target: "b"})
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestHandleConnectAndUndo(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleConnect(ctx, mcp.CallToolRequest{}, EdgeArgs{WorkflowID: wf, Source: "b", Target: "c"})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.NotNil(t, res.Edge)

	res, err = s.handleConnect(ctx, mcp.CallToolRequest{}, EdgeArgs{WorkflowID: wf, Source: "c", Target: "c"})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	graph, err := s.handleGetGraph(ctx, mcp.CallToolRequest{}, WorkflowArgs{WorkflowID: wf})
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 2)

	restored, err := s.handleUndo(ctx, mcp.CallToolRequest{}, WorkflowArgs{WorkflowID: wf})
	require.NoError(t, err)
	assert.True(t, restored.Applied)
	assert.Len(t, restored.Graph.Edges, 1)
	assert.True(t, restored.History.CanRedo)

	restored, err = s.handleRedo(ctx, mcp.CallToolRequest{}, WorkflowArgs{WorkflowID: wf})
	require.NoError(t, err)
	assert.True(t, restored.Applied)
	assert.Len(t, restored.Graph.Edges, 2)
}

func TestHandleUpdateInput(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	form, err := s.handleForm(ctx, mcp.CallToolRequest{}, InputArgs{WorkflowID: wf, NodeID: "c"})
	require.NoError(t, err)
	assert.Len(t, form.Properties, 1)

	form, err = s.handleUpdateInput(ctx, mcp.CallToolRequest{}, InputArgs{WorkflowID: wf, NodeID: "c", Path: "keepOnlySet", Value: "true"})
	require.NoError(t, err)
	assert.Len(t, form.Properties, 2)
	assert.Equal(t, true, form.Inputs["keepOnlySet"])

	_, err = s.handleUpdateInput(ctx, mcp.CallToolRequest{}, InputArgs{WorkflowID: wf, NodeID: "c"})
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"", nil},
		{"true", true},
		{"0.70", json.Number("0.70")},
		{`{"a":[1]}`, map[string]any{"a": []any{json.Number("1")}}},
		{"plain text", "plain text"},
		{`"quoted"`, "quoted"},
		{"1 2", "1 2"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.raw))
		})
	}
}
