package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const workflowURIPrefix = "weave://workflows/"

// WorkflowArgs addresses a single workflow.
type WorkflowArgs struct {
	WorkflowID string `json:"workflow_id"`
}

// EdgeArgs describes a candidate connection.
type EdgeArgs struct {
	WorkflowID   string `json:"workflow_id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

func (a EdgeArgs) edge() domain.Edge {
	return domain.Edge{Source: a.Source, Target: a.Target, SourceHandle: a.SourceHandle, TargetHandle: a.TargetHandle}
}

// InputArgs addresses one input value of a node.
type InputArgs struct {
	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`
	Path       string `json:"path,omitempty"`
	// Value is a JSON document; plain text that is not valid JSON is taken as a string.
	Value string `json:"value,omitempty"`
}

// ConnectionResponse is the answer of validate_connection and connect.
type ConnectionResponse struct {
	Valid  bool         `json:"valid" jsonschema_description:"Whether the connection is accepted"`
	Reason string       `json:"reason,omitempty" jsonschema_description:"Why the connection was refused"`
	Edge   *domain.Edge `json:"edge,omitempty" jsonschema_description:"The committed edge"`
}

// RestoreResponse is the answer of undo and redo.
type RestoreResponse struct {
	Applied bool                 `json:"applied" jsonschema_description:"False when there was nothing to restore"`
	Graph   domain.Graph         `json:"graph" jsonschema_description:"The graph after the transition"`
	History domain.HistoryStatus `json:"history" jsonschema_description:"Undo/redo availability"`
}

// Server exposes a ports.Editor as MCP tools.
type Server struct {
	editor    ports.Editor
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(editor ports.Editor, opts ...Option) *Server {
	s := &Server{
		editor:    editor,
		mcpServer: server.NewMCPServer("weave-mcp", strings.TrimSpace(weave.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP endpoints over SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	workflowID := mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow identifier"))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the current nodes, edges and viewport of a workflow."),
		workflowID,
	), mcp.NewStructuredToolHandler(s.handleGetGraph))

	s.mcpServer.AddTool(mcp.NewTool("validate_connection",
		mcp.WithDescription("Check whether an edge from source to target would be accepted. Self loops and cycles are refused."),
		workflowID,
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithOutputSchema[ConnectionResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidateConnection))

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Commit an edge between two nodes. Refused connections leave the graph unchanged."),
		workflowID,
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("source_handle", mcp.Description("Output handle on the source node")),
		mcp.WithString("target_handle", mcp.Description("Input handle on the target node")),
		mcp.WithOutputSchema[ConnectionResponse](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("visible_form",
		mcp.WithDescription("List the properties, credentials and async option states currently visible for a node."),
		workflowID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
	), mcp.NewStructuredToolHandler(s.handleForm))

	s.mcpServer.AddTool(mcp.NewTool("update_input",
		mcp.WithDescription("Set a node input at a dot-path (e.g. headers.0.name) and return the recomputed form."),
		workflowID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Dot-path inside the node inputs")),
		mcp.WithString("value", mcp.Description("JSON value to store; plain text is stored as a string")),
	), mcp.NewStructuredToolHandler(s.handleUpdateInput))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Restore the previous graph snapshot."),
		workflowID,
		mcp.WithOutputSchema[RestoreResponse](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Re-apply the last undone graph snapshot."),
		workflowID,
		mcp.WithOutputSchema[RestoreResponse](),
	), mcp.NewStructuredToolHandler(s.handleRedo))
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest, args WorkflowArgs) (domain.Graph, error) {
	return s.editor.Graph(ctx, args.WorkflowID)
}

func (s *Server) handleValidateConnection(ctx context.Context, request mcp.CallToolRequest, args EdgeArgs) (ConnectionResponse, error) {
	err := s.editor.ValidateConnection(ctx, args.WorkflowID, args.edge())
	if err == nil {
		return ConnectionResponse{Valid: true}, nil
	}
	if errors.Is(err, domain.ErrWorkflowNotFound) {
		return ConnectionResponse{}, err
	}
	return ConnectionResponse{Valid: false, Reason: err.Error()}, nil
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args EdgeArgs) (ConnectionResponse, error) {
	edge, err := s.editor.Connect(ctx, args.WorkflowID, args.edge())
	if err != nil {
		if errors.Is(err, domain.ErrWorkflowNotFound) {
			return ConnectionResponse{}, err
		}
		s.logger.Warn("MCP Connect: rejected", "workflow_id", args.WorkflowID, "err", err)
		return ConnectionResponse{Valid: false, Reason: err.Error()}, nil
	}
	return ConnectionResponse{Valid: true, Edge: &edge}, nil
}

func (s *Server) handleForm(ctx context.Context, request mcp.CallToolRequest, args InputArgs) (domain.FormState, error) {
	return s.editor.Form(ctx, args.WorkflowID, args.NodeID)
}

func (s *Server) handleUpdateInput(ctx context.Context, request mcp.CallToolRequest, args InputArgs) (domain.FormState, error) {
	if args.Path == "" {
		return domain.FormState{}, errors.New("path is required")
	}
	return s.editor.UpdateInput(ctx, args.WorkflowID, args.NodeID, args.Path, parseValue(args.Value))
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest, args WorkflowArgs) (RestoreResponse, error) {
	return s.restore(ctx, args.WorkflowID, s.editor.Undo)
}

func (s *Server) handleRedo(ctx context.Context, request mcp.CallToolRequest, args WorkflowArgs) (RestoreResponse, error) {
	return s.restore(ctx, args.WorkflowID, s.editor.Redo)
}

func (s *Server) restore(ctx context.Context, workflowID string, fn func(context.Context, string) (domain.Graph, bool, error)) (RestoreResponse, error) {
	graph, applied, err := fn(ctx, workflowID)
	if err != nil {
		return RestoreResponse{}, err
	}
	status, err := s.editor.History(ctx, workflowID)
	if err != nil {
		return RestoreResponse{}, err
	}
	return RestoreResponse{Applied: applied, Graph: graph, History: status}, nil
}

// parseValue decodes a JSON tool argument, keeping numbers exact.
func parseValue(raw string) any {
	if raw == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func (s *Server) registerResources() {
	// EXPOSE: weave://workflows/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(workflowURIPrefix+"{id}", "Workflow Graph",
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		graph, err := s.editor.Graph(ctx, strings.TrimPrefix(uri, workflowURIPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow: %w", err)
		}
		jsonBytes, err := json.Marshal(graph)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
