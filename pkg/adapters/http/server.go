package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/asyncprop"
	"github.com/aretw0/weave/pkg/connectivity"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a ports.Editor over HTTP.
type Server struct {
	Editor  ports.Editor
	Streams *StreamManager

	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	registry *prometheus.Registry
	logger   *slog.Logger
}

// WithRegistry exports metrics on the given registry instead of a private one.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *serverConfig) {
		c.registry = reg
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// NewServer creates a Server for editor.
func NewServer(editor ports.Editor, opts ...Option) *Server {
	cfg := serverConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}

	return &Server{
		Editor:   editor,
		Streams:  NewStreamManager(cfg.logger),
		metrics:  NewMetrics(cfg.registry),
		gatherer: cfg.registry,
		logger:   cfg.logger,
	}
}

// NewHandler creates a new HTTP handler for the editor.
func NewHandler(editor ports.Editor, opts ...Option) http.Handler {
	return NewServer(editor, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics.instrument)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/workflows/{workflowID}", func(r chi.Router) {
		r.Put("/", s.OpenWorkflow)
		r.Get("/", s.GetGraph)
		r.Get("/events", s.SubscribeEvents)

		r.Post("/nodes", s.AddNode)
		r.Delete("/nodes/{nodeID}", s.RemoveNode)
		r.Post("/nodes/{nodeID}/drag", s.StartDrag)
		r.Put("/nodes/{nodeID}/position", s.MoveNode)
		r.Get("/nodes/{nodeID}/form", s.GetForm)
		r.Patch("/nodes/{nodeID}/inputs", s.UpdateInput)

		r.Post("/edges", s.Connect)
		r.Post("/edges/validate", s.ValidateConnection)
		r.Delete("/edges/{edgeID}", s.Disconnect)

		r.Put("/viewport", s.SetViewport)

		r.Post("/undo", s.Undo)
		r.Post("/redo", s.Redo)
		r.Post("/save", s.Save)
		r.Get("/history", s.GetHistory)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "weave-http",
		"version": strings.TrimSpace(weave.Version),
	})
}

// OpenWorkflow handles PUT /workflows/{workflowID}.
func (s *Server) OpenWorkflow(w http.ResponseWriter, r *http.Request) {
	var graph domain.Graph
	if !s.decode(w, r, &graph) {
		return
	}
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.Open(r.Context(), id, graph); err != nil {
		s.fail(w, "OpenWorkflow", err)
		return
	}
	s.respondGraph(w, r, id, http.StatusOK)
}

// GetGraph handles GET /workflows/{workflowID}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	graph, err := s.Editor.Graph(r.Context(), id)
	if err != nil {
		s.fail(w, "GetGraph", err)
		return
	}
	s.writeJSON(w, http.StatusOK, graph)
}

// AddNode handles POST /workflows/{workflowID}/nodes.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var node domain.Node
	if !s.decode(w, r, &node) {
		return
	}
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.AddNode(r.Context(), id, node); err != nil {
		s.fail(w, "AddNode", err)
		return
	}
	s.respondGraph(w, r, id, http.StatusCreated)
}

// RemoveNode handles DELETE /workflows/{workflowID}/nodes/{nodeID}.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.RemoveNode(r.Context(), id, chi.URLParam(r, "nodeID")); err != nil {
		s.fail(w, "RemoveNode", err)
		return
	}
	s.respondGraph(w, r, id, http.StatusOK)
}

// StartDrag handles POST /workflows/{workflowID}/nodes/{nodeID}/drag.
func (s *Server) StartDrag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.StartDrag(r.Context(), id, chi.URLParam(r, "nodeID")); err != nil {
		s.fail(w, "StartDrag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNode handles PUT /workflows/{workflowID}/nodes/{nodeID}/position.
func (s *Server) MoveNode(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if !s.decode(w, r, &pos) {
		return
	}
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.MoveNode(r.Context(), id, chi.URLParam(r, "nodeID"), pos); err != nil {
		s.fail(w, "MoveNode", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetForm handles GET /workflows/{workflowID}/nodes/{nodeID}/form.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.Editor.Form(r.Context(), chi.URLParam(r, "workflowID"), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.fail(w, "GetForm", err)
		return
	}
	s.writeJSON(w, http.StatusOK, form)
}

// InputUpdate is the body of PATCH .../inputs.
type InputUpdate struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// UpdateInput handles PATCH /workflows/{workflowID}/nodes/{nodeID}/inputs.
func (s *Server) UpdateInput(w http.ResponseWriter, r *http.Request) {
	var body InputUpdate
	if !s.decode(w, r, &body) {
		return
	}
	if body.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	form, err := s.Editor.UpdateInput(r.Context(), chi.URLParam(r, "workflowID"), chi.URLParam(r, "nodeID"), body.Path, body.Value)
	if err != nil {
		s.fail(w, "UpdateInput", err)
		return
	}
	s.writeJSON(w, http.StatusOK, form)
}

// Connect handles POST /workflows/{workflowID}/edges.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var edge domain.Edge
	if !s.decode(w, r, &edge) {
		return
	}
	id := chi.URLParam(r, "workflowID")
	committed, err := s.Editor.Connect(r.Context(), id, edge)
	if err != nil {
		s.countRejection(err)
		s.fail(w, "Connect", err)
		return
	}
	s.broadcastGraph(r, id)
	s.writeJSON(w, http.StatusCreated, committed)
}

// ValidationResult is the answer of POST .../edges/validate.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateConnection handles POST /workflows/{workflowID}/edges/validate.
func (s *Server) ValidateConnection(w http.ResponseWriter, r *http.Request) {
	var edge domain.Edge
	if !s.decode(w, r, &edge) {
		return
	}
	err := s.Editor.ValidateConnection(r.Context(), chi.URLParam(r, "workflowID"), edge)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, ValidationResult{Valid: true})
	case isConnectivityErr(err):
		s.writeJSON(w, http.StatusOK, ValidationResult{Valid: false, Reason: err.Error()})
	default:
		s.fail(w, "ValidateConnection", err)
	}
}

// Disconnect handles DELETE /workflows/{workflowID}/edges/{edgeID}.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	if err := s.Editor.Disconnect(r.Context(), id, chi.URLParam(r, "edgeID")); err != nil {
		s.fail(w, "Disconnect", err)
		return
	}
	s.respondGraph(w, r, id, http.StatusOK)
}

// SetViewport handles PUT /workflows/{workflowID}/viewport.
func (s *Server) SetViewport(w http.ResponseWriter, r *http.Request) {
	var vp domain.Viewport
	if !s.decode(w, r, &vp) {
		return
	}
	if err := s.Editor.SetViewport(r.Context(), chi.URLParam(r, "workflowID"), vp); err != nil {
		s.fail(w, "SetViewport", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreResult is the answer of undo and redo.
type RestoreResult struct {
	Applied bool                 `json:"applied"`
	Graph   domain.Graph         `json:"graph"`
	History domain.HistoryStatus `json:"history"`
}

// Undo handles POST /workflows/{workflowID}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.restore(w, r, "undo")
}

// Redo handles POST /workflows/{workflowID}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.restore(w, r, "redo")
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request, op string) {
	id := chi.URLParam(r, "workflowID")

	restoreFn := s.Editor.Undo
	if op == "redo" {
		restoreFn = s.Editor.Redo
	}
	graph, applied, err := restoreFn(r.Context(), id)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.metrics.HistoryTransitions.WithLabelValues(op, fmt.Sprint(applied)).Inc()

	status, err := s.Editor.History(r.Context(), id)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	if applied {
		s.broadcast(id, "graph", graph)
	}
	s.writeJSON(w, http.StatusOK, RestoreResult{Applied: applied, Graph: graph, History: status})
}

// Save handles POST /workflows/{workflowID}/save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Editor.Save(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.fail(w, "Save", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetHistory handles GET /workflows/{workflowID}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	status, err := s.Editor.History(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// SubscribeEvents handles GET /workflows/{workflowID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := chi.URLParam(r, "workflowID")
	s.logger.Info("SSE: Subscribing to workflow updates", "workflow_id", id)

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "workflow_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Event is one SSE payload.
type Event struct {
	Type string `json:"type"`
	Slot string `json:"slot,omitempty"`
	Data any    `json:"data"`
}

// NotifyAsync forwards settled async property loads to SSE subscribers.
// Slots are "workflowID/nodeID/path"; it fits asyncprop.WithNotify.
func (s *Server) NotifyAsync(slot string, entry asyncprop.Entry) {
	workflowID, rest, ok := strings.Cut(slot, "/")
	if !ok {
		return
	}
	state := domain.AsyncState{Status: string(entry.Status())}
	if entry.Data != nil {
		state.Options = entry.Data.Options
		state.Collection = entry.Data.Collection
		state.CredentialName = entry.Data.CredentialName
	}
	if entry.Err != nil {
		state.Error = entry.Err.Error()
	}
	s.publish(workflowID, Event{Type: "async", Slot: rest, Data: state})
}

// -- Helpers --

func (s *Server) broadcast(workflowID, kind string, data any) {
	s.publish(workflowID, Event{Type: kind, Data: data})
}

func (s *Server) publish(workflowID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", ev.Type, "err", err)
		return
	}
	s.Streams.Broadcast(workflowID, string(payload))
}

func (s *Server) broadcastGraph(r *http.Request, workflowID string) {
	graph, err := s.Editor.Graph(r.Context(), workflowID)
	if err != nil {
		return
	}
	s.broadcast(workflowID, "graph", graph)
}

// respondGraph writes the current graph and pushes it to subscribers.
func (s *Server) respondGraph(w http.ResponseWriter, r *http.Request, workflowID string, code int) {
	graph, err := s.Editor.Graph(r.Context(), workflowID)
	if err != nil {
		s.fail(w, "Graph", err)
		return
	}
	s.broadcast(workflowID, "graph", graph)
	s.writeJSON(w, code, graph)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// fail maps editor errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	var vErr *connectivity.ValidationError
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateNode), isConnectivityErr(err):
		code = http.StatusConflict
	case errors.As(err, &vErr):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" refused", "err", err, "code", code)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), code)
}

func isConnectivityErr(err error) bool {
	return errors.Is(err, connectivity.ErrCycle) ||
		errors.Is(err, connectivity.ErrSelfLoop) ||
		errors.Is(err, connectivity.ErrUnknownNode)
}

func (s *Server) countRejection(err error) {
	reason := ""
	switch {
	case errors.Is(err, connectivity.ErrCycle):
		reason = "cycle"
	case errors.Is(err, connectivity.ErrSelfLoop):
		reason = "self_loop"
	case errors.Is(err, connectivity.ErrUnknownNode):
		reason = "unknown_node"
	default:
		return
	}
	s.metrics.RejectedConnections.WithLabelValues(reason).Inc()
}
