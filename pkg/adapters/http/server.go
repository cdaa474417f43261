// Package http exposes flows over HTTP. The server implements the
// flow-agents endpoints over any repository; the client consumes them.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/internal/metrics"
	"github.com/aretw0/flowboard/internal/presentation/graph"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds an uploaded flow document.
const maxBodySize = 5 << 20

// Server serves stored flows.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	reg     *registry.Registry
	codec   *persistence.Codec
	engine  *validation.Engine
	metrics *metrics.Metrics
	version string
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the node type registry used to decode and validate flows.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Server) {
		s.reg = reg
	}
}

// WithMetrics instruments requests and exposes /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

type listResponse struct {
	Agents []string `json:"agents"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// NewServer creates a server over sessions.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = registry.Default()
	}
	s.codec = persistence.NewCodec(persistence.WithCodecRegistry(s.reg), persistence.WithCodecLogger(s.logger))
	s.engine = validation.NewEngine(s.reg)
	return s
}

// NewHandler creates the HTTP handler for a server over sessions.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Handler()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.GetHealth)
	r.Route("/flow-agents", func(r chi.Router) {
		r.Get("/", s.ListAgents)
		r.Route("/{agentId}", func(r chi.Router) {
			r.Get("/", s.GetAgent)
			r.Get("/events", s.SubscribeEvents)
			r.Route("/flow", func(r chi.Router) {
				r.Patch("/", s.SaveFlow)
				r.Delete("/", s.DeleteFlow)
				r.Post("/validate", s.ValidateFlow)
				r.Get("/graph", s.GetGraph)
			})
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.version != "" {
		resp["version"] = s.version
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ListAgents handles GET /flow-agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.Sessions.List(r.Context())
	if err != nil {
		s.logger.Error("list failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list flows")
		return
	}
	if agents == nil {
		agents = []string{}
	}
	s.writeJSON(w, http.StatusOK, listResponse{Agents: agents})
}

// GetAgent handles GET /flow-agents/{agentId}.
func (s *Server) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	doc, err := s.Sessions.Load(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) {
			s.writeError(w, http.StatusNotFound, "flow not found")
			return
		}
		s.logger.Error("load failed", "agent_id", agentID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load flow")
		return
	}
	s.writeJSON(w, http.StatusOK, domain.AgentFlow{AgentID: agentID, FlowData: doc})
}

// decodeBody reads an AgentFlow envelope and rebuilds the graph it describes.
// It writes the error response itself and reports whether decoding succeeded.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (flow.Snapshot, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return flow.Snapshot{}, false
	}

	doc, err := s.codec.DecodeEnvelope(data)
	if err != nil {
		var serr *persistence.StructureError
		if errors.As(err, &serr) {
			s.writeError(w, http.StatusBadRequest, "malformed flow document", serr.Violations...)
		} else {
			s.writeError(w, http.StatusBadRequest, "malformed flow document", err.Error())
		}
		return flow.Snapshot{}, false
	}

	snap, err := s.codec.Deserialize(doc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid flow document", err.Error())
		return flow.Snapshot{}, false
	}
	return snap, true
}

// SaveFlow handles PATCH /flow-agents/{agentId}/flow. The body replaces the
// stored flow as a whole once it passes validation.
func (s *Server) SaveFlow(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	snap, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	if results := s.engine.ValidateNodes(snap.Nodes); len(results) > 0 {
		if s.metrics != nil {
			s.metrics.ObserveValidation(results)
		}
		s.logger.Info("flow rejected", "agent_id", agentID, "errors", len(results))
		s.writeJSON(w, http.StatusUnprocessableEntity, &validation.Error{Results: results})
		return
	}

	doc, err := s.codec.Serialize(snap)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode flow")
		return
	}
	if err := s.Sessions.Save(r.Context(), agentID, doc); err != nil {
		s.logger.Error("save failed", "agent_id", agentID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save flow")
		return
	}

	s.Streams.Broadcast(agentID, Event{Type: EventFlowSaved, AgentID: agentID, Nodes: len(doc.Nodes), Edges: len(doc.Edges)})
	s.writeJSON(w, http.StatusOK, domain.AgentFlow{AgentID: agentID, FlowData: doc})
}

// DeleteFlow handles DELETE /flow-agents/{agentId}/flow.
func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	if err := s.Sessions.Delete(r.Context(), agentID); err != nil {
		s.logger.Error("delete failed", "agent_id", agentID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete flow")
		return
	}
	s.Streams.Broadcast(agentID, Event{Type: EventFlowDeleted, AgentID: agentID})
	w.WriteHeader(http.StatusNoContent)
}

// ValidateFlow handles POST /flow-agents/{agentId}/flow/validate. It reports
// validation results without saving.
func (s *Server) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	results := s.engine.ValidateNodes(snap.Nodes)
	if results == nil {
		results = []validation.Result{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": len(results) == 0, "errors": results})
}

// GetGraph handles GET /flow-agents/{agentId}/flow/graph and returns the
// stored flow as a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	doc, err := s.Sessions.Load(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) {
			s.writeError(w, http.StatusNotFound, "flow not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load flow")
		return
	}
	snap, err := s.codec.Deserialize(doc)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("stored flow is invalid: %v", err))
		return
	}

	var invalid []string
	for _, res := range s.engine.ValidateNodes(snap.Nodes) {
		invalid = append(invalid, res.NodeID)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(snap, &graph.Overlay{InvalidNodes: invalid}))
}

// SubscribeEvents handles GET /flow-agents/{agentId}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	agentID := chi.URLParam(r, "agentId")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(agentID)
	defer cancel()

	s.logger.Info("SSE: subscribing to flow updates", "agent_id", agentID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(msg), msg)
			flusher.Flush()
		}
	}
}

func eventName(msg string) string {
	var e Event
	if err := json.Unmarshal([]byte(msg), &e); err != nil || e.Type == "" {
		return "message"
	}
	return strings.ToLower(e.Type)
}
