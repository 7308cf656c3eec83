// Package api implements the HTTP boundary of the agent: one chat
// endpoint plus read-only informational views. The orchestrator's
// contract is "always produce text", so chat responses are HTTP 200
// for both ok and error turn outcomes; non-200 is reserved for
// transport-layer faults like a malformed request body.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/apexlabs/apex-agent/internal/agent"
	"github.com/apexlabs/apex-agent/internal/buildinfo"
	"github.com/apexlabs/apex-agent/internal/memory"
	"github.com/apexlabs/apex-agent/internal/web"
)

// Resolver resolves one user turn. Satisfied by *agent.Orchestrator.
type Resolver interface {
	Resolve(ctx context.Context, userText string) agent.Outcome
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address      string
	port         int
	orchestrator Resolver
	turns        *memory.TurnStore // optional
	systemPrompt string
	logger       *slog.Logger
	server       *http.Server
}

// NewServer creates a new API server. turns may be nil when the turn
// log is not configured.
func NewServer(address string, port int, orch Resolver, turns *memory.TurnStore, systemPrompt string, logger *slog.Logger) *Server {
	return &Server{
		address:      address,
		port:         port,
		orchestrator: orch,
		turns:        turns,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)

	// Informational, read-only
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /v1/prompt", s.handlePrompt)

	// Turn log views
	mux.HandleFunc("GET /v1/turns", s.handleTurns)
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	// Chat web UI
	web.RegisterRoutes(mux)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // two model calls can take a while
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// ChatRequest is the inbound chat message.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the resolved turn. Response mirrors Reply for
// clients that expect the older field name.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Response string `json:"response"`
	Status   string `json:"status"`
	Tool     string `json:"tool,omitempty"`
	TurnID   string `json:"turn_id,omitempty"`
}

// handleChat resolves one turn.
// POST /v1/chat {"message": "who won the game last night?"}
//
// A missing or empty message field is passed through to the
// orchestrator, which answers it with the fixed empty-input reply —
// still HTTP 200, per the always-produce-text contract.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := s.orchestrator.Resolve(r.Context(), req.Message)

	turnID := uuid.New().String()
	s.recordTurn(turnID, req.Message, outcome)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{
		Reply:    outcome.Reply,
		Response: outcome.Reply,
		Status:   outcome.Status,
		Tool:     outcome.Tool,
		TurnID:   turnID,
	}, s.logger)
}

// recordTurn appends the turn to the log. Logging failures are
// reported but never fail the turn.
func (s *Server) recordTurn(turnID, userText string, outcome agent.Outcome) {
	if s.turns == nil {
		return
	}
	err := s.turns.RecordTurn(memory.Turn{
		ID:        turnID,
		CreatedAt: time.Now(),
		UserText:  userText,
		Reply:     outcome.Reply,
		Status:    outcome.Status,
		Tool:      outcome.Tool,
		Model:     outcome.Model,
	})
	if err != nil {
		s.logger.Warn("failed to record turn", "turn_id", turnID, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

// handlePrompt exposes the active system instruction read-only.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"prompt": s.systemPrompt}, s.logger)
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "turn log not configured")
		return
	}

	limit := parseIntParam(r, "limit", 50)
	turns, err := s.turns.RecentTurns(limit)
	if err != nil {
		s.logger.Error("turn list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list turns")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"turns": turns,
		"count": len(turns),
	}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "turn log not configured")
		return
	}

	stats, err := s.turns.Stats()
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
