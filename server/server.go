// Package server exposes the assistant over HTTP. The single chat endpoint
// accepts a user message and streams the turn's events back as they are
// produced, using the wire framing from the stream package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/skylightai/skylight/agent"
	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
	"github.com/skylightai/skylight/session"
	"github.com/skylightai/skylight/stream"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// ReadTimeout bounds reading the request including the body.
	ReadTimeout time.Duration
	// ShutdownTimeout bounds graceful drain on Shutdown.
	ShutdownTimeout time.Duration
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Server hosts the chat endpoint over an orchestrator and a session store.
type Server struct {
	orchestrator    *agent.Orchestrator
	store           *session.InMemoryStore
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          logging.Logger
}

// New constructs a Server listening on addr.
func New(addr string, orch *agent.Orchestrator, store *session.InMemoryStore, optFns ...func(o *Options)) *Server {
	opts := Options{
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		orchestrator:    orch,
		store:           store,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: opts.ReadTimeout,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server.listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing mux, mainly for tests driving the server
// through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// chatRequest is the chat endpoint's request body.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// errorBody is the JSON error envelope for non-streaming failures.
type errorBody struct {
	Error string `json:"error"`
}

// handleChat runs one assistant turn and streams its events. Errors before
// the stream starts are plain JSON responses; once streaming begins, failures
// surface in-band as stream-error events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	history, err := s.store.History(req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}

	userContent := core.NewUserText(req.Message)
	if err := s.store.Append(req.SessionID, userContent); err != nil {
		writeError(w, http.StatusInternalServerError, "session update failed")
		return
	}
	history = append(history, userContent)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	enc := stream.NewEncoder(w)
	events, errs := s.orchestrator.Run(r.Context(), history, func(o *agent.RunOptions) {
		o.OnContent = func(c core.Content) {
			if err := s.store.Append(req.SessionID, c); err != nil {
				s.logger.Warn("server.session.append_failed", "session_id", req.SessionID, "error", err.Error())
			}
		}
	})

	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			// Client went away; the orchestrator notices via r.Context().
			s.logger.Warn("server.stream.write_failed", "session_id", req.SessionID, "error", err.Error())
			return
		}
	}
	if err := <-errs; err != nil {
		// Already surfaced in-band as a stream-error event.
		s.logger.Error("server.turn.failed", "session_id", req.SessionID, "error", err.Error())
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
