// Package server exposes the assistant over HTTP: a chat endpoint, a model
// status report and a WebSocket for interactive sessions.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/mwrobel/domo/internal/orchestrator"
	"github.com/mwrobel/domo/internal/selector"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Chat is the slice of the orchestrator the HTTP layer needs.
type Chat interface {
	Handle(ctx context.Context, sessionID, command string) orchestrator.Reply
}

// ModelReporter supplies backend status for the models endpoint.
type ModelReporter interface {
	Statuses() []selector.Status
}

// Server is the HTTP adapter around the orchestrator.
type Server struct {
	cfg        Config
	chat       Chat
	models     ModelReporter
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates the server with all dependencies. models may be nil; the
// endpoint then reports an empty list.
func New(cfg Config, chat Chat, models ModelReporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, chat: chat, models: models, logger: logger}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/models", s.handleModels)
	r.Get("/api/chat/ws", s.handleWebSocket)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID  string `json:"session_id"`
	Text       string `json:"text"`
	Intent     string `json:"intent,omitempty"`
	Clarifying bool   `json:"clarifying,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply := s.chat.Handle(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:  req.SessionID,
		Text:       reply.Text,
		Intent:     reply.Intent,
		Clarifying: reply.Clarifying,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	statuses := []selector.Status{}
	if s.models != nil {
		statuses = s.models.Statuses()
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": statuses})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
