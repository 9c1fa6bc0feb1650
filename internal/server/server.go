// Package server exposes the HTTP surface: thought submission,
// classification debugging, clarification resolution, alert queries,
// and the live alert websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/scrypster/cortex/internal/alerts"
	"github.com/scrypster/cortex/internal/briefing"
	"github.com/scrypster/cortex/internal/config"
	"github.com/scrypster/cortex/internal/pipeline"
	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/internal/store"
)

const maxThoughtBytes = 64 * 1024

// Server wires the pipeline and stores to HTTP handlers.
type Server struct {
	pipeline *pipeline.Pipeline
	router   *router.Router
	store    store.KnowledgeStore
	sink     *alerts.Sink
	briefing *briefing.Service
}

// New creates the HTTP server façade.
func New(p *pipeline.Pipeline, rt *router.Router, st store.KnowledgeStore, sink *alerts.Sink) *Server {
	return &Server{
		pipeline: p,
		router:   rt,
		store:    st,
		sink:     sink,
		briefing: briefing.NewService(st),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/think", s.handleThink)
	mux.HandleFunc("GET /api/classify", s.handleClassify)
	mux.HandleFunc("POST /api/clarifications/{id}/resolve", s.handleResolveClarification)
	mux.HandleFunc("GET /api/briefing", s.handleBriefing)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", s.handleDismissAlert)
	mux.HandleFunc("GET /api/ws/alerts", s.handleAlertSocket)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return securityHeaders(mux)
}

// Start listens on the configured address and serves until ctx is
// cancelled. Returns the actual listen address.
func (s *Server) Start(ctx context.Context, cfg config.ServerConfig) (string, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	return listener.Addr().String(), nil
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

type thinkRequest struct {
	Thought        string `json:"thought"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleThink(w http.ResponseWriter, r *http.Request) {
	var req thinkRequest
	body := http.MaxBytesReader(w, r.Body, maxThoughtBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Thought) == "" {
		writeError(w, http.StatusBadRequest, "thought must not be empty")
		return
	}

	result, err := s.pipeline.Run(r.Context(), req.Thought, req.ConversationID)
	if err != nil {
		log.Printf("server: pipeline run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClassify is a debug endpoint: it classifies input without
// persisting anything or running the rest of the pipeline.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if strings.TrimSpace(input) == "" {
		writeError(w, http.StatusBadRequest, "input query parameter required")
		return
	}

	classification, err := s.router.ClassifyIntent(r.Context(), "classify-debug", input)
	if err != nil {
		log.Printf("server: classify failed: %v", err)
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}
	writeJSON(w, http.StatusOK, classification)
}

type resolveRequest struct {
	Response string `json:"response"`
}

func (s *Server) handleResolveClarification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Response) == "" {
		writeError(w, http.StatusBadRequest, "response must not be empty")
		return
	}

	switch err := s.store.ResolveClarification(r.Context(), id, req.Response); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "clarification not found")
	case errors.Is(err, store.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "clarification already resolved")
	default:
		log.Printf("server: resolve clarification %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "resolution failed")
	}
}

// handleBriefing serves the morning briefing dashboard payload.
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	b, err := s.briefing.Generate(r.Context())
	if err != nil {
		log.Printf("server: briefing failed: %v", err)
		writeError(w, http.StatusInternalServerError, "briefing failed")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.PendingAlerts(r.Context())
	if err != nil {
		log.Printf("server: list alerts failed: %v", err)
		writeError(w, http.StatusInternalServerError, "alert lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": pending})
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch err := s.store.DismissAlert(r.Context(), id); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	default:
		log.Printf("server: dismiss alert %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "dismissal failed")
	}
}

// handleHealth reports liveness plus the circuit breaker state of every
// model client constructed so far, keyed by tier.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"models": s.router.Health(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

// writeError sends a generic error body. Causes stay in the logs.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
