// Package server exposes the collection trigger and the mention read path
// over HTTP. Both endpoints always answer with structured JSON, never a
// bare error page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"MentionScanner/internal/config"
	"MentionScanner/internal/domain"
	"MentionScanner/internal/usecase"
)

// Server bundles the HTTP handlers with their use cases.
type Server struct {
	pipeline *usecase.Pipeline
	reader   *usecase.Reader
	logger   *slog.Logger
}

// New builds the HTTP surface over the pipeline and reader.
func New(pipeline *usecase.Pipeline, reader *usecase.Reader, logger *slog.Logger) *Server {
	return &Server{pipeline: pipeline, reader: reader, logger: logger}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collect", s.handleCollect)
	mux.HandleFunc("/api/mentions", s.handleMentions)
	mux.HandleFunc("/healthz", s.handleHealth)

	limiter := NewRateLimiter(10.0, 20)
	return RateLimitMiddleware(mux, limiter)
}

// handleCollect triggers one collection pass. Configuration problems map to
// 400, store failures to 500, both as {ok:false, error}.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	summary, err := s.pipeline.Collect(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrMissingFeeds) || errors.Is(err, config.ErrMissingKeywords) {
			status = http.StatusBadRequest
		}
		s.logger.Error("collection pass failed", "status", status, "error", err)
		writeJSON(w, status, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"feeds":   summary.Feeds,
		"found":   summary.Found,
		"stored":  summary.Stored,
		"emailed": summary.Emailed,
	})
}

// handleMentions serves the most recent mentions as a JSON array.
func (s *Server) handleMentions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	// An absent limit selects the reader's default; a provided value, even an
	// out-of-band one, is clamped instead.
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = domain.ClampLatestLimit(parsed)
		}
	}

	mentions, err := s.reader.Latest(r.Context(), limit)
	if err != nil {
		s.logger.Error("read latest failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("mention store unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, mentions)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func errorBody(message string) map[string]any {
	return map[string]any{"ok": false, "error": message}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
