package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/refresh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ViewSource exposes the live view state. *refresh.Foreground implements it.
type ViewSource interface {
	State() refresh.ViewState
}

// TimelineSource builds widget entries. *refresh.Timeline implements it.
type TimelineSource interface {
	Entry(ctx context.Context, family refresh.Family) refresh.TimelineEntry
}

// Server exposes health, readiness, metrics and the read API.
type Server struct {
	httpServer *http.Server
	views      ViewSource
	timeline   TimelineSource
	logger     *slog.Logger
}

// readingsResponse is the live view with every location annotated.
type readingsResponse struct {
	Locations    []refresh.Card `json:"locations"`
	LastUpdate   *time.Time     `json:"lastUpdate,omitempty"`
	Loading      bool           `json:"loading"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes.
func NewServer(addr string, ready ReadinessChecker, views ViewSource, timeline TimelineSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:    views,
		timeline: timeline,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/readings", s.handleReadings)
	mux.HandleFunc("GET /api/v1/timeline", s.handleTimeline)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleReadings(w http.ResponseWriter, _ *http.Request) {
	state := s.views.State()
	resp := readingsResponse{
		Locations:    make([]refresh.Card, len(state.Locations)),
		Loading:      state.Loading,
		ErrorMessage: state.ErrorMessage,
	}
	for i, r := range state.Locations {
		resp.Locations[i] = refresh.NewCard(r)
	}
	if !state.LastUpdate.IsZero() {
		resp.LastUpdate = &state.LastUpdate
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	family, err := refresh.ParseFamily(r.URL.Query().Get("family"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.timeline.Entry(r.Context(), family))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
