// Package server exposes plan generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runassist/planner/internal/engine"
	"github.com/runassist/planner/internal/memory"
	"github.com/runassist/planner/internal/service"
)

// HTTPServer wraps an HTTP server around the planner service.
type HTTPServer struct {
	server  *http.Server
	router  *chi.Mux
	logger  *slog.Logger
	planner *service.PlannerService
	store   *memory.Store

	// genMu serializes generation: the engine session allows at most one
	// generation in flight.
	genMu sync.Mutex

	defaultMaxTokens int
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port             int
	Logger           *slog.Logger
	AllowedOrigins   []string // CORS allowed origins
	DefaultMaxTokens int      // Token budget when a request sets none
}

// NewHTTPServer creates a new HTTP server over the planner service and the
// recent-plan store.
func NewHTTPServer(cfg HTTPServerConfig, planner *service.PlannerService, store *memory.Store) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxTokens := cfg.DefaultMaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	s := &HTTPServer{
		logger:           logger,
		planner:          planner,
		store:            store,
		defaultMaxTokens: maxTokens,
	}

	// Create chi router
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", s.readinessCheckHandler())

	router.Route("/v1/plans", func(r chi.Router) {
		r.Post("/", s.createPlanHandler())
		r.Get("/{planID}", s.getPlanHandler())
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Generation is slow on CPU-only hosts
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// GetRouter returns the underlying chi router for additional route registration
func (s *HTTPServer) GetRouter() *chi.Mux {
	return s.router
}

// createPlanRequest is the body of POST /v1/plans. Either a raw profile is
// supplied, or the minimal profile fields that get composed into one.
type createPlanRequest struct {
	Profile         string `json:"profile,omitempty"`
	Goal            string `json:"goal,omitempty"`
	HorizonWeeks    int    `json:"horizon_weeks,omitempty"`
	SessionsPerWeek int    `json:"sessions_per_week,omitempty"`
	MaxTokens       int    `json:"max_tokens,omitempty"`
}

type planResponse struct {
	ID   string `json:"id"`
	Plan string `json:"plan"`
}

func (s *HTTPServer) createPlanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile := req.Profile
		if profile == "" {
			if req.Goal == "" {
				writeError(w, http.StatusBadRequest, "profile or goal is required")
				return
			}
			profile = minimalProfile(req)
		}

		maxTokens := req.MaxTokens
		if maxTokens <= 0 {
			maxTokens = s.defaultMaxTokens
		}

		s.genMu.Lock()
		planText, err := s.planner.GeneratePlan(r.Context(), profile, maxTokens)
		s.genMu.Unlock()

		if err != nil {
			s.logger.Error("plan generation failed",
				"error", err,
				"request_id", middleware.GetReqID(r.Context()),
			)
			writeError(w, statusForError(err), "plan generation failed")
			return
		}

		id := s.store.Put(profile, planText)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(planResponse{ID: id, Plan: planText})
	}
}

func (s *HTTPServer) getPlanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "planID")

		rec, ok := s.store.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(planResponse{ID: rec.ID, Plan: rec.Plan})
	}
}

// minimalProfile composes a small profile JSON from the structured request
// fields, mirroring what upstream callers conventionally send.
func minimalProfile(req createPlanRequest) string {
	horizon := req.HorizonWeeks
	if horizon <= 0 {
		horizon = 8
	}
	sessions := req.SessionsPerWeek
	if sessions <= 0 {
		sessions = 4
	}
	goal, _ := json.Marshal(req.Goal)
	return fmt.Sprintf(`{"goal":%s,"horizon_weeks":%d,"sessions_per_week":%d}`,
		goal, horizon, sessions)
}

// statusForError maps engine faults onto HTTP statuses. Generation-quality
// problems never reach here; they come back as plan payloads.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrContextOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

// readinessCheckHandler reports ready once the engine has initialized.
func (s *HTTPServer) readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !s.planner.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "initializing"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
	}
}
