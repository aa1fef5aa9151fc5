// Package api exposes the analysis engine over HTTP: session lifecycle,
// progress, results, and a Server-Sent Events stream per session.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/docpanel-ai/docpanel/internal/logging"
	"github.com/docpanel-ai/docpanel/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Addr              string
	ReadTimeout       time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	HeartbeatInterval time.Duration
	CORSOrigins       []string
	EnableCORS        bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8394",
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		EnableCORS:        false,
	}
}

// Server is the HTTP front of the session controller.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	controller *service.Controller
	validate   *validator.Validate
	logger     *logging.Logger
}

// New creates a server wired to the controller.
func New(cfg Config, controller *service.Controller, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		config:     cfg,
		controller: controller,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
		// No WriteTimeout: SSE connections stay open indefinitely.
	}
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleStartAnalysis)
			r.Get("/", s.handleListAnalyses)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAnalysis)
				r.Get("/results", s.handleGetResults)
				r.Post("/stop", s.handleStopAnalysis)
				r.Get("/events", s.handleEvents)
			})
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// Start starts the HTTP server in a non-blocking manner.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}
