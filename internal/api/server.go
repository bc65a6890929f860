// Copyright (c) 2026 Folio Works. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/media"
	"github.com/folioworks/folio/internal/platform/config"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/platform/middleware"
	"github.com/folioworks/folio/internal/platform/respond"
	"github.com/folioworks/folio/internal/post"
	"github.com/folioworks/folio/internal/profile"
	"github.com/folioworks/folio/internal/realtime"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus scrape endpoint.
	Metrics http.Handler

	// MetricsMiddleware records request counts and latencies.
	MetricsMiddleware func(http.Handler) http.Handler

	// Auth handles the account lifecycle routes.
	Auth *auth.Handler

	// Profile handles member profile routes.
	Profile *profile.Handler

	// Post handles the content routes.
	Post *post.Handler

	// Media handles file uploads.
	Media *media.Handler

	// Realtime handles the websocket event stream.
	Realtime *realtime.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	if h.MetricsMiddleware != nil {
		r.Use(h.MetricsMiddleware)
	}
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg, cfg.ExtraOrigins))
	r.Use(chimw.CleanPath)

	// Unknown routes answer in the same JSON envelope as everything else.
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes(middleware.RequireGuest, middleware.RequireAuth))
		api.Mount("/profiles", h.Profile.Routes(middleware.RequireAuth))
		api.Mount("/posts", h.Post.Routes(middleware.RequireAuth))
		api.Mount("/media", h.Media.Routes(middleware.RequireAuth))
		api.Mount("/realtime", h.Realtime.Routes(middleware.RequireAuth))
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// notFound answers unknown paths with the standard error envelope.
func notFound(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusNotFound, respond.ErrorEnvelope{
		Code:  "NOT_FOUND",
		Error: "The requested resource does not exist",
	})
}

// methodNotAllowed answers known paths hit with the wrong verb.
func methodNotAllowed(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusMethodNotAllowed, respond.ErrorEnvelope{
		Code:  "METHOD_NOT_ALLOWED",
		Error: "This method is not supported on this resource",
	})
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
