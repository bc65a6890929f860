// Copyright (c) 2026 Folio Works. All rights reserved.

// Command api is the entry point for the Folio HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Connect to object storage and ensure buckets.
//  6. Run database migrations (idempotent).
//  7. Wire domain services and handlers.
//  8. Start the realtime fan-out.
//  9. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folioworks/folio/internal/api"
	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/media"
	"github.com/folioworks/folio/internal/platform/config"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/internal/platform/metrics"
	"github.com/folioworks/folio/internal/platform/middleware"
	"github.com/folioworks/folio/internal/platform/migration"
	"github.com/folioworks/folio/internal/platform/objstore"
	pgstore "github.com/folioworks/folio/internal/platform/postgres"
	redisstore "github.com/folioworks/folio/internal/platform/redis"
	"github.com/folioworks/folio/internal/platform/sec"
	"github.com/folioworks/folio/internal/post"
	"github.com/folioworks/folio/internal/profile"
	"github.com/folioworks/folio/internal/realtime"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Folio] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Object Storage ─────────────────────────────────────────────────
	store, err := objstore.New(cfg, log)
	must(log, err, "connect to object storage")
	must(log, store.EnsureBuckets(startupCtx, constants.DefaultUploadBucket), "ensure storage buckets")

	// ── 6. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 7. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 8. Health Handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		CheckStorage: func() error {
			return store.Ping(context.Background())
		},
	}, log)

	// ── 9. Metrics ────────────────────────────────────────────────────────
	collector := metrics.NewCollector()

	// ── 10. Domain Wiring ─────────────────────────────────────────────────
	profileRepository := profile.NewRepository(pool)
	profileService := profile.NewService(profileRepository, log)
	profileHandler := profile.NewHandler(profileService)

	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokens := auth.NewResetTokenRepository(rdb)
	oauthStates := auth.NewStateRepository(rdb)
	mailer := auth.NewLogMailer(log)
	authService := auth.NewService(
		userRepository, sessionRepository, resetTokens,
		jwtSvc, profileService, profileService, mailer, log,
	)
	oauthService := auth.NewOAuthService(
		cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.PublicBaseURL+"/api/v1/auth/oauth/google/callback",
		oauthStates, userRepository, profileService, authService, log,
	)
	authHandler := auth.NewHandler(authService, oauthService)

	broker := realtime.NewBroker(rdb, log)
	hub := realtime.NewHub(collector, log)

	postRepository := post.NewRepository(pool)
	postService := post.NewService(postRepository, broker, log)
	postHandler := post.NewHandler(postService)

	mediaService := media.NewService(store, log)
	mediaHandler := media.NewHandler(mediaService, profileService)

	checkOrigin := middleware.OriginAllowed(cfg, cfg.ExtraOrigins)
	realtimeHandler := realtime.NewHandler(hub, func(request *http.Request) bool {
		origin := request.Header.Get(constants.HeaderOrigin)
		return origin == "" || checkOrigin(origin)
	}, log)

	// ── 11. Realtime Fan-Out ──────────────────────────────────────────────
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	must(log, hub.StartWiring(runCtx, broker), "start realtime fan-out")

	// ── 12. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:          liveness,
		Readiness:         readiness,
		Metrics:           collector.Handler(),
		MetricsMiddleware: collector.Middleware(),
		Auth:              authHandler,
		Profile:           profileHandler,
		Post:              postHandler,
		Media:             mediaHandler,
		Realtime:          realtimeHandler,
	}

	server := api.NewServer(runCtx, cfg, log, jwtSvc, handlers)

	// ── 13. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := hub.Shutdown(context.Background()); err != nil {
		log.Error("realtime shutdown error", slog.Any("error", err))
	}

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
