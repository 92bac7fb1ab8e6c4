// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the blog HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the post store (PostgreSQL with migrations, or embedded SQLite).
//  4. Connect to Redis when a URL is configured.
//  5. Load the token verifier.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
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

	"github.com/risyyz/ABCD-sub000/internal/api"
	"github.com/risyyz/ABCD-sub000/internal/core/blog"
	"github.com/risyyz/ABCD-sub000/internal/core/post"
	"github.com/risyyz/ABCD-sub000/internal/platform/config"
	"github.com/risyyz/ABCD-sub000/internal/platform/constants"
	"github.com/risyyz/ABCD-sub000/internal/platform/migration"
	pgstore "github.com/risyyz/ABCD-sub000/internal/platform/postgres"
	redisstore "github.com/risyyz/ABCD-sub000/internal/platform/redis"
	"github.com/risyyz/ABCD-sub000/internal/platform/sec"
	"github.com/risyyz/ABCD-sub000/internal/platform/sqlite"
)

// stores bundles the repositories and the readiness probe of the selected driver.
type stores struct {
	blogs blog.Repository
	posts post.PostRepository
	ping  func() error
	close func()
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

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
		slog.String("database_driver", cfg.DatabaseDriver),
		slog.Bool("cache_enabled", cfg.CacheEnabled()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Post Store ─────────────────────────────────────────────────────
	store, err := openStores(startupCtx, cfg, log)
	must(log, err, "open "+cfg.DatabaseDriver+" store")
	defer store.close()

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	cache := post.NewNoopCache()
	var checkCache func() error

	if cfg.CacheEnabled() {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		cache = post.NewRedisPublishedCache(rdb, cfg.PublishedCacheTTL)
		checkCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
	}

	// ── 5. Token Verifier ─────────────────────────────────────────────────
	verifier, err := sec.NewTokenVerifier(cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt verifier")

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		DatabaseName:  cfg.DatabaseDriver,
		CheckDatabase: store.ping,
		CheckCache:    checkCache,
	}, log)

	blogService := blog.NewService(store.blogs, log)
	postService := post.NewService(store.posts, blogService, cache, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Blog:      blog.NewHandler(blogService),
		Post:      post.NewHandler(postService),
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, verifier, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
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

// openStores connects the configured database and builds its repositories.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &stores{
			blogs: blog.NewSQLiteRepository(db),
			posts: post.NewSQLitePostRepository(db),
			ping:  func() error { return sqlite.Ping(context.Background(), db) },
			close: func() {
				log.Info("closing sqlite database")
				if err := db.Close(); err != nil {
					log.Error("sqlite close error", slog.Any("error", err))
				}
			},
		}, nil

	default:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			blogs: blog.NewPostgresRepository(pool),
			posts: post.NewPostRepository(pool),
			ping:  func() error { return pgstore.Ping(context.Background(), pool) },
			close: func() {
				log.Info("closing postgres pool")
				pool.Close()
			},
		}, nil
	}
}
