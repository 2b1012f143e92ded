package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kvasha/bookkeeper/internal/infra/postgres"
	infraredis "github.com/kvasha/bookkeeper/internal/infra/redis"
	"github.com/kvasha/bookkeeper/internal/ledger"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi/handler"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi/middleware"
	"github.com/kvasha/bookkeeper/pkg/config"
	"github.com/kvasha/bookkeeper/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting bookkeeper API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := ledger.NewRegistry()

	// Persistence is optional: without DATABASE_URL the ledger runs
	// in-memory only.
	var opts []ledger.Option
	if cfg.DatabaseURL != "" {
		db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store := postgres.NewLogStore(db.Pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("Failed to prepare log schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, ledger.WithLogStore(store))
		log.Info("Database connection established")
	} else {
		log.Warn("DATABASE_URL not configured, running in-memory only")
	}

	svc := ledger.NewService(registry, registry, opts...)

	// Snapshot cache is optional as well.
	var cache handler.SnapshotCache
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		cache = infraredis.NewSnapshotCache(redisClient, log)
		log.Info("Redis connection established")
	} else {
		log.Warn("REDIS_URL not configured, snapshot cache disabled")
	}

	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)

	routerCfg := httpapi.Config{
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins,
		BookHandler:        handler.NewBookHandler(registry, svc),
		TransactionHandler: handler.NewTransactionHandler(svc),
		BalanceHandler:     handler.NewBalanceHandler(svc, cache, log),
		JWTMiddleware:      middleware.JWTMiddleware(jwtSvc),
	}
	r := httpapi.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
