package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/docchat/internal/api"
	"github.com/nikhilbhutani/docchat/internal/config"
	"github.com/nikhilbhutani/docchat/internal/database"
	"github.com/nikhilbhutani/docchat/internal/memory"
	"github.com/nikhilbhutani/docchat/internal/metrics"
	"github.com/nikhilbhutani/docchat/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Postgres is only required by the pgvector backend.
	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database)
		if err != nil {
			if cfg.Backends.VectorStore == "pgvector" {
				slog.Error("database unavailable", "error", err)
				os.Exit(1)
			}
			slog.Warn("database unavailable, running without DB", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
				slog.Error("migrations failed", "error", err)
				os.Exit(1)
			}
		}
	}

	// Redis is optional unless conversations live there.
	var rdb *redis.Client
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		if cfg.Backends.Conversations == "redis" || cfg.Backends.MetricsArchive {
			slog.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		slog.Warn("redis unavailable, running without cache", "error", err)
		client.Close()
	} else {
		rdb = client
		defer rdb.Close()
	}

	var sink metrics.Sink
	if cfg.Backends.MetricsArchive {
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		sink = qc
	}

	svc, err := api.NewServices(cfg, db, rdb, sink)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(cfg, svc)
	handler := router.Setup()

	stop := make(chan struct{})
	if rl := router.RateLimiter(); rl != nil {
		go rl.Run(time.Minute, stop)
	}
	if buf, ok := svc.Conversations.(*memory.BufferStore); ok && cfg.Memory.SessionTTL > 0 {
		go sweepSessions(buf, cfg.Memory.SessionTTL, stop)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + cfg.LLM.EmbeddingTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"vector_backend", cfg.Backends.VectorStore,
			"conversation_backend", cfg.Backends.Conversations,
			"metrics_archive", cfg.Backends.MetricsArchive,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func sweepSessions(buf *memory.BufferStore, ttl time.Duration, stop <-chan struct{}) {
	interval := min(ttl, 5*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := buf.Sweep(memory.IdleFor(ttl, time.Now)); n > 0 {
				slog.Info("expired idle sessions", "count", n)
			}
		}
	}
}
