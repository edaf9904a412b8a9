// Package main is the entrypoint for the castpress API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/castpress/castpress/internal/api"
	"github.com/castpress/castpress/internal/api/handler"
	"github.com/castpress/castpress/internal/api/response"
	"github.com/castpress/castpress/internal/cache"
	"github.com/castpress/castpress/internal/config"
	"github.com/castpress/castpress/internal/notify"
	"github.com/castpress/castpress/internal/pipeline"
	"github.com/castpress/castpress/internal/storage"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/internal/text"
	"github.com/castpress/castpress/internal/tts"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"text_primary", cfg.Text.Primary.Kind,
		"tts_primary", cfg.TTS.Primary.Kind,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	objects, err := storage.NewMinioStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("connect object storage: %w", err)
	}
	slog.Info("object storage connected",
		"chunk_bucket", cfg.Storage.ChunkBucket,
		"episode_bucket", cfg.Storage.EpisodeBucket,
	)

	primaryText, err := text.NewProvider(cfg.Text.Primary)
	if err != nil {
		return fmt.Errorf("create primary text provider: %w", err)
	}
	secondaryText, err := text.NewProvider(cfg.Text.Secondary)
	if err != nil {
		return fmt.Errorf("create secondary text provider: %w", err)
	}
	textChain := text.NewChain(cfg.Text.Timeout, primaryText, secondaryText)

	primaryTTS, err := tts.NewSynthesizer(cfg.TTS.Primary, cfg.Pipeline.SampleRate)
	if err != nil {
		return fmt.Errorf("create primary synthesizer: %w", err)
	}
	backupTTS, err := tts.NewSynthesizer(cfg.TTS.Backup, cfg.Pipeline.SampleRate)
	if err != nil {
		return fmt.Errorf("create backup synthesizer: %w", err)
	}
	ttsChain := tts.NewChain(cfg.TTS.Timeout, primaryTTS, backupTTS, cfg.TTS.VoiceMap)

	pgStore := store.NewPostgresStore(pool)
	notifier := notify.New(pgStore, redisCache)

	runner := pipeline.NewRunner(cfg.Pipeline, cfg.Storage, pgStore, redisCache, objects,
		textChain, textChain, ttsChain, notifier)
	svc := pipeline.NewService(pgStore, redisCache, runner)

	deps := api.Dependencies{
		HealthHandler:     healthHandler(pgStore, redisCache, objects),
		CreateEpisode:     handler.NewCreateEpisodeHandler(svc),
		GetEpisode:        handler.NewGetEpisodeHandler(svc),
		ListNotifications: handler.NewListNotificationsHandler(svc, pgStore),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database, cache and object storage connectivity.
func healthHandler(s store.Store, c cache.Cache, o storage.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"storage":  "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := o.Ping(r.Context()); err != nil {
			checks["storage"] = "degraded"
		}

		for _, state := range checks {
			if state != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
