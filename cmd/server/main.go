package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/filecompare/internal/audit"
	"github.com/JonMunkholm/filecompare/internal/config"
	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/JonMunkholm/filecompare/internal/logging"
	"github.com/JonMunkholm/filecompare/internal/storage"
	"github.com/JonMunkholm/filecompare/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	auditStore, err := audit.Open(ctx, audit.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to open audit database", "error", err)
		os.Exit(1)
	}
	defer auditStore.Close()

	store, err := storage.New(cfg.Storage.BasePath)
	if err != nil {
		slog.Error("failed to open session storage", "error", err)
		os.Exit(1)
	}
	slog.Info("session storage ready", "path", store.BasePath())

	limiter := core.NewComparisonLimiter(cfg.Compare.MaxConcurrent, cfg.Compare.MaxWaitTime)
	service := core.NewService(core.ServiceConfig{
		MaxFileSize:     cfg.Compare.MaxFileSize,
		MaxFilesPerSide: cfg.Compare.MaxFilesPerSide,
		Workers:         cfg.Compare.Workers,
	}, store, auditStore, limiter)

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go store.StartSweeper(jobCtx, storage.SweepConfig{
		Retention: cfg.Storage.Retention,
		Interval:  cfg.Storage.SweepInterval,
	})
	go audit.StartRetentionScheduler(jobCtx, auditStore, audit.RetentionConfig{
		RetentionDays: cfg.Archive.HotRetentionDays,
		BatchSize:     cfg.Archive.BatchSize,
		CheckInterval: cfg.Archive.CheckInterval,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for comparisons to complete", "active", status.Active)
			if err := service.WaitForComparisons(shutdownCtx); err != nil {
				slog.Warn("comparisons did not complete in time", "error", err)
			} else {
				slog.Info("all comparisons completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
