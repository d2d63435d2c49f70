package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
// Zero values fall back to the defaults noted per field.
type RetentionConfig struct {
	RetentionDays int           // Days to keep audit rows (default: 90)
	BatchSize     int           // Rows deleted per statement (default: 5000)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler purges audit rows older than the retention window.
// It runs immediately, then every CheckInterval, until ctx is cancelled.
func StartRetentionScheduler(ctx context.Context, store Store, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
	)

	runRetentionJob(ctx, store, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit retention scheduler stopped")
			return
		case <-ticker.C:
			runRetentionJob(ctx, store, cfg)
		}
	}
}

func runRetentionJob(ctx context.Context, store Store, cfg RetentionConfig) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := store.PurgeOlderThan(ctx, cutoff, cfg.BatchSize)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}
	slog.Info("purged old comparison logs",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
