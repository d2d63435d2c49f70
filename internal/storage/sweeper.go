package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SweepConfig controls the session sweeper.
type SweepConfig struct {
	Retention time.Duration // Sessions untouched for longer are deleted (default: 24h)
	Interval  time.Duration // How often to sweep (default: 1h)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

// PurgeExpired deletes sessions whose directory was last modified before
// cutoff and returns how many were removed. Entries that are not session
// directories are left alone.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.base, e.Name())); err != nil {
			slog.Warn("session purge failed", "session_id", e.Name(), "error", err)
			continue
		}
		purged++
	}
	return purged, nil
}

// StartSweeper purges expired sessions immediately and then every
// Interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("session sweeper started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.sweep(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, cfg.Retention)
		}
	}
}

func (s *Store) sweep(ctx context.Context, retention time.Duration) {
	start := time.Now()
	purged, err := s.PurgeExpired(ctx, start.Add(-retention))
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	slog.Info("session sweep completed",
		"sessions_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
