package audit

import (
	"context"
	"fmt"

	"fortio.org/safecast"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgConn struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, cfg Config) (*pgConn, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if err := applyPoolConfig(poolConfig, cfg); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &pgConn{pool: pool}, nil
}

// applyPoolConfig copies the configured pool sizes and lifetimes. Zero
// values keep pgx's defaults.
func applyPoolConfig(pc *pgxpool.Config, cfg Config) error {
	if cfg.MaxConns > 0 {
		n, err := safecast.Conv[int32](cfg.MaxConns)
		if err != nil {
			return fmt.Errorf("max conns: %w", err)
		}
		pc.MaxConns = n
	}
	if cfg.MinConns > 0 {
		n, err := safecast.Conv[int32](cfg.MinConns)
		if err != nil {
			return fmt.Errorf("min conns: %w", err)
		}
		pc.MinConns = n
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	return nil
}

func (c *pgConn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgConn) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (c *pgConn) queryRow(ctx context.Context, query string, args ...any) scanner {
	return c.pool.QueryRow(ctx, query, args...)
}

func (c *pgConn) ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgConn) close() error {
	c.pool.Close()
	return nil
}
