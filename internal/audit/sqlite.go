package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type sqliteConn struct {
	db *sql.DB
}

func openSQLite(path string) (*sqliteConn, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the audit log is low volume.
	db.SetMaxOpenConns(1)
	return &sqliteConn{db: db}, nil
}

func (c *sqliteConn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqliteConn) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

func (c *sqliteConn) queryRow(ctx context.Context, query string, args ...any) scanner {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *sqliteConn) ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqliteConn) close() error {
	return c.db.Close()
}

type sqlRows struct {
	r *sql.Rows
}

func (s sqlRows) Next() bool             { return s.r.Next() }
func (s sqlRows) Scan(dest ...any) error { return s.r.Scan(dest...) }
func (s sqlRows) Err() error             { return s.r.Err() }
func (s sqlRows) Close()                 { s.r.Close() }
