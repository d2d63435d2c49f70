// Package audit records one row per comparison request and answers the
// admin history and usage queries. Postgres (pgx) and SQLite (modernc)
// backends share the same SQL, differing only in dialect.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filecompare/internal/core"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Store is a comparison audit log.
type Store interface {
	core.ComparisonLogger
	FindBySession(ctx context.Context, sessionID string) (*core.ComparisonLog, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backend.
type Config struct {
	URL             string // postgres://... or sqlite://path
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the database named by cfg.URL and creates the schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	var c conn
	var d dialect
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		c, err = openPostgres(ctx, cfg)
		d = postgresDialect
	case "sqlite":
		c, err = openSQLite(sqlitePath(cfg.URL))
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	s := &sqlStore{d: d, c: c, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return s, nil
}

// sqlitePath strips the scheme, keeping relative paths relative.
func sqlitePath(raw string) string {
	return strings.TrimPrefix(strings.TrimPrefix(raw, "sqlite://"), "sqlite:")
}

// conn is the part of a database handle the store needs.
type conn interface {
	exec(ctx context.Context, query string, args ...any) (int64, error)
	query(ctx context.Context, query string, args ...any) (rows, error)
	queryRow(ctx context.Context, query string, args ...any) scanner
	ping(ctx context.Context) error
	close() error
}

type scanner interface {
	Scan(dest ...any) error
}

type rows interface {
	scanner
	Next() bool
	Err() error
	Close()
}

// sqlStore implements Store over any conn.
type sqlStore struct {
	d   dialect
	c   conn
	now func() time.Time
}

const logColumns = `id, session_id, created_at, source1_file_count, source2_file_count,
	pairs_considered, fully_matched_pairs, mismatched_pairs,
	files_only_in_source1, files_only_in_source2, execution_time_ms,
	user_agent, ip_address, reports_zip_path, source1_file_names,
	source2_file_names, error_message`

const logColumnCount = 17

func (s *sqlStore) migrate(ctx context.Context) error {
	tsType := "TIMESTAMPTZ"
	if s.d.unixMillis {
		tsType = "INTEGER"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS comparison_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at ` + tsType + ` NOT NULL,
			source1_file_count INTEGER NOT NULL DEFAULT 0,
			source2_file_count INTEGER NOT NULL DEFAULT 0,
			pairs_considered INTEGER NOT NULL DEFAULT 0,
			fully_matched_pairs INTEGER NOT NULL DEFAULT 0,
			mismatched_pairs INTEGER NOT NULL DEFAULT 0,
			files_only_in_source1 INTEGER NOT NULL DEFAULT 0,
			files_only_in_source2 INTEGER NOT NULL DEFAULT 0,
			execution_time_ms BIGINT NOT NULL DEFAULT 0,
			user_agent TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			reports_zip_path TEXT NOT NULL DEFAULT '',
			source1_file_names TEXT NOT NULL DEFAULT '',
			source2_file_names TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comparison_logs_created_at ON comparison_logs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comparison_logs_session_id ON comparison_logs (session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.c.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LogComparison inserts one audit row. A missing id or timestamp is filled in.
func (s *sqlStore) LogComparison(ctx context.Context, e core.ComparisonLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	placeholders := make([]string, logColumnCount)
	for i := range placeholders {
		placeholders[i] = s.d.placeholder(i + 1)
	}
	query := "INSERT INTO comparison_logs (" + logColumns + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	_, err := s.c.exec(ctx, query,
		e.ID, e.SessionID, s.d.timeArg(e.Timestamp),
		e.Source1FileCount, e.Source2FileCount,
		e.PairsConsidered, e.FullyMatchedPairs, e.MismatchedPairs,
		e.FilesOnlyInSource1, e.FilesOnlyInSource2, e.ExecutionTimeMs,
		e.UserAgent, e.IPAddress, e.ReportsZipPath,
		e.Source1FileNames, e.Source2FileNames, e.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert comparison log: %w", err)
	}
	return nil
}

// List returns audit rows matching filter, newest first.
func (s *sqlStore) List(ctx context.Context, filter core.LogFilter) ([]core.ComparisonLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset := max(filter.Offset, 0)

	wb := newWhereBuilder(s.d)
	wb.Add("session_id", filter.SessionID)
	wb.AddSince("created_at", filter.Since)
	whereClause, args := wb.Build()

	query := "SELECT " + logColumns + " FROM comparison_logs" + whereClause +
		" ORDER BY created_at DESC, id DESC LIMIT " + s.d.placeholder(wb.NextArgIndex()) +
		" OFFSET " + s.d.placeholder(wb.NextArgIndex()+1)
	args = append(args, limit, offset)

	rs, err := s.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comparison logs: %w", err)
	}
	defer rs.Close()

	entries := make([]core.ComparisonLog, 0)
	for rs.Next() {
		e, err := s.scanLog(rs)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// FindBySession returns the newest row of a session.
func (s *sqlStore) FindBySession(ctx context.Context, sessionID string) (*core.ComparisonLog, error) {
	if sessionID == "" {
		return nil, core.ErrSessionNotFound
	}
	entries, err := s.List(ctx, core.LogFilter{SessionID: sessionID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, core.ErrSessionNotFound
	}
	return &entries[0], nil
}

func (s *sqlStore) scanLog(sc scanner) (core.ComparisonLog, error) {
	var e core.ComparisonLog
	var ts time.Time
	var ms int64
	var tsDest any = &ts
	if s.d.unixMillis {
		tsDest = &ms
	}

	err := sc.Scan(
		&e.ID, &e.SessionID, tsDest,
		&e.Source1FileCount, &e.Source2FileCount,
		&e.PairsConsidered, &e.FullyMatchedPairs, &e.MismatchedPairs,
		&e.FilesOnlyInSource1, &e.FilesOnlyInSource2, &e.ExecutionTimeMs,
		&e.UserAgent, &e.IPAddress, &e.ReportsZipPath,
		&e.Source1FileNames, &e.Source2FileNames, &e.ErrorMessage,
	)
	if err != nil {
		return e, fmt.Errorf("scan comparison log: %w", err)
	}
	if s.d.unixMillis {
		ts = time.UnixMilli(ms)
	}
	e.Timestamp = ts.UTC()
	return e, nil
}

// Usage summarises all rows; the 24 hour window ends at now.
func (s *sqlStore) Usage(ctx context.Context, now time.Time) (core.UsageMetrics, error) {
	var m core.UsageMetrics
	err := s.c.queryRow(ctx, `SELECT COUNT(*),
			COALESCE(SUM(source1_file_count + source2_file_count), 0),
			COALESCE(SUM(fully_matched_pairs), 0),
			COALESCE(SUM(mismatched_pairs), 0)
		FROM comparison_logs`).Scan(
		&m.TotalComparisons, &m.TotalFilesProcessed,
		&m.TotalMatchedPairsOverall, &m.TotalMismatchedPairsOverall,
	)
	if err != nil {
		return m, fmt.Errorf("usage totals: %w", err)
	}

	wb := newWhereBuilder(s.d)
	wb.AddSince("created_at", now.Add(-24*time.Hour))
	whereClause, args := wb.Build()
	if err := s.c.queryRow(ctx, "SELECT COUNT(*) FROM comparison_logs"+whereClause, args...).Scan(&m.ComparisonsLast24Hours); err != nil {
		return m, fmt.Errorf("usage last 24h: %w", err)
	}
	return m, nil
}

// PurgeOlderThan deletes rows created before cutoff in batches and returns
// how many were removed.
func (s *sqlStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 5000
	}

	wb := newWhereBuilder(s.d)
	wb.AddBefore("created_at", cutoff)
	whereClause, args := wb.Build()
	if whereClause == "" {
		return 0, errors.New("purge cutoff is required")
	}
	query := "DELETE FROM comparison_logs WHERE id IN (SELECT id FROM comparison_logs" +
		whereClause + " LIMIT " + s.d.placeholder(wb.NextArgIndex()) + ")"
	args = append(args, batchSize)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.c.exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("purge comparison logs: %w", err)
		}
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.c.ping(ctx)
}

func (s *sqlStore) Close() error {
	return s.c.close()
}
