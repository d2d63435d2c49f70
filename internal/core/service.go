package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/filecompare/internal/logging"
)

// Side identifies one of the two upload sets.
type Side int

const (
	Side1 Side = 1
	Side2 Side = 2
)

func (s Side) String() string {
	return fmt.Sprintf("s%d", int(s))
}

// SessionStore persists uploads, reports and result snapshots per session.
type SessionStore interface {
	ReportSink
	CreateSession(ctx context.Context) (string, error)
	StoreUpload(ctx context.Context, sessionID string, side Side, name string, r io.Reader) (Source, error)
	BundleReports(ctx context.Context, sessionID string) (string, error)
	OpenReport(ctx context.Context, sessionID, ref string) (io.ReadCloser, error)
	OpenBundle(ctx context.Context, sessionID string) (io.ReadCloser, string, error)
	SaveResult(ctx context.Context, res *ComparisonResult) error
	LoadResult(ctx context.Context, sessionID string) (*ComparisonResult, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// ComparisonLog is one audit row per comparison request.
type ComparisonLog struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"sessionId"`
	Timestamp          time.Time `json:"timestamp"`
	Source1FileCount   int       `json:"source1FileCount"`
	Source2FileCount   int       `json:"source2FileCount"`
	PairsConsidered    int       `json:"pairsConsidered"`
	FullyMatchedPairs  int       `json:"fullyMatchedPairs"`
	MismatchedPairs    int       `json:"mismatchedPairs"`
	FilesOnlyInSource1 int       `json:"filesOnlyInSource1"`
	FilesOnlyInSource2 int       `json:"filesOnlyInSource2"`
	ExecutionTimeMs    int64     `json:"executionTimeMs"`
	UserAgent          string    `json:"userAgent,omitempty"`
	IPAddress          string    `json:"ipAddress,omitempty"`
	ReportsZipPath     string    `json:"reportsZipPath,omitempty"`
	Source1FileNames   string    `json:"source1FileNames"`
	Source2FileNames   string    `json:"source2FileNames"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
}

// LogFilter narrows history queries. Zero values mean no restriction.
type LogFilter struct {
	SessionID string
	Since     time.Time
	Limit     int
	Offset    int
}

// UsageMetrics summarises the audit history.
type UsageMetrics struct {
	TotalComparisons            int64 `json:"totalComparisons"`
	ComparisonsLast24Hours      int64 `json:"comparisonsLast24Hours"`
	TotalFilesProcessed         int64 `json:"totalFilesProcessed"`
	TotalMatchedPairsOverall    int64 `json:"totalMatchedPairsOverall"`
	TotalMismatchedPairsOverall int64 `json:"totalMismatchedPairsOverall"`
}

// ComparisonLogger records and queries comparison history.
type ComparisonLogger interface {
	LogComparison(ctx context.Context, entry ComparisonLog) error
	List(ctx context.Context, filter LogFilter) ([]ComparisonLog, error)
	Usage(ctx context.Context, now time.Time) (UsageMetrics, error)
}

// Upload is one file received from a client.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// CompareInput is a comparison request as received by a frontend.
type CompareInput struct {
	Source1        []Upload
	Source2        []Upload
	SortFileNames  bool
	ManualPairs    []ManualPair
	Ignore         IgnoreSpec
	IncludeHeader1 bool
	IncludeHeader2 bool
}

// ServiceConfig holds request limits.
type ServiceConfig struct {
	MaxFileSize     int64
	MaxFilesPerSide int
	Workers         int
}

// Service runs comparison requests end to end: limiting, storing uploads,
// comparing, bundling and auditing.
type Service struct {
	cfg     ServiceConfig
	store   SessionStore
	audit   ComparisonLogger
	limiter *ComparisonLimiter
	engine  *Engine
	now     func() time.Time
}

// NewService wires a Service. audit may be nil, in which case comparisons
// are not recorded and history queries fail with ErrAuditUnavailable.
func NewService(cfg ServiceConfig, store SessionStore, audit ComparisonLogger, limiter *ComparisonLimiter) *Service {
	if limiter == nil {
		limiter = NewComparisonLimiter(0, 0)
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		audit:   audit,
		limiter: limiter,
		engine:  NewEngine(store, WithWorkers(cfg.Workers)),
		now:     time.Now,
	}
}

// Compare validates in, runs the comparison in a fresh session and returns
// its result.
func (s *Service) Compare(ctx context.Context, in CompareInput) (*ComparisonResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.now()
	sessionID, err := s.store.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger := logging.WithFields(ctx, "session_id", sessionID)

	req := ComparisonRequest{
		SessionID:      sessionID,
		SortFileNames:  in.SortFileNames,
		ManualPairs:    in.ManualPairs,
		Ignore:         in.Ignore,
		IncludeHeader1: in.IncludeHeader1,
		IncludeHeader2: in.IncludeHeader2,
	}
	req.Source1, err = s.storeUploads(ctx, sessionID, Side1, in.Source1)
	if err == nil {
		req.Source2, err = s.storeUploads(ctx, sessionID, Side2, in.Source2)
	}
	if err != nil {
		logger.Error("storing uploads failed", "error", err)
		if derr := s.store.DeleteSession(context.WithoutCancel(ctx), sessionID); derr != nil {
			logger.Warn("session cleanup failed", "error", derr)
		}
		entry := s.logEntry(ctx, sessionID, in, nil, s.now().Sub(start))
		entry.ErrorMessage = err.Error()
		s.record(ctx, entry)
		return nil, err
	}

	res := s.engine.Compare(ctx, req)

	zipPath, err := s.store.BundleReports(ctx, sessionID)
	if err != nil {
		logger.Warn("bundling reports failed", "error", err)
	}
	res.ZipPath = zipPath

	if err := s.store.SaveResult(ctx, res); err != nil {
		logger.Warn("saving result snapshot failed", "error", err)
	}

	s.record(ctx, s.logEntry(ctx, sessionID, in, res, s.now().Sub(start)))
	return res, nil
}

func (s *Service) validate(in CompareInput) error {
	if len(in.Source1) == 0 && len(in.Source2) == 0 {
		return ErrNoFiles
	}
	for i, files := range [][]Upload{in.Source1, in.Source2} {
		side := i + 1
		if s.cfg.MaxFilesPerSide > 0 && len(files) > s.cfg.MaxFilesPerSide {
			return fmt.Errorf("%w for source %d: %d (max %d)", ErrTooManyFiles, side, len(files), s.cfg.MaxFilesPerSide)
		}
		for _, f := range files {
			if s.cfg.MaxFileSize > 0 && f.Size > s.cfg.MaxFileSize {
				return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFileTooLarge, f.Name, f.Size, s.cfg.MaxFileSize)
			}
		}
	}
	return nil
}

func (s *Service) storeUploads(ctx context.Context, sessionID string, side Side, files []Upload) ([]Source, error) {
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		src, err := s.storeUpload(ctx, sessionID, side, f)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (s *Service) storeUpload(ctx context.Context, sessionID string, side Side, f Upload) (Source, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", f.Name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.cfg.MaxFileSize > 0 {
		r = &limitedReader{r: rc, remaining: s.cfg.MaxFileSize, name: f.Name}
	}
	src, err := s.store.StoreUpload(ctx, sessionID, side, f.Name, r)
	if err != nil {
		return nil, fmt.Errorf("store upload %s: %w", f.Name, err)
	}
	return src, nil
}

// limitedReader fails once more than remaining bytes have been read, for
// uploads whose declared size was missing or wrong.
type limitedReader struct {
	r         io.Reader
	remaining int64
	name      string
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, fmt.Errorf("%w: %s", ErrFileTooLarge, l.name)
	}
	return n, err
}

func (s *Service) logEntry(ctx context.Context, sessionID string, in CompareInput, res *ComparisonResult, elapsed time.Duration) ComparisonLog {
	client := ClientInfoFromContext(ctx)
	entry := ComparisonLog{
		SessionID:        sessionID,
		Timestamp:        s.now().UTC(),
		Source1FileCount: len(in.Source1),
		Source2FileCount: len(in.Source2),
		ExecutionTimeMs:  elapsed.Milliseconds(),
		UserAgent:        client.UserAgent,
		IPAddress:        client.IPAddress,
		Source1FileNames: joinNames(in.Source1),
		Source2FileNames: joinNames(in.Source2),
	}
	if res != nil {
		m := res.Metrics
		entry.PairsConsidered = m.PairsConsidered
		entry.FullyMatchedPairs = m.FullyMatchedPairs
		entry.MismatchedPairs = m.MismatchedPairs
		entry.FilesOnlyInSource1 = m.FilesOnlyInSource1
		entry.FilesOnlyInSource2 = m.FilesOnlyInSource2
		entry.ReportsZipPath = res.ZipPath
	}
	return entry
}

func joinNames(files []Upload) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}

// record writes the audit row. Failures are logged, never returned: the
// comparison itself already succeeded or failed on its own terms.
func (s *Service) record(ctx context.Context, entry ComparisonLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogComparison(context.WithoutCancel(ctx), entry); err != nil {
		logging.FromContext(ctx).Error("audit log write failed",
			"session_id", entry.SessionID,
			"error", err,
		)
	}
}

// Result returns the stored result snapshot of a session.
func (s *Service) Result(ctx context.Context, sessionID string) (*ComparisonResult, error) {
	return s.store.LoadResult(ctx, sessionID)
}

// Report opens one stored pair report.
func (s *Service) Report(ctx context.Context, sessionID, ref string) (io.ReadCloser, error) {
	return s.store.OpenReport(ctx, sessionID, ref)
}

// Bundle opens the ZIP of all reports of a session, building it if needed.
// The returned name is suitable for a download.
func (s *Service) Bundle(ctx context.Context, sessionID string) (io.ReadCloser, string, error) {
	rc, name, err := s.store.OpenBundle(ctx, sessionID)
	if !errors.Is(err, ErrReportNotFound) {
		return rc, name, err
	}
	if _, err := s.store.BundleReports(ctx, sessionID); err != nil {
		return nil, "", err
	}
	return s.store.OpenBundle(ctx, sessionID)
}

// Cleanup deletes everything stored for a session.
func (s *Service) Cleanup(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("comparison session cleaned up", "session_id", sessionID)
	return nil
}

// Logs lists audit rows, newest first.
func (s *Service) Logs(ctx context.Context, filter LogFilter) ([]ComparisonLog, error) {
	if s.audit == nil {
		return nil, ErrAuditUnavailable
	}
	return s.audit.List(ctx, filter)
}

// Usage summarises the audit history.
func (s *Service) Usage(ctx context.Context) (UsageMetrics, error) {
	if s.audit == nil {
		return UsageMetrics{}, ErrAuditUnavailable
	}
	return s.audit.Usage(ctx, s.now())
}

// LimiterStatus reports comparison slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForComparisons blocks until in-flight comparisons finish or ctx ends.
func (s *Service) WaitForComparisons(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
