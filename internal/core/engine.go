package core

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/filecompare/internal/logging"
)

// Engine runs comparison requests. An Engine holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	sink     ReportSink
	workers  int
	progress PairProgressFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers bounds how many pairs are processed at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithProgress registers a callback invoked once per finished pair.
// Calls are serialized.
func WithProgress(fn PairProgressFunc) EngineOption {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine creates an engine that stores every report in sink. A nil sink
// renders reports without storing them.
func NewEngine(sink ReportSink, opts ...EngineOption) *Engine {
	e := &Engine{
		sink:    sink,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare pairs, normalizes, diffs and reports every file in req. Failures
// are recorded per pair; Compare itself never fails.
func (e *Engine) Compare(ctx context.Context, req ComparisonRequest) *ComparisonResult {
	start := time.Now()
	logger := logging.WithFields(ctx, "session_id", req.SessionID)

	plan := PlanPairs(req.Source1, req.Source2, req.ManualPairs, req.SortFileNames)
	logger.Info("comparison started",
		"source1_files", len(req.Source1),
		"source2_files", len(req.Source2),
		"planned", len(plan),
		"sorted", req.SortFileNames,
		"manual_pairs", len(req.ManualPairs),
	)

	results := make([]PairResult, len(plan))
	var progressMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, p := range plan {
		g.Go(func() error {
			res := e.runPair(gctx, logger, req, p)
			results[p.Index] = res
			if e.progress != nil {
				progressMu.Lock()
				e.progress(res)
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := &ComparisonResult{
		SessionID: req.SessionID,
		Pairs:     results,
		StartedAt: start,
		Metrics: OverallMetrics{
			TotalFilesS1: len(req.Source1),
			TotalFilesS2: len(req.Source2),
		},
	}
	for i, res := range results {
		kind := plan[i].Kind()
		out.Metrics.Accumulate(res, kind == KindOnlySource1, kind == KindOnlySource2)
		if res.ErrorMessage != "" {
			out.ErrorCount++
		}
	}
	out.Duration = time.Since(start)

	logger.Info("comparison finished",
		"pairs_considered", out.Metrics.PairsConsidered,
		"matched", out.Metrics.FullyMatchedPairs,
		"mismatched", out.Metrics.MismatchedPairs,
		"only_source1", out.Metrics.FilesOnlyInSource1,
		"only_source2", out.Metrics.FilesOnlyInSource2,
		"errors", out.ErrorCount,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out
}

func (e *Engine) runPair(ctx context.Context, logger *slog.Logger, req ComparisonRequest, p PlannedPair) PairResult {
	var res PairResult
	switch {
	case p.Conflict != nil:
		res = conflictResult(p.Conflict)
		logger.Warn("manual pair not resolved",
			"source1", p.Conflict.Source1FileName,
			"source2", p.Conflict.Source2FileName,
			"reason", p.Conflict.reason(),
		)
	case p.Source1 != nil && p.Source2 != nil:
		res = e.comparePair(logger, req, p)
	case p.Source1 != nil:
		res = oneSidedResult(logger, p.Source1, StatusMissingInSource2, req.Ignore.Source1, req.IncludeHeader1)
	default:
		res = oneSidedResult(logger, p.Source2, StatusMissingInSource1, req.Ignore.Source2, req.IncludeHeader2)
	}
	res.Manual = p.Manual

	e.storeReport(ctx, logger, req.SessionID, &res)

	logger.Info("pair compared",
		"source1", res.Source1FileName,
		"source2", res.Source2FileName,
		"kind", p.Kind(),
		"status", res.Status,
		"matches", res.MatchCount,
		"mismatches", res.MismatchCount,
		"missing_in_s1", res.MissingInSource1Cnt,
		"missing_in_s2", res.MissingInSource2Cnt,
	)
	return res
}

func (e *Engine) comparePair(logger *slog.Logger, req ComparisonRequest, p PlannedPair) PairResult {
	f1, err1 := normalizeSource(logger, p.Source1)
	f2, err2 := normalizeSource(logger, p.Source2)
	for _, err := range []error{err1, err2} {
		if err != nil {
			logger.Warn("file could not be parsed", "error", err)
		}
	}

	in := DiffInput{
		Source1Name:    p.Source1.Name(),
		Source2Name:    p.Source2.Name(),
		File1:          f1,
		File2:          f2,
		Err1:           err1,
		Err2:           err2,
		IncludeHeader1: req.IncludeHeader1,
		IncludeHeader2: req.IncludeHeader2,
		Logger:         logger,
	}
	if f1 != nil {
		in.Ignore1 = ResolveIgnoreIndices(f1.Header, req.Ignore.Source1)
	}
	if f2 != nil {
		in.Ignore2 = ResolveIgnoreIndices(f2.Header, req.Ignore.Source2)
	}
	logger.Debug("ignore indices resolved",
		"source1", in.Source1Name,
		"source1_ignore", in.Ignore1.Sorted(),
		"source2", in.Source2Name,
		"source2_ignore", in.Ignore2.Sorted(),
	)
	return Diff(in)
}

func conflictResult(c *PairingConflictError) PairResult {
	return PairResult{
		Source1FileName: c.Source1FileName,
		Source2FileName: c.Source2FileName,
		Status:          StatusParseErrorS1,
		ErrorMessage:    c.Error(),
		Source1Content:  []string{},
		Source2Content:  []string{},
		Differences:     []LineDifference{},
		PairingError:    true,
	}
}

// oneSidedResult echoes the present file's rendered content.
func oneSidedResult(logger *slog.Logger, src Source, status Status, ignore []string, includeHeader bool) PairResult {
	res := PairResult{
		Status:         status,
		Source1Content: []string{},
		Source2Content: []string{},
		Differences:    []LineDifference{},
	}

	var content []string
	f, err := normalizeSource(logger, src)
	if err != nil {
		logger.Warn("one-sided file could not be parsed", "file", src.Name(), "error", err)
		res.ErrorMessage = "Error parsing file " + src.Name() + ": " + parseCause(err).Error()
	} else {
		content = RenderContent(f, ResolveIgnoreIndices(f.Header, ignore), includeHeader)
	}

	if status == StatusMissingInSource2 {
		res.Source1FileName = src.Name()
		if content != nil {
			res.Source1Content = content
		}
	} else {
		res.Source2FileName = src.Name()
		if content != nil {
			res.Source2Content = content
		}
	}
	return res
}

// storeReport renders res and hands it to the sink. A failed store is
// recorded on the result.
func (e *Engine) storeReport(ctx context.Context, logger *slog.Logger, sessionID string, res *PairResult) {
	body := renderReport(logger, *res)
	if e.sink == nil {
		return
	}

	ref, err := e.sink.StoreReport(ctx, sessionID, ReportFileName(*res), body)
	if err != nil {
		logger.Error("could not save report",
			"source1", res.Source1FileName,
			"source2", res.Source2FileName,
			"error", err,
		)
		res.ErrorMessage += " | Could not save report file."
		return
	}
	res.ReportPath = ref
}
