package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/JonMunkholm/filecompare/internal/storage"
	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type compareFlags struct {
	source1        string
	source2        string
	sort           bool
	pairs          []string
	ignore1        []string
	ignore2        []string
	includeHeader1 bool
	includeHeader2 bool
	out            string
	workers        int
	json           bool
	noProgress     bool
}

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	var f compareFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the files of two directories",
		Long: `Compare every file in --source1 with its counterpart in --source2.

Files are paired by position after sorting names case-insensitively
(--sort) and by explicit --pair s1name=s2name entries, which take precedence.
Columns can be excluded per side by header name or 0-based index.

Exit status is 0 when every file matched, 1 when differences were found and
2 on errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompare(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.source1, "source1", "", "directory with the source 1 files (required)")
	cmd.Flags().StringVar(&f.source2, "source2", "", "directory with the source 2 files (required)")
	_ = cmd.MarkFlagRequired("source1")
	_ = cmd.MarkFlagRequired("source2")

	cmd.Flags().BoolVar(&f.sort, "sort", false, "pair remaining files by sorted name")
	cmd.Flags().StringArrayVar(&f.pairs, "pair", nil, "manual pair as s1name=s2name (repeatable)")
	cmd.Flags().StringArrayVar(&f.ignore1, "ignore1", nil, "source 1 column to ignore, by name or index (repeatable)")
	cmd.Flags().StringArrayVar(&f.ignore2, "ignore2", nil, "source 2 column to ignore, by name or index (repeatable)")
	cmd.Flags().BoolVar(&f.includeHeader1, "include-header1", false, "compare the header row of source 1 files")
	cmd.Flags().BoolVar(&f.includeHeader2, "include-header2", false, "compare the header row of source 2 files")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "directory for per-pair CSV reports")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "pairs compared in parallel (0 = number of CPUs)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "hide the progress bar")

	return cmd
}

func runCompare(cmd *cobra.Command, f compareFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := buildRequest(f)
	if err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}

	var sink core.ReportSink
	if f.out != "" {
		ds, err := storage.NewDirSink(f.out)
		if err != nil {
			return &ExitCodeError{Code: ExitError, Err: err}
		}
		sink = ds
	}

	opts := []core.EngineOption{core.WithWorkers(f.workers)}
	if !f.noProgress && !f.json {
		total := len(core.PlanPairs(req.Source1, req.Source2, req.ManualPairs, req.SortFileNames))
		bar := pb.New(total).SetTemplate(pb.Simple).SetWriter(cmd.ErrOrStderr())
		bar.Start()
		defer bar.Finish()
		opts = append(opts, core.WithProgress(func(core.PairResult) { bar.Increment() }))
	}

	res := core.NewEngine(sink, opts...).Compare(ctx, req)
	if err := ctx.Err(); err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}

	out := cmd.OutOrStdout()
	if f.json {
		if err := writeJSON(out, res); err != nil {
			return &ExitCodeError{Code: ExitError, Err: err}
		}
	} else {
		printSummary(out, res)
	}

	if res.Metrics.AllMatched() && res.ErrorCount == 0 {
		return nil
	}
	return &ExitCodeError{Code: ExitDifferences}
}

func buildRequest(f compareFlags) (core.ComparisonRequest, error) {
	s1, err := storage.DirSources(f.source1)
	if err != nil {
		return core.ComparisonRequest{}, fmt.Errorf("source1: %w", err)
	}
	s2, err := storage.DirSources(f.source2)
	if err != nil {
		return core.ComparisonRequest{}, fmt.Errorf("source2: %w", err)
	}
	if len(s1) == 0 && len(s2) == 0 {
		return core.ComparisonRequest{}, core.ErrNoFiles
	}

	pairs, err := parsePairs(f.pairs)
	if err != nil {
		return core.ComparisonRequest{}, err
	}

	return core.ComparisonRequest{
		SessionID:      uuid.NewString(),
		Source1:        s1,
		Source2:        s2,
		SortFileNames:  f.sort,
		ManualPairs:    pairs,
		Ignore:         core.IgnoreSpec{Source1: f.ignore1, Source2: f.ignore2},
		IncludeHeader1: f.includeHeader1,
		IncludeHeader2: f.includeHeader2,
	}, nil
}

// parsePairs reads "s1name=s2name" entries.
func parsePairs(raw []string) ([]core.ManualPair, error) {
	pairs := make([]core.ManualPair, 0, len(raw))
	for _, p := range raw {
		left, right, ok := strings.Cut(p, "=")
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if !ok || left == "" || right == "" {
			return nil, fmt.Errorf("invalid --pair %q: want s1name=s2name", p)
		}
		pairs = append(pairs, core.ManualPair{Source1FileName: left, Source2FileName: right})
	}
	return pairs, nil
}

func writeJSON(w io.Writer, res *core.ComparisonResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
