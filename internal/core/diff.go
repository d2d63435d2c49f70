package core

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// DiffInput carries both sides of one determined pair. A side whose
// normalization failed has File nil and Err set.
type DiffInput struct {
	Source1Name string
	Source2Name string

	File1, File2 *NormalizedFile
	Err1, Err2   error

	Ignore1, Ignore2               IgnoreIndexSet
	IncludeHeader1, IncludeHeader2 bool

	// Logger receives the status-correction warning; nil uses slog.Default.
	Logger *slog.Logger
}

// headerOffset is 1 when a native header row must be skipped for comparison.
func headerOffset(f *NormalizedFile, includeHeader bool) int {
	if f.HasNativeHeader() && !includeHeader && len(f.Rows) > 0 {
		return 1
	}
	return 0
}

// RenderContent returns the display rows of f: kept cells joined with
// Delimiter, starting at the comparison offset. Content index i therefore
// always describes effective row i.
func RenderContent(f *NormalizedFile, ignore IgnoreIndexSet, includeHeader bool) []string {
	if f == nil {
		return []string{}
	}
	rows := f.Rows[headerOffset(f, includeHeader):]
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = renderRow(r, ignore)
	}
	return out
}

// Diff compares two normalized files positionally.
func Diff(in DiffInput) PairResult {
	res := PairResult{
		Source1FileName: in.Source1Name,
		Source2FileName: in.Source2Name,
		Source1Content:  []string{},
		Source2Content:  []string{},
		Differences:     []LineDifference{},
	}

	if in.Err1 != nil {
		res.Status = StatusParseErrorS1
		res.ErrorMessage = fmt.Sprintf("Error parsing %s: %v", in.Source1Name, parseCause(in.Err1))
		return res
	}
	if in.File1 == nil {
		in.File1 = &NormalizedFile{}
	}
	res.Source1Content = RenderContent(in.File1, in.Ignore1, in.IncludeHeader1)

	if in.Err2 != nil {
		res.Status = StatusParseErrorS2
		res.ErrorMessage = fmt.Sprintf("Error parsing %s: %v", in.Source2Name, parseCause(in.Err2))
		return res
	}
	if in.File2 == nil {
		in.File2 = &NormalizedFile{}
	}
	res.Source2Content = RenderContent(in.File2, in.Ignore2, in.IncludeHeader2)

	off1 := headerOffset(in.File1, in.IncludeHeader1)
	off2 := headerOffset(in.File2, in.IncludeHeader2)
	len1 := len(in.File1.Rows) - off1
	len2 := len(in.File2.Rows) - off2

	differs := false
	for i := 0; i < max(len1, len2); i++ {
		line := i + 1
		switch {
		case i < len1 && i < len2:
			if rowsEqual(in.File1.Rows[off1+i], in.File2.Rows[off2+i], in.Ignore1, in.Ignore2) {
				res.MatchCount++
				continue
			}
			res.Differences = append(res.Differences, LineDifference{
				LineNumber:  line,
				Source1Line: &res.Source1Content[i],
				Source2Line: &res.Source2Content[i],
				Type:        DiffMismatch,
			})
			res.MismatchCount++
			differs = true
		case i < len1:
			res.Differences = append(res.Differences, LineDifference{
				LineNumber:  line,
				Source1Line: &res.Source1Content[i],
				Type:        DiffMissingInSource2,
			})
			res.MissingInSource2Cnt++
			differs = true
		default:
			res.Differences = append(res.Differences, LineDifference{
				LineNumber:  line,
				Source2Line: &res.Source2Content[i],
				Type:        DiffMissingInSource1,
			})
			res.MissingInSource1Cnt++
			differs = true
		}
	}

	if len1 != len2 {
		differs = true
	}
	if differs {
		res.Status = StatusMismatched
	} else {
		res.Status = StatusMatched
	}

	// A MATCHED result must have no differing lines and equal lengths.
	if res.Status == StatusMatched &&
		(res.MismatchCount > 0 || res.MissingInSource1Cnt > 0 || res.MissingInSource2Cnt > 0 || len1 != len2) {
		logger := in.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("correcting MATCHED status with differences",
			"source1", in.Source1Name,
			"source2", in.Source2Name,
		)
		res.Status = StatusMismatched
	}
	return res
}

func rowsEqual(r1, r2 Row, ignore1, ignore2 IgnoreIndexSet) bool {
	return slices.Equal(keptValues(r1, ignore1), keptValues(r2, ignore2))
}

// parseCause strips the ParseError wrapper, whose text repeats the file name.
func parseCause(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err
	}
	return err
}
