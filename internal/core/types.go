// Package core provides the file-pairing and diff engine.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"io"
	"time"
)

// Row is one record or line of a file after normalization.
type Row []string

// FileType is the normalization variant selected from a file's extension.
type FileType string

const (
	TypeUnsupported FileType = ""
	TypeDelimited   FileType = "delimited"
	TypeSpreadsheet FileType = "spreadsheet"
	TypeStructured  FileType = "structured"
	TypeText        FileType = "text"
)

// NormalizedFile is the uniform row/column view of an uploaded file.
//
// When Header is set it is logically Rows[0]; it is never stored twice.
// HeaderInferred marks headers guessed by splitting line 0 of formats
// that have no header concept. Those are used for ignore-name resolution
// only and never shift the comparison offset.
type NormalizedFile struct {
	Name           string
	Type           FileType
	Rows           []Row
	Header         Row
	HeaderInferred bool
}

// HasNativeHeader reports whether row 0 is a real header row.
func (f *NormalizedFile) HasNativeHeader() bool {
	return f != nil && f.Header != nil && !f.HeaderInferred
}

// Status is the overall outcome of one pair.
type Status string

const (
	StatusMatched           Status = "MATCHED"
	StatusMismatched        Status = "MISMATCHED"
	StatusMissingInSource1  Status = "MISSING_IN_SOURCE1"
	StatusMissingInSource2  Status = "MISSING_IN_SOURCE2"
	StatusParseErrorS1      Status = "PARSE_ERROR_S1"
	StatusParseErrorS2      Status = "PARSE_ERROR_S2"
	StatusDifferentRowCount Status = "DIFFERENT_ROW_COUNT"
)

// IsOneSided reports whether the status describes a file without a counterpart.
func (s Status) IsOneSided() bool {
	return s == StatusMissingInSource1 || s == StatusMissingInSource2
}

// IsParseError reports whether the status describes a parse or pairing failure.
func (s Status) IsParseError() bool {
	return s == StatusParseErrorS1 || s == StatusParseErrorS2
}

// DiffType classifies a single line difference.
type DiffType string

const (
	DiffMatch            DiffType = "MATCH"
	DiffMismatch         DiffType = "MISMATCH"
	DiffMissingInSource1 DiffType = "MISSING_IN_SOURCE1"
	DiffMissingInSource2 DiffType = "MISSING_IN_SOURCE2"
)

// LineDifference records one differing line. LineNumber is 1-based over the
// effective (header- and ignore-adjusted) row sequence.
type LineDifference struct {
	LineNumber  int      `json:"lineNumber" msgpack:"line"`
	Source1Line *string  `json:"source1Line" msgpack:"s1"`
	Source2Line *string  `json:"source2Line" msgpack:"s2"`
	Type        DiffType `json:"type" msgpack:"type"`
}

// PairResult is the outcome of comparing (or failing to compare) one pair.
type PairResult struct {
	Source1FileName string           `json:"source1FileName,omitempty" msgpack:"s1name"`
	Source2FileName string           `json:"source2FileName,omitempty" msgpack:"s2name"`
	Status          Status           `json:"status" msgpack:"status"`
	ErrorMessage    string           `json:"errorMessage,omitempty" msgpack:"err"`
	Source1Content  []string         `json:"source1Content" msgpack:"s1content"`
	Source2Content  []string         `json:"source2Content" msgpack:"s2content"`
	Differences     []LineDifference `json:"differences" msgpack:"diffs"`

	MatchCount          int `json:"matchCount" msgpack:"match"`
	MismatchCount       int `json:"mismatchCount" msgpack:"mismatch"`
	MissingInSource1Cnt int `json:"missingInSource1Count" msgpack:"miss1"`
	MissingInSource2Cnt int `json:"missingInSource2Count" msgpack:"miss2"`

	// PairingError marks results produced for a manual pair that could not be
	// resolved. Their status is the generic PARSE_ERROR_S1.
	PairingError bool `json:"pairingError,omitempty" msgpack:"pairerr"`

	// Manual marks results for pairs the user requested explicitly.
	Manual bool `json:"manual,omitempty" msgpack:"manual"`

	// ReportPath is the report sink's reference for this pair's report.
	ReportPath string `json:"individualReportPath,omitempty" msgpack:"report"`
}

// ManualPair is a user-requested pairing by bare file name.
type ManualPair struct {
	Source1FileName string `json:"source1FileName"`
	Source2FileName string `json:"source2FileName"`
}

// IgnoreSpec lists ignored column identifiers (header names or 0-based
// indices as strings) per side.
type IgnoreSpec struct {
	Source1 []string `json:"source1Ignore"`
	Source2 []string `json:"source2Ignore"`
}

// IgnoreIndexSet is a concrete set of column positions to exclude.
type IgnoreIndexSet map[int]struct{}

// Contains reports whether column i is ignored.
func (s IgnoreIndexSet) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

// OverallMetrics are the running totals for one comparison request.
type OverallMetrics struct {
	TotalFilesS1          int `json:"totalFilesS1" msgpack:"files1"`
	TotalFilesS2          int `json:"totalFilesS2" msgpack:"files2"`
	PairsConsidered       int `json:"pairsConsidered" msgpack:"pairs"`
	FullyMatchedPairs     int `json:"fullyMatchedPairs" msgpack:"matched"`
	MismatchedPairs       int `json:"mismatchedPairs" msgpack:"mismatched"`
	FilesOnlyInSource1    int `json:"filesOnlyInSource1" msgpack:"only1"`
	FilesOnlyInSource2    int `json:"filesOnlyInSource2" msgpack:"only2"`
	TotalLineMatches      int `json:"totalLineMatches" msgpack:"lmatch"`
	TotalLineMismatches   int `json:"totalLineMismatches" msgpack:"lmismatch"`
	TotalLinesMissingInS1 int `json:"totalLinesMissingInS1" msgpack:"lmiss1"`
	TotalLinesMissingInS2 int `json:"totalLinesMissingInS2" msgpack:"lmiss2"`
}

// Source is a named, re-openable byte stream for one uploaded file.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// ReportSink persists rendered reports. It returns a reference the caller
// can later use to fetch the report.
type ReportSink interface {
	StoreReport(ctx context.Context, sessionID, fileName string, body []byte) (string, error)
}

// ComparisonRequest is one engine invocation.
type ComparisonRequest struct {
	SessionID      string
	Source1        []Source
	Source2        []Source
	SortFileNames  bool
	ManualPairs    []ManualPair
	Ignore         IgnoreSpec
	IncludeHeader1 bool
	IncludeHeader2 bool
}

// ComparisonResult is the engine's complete answer for one request.
type ComparisonResult struct {
	SessionID  string         `json:"sessionId" msgpack:"session"`
	Metrics    OverallMetrics `json:"metrics" msgpack:"metrics"`
	Pairs      []PairResult   `json:"pairResults" msgpack:"pairs"`
	ZipPath    string         `json:"reportsZipPath,omitempty" msgpack:"zip"`
	StartedAt  time.Time      `json:"startedAt" msgpack:"started"`
	Duration   time.Duration  `json:"durationNs" msgpack:"duration"`
	ErrorCount int            `json:"errorCount" msgpack:"errors"`
}

// PairProgressFunc is called once per finished pair.
type PairProgressFunc func(PairResult)
