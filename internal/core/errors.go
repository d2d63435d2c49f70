package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when a request carries no files on either side.
	ErrNoFiles = errors.New("no file provided")

	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("comparison session not found")

	// ErrInvalidFileName is returned for upload names that would escape
	// the session directory.
	ErrInvalidFileName = errors.New("invalid file name")

	// ErrReportNotFound is returned when a stored report does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrFileTooLarge is returned for uploads above the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyFiles is returned when one side exceeds the file count limit.
	ErrTooManyFiles = errors.New("too many files")

	// ErrAuditUnavailable is returned by history queries when no audit
	// store is configured.
	ErrAuditUnavailable = errors.New("audit store unavailable")
)

// UnsupportedFormatError reports an unrecognised file extension.
type UnsupportedFormatError struct {
	FileName string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.FileName)
}

// ParseError reports content that cannot be decoded under its format.
type ParseError struct {
	FileName string
	Format   FileType
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s (%s): %v", e.FileName, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PairingConflictError reports a manual pair naming an unknown or already
// claimed file.
type PairingConflictError struct {
	Source1FileName string
	Source2FileName string
	Missing1        bool
	Missing2        bool
	Claimed1        bool
	Claimed2        bool
}

func (e *PairingConflictError) Error() string {
	return fmt.Sprintf("manual pair %s / %s: %s", e.Source1FileName, e.Source2FileName, e.reason())
}

func (e *PairingConflictError) reason() string {
	switch {
	case e.Missing1 && e.Missing2:
		return "neither file was uploaded"
	case e.Missing1:
		return "source 1 file was not uploaded"
	case e.Missing2:
		return "source 2 file was not uploaded"
	case e.Claimed1 && e.Claimed2:
		return "both files are already used by another manual pair"
	case e.Claimed1:
		return "source 1 file is already used by another manual pair"
	default:
		return "source 2 file is already used by another manual pair"
	}
}

// ReportRenderError reports a failure while rendering a pair report.
type ReportRenderError struct {
	Source1FileName string
	Source2FileName string
	Err             error
}

func (e *ReportRenderError) Error() string {
	return fmt.Sprintf("error generating report for %s/%s: %v",
		orNA(e.Source1FileName), orNA(e.Source2FileName), e.Err)
}

func (e *ReportRenderError) Unwrap() error {
	return e.Err
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
