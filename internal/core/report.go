package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
)

// ReportHeader is the column row of every pair report.
var ReportHeader = []string{
	"Source 1 File", "Source 2 File", "Line Comparison Status",
	"Data Source Context", "Data Content",
}

// Line statuses used in report detail rows.
const (
	LineMatched         = "MATCHED_LINE"
	LineMismatched      = "MISMATCHED_LINE"
	LineMissingInS1     = "MISSING_IN_S1_AT_LINE"
	LineMissingInS2     = "MISSING_IN_S2_AT_LINE"
	LinePresentInS1Only = "PRESENT_IN_S1_ONLY"
	LinePresentInS2Only = "PRESENT_IN_S2_ONLY"
)

// reportErrorMarker prefixes the body appended when rendering fails.
const reportErrorMarker = "Error generating CSV content for this file pair: "

const notAvailable = "N/A"

// rowWriter is the subset of *csv.Writer used while rendering.
type rowWriter interface {
	Write(record []string) error
}

// RenderReport serializes one pair result as CSV. It never fails: a
// rendering error is logged and appended to the output as a marker line.
func RenderReport(res PairResult) []byte {
	return renderReport(slog.Default(), res)
}

func renderReport(logger *slog.Logger, res PairResult) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	err := writeReport(w, res)
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		rerr := &ReportRenderError{
			Source1FileName: res.Source1FileName,
			Source2FileName: res.Source2FileName,
			Err:             err,
		}
		logger.Error("report rendering failed", "error", rerr)
		buf.WriteString(reportErrorMarker)
		buf.WriteString(err.Error())
	}
	return buf.Bytes()
}

func writeReport(w rowWriter, res PairResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := w.Write(ReportHeader); err != nil {
		return err
	}

	name1, name2 := orNA(res.Source1FileName), orNA(res.Source2FileName)
	status := string(res.Status)

	// Only the leading summary row names the files.
	row := func(lineStatus, context, content string) error {
		return w.Write([]string{"", "", lineStatus, context, content})
	}

	switch {
	case res.Status == StatusMatched:
		if err := w.Write([]string{name1, name2, status, "Overall", "Files are identical."}); err != nil {
			return err
		}
		for i, line := range res.Source1Content {
			if err := row(string(StatusMatched), lineContext(i)+" - Content", line); err != nil {
				return err
			}
		}

	case res.Status == StatusMissingInSource1:
		if err := w.Write([]string{name1, name2, status, "File Level", "Source 1 File Missing"}); err != nil {
			return err
		}
		for i, line := range res.Source2Content {
			if err := row(LinePresentInS2Only, "S2 "+lineContext(i), line); err != nil {
				return err
			}
		}

	case res.Status == StatusMissingInSource2:
		if err := w.Write([]string{name1, name2, status, "File Level", "Source 2 File Missing"}); err != nil {
			return err
		}
		for i, line := range res.Source1Content {
			if err := row(LinePresentInS1Only, "S1 "+lineContext(i), line); err != nil {
				return err
			}
		}

	case res.Status.IsParseError():
		return w.Write([]string{name1, name2, status, "Error", res.ErrorMessage})

	default:
		if err := w.Write([]string{name1, name2, status, "Summary", "File comparison shows differences."}); err != nil {
			return err
		}
		n := max(len(res.Source1Content), len(res.Source2Content))
		for i := 0; i < n; i++ {
			if err := writeDiffLine(row, res, i); err != nil {
				return err
			}
		}
		if n == 0 {
			return row(status, "Content Info",
				"Files are different but no lines to display (e.g. one or both empty, or parse issue before content processing).")
		}
	}
	return nil
}

func writeDiffLine(row func(lineStatus, context, content string) error, res PairResult, i int) error {
	ctx := lineContext(i)
	has1 := i < len(res.Source1Content)
	has2 := i < len(res.Source2Content)

	switch {
	case has1 && has2:
		l1, l2 := res.Source1Content[i], res.Source2Content[i]
		if l1 == l2 {
			return row(LineMatched, ctx+" - Content", l1)
		}
		if err := row(LineMismatched, ctx+" - Source 1", l1); err != nil {
			return err
		}
		return row(LineMismatched, ctx+" - Source 2", l2)
	case has1:
		return row(LineMissingInS2, ctx+" - Source 1", res.Source1Content[i])
	default:
		return row(LineMissingInS1, ctx+" - Source 2", res.Source2Content[i])
	}
}

func lineContext(i int) string {
	return "Line " + strconv.Itoa(i+1)
}

// ReportSummary is what can be recovered from a rendered report.
type ReportSummary struct {
	Source1FileName string
	Source2FileName string
	Status          Status
	DetailRows      int
}

// ParseReportSummary reads back the file names and overall status from a
// report produced by RenderReport.
func ParseReportSummary(body []byte) (ReportSummary, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return ReportSummary{}, fmt.Errorf("read report header: %w", err)
	}
	if len(header) != len(ReportHeader) || header[0] != ReportHeader[0] {
		return ReportSummary{}, errors.New("not a comparison report")
	}

	first, err := r.Read()
	if err != nil {
		return ReportSummary{}, fmt.Errorf("read report summary: %w", err)
	}
	if len(first) < 3 {
		return ReportSummary{}, errors.New("short summary row")
	}

	sum := ReportSummary{
		Source1FileName: fromNA(first[0]),
		Source2FileName: fromNA(first[1]),
		Status:          Status(first[2]),
	}
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read report row: %w", err)
		}
		sum.DetailRows++
	}
	return sum, nil
}

func fromNA(s string) string {
	if s == notAvailable {
		return ""
	}
	return s
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// ReportFileName suggests a storage name for a pair's report.
func ReportFileName(res PairResult) string {
	part1, part2 := "s1_unknown", "s2_unknown"
	if res.Source1FileName != "" {
		part1 = unsafeNameChars.ReplaceAllString(res.Source1FileName, "_")
	}
	if res.Source2FileName != "" {
		part2 = unsafeNameChars.ReplaceAllString(res.Source2FileName, "_")
	}

	switch {
	case res.Source1FileName == "" && res.Source2FileName != "":
		part1 = "missing_S1_for_" + part2
	case res.Source2FileName == "" && res.Source1FileName != "":
		part2 = "missing_S2_for_" + part1
	}
	return "report_" + part1 + "_vs_" + part2 + ".csv"
}
