package core

// normalize.go turns an uploaded file into a NormalizedFile.
//
// Dispatch is by extension (case-insensitive) onto four variants:
//
//	delimited    .csv .tsv          record 0 is the header
//	spreadsheet  .xlsx .xlsm .xls   first sheet only, row 0 is the header
//	structured   .json .yaml .yml .toml
//	             pretty-printed, one line per row, falls back to plain text
//	text         .txt .log          one line per row
//
// Structured and text files have no header concept; a header is inferred
// from line 0 for ignore-name resolution only.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Delimiter joins kept cell values when a row is rendered for display.
const Delimiter = ","

// inferDelimiters are tried in order when guessing a header from line 0.
var inferDelimiters = []string{",", "\t", ";", "|"}

var extensionTypes = map[string]FileType{
	".csv":  TypeDelimited,
	".tsv":  TypeDelimited,
	".xlsx": TypeSpreadsheet,
	".xlsm": TypeSpreadsheet,
	".xls":  TypeSpreadsheet,
	".json": TypeStructured,
	".yaml": TypeStructured,
	".yml":  TypeStructured,
	".toml": TypeStructured,
	".txt":  TypeText,
	".log":  TypeText,
}

// DetectFileType maps a file name to its normalization variant.
func DetectFileType(name string) FileType {
	if name == "" {
		return TypeUnsupported
	}
	return extensionTypes[strings.ToLower(filepath.Ext(name))]
}

// SupportedExtensions returns the recognised extensions, for display.
func SupportedExtensions() []string {
	return []string{".csv", ".tsv", ".xlsx", ".xlsm", ".xls", ".json", ".yaml", ".yml", ".toml", ".txt", ".log"}
}

// Normalize reads r once and parses it according to name's extension.
// It fails with *UnsupportedFormatError or *ParseError.
func Normalize(name string, r io.Reader) (*NormalizedFile, error) {
	return normalize(slog.Default(), name, r)
}

// normalize is Normalize with the logger used for fallback warnings.
func normalize(logger *slog.Logger, name string, r io.Reader) (*NormalizedFile, error) {
	ft := DetectFileType(name)
	if ft == TypeUnsupported {
		return nil, &UnsupportedFormatError{FileName: name}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{FileName: name, Format: ft, Err: fmt.Errorf("read: %w", err)}
	}

	ext := strings.ToLower(filepath.Ext(name))
	var nf *NormalizedFile
	switch ft {
	case TypeDelimited:
		nf, err = normalizeDelimited(data, ext == ".tsv")
	case TypeSpreadsheet:
		nf, err = normalizeSpreadsheet(data, ext)
	case TypeStructured:
		nf, err = normalizeStructured(logger, name, data, ext)
	case TypeText:
		nf, err = normalizeText(bytes.NewReader(data))
	}
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ParseError{FileName: name, Format: ft, Err: err}
	}

	nf.Name = name
	nf.Type = ft
	return nf, nil
}

// NormalizeSource opens src and normalizes it.
func NormalizeSource(src Source) (*NormalizedFile, error) {
	return normalizeSource(slog.Default(), src)
}

func normalizeSource(logger *slog.Logger, src Source) (*NormalizedFile, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &ParseError{FileName: src.Name(), Format: DetectFileType(src.Name()), Err: err}
	}
	defer rc.Close()
	return normalize(logger, src.Name(), rc)
}

func normalizeDelimited(data []byte, tab bool) (*NormalizedFile, error) {
	reader := csv.NewReader(NewTextReader(bytes.NewReader(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if tab {
		reader.Comma = '\t'
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		rows = append(rows, Row(record))
	}

	nf := &NormalizedFile{Rows: rows}
	if len(rows) > 0 {
		nf.Header = rows[0]
	}
	return nf, nil
}

func normalizeText(r io.Reader) (*NormalizedFile, error) {
	scanner := bufio.NewScanner(NewTextReader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scanLines)

	var rows []Row
	for scanner.Scan() {
		rows = append(rows, Row{scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	return withInferredHeader(rows), nil
}

// scanLines is bufio.ScanLines that also ends a line at a lone \r, so old
// Mac files split the same way as Unix and Windows ones.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// \r: wait for the next byte to tell \r\n from a lone \r.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// linesToFile builds a single-column file from already decoded lines.
func linesToFile(lines []string) *NormalizedFile {
	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, Row{strings.TrimSuffix(line, "\r")})
	}
	return withInferredHeader(rows)
}

func withInferredHeader(rows []Row) *NormalizedFile {
	nf := &NormalizedFile{Rows: rows}
	if len(rows) > 0 && len(rows[0]) > 0 {
		nf.Header = InferHeader(rows[0][0])
		nf.HeaderInferred = true
	}
	return nf
}

// InferHeader splits line on the first common delimiter it contains.
// A line with none of them becomes a single-column header.
func InferHeader(line string) Row {
	for _, d := range inferDelimiters {
		if strings.Contains(line, d) {
			parts := strings.Split(line, d)
			header := make(Row, len(parts))
			for i, p := range parts {
				header[i] = strings.TrimSpace(p)
			}
			return header
		}
	}
	return Row{strings.TrimSpace(line)}
}
