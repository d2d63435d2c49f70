package core

import (
	"bufio"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/xuri/excelize/v2"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		want FileType
	}{
		{"data.csv", TypeDelimited},
		{"DATA.CSV", TypeDelimited},
		{"data.tsv", TypeDelimited},
		{"book.xlsx", TypeSpreadsheet},
		{"macro.xlsm", TypeSpreadsheet},
		{"legacy.XLS", TypeSpreadsheet},
		{"doc.json", TypeStructured},
		{"doc.yml", TypeStructured},
		{"doc.yaml", TypeStructured},
		{"doc.toml", TypeStructured},
		{"notes.txt", TypeText},
		{"app.log", TypeText},
		{"report.pdf", TypeUnsupported},
		{"noext", TypeUnsupported},
		{"", TypeUnsupported},
	}
	for _, tt := range tests {
		if got := DetectFileType(tt.name); got != tt.want {
			t.Errorf("DetectFileType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNormalize_Delimited(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		input    string
		wantRows []Row
	}{
		{
			name:  "csv with quoted delimiter",
			file:  "a.csv",
			input: "id,name\n1,\"Smith, J\"\n2,Lee\n",
			wantRows: []Row{
				{"id", "name"},
				{"1", "Smith, J"},
				{"2", "Lee"},
			},
		},
		{
			name:     "ragged records allowed",
			file:     "a.csv",
			input:    "a,b,c\n1\n",
			wantRows: []Row{{"a", "b", "c"}, {"1"}},
		},
		{
			name:     "tsv",
			file:     "a.tsv",
			input:    "id\tname\n1\tx,y\n",
			wantRows: []Row{{"id", "name"}, {"1", "x,y"}},
		},
		{
			name:     "utf-8 BOM stripped",
			file:     "a.csv",
			input:    "\ufeffid,name\n",
			wantRows: []Row{{"id", "name"}},
		},
		{
			name:     "crlf line endings",
			file:     "a.csv",
			input:    "a,b\r\n1,2\r\n",
			wantRows: []Row{{"a", "b"}, {"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf, err := Normalize(tt.file, strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !reflect.DeepEqual(nf.Rows, tt.wantRows) {
				t.Errorf("rows = %q, want %q", nf.Rows, tt.wantRows)
			}
			if !reflect.DeepEqual(nf.Header, tt.wantRows[0]) {
				t.Errorf("header = %q, want %q", nf.Header, tt.wantRows[0])
			}
			if !nf.HasNativeHeader() {
				t.Error("delimited header should be native")
			}
			if nf.Type != TypeDelimited || nf.Name != tt.file {
				t.Errorf("type/name = %q/%q", nf.Type, nf.Name)
			}
		})
	}
}

func TestNormalize_EmptyDelimitedHasNoHeader(t *testing.T) {
	nf, err := Normalize("empty.csv", strings.NewReader(""))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(nf.Rows) != 0 || nf.Header != nil {
		t.Errorf("got rows=%q header=%q, want none", nf.Rows, nf.Header)
	}
}

func TestNormalize_BareQuoteKept(t *testing.T) {
	nf, err := Normalize("export.csv", strings.NewReader("a,b\n1,x\"y\n2,\"q,\"\"z\"\"\"\n"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Row{{"a", "b"}, {"1", "x\"y"}, {"2", "q,\"z\""}}
	if !reflect.DeepEqual(nf.Rows, want) {
		t.Errorf("rows = %q, want %q", nf.Rows, want)
	}
}

func TestNormalize_Errors(t *testing.T) {
	_, err := Normalize("slides.pptx", strings.NewReader("x"))
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("err = %v, want *UnsupportedFormatError", err)
	}

	for _, tc := range []struct {
		file, input string
		format      FileType
	}{
		{"bad.xlsx", "this is not a zip archive", TypeSpreadsheet},
		{"bad.xls", "this is not a BIFF workbook", TypeSpreadsheet},
	} {
		_, err := Normalize(tc.file, strings.NewReader(tc.input))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: err = %v, want *ParseError", tc.file, err)
			continue
		}
		if pe.FileName != tc.file || pe.Format != tc.format {
			t.Errorf("%s: ParseError = %+v", tc.file, pe)
		}
	}
}

func TestNormalize_Text(t *testing.T) {
	nf, err := Normalize("run.log", strings.NewReader("id;name;ts\r\nline two\n\nlast"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Row{{"id;name;ts"}, {"line two"}, {""}, {"last"}}
	if !reflect.DeepEqual(nf.Rows, want) {
		t.Errorf("rows = %q, want %q", nf.Rows, want)
	}
	if !nf.HeaderInferred || nf.HasNativeHeader() {
		t.Error("text header should be inferred, not native")
	}
	if wantHeader := (Row{"id", "name", "ts"}); !reflect.DeepEqual(nf.Header, wantHeader) {
		t.Errorf("header = %q, want %q", nf.Header, wantHeader)
	}
}

func TestNormalize_TextLineEndings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lone cr", "x\ry\rz", []string{"x", "y", "z"}},
		{"crlf", "x\r\ny\r\n", []string{"x", "y"}},
		{"mixed", "a\rb\r\nc\nd", []string{"a", "b", "c", "d"}},
		{"blank lines", "a\r\rb\n\nc", []string{"a", "", "b", "", "c"}},
		{"trailing cr", "a\r", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf, err := Normalize("notes.txt", strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got := rowsToLines(nf.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}

			// One byte per read leaves every \r at the end of the buffer.
			scanner := bufio.NewScanner(iotest.OneByteReader(strings.NewReader(tt.input)))
			scanner.Split(scanLines)
			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("one byte reads: lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInferHeader(t *testing.T) {
	tests := []struct {
		line string
		want Row
	}{
		{"a,b,c", Row{"a", "b", "c"}},
		{"a\tb", Row{"a", "b"}},
		{"a; b ;c", Row{"a", "b", "c"}},
		{"a|b", Row{"a", "b"}},
		{"a,b;c", Row{"a", "b;c"}},
		{"  plain line ", Row{"plain line"}},
	}
	for _, tt := range tests {
		if got := InferHeader(tt.line); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("InferHeader(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func rowsToLines(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = strings.Join(r, "")
	}
	return out
}

func TestNormalize_Structured(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input string
		want  []string
	}{
		{
			name:  "json keys stay in document order",
			file:  "a.json",
			input: `{"b":1,"a":[1,2]}`,
			want:  []string{"{", `  "b": 1,`, `  "a": [`, "    1,", "    2", "  ]", "}"},
		},
		{
			name:  "json strings are not re-escaped",
			file:  "a.json",
			input: `{"url":"a<b&c>d","esc":"\u00e9\n"}`,
			want:  []string{"{", `  "url": "a<b&c>d",`, `  "esc": "\u00e9\n"`, "}"},
		},
		{
			name:  "json numbers keep their text",
			file:  "a.json",
			input: `[1.50]`,
			want:  []string{"[", "  1.50", "]"},
		},
		{
			name:  "toml re-encoded",
			file:  "a.toml",
			input: "b = 1\na = \"x\"\n",
			want:  []string{`a = "x"`, "b = 1"},
		},
		{
			name:  "malformed json falls back to text",
			file:  "broken.json",
			input: "{\"a\":\nnot json",
			want:  []string{`{"a":`, "not json"},
		},
		{
			name:  "malformed toml falls back to text",
			file:  "broken.toml",
			input: "this = = wrong",
			want:  []string{"this = = wrong"},
		},
		{
			name:  "trailing json data falls back to text",
			file:  "two.json",
			input: "{} {}",
			want:  []string{"{} {}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf, err := Normalize(tt.file, strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got := rowsToLines(nf.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
			for i, r := range nf.Rows {
				if len(r) != 1 {
					t.Errorf("row %d has %d cells, want 1", i, len(r))
				}
			}
			if nf.Type != TypeStructured || !nf.HeaderInferred {
				t.Errorf("type=%q inferred=%v", nf.Type, nf.HeaderInferred)
			}
		})
	}
}

func TestNormalize_YAML(t *testing.T) {
	input := "name: x\nitems:\n    - 1\n    - 2\n"
	nf, err := Normalize("cfg.yaml", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	lines := rowsToLines(nf.Rows)
	if len(lines) != 4 || lines[0] != "name: x" || lines[1] != "items:" {
		t.Errorf("lines = %q", lines)
	}
	if strings.HasPrefix(lines[2], "    ") {
		t.Errorf("sequence not re-indented: %q", lines[2])
	}
}

func TestNormalize_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	cells := map[string]any{
		"A1": "id", "B1": "name", "C1": "note",
		"A2": 1, "B2": "alpha",
		"A3": "2", "C3": "gap",
		"B5": "after blank",
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", cell, err)
		}
	}
	// A second sheet is never read.
	if _, err := f.NewSheet("Other"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	_ = f.SetCellValue("Other", "A1", "ignored")

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	nf, err := Normalize("book.xlsx", buf)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []Row{
		{"id", "name", "note"},
		{"1", "alpha"},
		{"2", "", "gap"},
		{},
		{"", "after blank"},
	}
	if !reflect.DeepEqual(nf.Rows, want) {
		t.Errorf("rows = %q, want %q", nf.Rows, want)
	}
	if !nf.HasNativeHeader() {
		t.Error("spreadsheet header should be native")
	}
}

func TestCollectRows(t *testing.T) {
	tests := []struct {
		name   string
		stored map[int]Row
		n      int
		want   []Row
	}{
		{
			name:   "missing rows kept as blank",
			stored: map[int]Row{0: {"h"}, 2: {"x"}},
			n:      3,
			want:   []Row{{"h"}, {}, {"x"}},
		},
		{
			name:   "stored blank row same as missing",
			stored: map[int]Row{0: {"h"}, 1: {"", ""}, 3: {"x"}},
			n:      4,
			want:   []Row{{"h"}, {}, {}, {"x"}},
		},
		{
			name:   "trailing blank rows dropped",
			stored: map[int]Row{0: {"h", ""}, 2: {""}},
			n:      4,
			want:   []Row{{"h"}},
		},
		{
			name: "empty sheet",
			n:    2,
			want: []Row{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectRows(tt.n, func(i int) Row { return tt.stored[i] })
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrimTrailingBlank(t *testing.T) {
	got := trimTrailingBlank(Row{"a", "", "b", "", ""})
	if want := (Row{"a", "", "b"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := trimTrailingBlank(Row{"", ""}); len(got) != 0 {
		t.Errorf("all blank row = %q, want empty", got)
	}
}
