package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/fatih/color"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCompare_AllMatched(t *testing.T) {
	s1 := writeFiles(t, map[string]string{"a.csv": "id,v\n1,x\n", "b.txt": "hello\n"})
	s2 := writeFiles(t, map[string]string{"A.csv": "id,v\n1,x\n", "b.txt": "hello\n"})

	out, _, err := execute(t, "compare", "--source1", s1, "--source2", s2, "--sort", "--no-progress")
	if code := ExitCode(err); code != ExitMatched {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if !strings.Contains(out, "All files match.") || !strings.Contains(out, "Pairs: 2 compared, 2 matched, 0 mismatched") {
		t.Errorf("summary:\n%s", out)
	}
}

func TestCompare_DifferencesAndReports(t *testing.T) {
	s1 := writeFiles(t, map[string]string{"left.csv": "id,ts,v\n1,10,x\n2,11,y\n"})
	s2 := writeFiles(t, map[string]string{"right.csv": "id,ts,v\n1,99,x\n2,98,z\n", "extra.csv": "id\n"})
	outDir := filepath.Join(t.TempDir(), "reports")

	out, _, err := execute(t, "compare",
		"--source1", s1, "--source2", s2,
		"--pair", "left.csv=right.csv",
		"--ignore1", "ts", "--ignore2", "1",
		"--out", outDir, "--json",
	)
	if code := ExitCode(err); code != ExitDifferences {
		t.Fatalf("exit code = %d (%v), want 1", code, err)
	}

	var res core.ComparisonResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(res.Pairs))
	}
	manual := res.Pairs[0]
	if !manual.Manual || manual.Status != core.StatusMismatched || manual.MatchCount != 1 || manual.MismatchCount != 1 {
		t.Errorf("manual pair = %+v", manual)
	}
	if res.Metrics.FilesOnlyInSource2 != 1 {
		t.Errorf("metrics = %+v", res.Metrics)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read report dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("reports written = %d, want 2", len(entries))
	}
	if manual.ReportPath == "" || filepath.Dir(manual.ReportPath) != outDir {
		t.Errorf("report path = %q", manual.ReportPath)
	}
}

func TestCompare_Errors(t *testing.T) {
	empty := t.TempDir()
	files := writeFiles(t, map[string]string{"a.csv": "x\n"})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing flag", []string{"compare", "--source1", files}, "source2"},
		{"missing dir", []string{"compare", "--source1", filepath.Join(empty, "nope"), "--source2", files}, "source1"},
		{"no files", []string{"compare", "--source1", empty, "--source2", empty}, "no file provided"},
		{"bad pair", []string{"compare", "--source1", files, "--source2", files, "--pair", "a.csv"}, "invalid --pair"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if code := ExitCode(err); code != ExitError {
				t.Fatalf("exit code = %d, want 2", code)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompare_ProgressGoesToStderr(t *testing.T) {
	s1 := writeFiles(t, map[string]string{"a.txt": "1\n"})
	s2 := writeFiles(t, map[string]string{"a.txt": "2\n"})

	out, _, err := execute(t, "compare", "--source1", s1, "--source2", s2, "--sort")
	if ExitCode(err) != ExitDifferences {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "MISMATCHED") || !strings.Contains(out, "Differences found.") {
		t.Errorf("summary:\n%s", out)
	}
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"a.csv=b.csv", " x = y "})
	if err != nil {
		t.Fatalf("parsePairs: %v", err)
	}
	if len(got) != 2 || got[1].Source1FileName != "x" || got[1].Source2FileName != "y" {
		t.Errorf("pairs = %+v", got)
	}
	for _, bad := range []string{"", "a.csv", "=b", "a="} {
		if _, err := parsePairs([]string{bad}); err == nil {
			t.Errorf("parsePairs(%q): expected error", bad)
		}
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitMatched {
		t.Error("nil error should exit 0")
	}
	if ExitCode(&ExitCodeError{Code: ExitDifferences}) != ExitDifferences {
		t.Error("ExitCodeError code not honoured")
	}
	if ExitCode(os.ErrNotExist) != ExitError {
		t.Error("plain error should exit 2")
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		lines int
		code  string
	}{
		{"known", &ExitCodeError{Code: ExitError, Err: core.ErrNoFiles}, 2, "FILE004"},
		{"unknown", errors.New("disk on fire"), 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(&buf, tt.err)
			out := strings.TrimSpace(buf.String())
			if got := len(strings.Split(out, "\n")); got != tt.lines {
				t.Errorf("got %d lines, want %d: %q", got, tt.lines, out)
			}
			if !strings.HasPrefix(out, "Error: ") {
				t.Errorf("output = %q, want Error: prefix", out)
			}
			if tt.code != "" && !strings.Contains(out, "Code: "+tt.code) {
				t.Errorf("output = %q, want code %s", out, tt.code)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != Version {
		t.Errorf("version = %q, want %q", out, Version)
	}
}
