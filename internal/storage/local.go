package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/filecompare/internal/core"
)

// DirSources lists the regular files directly inside dir as sources, sorted
// by name. Subdirectories and hidden files are skipped.
func DirSources(dir string) ([]core.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []core.Source
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name()[0] == '.' {
			continue
		}
		out = append(out, FileSource{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// DirSink writes reports straight into one directory, ignoring the
// session id. The CLI uses it for --out.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// StoreReport implements core.ReportSink. The reference is the full path.
func (d *DirSink) StoreReport(ctx context.Context, _ string, fileName string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFileName(fileName); err != nil {
		return "", err
	}
	used, err := writeUnique(d.dir, fileName, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", fileName, err)
	}
	return filepath.Join(d.dir, used), nil
}
