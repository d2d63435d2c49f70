// Package storage keeps comparison sessions on the local filesystem.
//
// Layout under the base path:
//
//	<session>/s1/<upload>            source 1 uploads
//	<session>/s2/<upload>            source 2 uploads
//	<session>/reports/<report>.csv   one report per pair
//	<session>/result.mp              msgpack snapshot of the result
//	<session>/comparison_reports_<session>.zip
//
// Session ids are UUIDs. Any other id is treated as unknown, which keeps
// callers from addressing paths outside the base directory.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filecompare/internal/core"
)

const (
	reportsDir = "reports"
	resultFile = "result.mp"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is a filesystem-backed core.SessionStore.
type Store struct {
	base string
}

var _ core.SessionStore = (*Store)(nil)

// New creates the base directory if needed and returns a Store rooted there.
func New(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("storage base path is empty")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{base: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Store) BasePath() string {
	return s.base
}

// CreateSession allocates a new session directory.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	for _, sub := range []string{core.Side1.String(), core.Side2.String(), reportsDir} {
		if err := os.MkdirAll(filepath.Join(s.base, id, sub), dirPerm); err != nil {
			return "", fmt.Errorf("create session %s: %w", id, err)
		}
	}
	return id, nil
}

// sessionDir resolves an existing session directory.
func (s *Store) sessionDir(sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", core.ErrSessionNotFound
	}
	dir := filepath.Join(s.base, sessionID)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", core.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return dir, nil
}

// ValidateFileName rejects names that are empty or could leave their
// directory.
func ValidateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", core.ErrInvalidFileName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", core.ErrInvalidFileName, name)
	}
	return nil
}

// createUnique creates dir/name exclusively. When the name is taken it
// tries name_1.ext, name_2.ext and so on, and returns the name it used.
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		candidate = stem + "_" + strconv.Itoa(i) + ext
	}
}

// writeUnique copies r into a new file under dir and returns its name.
func writeUnique(dir, name string, r io.Reader) (string, error) {
	f, used, err := createUnique(dir, name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return used, nil
}

// FileSource is an upload kept on disk. Its name is the client's file name,
// which may differ from the on-disk name when a side has duplicates.
type FileSource struct {
	name string
	path string
}

// Name returns the client's file name.
func (f FileSource) Name() string { return f.name }

// Open opens the stored bytes.
func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// StoreUpload saves one uploaded file under the session's side directory.
func (s *Store) StoreUpload(ctx context.Context, sessionID string, side core.Side, name string, r io.Reader) (core.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	sideDir := filepath.Join(dir, side.String())
	used, err := writeUnique(sideDir, name, r)
	if err != nil {
		return nil, fmt.Errorf("write upload %s: %w", name, err)
	}
	return FileSource{name: name, path: filepath.Join(sideDir, used)}, nil
}

// StoreReport implements core.ReportSink. The returned reference is the
// report's file name within the session.
func (s *Store) StoreReport(ctx context.Context, sessionID, fileName string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFileName(fileName); err != nil {
		return "", err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	used, err := writeUnique(filepath.Join(dir, reportsDir), fileName, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", fileName, err)
	}
	return used, nil
}

// OpenReport opens a report stored by StoreReport.
func (s *Store) OpenReport(ctx context.Context, sessionID, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ValidateFileName(ref) != nil {
		return nil, core.ErrReportNotFound
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, reportsDir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrReportNotFound
	}
	return f, err
}

// ListReports returns the session's report names in lexical order.
func (s *Store) ListReports(ctx context.Context, sessionID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, reportsDir))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// DeleteSession removes a session and everything stored in it.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
