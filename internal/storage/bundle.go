package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/filecompare/internal/core"
)

// BundleName is the download name of a session's report archive.
func BundleName(sessionID string) string {
	return "comparison_reports_" + sessionID + ".zip"
}

// BundleReports writes every report of the session into one ZIP archive
// and returns its session-relative path. An existing archive is replaced.
func (s *Store) BundleReports(ctx context.Context, sessionID string) (string, error) {
	reports, err := s.ListReports(ctx, sessionID)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.base, sessionID)
	name := BundleName(sessionID)

	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return "", fmt.Errorf("create bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return "", err
		}
		if err := addToZip(zw, filepath.Join(dir, reportsDir, r), r); err != nil {
			tmp.Close()
			return "", fmt.Errorf("add %s to bundle: %w", r, err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("finish bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("publish bundle: %w", err)
	}
	return name, nil
}

func addToZip(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// OpenBundle opens the session's archive. It returns core.ErrReportNotFound
// when BundleReports has not run for the session.
func (s *Store) OpenBundle(ctx context.Context, sessionID string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, "", err
	}
	name := BundleName(sessionID)
	f, err := os.Open(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", core.ErrReportNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}
