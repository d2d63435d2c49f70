package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/filecompare/internal/core"
)

// SaveResult writes a msgpack snapshot of res into its session. The file is
// replaced atomically.
func (s *Store) SaveResult(ctx context.Context, res *core.ComparisonResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.sessionDir(res.SessionID)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".result-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(res); err != nil {
		f.Close()
		return fmt.Errorf("encode result: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dir, resultFile))
}

// LoadResult reads the snapshot written by SaveResult.
func (s *Store) LoadResult(ctx context.Context, sessionID string) (*core.ComparisonResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, resultFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var res core.ComparisonResult
	if err := msgpack.NewDecoder(f).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}
