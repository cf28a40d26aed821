// Package file stores the in-progress task as a JSON document and completed
// records as an append-only CSV log.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

const lockRetryDelay = 25 * time.Millisecond

// Config locates the files backing a Store.
type Config struct {
	StatePath   string
	RecordPath  string
	LockTimeout time.Duration
}

// Store implements the storage.Store interface on plain files.
type Store struct {
	state   *stateStore
	records *recordStore
}

// Open returns a file-backed store. Files are created lazily on first write.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.StatePath == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if cfg.RecordPath == "" {
		return nil, fmt.Errorf("record path is required")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 2 * time.Second
	}

	logger = logger.With().Str("component", "file-storage").Logger()
	return &Store{
		state:   &stateStore{path: cfg.StatePath, lockTimeout: cfg.LockTimeout, logger: logger},
		records: &recordStore{path: cfg.RecordPath, lockTimeout: cfg.LockTimeout, logger: logger},
	}, nil
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error {
	return nil
}

// State returns the StateStore implementation
func (s *Store) State() storage.StateStore {
	return s.state
}

// Records returns the RecordStore implementation
func (s *Store) Records() storage.RecordStore {
	return s.records
}

// lockPath acquires an advisory lock on path+".lock", waiting up to timeout.
func lockPath(ctx context.Context, path string, timeout time.Duration, logger zerolog.Logger) (func() error, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}

	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: timed out after %s", fl.Path(), timeout)
	}

	logger.Debug().
		Str("lock", fl.Path()).
		Dur("wait", time.Since(start)).
		Msg("Acquired file lock")

	return fl.Unlock, nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place so readers never observe a partial file.
func writeAtomic(path string, write func(f *os.File) error) error {
	if err := storage.EnsureParentDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
