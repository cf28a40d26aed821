package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goodtune/timelog/internal/config"
	"github.com/goodtune/timelog/internal/plugin"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/goodtune/timelog/internal/storage/file"
	"github.com/goodtune/timelog/internal/storage/redis"
	"github.com/goodtune/timelog/internal/tracker"
	"github.com/rs/zerolog"
)

// openStorage creates the storage backend
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "file", "":
		return file.Open(file.Config{
			StatePath:   cfg.StatePath,
			RecordPath:  cfg.RecordPath,
			LockTimeout: cfg.LockTimeoutDuration(),
		}, logger)
	case "redis":
		return redis.Open(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// withStore opens storage, runs fn and closes it again.
func withStore(fn func(storage.Store) error) error {
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()
	return fn(store)
}

func newTracker(store storage.Store) *tracker.Tracker {
	return tracker.New(store.State(), store.Records(), tracker.RealClock{}, logger)
}

func newRegistry() (*plugin.DirRegistry, error) {
	return plugin.NewDirRegistry(cfg.Plugins.Dir, cfg.Plugins.ConfigCacheSize, logger)
}

// today returns the local calendar date.
func today() time.Time {
	return storage.DateOf(time.Now())
}

// setupLogger configures the logger based on configuration. Logs go to
// stderr so command output stays clean.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.WarnLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
