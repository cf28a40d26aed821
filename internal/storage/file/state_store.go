package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goodtune/timelog/internal/elapsed"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

type stateStore struct {
	path        string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// stateDocument is the on-disk JSON layout. Timestamp carries the legacy
// single-anchor encoding and is written alongside the explicit fields so
// older readers keep working.
type stateDocument struct {
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Task          string     `json:"task"`
	Active        bool       `json:"active"`
	Project       *string    `json:"project"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	AccumulatedMS *int64     `json:"accumulated_ms,omitempty"`
}

func (s *stateStore) Lock(ctx context.Context) (func() error, error) {
	return lockPath(ctx, s.path, s.lockTimeout, s.logger)
}

func (s *stateStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat state file: %w", err)
	}
	return true, nil
}

func (s *stateStore) Load(ctx context.Context) (*storage.TrackedState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	return decodeState(doc)
}

func (s *stateStore) Save(ctx context.Context, state storage.TrackedState) error {
	data, err := json.MarshalIndent(encodeState(state), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := writeAtomic(s.path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

func (s *stateStore) Delete(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete state file: %w", err)
	}
	return nil
}

func encodeState(state storage.TrackedState) stateDocument {
	anchor := elapsed.EncodeAnchor(state).UTC()
	acc := state.Accumulated.Milliseconds()
	doc := stateDocument{
		Timestamp:     &anchor,
		Task:          state.Task,
		Active:        state.Active,
		AccumulatedMS: &acc,
	}
	if state.Project != "" {
		p := state.Project
		doc.Project = &p
	}
	if state.Active {
		started := state.StartedAt.UTC()
		doc.StartedAt = &started
	}
	return doc
}

func decodeState(doc stateDocument) (*storage.TrackedState, error) {
	if doc.Task == "" {
		return nil, fmt.Errorf("state file has no task")
	}

	state := &storage.TrackedState{
		Task:   doc.Task,
		Active: doc.Active,
	}
	if doc.Project != nil {
		state.Project = *doc.Project
	}

	switch {
	case doc.AccumulatedMS != nil:
		state.Accumulated = time.Duration(*doc.AccumulatedMS) * time.Millisecond
		if doc.Active {
			if doc.StartedAt == nil {
				return nil, fmt.Errorf("active state file has no started_at")
			}
			state.StartedAt = *doc.StartedAt
		}
	case doc.Timestamp != nil:
		state.StartedAt, state.Accumulated = elapsed.DecodeAnchor(*doc.Timestamp, doc.Active)
	default:
		return nil, fmt.Errorf("state file has no timing information")
	}

	return state, nil
}
