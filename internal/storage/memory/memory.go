// Package memory provides in-process stores for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/goodtune/timelog/internal/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	state   *StateStore
	records *RecordStore
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{state: &StateStore{}, records: &RecordStore{}}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// State returns the StateStore implementation.
func (s *Store) State() storage.StateStore { return s.state }

// Records returns the RecordStore implementation.
func (s *Store) Records() storage.RecordStore { return s.records }

// StateStore keeps at most one state in memory.
type StateStore struct {
	mu    sync.Mutex
	state *storage.TrackedState
}

func (s *StateStore) Exists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil, nil
}

func (s *StateStore) Load(ctx context.Context) (*storage.TrackedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.state
	return &cp, nil
}

func (s *StateStore) Save(ctx context.Context, state storage.TrackedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	return nil
}

func (s *StateStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}

// RecordStore keeps records in memory. A nil slice means the log was never
// written and LoadAll reports storage.ErrNotFound.
type RecordStore struct {
	mu      sync.Mutex
	records []storage.Record
	written bool
}

// NewRecordStore returns a record store seeded with records.
func NewRecordStore(records ...storage.Record) *RecordStore {
	return &RecordStore{records: append([]storage.Record(nil), records...), written: true}
}

func (s *RecordStore) LoadAll(ctx context.Context) ([]storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.written {
		return nil, storage.ErrNotFound
	}
	return append([]storage.Record{}, s.records...), nil
}

func (s *RecordStore) Append(ctx context.Context, record storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	s.written = true
	return nil
}

func (s *RecordStore) SaveAll(ctx context.Context, records []storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]storage.Record{}, records...)
	s.written = true
	return nil
}
