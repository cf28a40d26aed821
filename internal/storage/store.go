package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the state or the record log is missing from storage.
var ErrNotFound = errors.New("storage: not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	State() StateStore
	Records() RecordStore
}

// StateStore holds at most one TrackedState.
type StateStore interface {
	Exists(ctx context.Context) (bool, error)
	// Load returns ErrNotFound when no task is in progress.
	Load(ctx context.Context) (*TrackedState, error)
	Save(ctx context.Context, state TrackedState) error
	Delete(ctx context.Context) error
}

// RecordStore is the append-only log of completed records.
type RecordStore interface {
	// LoadAll returns ErrNotFound when the log has never been written.
	LoadAll(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, record Record) error
	// SaveAll replaces the whole log. Used by amend.
	SaveAll(ctx context.Context, records []Record) error
}

// Locker is implemented by stores that can serialize read-modify-write
// sequences across processes. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}
