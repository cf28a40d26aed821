package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/timelog/internal/config"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays zero
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		KeyPrefix:    "test",
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
		LockTTL:      "10s",
	}

	store, err := Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func date(s string) time.Time {
	d, err := storage.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStateStore_RoundTrip(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	states := store.State()

	exists, err := states.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("Expected no state in empty store")
	}

	if _, err := states.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	active := storage.TrackedState{
		Task:        "review",
		Project:     "acme",
		Active:      true,
		StartedAt:   time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC),
		Accumulated: 90 * time.Second,
	}
	if err := states.Save(ctx, active); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !mr.Exists("test:state") {
		t.Fatal("Expected state hash at test:state")
	}

	got, err := states.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Task != "review" || got.Project != "acme" || !got.Active {
		t.Errorf("Unexpected state: %+v", got)
	}
	if !got.StartedAt.Equal(active.StartedAt) {
		t.Errorf("Expected StartedAt %v, got %v", active.StartedAt, got.StartedAt)
	}
	if got.Accumulated != 90*time.Second {
		t.Errorf("Expected accumulated 90s, got %v", got.Accumulated)
	}

	paused := storage.TrackedState{Task: "review", Accumulated: 5 * time.Minute}
	if err := states.Save(ctx, paused); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err = states.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Active || got.Project != "" || !got.StartedAt.IsZero() || got.Accumulated != 5*time.Minute {
		t.Errorf("Unexpected paused state: %+v", got)
	}

	if err := states.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, _ = states.Exists(ctx)
	if exists {
		t.Error("Expected state to be deleted")
	}

	// Deleting twice is fine
	if err := states.Delete(ctx); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestRecordStore_AppendAndLoad(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	records := store.Records()

	if _, err := records.LoadAll(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before first append, got %v", err)
	}

	want := []storage.Record{
		{Task: "a", DurationMS: 3600000, Date: date("2024-01-15"), Project: "x"},
		{Task: "b", DurationMS: 1800000, Date: date("2024-01-16")},
	}
	for _, rec := range want {
		if err := records.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := records.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Task != want[i].Task || got[i].DurationMS != want[i].DurationMS ||
			!got[i].Date.Equal(want[i].Date) || got[i].Project != want[i].Project {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestRecordStore_SaveAll(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	records := store.Records()

	for _, task := range []string{"a", "b", "c"} {
		if err := records.Append(ctx, storage.Record{Task: task, DurationMS: 1000, Date: date("2024-01-15")}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	replacement := []storage.Record{
		{Task: "only", DurationMS: 42, Date: date("2024-02-01"), Project: "p"},
	}
	if err := records.SaveAll(ctx, replacement); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	items, err := mr.List("test:records")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 stored item, got %d", len(items))
	}

	got, err := records.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(got) != 1 || got[0].Task != "only" || got[0].Project != "p" {
		t.Errorf("Unexpected records after SaveAll: %+v", got)
	}
}

func TestRecordStore_CorruptEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"not json", "not json"},
		{"bad date", `{"task":"a","duration_ms":1000,"date":"17/01/2024"}`},
		{"negative duration", `{"task":"a","duration_ms":-1000,"date":"2024-01-17"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := setupTestStore(t)

			if _, err := mr.Push("test:records", tt.entry); err != nil {
				t.Fatalf("Push failed: %v", err)
			}

			if _, err := store.Records().LoadAll(context.Background()); err == nil {
				t.Fatal("Expected error for corrupt record")
			}
		})
	}
}

func TestStateStore_MissingTask(t *testing.T) {
	store, mr := setupTestStore(t)

	mr.HSet("test:state", "task", "", "active", "false", "started_at", "", "accumulated_ms", "1000")

	_, err := store.State().Load(context.Background())
	if err == nil {
		t.Fatal("Expected error for state without a task")
	}
	if errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected decode error, got %v", err)
	}
}

func TestLock_Exclusive(t *testing.T) {
	store, mr := setupTestStore(t)

	locker, ok := store.State().(storage.Locker)
	if !ok {
		t.Fatal("Expected state store to implement storage.Locker")
	}

	unlock, err := locker.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected second Lock to time out, got %v", err)
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if mr.Exists("test:lock:state") {
		t.Fatal("Expected lock key to be released")
	}

	unlock, err = locker.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	_ = unlock()
}

func TestLock_ExpiredHolderCannotRelease(t *testing.T) {
	store, mr := setupTestStore(t)
	locker := store.Records().(storage.Locker)

	unlock, err := locker.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Lock expires and another invocation takes it
	mr.FastForward(11 * time.Second)
	mr.Set("test:lock:records", "other-token")

	if err := unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	v, err := mr.Get("test:lock:records")
	if err != nil || v != "other-token" {
		t.Errorf("Expected foreign lock to survive, got %q (%v)", v, err)
	}
}
