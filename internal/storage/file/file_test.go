package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(Config{
		StatePath:   filepath.Join(dir, "state.json"),
		RecordPath:  filepath.Join(dir, "records.csv"),
		LockTimeout: time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	return store, dir
}

func date(s string) time.Time {
	d, err := storage.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStateStore_SaveLoadDelete(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	states := store.State()

	if _, err := states.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	started := time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC)
	want := storage.TrackedState{
		Task:        "compile",
		Project:     "myproject",
		Active:      true,
		StartedAt:   started,
		Accumulated: 5 * time.Minute,
	}
	if err := states.Save(ctx, want); err != nil {
		t.Fatalf("save state: %v", err)
	}

	exists, err := states.Exists(ctx)
	if err != nil || !exists {
		t.Fatalf("expected state to exist, got %v, %v", exists, err)
	}

	got, err := states.Load(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if got.Task != want.Task || got.Project != want.Project || got.Active != want.Active {
		t.Errorf("loaded state mismatch: %+v", got)
	}
	if !got.StartedAt.Equal(want.StartedAt) || got.Accumulated != want.Accumulated {
		t.Errorf("loaded timing mismatch: started %s acc %s", got.StartedAt, got.Accumulated)
	}

	if err := states.Delete(ctx); err != nil {
		t.Fatalf("delete state: %v", err)
	}
	exists, _ = states.Exists(ctx)
	if exists {
		t.Error("expected state to be gone")
	}
	if err := states.Delete(ctx); err != nil {
		t.Errorf("deleting a missing state should succeed, got %v", err)
	}
}

func TestStateStore_PausedRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	want := storage.TrackedState{Task: "review", Accumulated: 42 * time.Minute}
	if err := store.State().Save(ctx, want); err != nil {
		t.Fatalf("save state: %v", err)
	}
	got, err := store.State().Load(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if got.Active || !got.StartedAt.IsZero() || got.Accumulated != 42*time.Minute || got.Project != "" {
		t.Errorf("unexpected paused state: %+v", got)
	}
}

func TestStateStore_LegacyDocuments(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantActive  bool
		wantStarted time.Time
		wantAcc     time.Duration
		wantProject string
	}{
		{
			name:        "active anchor",
			doc:         `{"timestamp":"2024-01-17T09:00:00Z","task":"compile","active":true,"project":"p"}`,
			wantActive:  true,
			wantStarted: time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC),
			wantProject: "p",
		},
		{
			name:    "paused anchor",
			doc:     `{"timestamp":"1970-01-01T00:10:00Z","task":"compile","active":false,"project":null}`,
			wantAcc: 10 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := openTestStore(t)
			if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte(tt.doc), 0644); err != nil {
				t.Fatalf("write legacy state: %v", err)
			}

			got, err := store.State().Load(context.Background())
			if err != nil {
				t.Fatalf("load legacy state: %v", err)
			}
			if got.Active != tt.wantActive {
				t.Errorf("expected active %v, got %v", tt.wantActive, got.Active)
			}
			if !got.StartedAt.Equal(tt.wantStarted) {
				t.Errorf("expected started %s, got %s", tt.wantStarted, got.StartedAt)
			}
			if got.Accumulated != tt.wantAcc {
				t.Errorf("expected accumulated %s, got %s", tt.wantAcc, got.Accumulated)
			}
			if got.Project != tt.wantProject {
				t.Errorf("expected project %q, got %q", tt.wantProject, got.Project)
			}
		})
	}
}

func TestStateStore_WritesLegacyAnchor(t *testing.T) {
	store, dir := openTestStore(t)
	ctx := context.Background()

	if err := store.State().Save(ctx, storage.TrackedState{Task: "x", Accumulated: time.Minute}); err != nil {
		t.Fatalf("save state: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if !strings.Contains(string(data), `"timestamp": "1970-01-01T00:01:00Z"`) {
		t.Errorf("expected legacy anchor in state file:\n%s", data)
	}
}

func TestStateStore_CorruptFile(t *testing.T) {
	store, dir := openTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write state: %v", err)
	}
	_, err := store.State().Load(context.Background())
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestRecordStore_AppendAndLoad(t *testing.T) {
	store, dir := openTestStore(t)
	ctx := context.Background()
	records := store.Records()

	if _, err := records.LoadAll(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	want := []storage.Record{
		{Task: "write, edit", DurationMS: 1800000, Date: date("2024-01-15"), Project: "docs"},
		{Task: "say \"hi\"", DurationMS: 61000, Date: date("2024-01-16")},
	}
	for _, r := range want {
		if err := records.Append(ctx, r); err != nil {
			t.Fatalf("append record: %v", err)
		}
	}

	got, err := records.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Task != want[i].Task || got[i].DurationMS != want[i].DurationMS ||
			!got[i].Date.Equal(want[i].Date) || got[i].Project != want[i].Project {
			t.Errorf("record %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}

	data, _ := os.ReadFile(filepath.Join(dir, "records.csv"))
	if strings.Count(string(data), "task,duration_ms,date,project") != 1 {
		t.Errorf("expected exactly one header row:\n%s", data)
	}
}

func TestRecordStore_SaveAllReplaces(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	_ = store.Records().Append(ctx, storage.Record{Task: "old", DurationMS: 1, Date: date("2024-01-01")})

	replacement := []storage.Record{
		{Task: "new", DurationMS: 2, Date: date("2024-01-02"), Project: "p"},
	}
	if err := store.Records().SaveAll(ctx, replacement); err != nil {
		t.Fatalf("save all: %v", err)
	}

	got, err := store.Records().LoadAll(ctx)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(got) != 1 || got[0].Task != "new" || got[0].Project != "p" {
		t.Fatalf("unexpected records after SaveAll: %+v", got)
	}

	if err := store.Records().Append(ctx, storage.Record{Task: "after", DurationMS: 3, Date: date("2024-01-03")}); err != nil {
		t.Fatalf("append after rewrite: %v", err)
	}
	got, _ = store.Records().LoadAll(ctx)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestReadRecords_Formats(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        []storage.Record
		wantErr     bool
		errContains string
	}{
		{
			name:  "legacy three field rows",
			input: "task,duration_ms,date\ncoding,3600000,2024-01-15\n",
			want:  []storage.Record{{Task: "coding", DurationMS: 3600000, Date: date("2024-01-15")}},
		},
		{
			name:  "empty project field",
			input: "task,duration_ms,date,project\ncoding,1000,2024-01-15,\n",
			want:  []storage.Record{{Task: "coding", DurationMS: 1000, Date: date("2024-01-15")}},
		},
		{
			name:  "project field",
			input: "task,duration_ms,date,project\ncoding,1000,2024-01-15,acme\n",
			want:  []storage.Record{{Task: "coding", DurationMS: 1000, Date: date("2024-01-15"), Project: "acme"}},
		},
		{
			name:  "extra fields ignored",
			input: "coding,1000,2024-01-15,acme,extra\n",
			want:  []storage.Record{{Task: "coding", DurationMS: 1000, Date: date("2024-01-15"), Project: "acme"}},
		},
		{
			name:  "mixed legacy and current rows",
			input: "task,duration_ms,date\na,1,2024-01-15\nb,2,2024-01-16,p\n",
			want: []storage.Record{
				{Task: "a", DurationMS: 1, Date: date("2024-01-15")},
				{Task: "b", DurationMS: 2, Date: date("2024-01-16"), Project: "p"},
			},
		},
		{
			name:        "too few fields",
			input:       "task,duration_ms,date\ncoding,1000\n",
			wantErr:     true,
			errContains: "record 2",
		},
		{
			name:    "bad duration",
			input:   "coding,abc,2024-01-15\n",
			wantErr: true,
		},
		{
			name:    "bad date",
			input:   "coding,1000,15/01/2024\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadRecords(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("record %d: got %+v want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLock_Exclusive(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	path := filepath.Join(dir, "state.json")

	a, _ := Open(Config{StatePath: path, RecordPath: filepath.Join(dir, "r.csv"), LockTimeout: time.Second}, zerolog.Nop())
	b, _ := Open(Config{StatePath: path, RecordPath: filepath.Join(dir, "r.csv"), LockTimeout: 100 * time.Millisecond}, zerolog.Nop())

	unlock, err := a.state.Lock(ctx)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := b.state.Lock(ctx); err == nil {
		t.Fatal("expected second lock to time out")
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	unlock, err = b.state.Lock(ctx)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = unlock()
}
