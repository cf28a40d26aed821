package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestReplaceRecordsScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		existing []string
		args     []interface{}
		want     int64
	}{
		{
			name:     "replace existing",
			existing: []string{"old-1", "old-2"},
			args:     []interface{}{"new-1"},
			want:     1,
		},
		{
			name: "populate empty",
			args: []interface{}{"a", "b", "c"},
			want: 3,
		},
		{
			name:     "clear",
			existing: []string{"old"},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.FlushAll()
			for _, v := range tt.existing {
				if _, err := mr.Push("records", v); err != nil {
					t.Fatalf("Push failed: %v", err)
				}
			}

			n, err := client.Eval(ctx, replaceRecordsScript, []string{"records"}, tt.args...).Int64()
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, n)
			}

			got, _ := client.LRange(ctx, "records", 0, -1).Result()
			if int64(len(got)) != tt.want {
				t.Errorf("Expected %d items, got %v", tt.want, got)
			}
			for i, arg := range tt.args {
				if got[i] != arg {
					t.Errorf("item %d: expected %v, got %s", i, arg, got[i])
				}
			}
		})
	}
}

func TestReleaseLockScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		holder    string
		token     string
		want      int64
		stillHeld bool
	}{
		{name: "owner releases", holder: "abc", token: "abc", want: 1},
		{name: "foreign token", holder: "abc", token: "xyz", want: 0, stillHeld: true},
		{name: "no lock", token: "abc", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.FlushAll()
			if tt.holder != "" {
				if err := mr.Set("lock", tt.holder); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}

			n, err := client.Eval(ctx, releaseLockScript, []string{"lock"}, tt.token).Int64()
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, n)
			}
			if mr.Exists("lock") != tt.stillHeld {
				t.Errorf("Expected lock held=%v", tt.stillHeld)
			}
		})
	}
}
