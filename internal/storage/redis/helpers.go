package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/timelog/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryDelay = 25 * time.Millisecond

// stateFields converts a TrackedState to Redis hash fields
func stateFields(state storage.TrackedState) map[string]interface{} {
	startedAt := ""
	if state.Active {
		startedAt = state.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string]interface{}{
		"task":           state.Task,
		"project":        state.Project,
		"active":         strconv.FormatBool(state.Active),
		"started_at":     startedAt,
		"accumulated_ms": state.Accumulated.Milliseconds(),
	}
}

// parseTrackedState converts a Redis hash to TrackedState
func parseTrackedState(data map[string]string) (*storage.TrackedState, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	if data["task"] == "" {
		return nil, fmt.Errorf("state has no task")
	}

	active, err := strconv.ParseBool(data["active"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse active: %w", err)
	}

	accumulatedMS, err := strconv.ParseInt(data["accumulated_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse accumulated_ms: %w", err)
	}

	state := &storage.TrackedState{
		Task:        data["task"],
		Project:     data["project"],
		Active:      active,
		Accumulated: time.Duration(accumulatedMS) * time.Millisecond,
	}

	if active {
		startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		state.StartedAt = startedAt
	}

	return state, nil
}

type recordJSON struct {
	Task       string `json:"task"`
	DurationMS int64  `json:"duration_ms"`
	Date       string `json:"date"`
	Project    string `json:"project,omitempty"`
}

func encodeRecord(r storage.Record) (string, error) {
	data, err := json.Marshal(recordJSON{
		Task:       r.Task,
		DurationMS: r.DurationMS,
		Date:       r.DateString(),
		Project:    r.Project,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRecord(s string) (storage.Record, error) {
	var rj recordJSON
	if err := json.Unmarshal([]byte(s), &rj); err != nil {
		return storage.Record{}, fmt.Errorf("failed to parse record: %w", err)
	}
	date, err := storage.ParseDate(rj.Date)
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if rj.DurationMS < 0 {
		return storage.Record{}, fmt.Errorf("negative duration %d", rj.DurationMS)
	}
	return storage.Record{
		Task:       rj.Task,
		DurationMS: rj.DurationMS,
		Date:       date,
		Project:    rj.Project,
	}, nil
}

// acquireLock polls SET NX until it wins or ctx is done. Without a deadline
// on ctx the wait is bounded by ttl, after which any holder has expired.
func acquireLock(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (func() error, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ttl)
		defer cancel()
	}

	token := uuid.New().String()

	for {
		ok, err := client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}

	return func() error {
		return client.Eval(context.Background(), releaseLockScript, []string{key}, token).Err()
	}, nil
}
