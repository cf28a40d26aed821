package redis

import (
	"context"
	"time"

	"github.com/goodtune/timelog/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type stateStore struct {
	client  *redis.Client
	key     string
	lockKey string
	lockTTL time.Duration
	logger  zerolog.Logger
}

// Lock takes the state lock. The TTL bounds how long a crashed holder can
// block other invocations.
func (s *stateStore) Lock(ctx context.Context) (func() error, error) {
	return acquireLock(ctx, s.client, s.lockKey, s.lockTTL)
}

// Exists reports whether a task is in progress
func (s *stateStore) Exists(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Load retrieves the in-progress task
func (s *stateStore) Load(ctx context.Context) (*storage.TrackedState, error) {
	data, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	return parseTrackedState(data)
}

// Save replaces the in-progress task
func (s *stateStore) Save(ctx context.Context, state storage.TrackedState) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, stateFields(state))
	_, err := pipe.Exec(ctx)
	return err
}

// Delete clears the in-progress task
func (s *stateStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
