package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/timelog/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type recordStore struct {
	client  *redis.Client
	key     string
	lockKey string
	lockTTL time.Duration
	logger  zerolog.Logger
}

func (s *recordStore) Lock(ctx context.Context) (func() error, error) {
	return acquireLock(ctx, s.client, s.lockKey, s.lockTTL)
}

// LoadAll returns every record in insertion order
func (s *recordStore) LoadAll(ctx context.Context) ([]storage.Record, error) {
	exists, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, storage.ErrNotFound
	}

	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]storage.Record, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	s.logger.Debug().Int("records", len(records)).Msg("Loaded record list")
	return records, nil
}

// Append adds a record to the end of the list
func (s *recordStore) Append(ctx context.Context, record storage.Record) error {
	item, err := encodeRecord(record)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key, item).Err()
}

// SaveAll atomically replaces the record list
func (s *recordStore) SaveAll(ctx context.Context, records []storage.Record) error {
	args := make([]interface{}, 0, len(records))
	for _, rec := range records {
		item, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		args = append(args, item)
	}

	script := redis.NewScript(replaceRecordsScript)
	return script.Run(ctx, s.client, []string{s.key}, args...).Err()
}
