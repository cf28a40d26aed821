package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/timelog/internal/config"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client      *redis.Client
	stateStore  *stateStore
	recordStore *recordStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig, logger zerolog.Logger) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	lockTTL, err := time.ParseDuration(cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid lock_ttl: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "timelog"
	}
	logger = logger.With().Str("component", "redis-storage").Logger()

	return &Store{
		client: client,
		stateStore: &stateStore{
			client:  client,
			key:     prefix + ":state",
			lockKey: prefix + ":lock:state",
			lockTTL: lockTTL,
			logger:  logger,
		},
		recordStore: &recordStore{
			client:  client,
			key:     prefix + ":records",
			lockKey: prefix + ":lock:records",
			lockTTL: lockTTL,
			logger:  logger,
		},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// State returns the StateStore implementation
func (s *Store) State() storage.StateStore {
	return s.stateStore
}

// Records returns the RecordStore implementation
func (s *Store) Records() storage.RecordStore {
	return s.recordStore
}
