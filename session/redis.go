package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session keys in a shared Redis instance.
const redisKeyPrefix = "session:"

// redisGrace keeps an expired record readable past its expiration time so
// the resolver can observe it, report ErrExpired, and clean it up. After the
// grace window Redis evicts abandoned sessions on its own, which bounds
// storage growth without a reaper.
const redisGrace = 24 * time.Hour

// RedisStore persists session records as JSON values in Redis. It implements
// the same contract as MongoStore and is selected via configuration for
// deployments that already run Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store over the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(record.SessionID), data, time.Until(record.ExpiresAt.Add(redisGrace))).Result()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if !ok {
		return ErrDuplicateSession
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Update(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.key(record.SessionID), data, time.Until(record.ExpiresAt.Add(redisGrace))).Result()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Healthcheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis healthcheck: %w", err)
	}
	return nil
}
