package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. Entries are JSON-encoded; the
// optional TTL only bounds Redis memory and plays no part in freshness,
// which the resolver decides from Entry.Timestamp.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	Prefix string
	TTL    time.Duration // 0 = keys never expire
}

func NewRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

// Get retrieves an entry. On Redis error it returns (Entry{}, false, err)
// so the caller can log and treat it as a miss.
func (s *RedisStore) Get(ctx context.Context, query string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, fmt.Errorf("context error: %w", err)
	}

	raw, err := s.client.Get(ctx, BuildKey(s.prefix, query)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached entry: %w", err)
	}
	return e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, query string, e Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := s.client.Set(ctx, BuildKey(s.prefix, query), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return s.client.Ping(ctx).Err()
}
