package store

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend  string // "memory" or "redis"
	Prefix   string
	RedisTTL time.Duration
}

func NewStore(cfg Config, redisClient *redis.Client) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
			TTL:    cfg.RedisTTL,
		})
	default:
		return NewMemoryStore()
	}
}
