package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects lazily; reachability problems surface on first use
// and are treated as misses by the pipeline.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Lookup(ctx context.Context, naturalLanguage string) (string, bool, error) {
	value, err := c.client.Get(ctx, Key(naturalLanguage)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Store(ctx context.Context, naturalLanguage, sqlText string) error {
	return c.client.Set(ctx, Key(naturalLanguage), sqlText, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
