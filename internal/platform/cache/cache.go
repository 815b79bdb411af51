package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"suitehub/internal/platform/config"
)

// Cache stores JSON-encoded values by key.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	Db *redis.Client
}

// New connects to redis when an address is configured and falls back to Noop
// otherwise.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr == "" {
		return Noop{}, nil
	}
	return NewRedis(ctx, cfg)
}

func NewRedis(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	const op = "cache.NewRedis"
	db := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.Password,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RedisCache{Db: db}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Db.Set(ctx, key, jsonData, expiration).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.Db.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.Db.Close()
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, ...string) error { return nil }

// Remember returns the cached value for key or loads, stores and returns it.
// Cache failures degrade to calling load.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if found, err := c.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
