package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/pricing/internal/logic"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the cached config is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

const configKey = "pricing:config"

// ConfigCache keeps the current rule config in redis so quotes do not hit
// Postgres on every render.
type ConfigCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConfigCache creates a redis-backed config cache.
func NewConfigCache(addr string, password string, db int, ttl time.Duration) *ConfigCache {
	return NewConfigCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), ttl)
}

// NewConfigCacheFromClient wraps an existing redis client.
func NewConfigCacheFromClient(client *redis.Client, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ConfigCache{client: client, ttl: ttl}
}

// Ping verifies connectivity and credentials.
func (c *ConfigCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get loads the cached config.
func (c *ConfigCache) Get(ctx context.Context) (*logic.PricingConfig, error) {
	val, err := c.client.Get(ctx, configKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("failed to read cached config: %w", err)
	}

	var cfg logic.PricingConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode cached config: %w", err)
	}
	return &cfg, nil
}

// Fill stores cfg only if no config is cached. Readers repopulating after a
// miss use it so they cannot overwrite a newer config written by Set.
func (c *ConfigCache) Fill(ctx context.Context, cfg logic.PricingConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, configKey, data, c.ttl).Err()
}

// Set stores cfg with the cache ttl, replacing any cached config.
func (c *ConfigCache) Set(ctx context.Context, cfg logic.PricingConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, configKey, data, c.ttl).Err()
}

// Invalidate drops the cached config so the next read goes to Postgres.
func (c *ConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, configKey).Err()
}

// Close releases the redis connection pool.
func (c *ConfigCache) Close() error {
	return c.client.Close()
}
