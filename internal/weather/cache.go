package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/doit/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache stores snapshots per query key for a fixed window
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherSnapshot, bool, error)
	Set(ctx context.Context, key string, snapshot models.WeatherSnapshot) error
}

// DefaultCacheSize bounds the in-process cache
const DefaultCacheSize = 256

// MemoryCache is an in-process LRU whose entries expire after the TTL
type MemoryCache struct {
	lru *expirable.LRU[string, models.WeatherSnapshot]
}

// NewMemoryCache creates an expiring LRU holding up to size entries
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{lru: expirable.NewLRU[string, models.WeatherSnapshot](size, nil, ttl)}
}

// Get implements Cache.Get
func (c *MemoryCache) Get(_ context.Context, key string) (models.WeatherSnapshot, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

// Set implements Cache.Set
func (c *MemoryCache) Set(_ context.Context, key string, snapshot models.WeatherSnapshot) error {
	c.lru.Add(key, snapshot)
	return nil
}

// Len returns the number of live entries
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares the cache between server replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache whose entries expire server-side after ttl
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return "doit:weather:" + key
}

// Get implements Cache.Get
func (c *RedisCache) Get(ctx context.Context, key string) (models.WeatherSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.WeatherSnapshot{}, false, nil
	}
	if err != nil {
		return models.WeatherSnapshot{}, false, fmt.Errorf("failed to read weather cache: %w", err)
	}

	var snapshot models.WeatherSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.WeatherSnapshot{}, false, fmt.Errorf("failed to decode cached weather: %w", err)
	}
	return snapshot, true, nil
}

// Set implements Cache.Set
func (c *RedisCache) Set(ctx context.Context, key string, snapshot models.WeatherSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode weather: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write weather cache: %w", err)
	}
	return nil
}
