// Package cache keeps model metadata close to the server. Predictions and form
// state are never cached.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/pkg/predictor"
)

const keyPrefix = "genereveal:model:"

// cachedModelInfo is the Redis representation of an entry
type cachedModelInfo struct {
	Data     *predictor.ModelInfo `json:"data"`
	CachedAt time.Time            `json:"cached_at"`
}

// ModelCache is a two-tier cache of model metadata: an expiring in-memory LRU
// backed by an optional Redis instance.
type ModelCache struct {
	memory *expirable.LRU[string, *predictor.ModelInfo]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewModelCache creates the cache. Redis is used only when RedisURL is set.
func NewModelCache(config domain.CacheConfig, logger *logrus.Logger) (*ModelCache, error) {
	if logger == nil {
		logger = logrus.New()
	}
	size := config.MemorySize
	if size <= 0 {
		size = 64
	}

	c := &ModelCache{
		memory: expirable.NewLRU[string, *predictor.ModelInfo](size, nil, config.TTL),
		ttl:    config.TTL,
		logger: logger,
	}

	if config.RedisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.redis = client
	return c, nil
}

// Get returns cached metadata. A Redis hit is promoted to memory.
func (c *ModelCache) Get(ctx context.Context, modelID string) (*predictor.ModelInfo, bool) {
	if info, ok := c.memory.Get(modelID); ok {
		return info, true
	}
	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, keyPrefix+modelID).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("model_id", modelID).Warn("Model cache lookup failed")
		return nil, false
	}

	var cached cachedModelInfo
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		c.redis.Del(ctx, keyPrefix+modelID)
		return nil, false
	}

	c.memory.Add(modelID, cached.Data)
	return cached.Data, true
}

// Set stores metadata in both tiers. Redis failures are logged, not returned.
func (c *ModelCache) Set(ctx context.Context, modelID string, info *predictor.ModelInfo) {
	if info == nil {
		return
	}
	c.memory.Add(modelID, info)
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(cachedModelInfo{Data: info, CachedAt: time.Now().UTC()})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal model metadata")
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+modelID, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("model_id", modelID).Warn("Failed to store model metadata")
	}
}

// Invalidate drops an entry from both tiers
func (c *ModelCache) Invalidate(ctx context.Context, modelID string) error {
	c.memory.Remove(modelID)
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, keyPrefix+modelID).Err()
}

// Len returns the number of entries held in memory
func (c *ModelCache) Len() int {
	return c.memory.Len()
}

// Ping checks the Redis tier, if any
func (c *ModelCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *ModelCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
