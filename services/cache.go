package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache is the read-through cache injected into reporting. Implementations
// store JSON-encoded values; Get reports a miss with ok=false.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (ok bool)
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// NewCache picks the backing implementation. A nil Redis client or a
// non-positive TTL means caching is off entirely; a zero TTL must behave as
// "no cache", not as a cache with instant expiry.
func NewCache(client *redis.Client, ttl time.Duration) Cache {
	if client == nil || ttl <= 0 {
		return NoopCache{}
	}
	return &redisCache{client: client}
}

// NoopCache never hits and never stores.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) bool          { return false }
func (NoopCache) Put(context.Context, string, interface{}, time.Duration) {}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache entry corrupt, treating as miss")
		return false
	}
	return true
}

func (c *redisCache) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
