package memory

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"usersapi/internal/core/port"
	"usersapi/internal/core/telemetry"
)

type memoryCache struct {
	store   *cache.Cache
	metrics *telemetry.AppMetrics
}

// NewCache keeps entries in process memory. metrics may be nil.
func NewCache(defaultTTL time.Duration, metrics *telemetry.AppMetrics) port.CacheRepository {
	return &memoryCache{
		store:   cache.New(defaultTTL, 2*defaultTTL),
		metrics: metrics,
	}
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.Set(key, value, ttl)
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, found := c.store.Get(key)
	if !found {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(ctx, keyLabel(key))
		}
		return nil, port.ErrCacheMiss
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, keyLabel(key))
	}

	return value.([]byte), nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *memoryCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

func (c *memoryCache) Close() error {
	c.store.Flush()
	return nil
}

// keyLabel trims a key to its namespace to keep metric cardinality low.
func keyLabel(key string) string {
	if i := strings.LastIndex(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}
