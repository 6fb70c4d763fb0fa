package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizfunnel/api/models"

	"github.com/redis/go-redis/v9"
)

const metricsKeyPrefix = "quizfunnel:metrics:"

// MetricsCache keeps computed dashboard metrics in Redis for a short TTL.
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{client: client, ttl: ttl}
}

// MetricsKey identifies a filter; times are rounded to the second. Source is
// matched case-insensitively by the queries, product is not.
func MetricsKey(f models.Filter) string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	return metricsKeyPrefix + strings.Join([]string{
		format(f.From), format(f.To), f.Product, strings.ToLower(f.Source),
	}, "|")
}

// Get decodes a cached value into out and reports whether it was present.
func (c *MetricsCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

func (c *MetricsCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every cached metrics entry.
func (c *MetricsCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, metricsKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan metrics cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete metrics cache: %w", err)
	}
	return nil
}
