package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	analytics "gridpulse/internal/analytics/domain"
)

// ResultCache stores finished aggregation results in Redis with a short
// TTL. Entries are JSON-encoded series keyed by the request digest.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache constructs a ResultCache.
func NewResultCache(client *redis.Client, ttl time.Duration) (*ResultCache, error) {
	if client == nil {
		return nil, errors.New("redis: nil client")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ResultCache{client: client, ttl: ttl}, nil
}

// Get fetches a cached result. A missing key is a miss, not an error.
func (c *ResultCache) Get(ctx context.Context, key string) ([]analytics.Series, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	var series []analytics.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return series, true, nil
}

// Set stores a result under key with the cache TTL.
func (c *ResultCache) Set(ctx context.Context, key string, series []analytics.Series) error {
	raw, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
