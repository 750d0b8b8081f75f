package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stumbleDiscovery/domain"
)

// cacheTTL outlives two recompute intervals so a single missed batch does
// not empty the read path.
const cacheTTL = 35 * time.Minute

type TrendingCache struct {
	client *redis.Client
}

func NewTrendingCache(client *redis.Client) *TrendingCache {
	return &TrendingCache{client: client}
}

func windowKey(window string) string {
	return fmt.Sprintf("trending:%s", window)
}

// SetWindow stores the full ranked list for a window. Called only by the
// batch writer, so a plain overwrite is safe.
func (c *TrendingCache) SetWindow(ctx context.Context, window string, records []domain.TrendingRecord) error {
	jsonData, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal trending records: %w", err)
	}

	if err := c.client.Set(ctx, windowKey(window), jsonData, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to store trending window in Redis: %w", err)
	}

	return nil
}

func (c *TrendingCache) GetWindow(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error) {
	val, err := c.client.Get(ctx, windowKey(window)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trending window from Redis: %w", err)
	}

	var records []domain.TrendingRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trending records: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
