package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formloop/formloop/internal/services"
)

// SummaryCache keeps computed analytics summaries in Redis so dashboard
// refreshes don't rescan every entry. A nil *SummaryCache is a valid no-op
// cache, which keeps Redis optional in small deployments.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func (c *SummaryCache) summaryKey(formID string) string {
	return fmt.Sprintf("form:%s:summary", formID)
}

func (c *SummaryCache) Get(ctx context.Context, formID string) (*services.AnalyticsSummary, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.summaryKey(formID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary services.AnalyticsSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *SummaryCache) Set(ctx context.Context, summary *services.AnalyticsSummary) error {
	if c == nil || summary == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.summaryKey(summary.FormID), data, c.ttl).Err()
}

func (c *SummaryCache) Invalidate(ctx context.Context, formID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.summaryKey(formID)).Err()
}
