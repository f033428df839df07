package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"wellmind/internal/model"
)

const statsKey = "interventions:stats"

// StatsCache holds the last computed per-intervention effectiveness summary
type StatsCache interface {
	Get(ctx context.Context) ([]*model.InterventionStats, error)
	Set(ctx context.Context, stats []*model.InterventionStats) error
	Invalidate(ctx context.Context) error
}

type statsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a new stats cache
func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *statsCache) Get(ctx context.Context) ([]*model.InterventionStats, error) {
	data, err := c.client.Get(ctx, statsKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats []*model.InterventionStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *statsCache) Set(ctx context.Context, stats []*model.InterventionStats) error {
	if stats == nil {
		stats = []*model.InterventionStats{}
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, data, c.ttl).Err()
}

func (c *statsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}
