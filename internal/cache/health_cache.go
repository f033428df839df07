package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"wellmind/internal/model"
)

const healthKey = "backends:health"

// HealthCache keeps the most recent backend health report
type HealthCache interface {
	SetReport(ctx context.Context, report model.HealthReport) error
	GetReport(ctx context.Context) (*model.HealthReport, error)
}

type healthCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHealthCache creates a health cache; reports expire after ttl
func NewHealthCache(client *redis.Client, ttl time.Duration) HealthCache {
	return &healthCache{client: client, ttl: ttl}
}

func (c *healthCache) SetReport(ctx context.Context, report model.HealthReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, healthKey, data, c.ttl).Err()
}

func (c *healthCache) GetReport(ctx context.Context) (*model.HealthReport, error) {
	data, err := c.client.Get(ctx, healthKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report model.HealthReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, err
	}
	return &report, nil
}
