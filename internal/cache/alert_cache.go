package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertCache de-duplicates crisis escalations per conversation turn
type AlertCache interface {
	// Claim returns true only for the first caller to claim turnKey
	Claim(ctx context.Context, turnKey string) (bool, error)
	Release(ctx context.Context, turnKey string) error
}

type alertCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertCache creates a new alert cache
func NewAlertCache(client *redis.Client) AlertCache {
	return &alertCache{
		client: client,
		ttl:    7 * 24 * time.Hour,
	}
}

func (c *alertCache) key(turnKey string) string {
	return fmt.Sprintf("alert:turn:%s", turnKey)
}

func (c *alertCache) Claim(ctx context.Context, turnKey string) (bool, error) {
	return c.client.SetNX(ctx, c.key(turnKey), time.Now().Unix(), c.ttl).Result()
}

func (c *alertCache) Release(ctx context.Context, turnKey string) error {
	return c.client.Del(ctx, c.key(turnKey)).Err()
}
