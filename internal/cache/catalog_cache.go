package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"wellmind/internal/model"
)

const catalogKey = "clusters:catalog"

// CatalogCache mirrors the published cluster catalog so other instances can pick it up
type CatalogCache interface {
	Save(ctx context.Context, catalog *model.ClusterCatalog) error
	Load(ctx context.Context) (*model.ClusterCatalog, error)
}

type catalogCache struct {
	client *redis.Client
}

// NewCatalogCache creates a new catalog cache
func NewCatalogCache(client *redis.Client) CatalogCache {
	return &catalogCache{client: client}
}

func (c *catalogCache) Save(ctx context.Context, catalog *model.ClusterCatalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, data, 0).Err()
}

func (c *catalogCache) Load(ctx context.Context) (*model.ClusterCatalog, error) {
	data, err := c.client.Get(ctx, catalogKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var catalog model.ClusterCatalog
	if err := json.Unmarshal([]byte(data), &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}
