package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wellmind/internal/model"
)

const maxAdvanceAttempts = 5

// ClusterStateCache holds each user's current-cluster pointer and the one before it
type ClusterStateCache interface {
	Get(ctx context.Context, userID string) (*model.UserClusterState, error)
	// Advance points the user at cluster. When it differs from the current one the old
	// value becomes Previous and changed is true. before is nil for a first assignment.
	Advance(ctx context.Context, userID, cluster string, at time.Time) (before *model.UserClusterState, changed bool, err error)
}

type clusterStateCache struct {
	client *redis.Client
}

// NewClusterStateCache creates a new cluster state cache
func NewClusterStateCache(client *redis.Client) ClusterStateCache {
	return &clusterStateCache{client: client}
}

func (c *clusterStateCache) key(userID string) string {
	return fmt.Sprintf("user:%s:cluster", userID)
}

func (c *clusterStateCache) Get(ctx context.Context, userID string) (*model.UserClusterState, error) {
	return getState(ctx, c.client, c.key(userID))
}

func getState(ctx context.Context, cmd redis.Cmdable, key string) (*model.UserClusterState, error) {
	data, err := cmd.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.UserClusterState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *clusterStateCache) Advance(ctx context.Context, userID, cluster string, at time.Time) (*model.UserClusterState, bool, error) {
	key := c.key(userID)
	var (
		before  *model.UserClusterState
		changed bool
	)

	txf := func(tx *redis.Tx) error {
		current, err := getState(ctx, tx, key)
		if err != nil {
			return err
		}
		before = current
		changed = false

		next := model.UserClusterState{UserID: userID, Current: cluster, UpdatedAt: at}
		if current != nil {
			if current.Current == cluster {
				return nil
			}
			next.Previous = current.Current
			changed = true
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxAdvanceAttempts; i++ {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return before, changed, nil
	}
	return nil, false, fmt.Errorf("advance cluster for %s: too much contention", userID)
}
