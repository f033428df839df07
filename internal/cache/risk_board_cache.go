package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const riskBoardKey = "users:risk"

// RiskBoardCache ranks users by the overall risk of their latest assessment
type RiskBoardCache interface {
	Update(ctx context.Context, userID string, risk float64) error
	Top(ctx context.Context, limit int) ([]RiskEntry, error)
	Rank(ctx context.Context, userID string) (int64, error)
}

// RiskEntry is one row of the risk board
type RiskEntry struct {
	UserID string  `json:"userId"`
	Risk   float64 `json:"risk"`
	Rank   int     `json:"rank"`
}

type riskBoardCache struct {
	client *redis.Client
}

// NewRiskBoardCache creates a new risk board cache
func NewRiskBoardCache(client *redis.Client) RiskBoardCache {
	return &riskBoardCache{
		client: client,
	}
}

func (c *riskBoardCache) Update(ctx context.Context, userID string, risk float64) error {
	return c.client.ZAdd(ctx, riskBoardKey, redis.Z{
		Score:  risk,
		Member: userID,
	}).Err()
}

func (c *riskBoardCache) Top(ctx context.Context, limit int) ([]RiskEntry, error) {
	if limit <= 0 {
		return []RiskEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, riskBoardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RiskEntry, len(results))
	for i, z := range results {
		entries[i] = RiskEntry{
			UserID: z.Member.(string),
			Risk:   z.Score,
			Rank:   i + 1,
		}
	}
	return entries, nil
}

// Rank is 1-indexed, highest risk first; -1 when the user was never assessed
func (c *riskBoardCache) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, riskBoardKey, userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err
}
