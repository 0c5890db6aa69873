package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-progression-service/internal/domain"
)

// LeaderboardCache stores ranked boards in Redis, one JSON value per scope
// key with a jittered TTL. Invalidation deletes every key under the quiz's
// prefix so all period/category variants recompute on the next read.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Get(ctx context.Context, key string) (domain.Leaderboard, bool, error) {
	raw, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Leaderboard{}, false, nil
	}
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		return domain.Leaderboard{}, false, err
	}
	return lb, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, lb domain.Leaderboard) error {
	payload, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.cacheKey(key), payload, c.ttlWithJitter()).Err()
}

func (c *LeaderboardCache) DeleteScope(ctx context.Context, quizID string) error {
	return c.deletePattern(ctx, "lb:"+quizID+":*")
}

func (c *LeaderboardCache) DeleteAll(ctx context.Context) error {
	return c.deletePattern(ctx, "lb:*")
}

func (c *LeaderboardCache) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *LeaderboardCache) cacheKey(key string) string {
	return "lb:" + key
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return time.Minute
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
