package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"trivia-progression-service/internal/domain"
)

// LeaderboardCache is an in-process leaderboard.Cache with TTL expiry.
type LeaderboardCache struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu      sync.RWMutex
	entries map[string]cachedBoard
}

type cachedBoard struct {
	board     domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardCache(ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cachedBoard),
	}
}

func (c *LeaderboardCache) Get(_ context.Context, key string) (domain.Leaderboard, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Leaderboard{}, false, nil
	}
	return entry.board, true, nil
}

func (c *LeaderboardCache) Set(_ context.Context, key string, lb domain.Leaderboard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedBoard{
		board:     lb,
		expiresAt: c.clock().Add(c.ttlWithJitter()),
	}
	return nil
}

func (c *LeaderboardCache) DeleteScope(_ context.Context, quizID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := quizID + ":"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *LeaderboardCache) DeleteAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedBoard)
	return nil
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return time.Minute
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
