package leaderboard

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-progression-service/internal/domain"
)

// EntryLoader fetches the unranked best-score-per-user entries for a quiz
// within a period window (zero since = all time).
type EntryLoader interface {
	LoadEntries(ctx context.Context, quizID string, since time.Time, categoryID string) ([]domain.LeaderboardEntry, error)
}

// Cache stores ranked leaderboards per scope key. Implementations own their
// TTL policy; DeleteScope must drop every period/category variant of a quiz.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Leaderboard, bool, error)
	Set(ctx context.Context, key string, lb domain.Leaderboard) error
	DeleteScope(ctx context.Context, quizID string) error
	DeleteAll(ctx context.Context) error
}

// DefaultLimit caps how many entries a read returns when the caller does not
// ask for fewer.
const DefaultLimit = 50

// Service serves ranked leaderboards from cache, recomputing from the loader
// on miss. Reads tolerate short staleness; writers call Invalidate instead of
// recomputing synchronously.
type Service struct {
	loader EntryLoader
	cache  Cache
	limit  int
	sf     singleflight.Group
	now    func() time.Time
}

func NewService(loader EntryLoader, cache Cache, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{loader: loader, cache: cache, limit: limit, now: time.Now}
}

// NewServiceWithClock is test-only for deterministic period windows.
func NewServiceWithClock(loader EntryLoader, cache Cache, limit int, now func() time.Time) *Service {
	s := NewService(loader, cache, limit)
	s.now = now
	return s
}

// Entries returns the ranked board for one (quiz, period, category) scope.
func (s *Service) Entries(ctx context.Context, quizID string, period domain.Period, categoryID string) (domain.Leaderboard, error) {
	key := ScopeKey(quizID, period, categoryID)

	if lb, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return lb, nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if lb, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return lb, nil
		}

		now := s.now()
		entries, err := s.loader.LoadEntries(ctx, quizID, period.Start(now), categoryID)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		lb := domain.Leaderboard{
			QuizID:     quizID,
			Period:     period,
			CategoryID: categoryID,
			Entries:    Rank(entries, s.limit),
			UpdatedAt:  now,
		}
		_ = s.cache.Set(ctx, key, lb)
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Invalidate drops every cached period/category variant for a quiz so the
// next read recomputes from the store.
func (s *Service) Invalidate(ctx context.Context, quizID string) error {
	return s.cache.DeleteScope(ctx, quizID)
}

// InvalidateAll drops every cached scope.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.cache.DeleteAll(ctx)
}

// Rank orders entries by score descending, ties broken by earliest completion
// then user id, and assigns contiguous 1..N ranks.
func Rank(entries []domain.LeaderboardEntry, limit int) []domain.LeaderboardEntry {
	ranked := make([]domain.LeaderboardEntry, len(entries))
	copy(ranked, entries)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].CompletedAt.Equal(ranked[j].CompletedAt) {
			return ranked[i].CompletedAt.Before(ranked[j].CompletedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// ScopeKey builds the cache key for one leaderboard scope.
func ScopeKey(quizID string, period domain.Period, categoryID string) string {
	key := quizID + ":" + string(period)
	if categoryID != "" {
		key += ":" + categoryID
	}
	return key
}
