package memory

import (
	"context"
	"sync"
	"time"

	"trivia-progression-service/internal/domain"
)

// NameResolver maps a user id to a display name for leaderboard rows.
type NameResolver interface {
	DisplayName(userID string) string
}

// ScoreStore keeps the leaderboard read model in memory: the best score per
// (user, quiz, category, day). It implements app.ScoreRecorder and
// leaderboard.EntryLoader.
type ScoreStore struct {
	names NameResolver
	mu    sync.RWMutex
	rows  map[scoreKey]scoreRow
}

type scoreKey struct {
	quizID     string
	categoryID string
	userID     string
	day        string
}

type scoreRow struct {
	score       int
	completedAt time.Time
}

func NewScoreStore(names NameResolver) *ScoreStore {
	return &ScoreStore{names: names, rows: make(map[scoreKey]scoreRow)}
}

func (s *ScoreStore) RecordScore(_ context.Context, ev domain.ScoreEvent) error {
	key := scoreKey{
		quizID:     ev.QuizID,
		categoryID: ev.CategoryID,
		userID:     ev.UserID,
		day:        ev.CompletedAt.Format(domain.DateLayout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[key]
	// A retry within the same day keeps the better score and the earlier
	// completion timestamp.
	if !ok || ev.Score > existing.score {
		completedAt := ev.CompletedAt
		if ok && existing.completedAt.Before(completedAt) {
			completedAt = existing.completedAt
		}
		s.rows[key] = scoreRow{score: ev.Score, completedAt: completedAt}
	}
	return nil
}

func (s *ScoreStore) LoadEntries(_ context.Context, quizID string, since time.Time, categoryID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]scoreRow)
	for key, row := range s.rows {
		if key.quizID != quizID || key.categoryID != categoryID {
			continue
		}
		if !since.IsZero() && row.completedAt.Before(since) {
			continue
		}
		cur, ok := best[key.userID]
		if !ok || row.score > cur.score || (row.score == cur.score && row.completedAt.Before(cur.completedAt)) {
			best[key.userID] = row
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(best))
	for userID, row := range best {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      userID,
			DisplayName: s.names.DisplayName(userID),
			Score:       row.score,
			CompletedAt: row.completedAt,
		})
	}
	return entries, nil
}
