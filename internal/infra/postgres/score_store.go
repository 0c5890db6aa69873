package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-progression-service/internal/domain"
)

// ScoreStore maintains the leaderboard read model: one row per
// (quiz, category, user, day) keeping the best score and the earliest
// completion timestamp for that day.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) RecordScore(ctx context.Context, ev domain.ScoreEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leaderboard_scores (quiz_id, category_id, user_id, day, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (quiz_id, category_id, user_id, day) DO UPDATE SET
			score=GREATEST(leaderboard_scores.score, EXCLUDED.score),
			completed_at=LEAST(leaderboard_scores.completed_at, EXCLUDED.completed_at)`,
		ev.QuizID, ev.CategoryID, ev.UserID,
		ev.CompletedAt.Format(domain.DateLayout), ev.Score, ev.CompletedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// LoadEntries returns the best score per user for a quiz within the window,
// unranked; ordering and rank assignment belong to the leaderboard service.
func (s *ScoreStore) LoadEntries(ctx context.Context, quizID string, since time.Time, categoryID string) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (ls.user_id)
			ls.user_id, COALESCE(NULLIF(up.display_name, ''), ls.user_id), ls.score, ls.completed_at
		 FROM leaderboard_scores ls
		 LEFT JOIN user_progressions up ON up.user_id = ls.user_id
		 WHERE ls.quiz_id=$1 AND ls.category_id=$2 AND ($3::timestamptz IS NULL OR ls.completed_at >= $3)
		 ORDER BY ls.user_id, ls.score DESC, ls.completed_at ASC`,
		quizID, categoryID, nullableTime(since))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Score, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return entries, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
