package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-progression-service/internal/domain"
)

// ProgressionStore persists the user XP/coin record. Level and threshold
// columns are caches computed by the caller from xp; this layer never derives
// them itself.
type ProgressionStore struct {
	pool *pgxpool.Pool
}

func NewProgressionStore(pool *pgxpool.Pool) *ProgressionStore {
	return &ProgressionStore{pool: pool}
}

func (s *ProgressionStore) Get(ctx context.Context, userID string) (*domain.UserProgression, error) {
	var p domain.UserProgression
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, xp, level, xp_to_next_level, coins, updated_at
		 FROM user_progressions WHERE user_id=$1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.XP, &p.Level, &p.XPToNextLevel, &p.Coins, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &p, nil
}

func (s *ProgressionStore) Save(ctx context.Context, p domain.UserProgression) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_progressions (user_id, display_name, xp, level, xp_to_next_level, coins, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			display_name=EXCLUDED.display_name,
			xp=EXCLUDED.xp,
			level=EXCLUDED.level,
			xp_to_next_level=EXCLUDED.xp_to_next_level,
			coins=EXCLUDED.coins,
			updated_at=EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, p.XP, p.Level, p.XPToNextLevel, p.Coins, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
