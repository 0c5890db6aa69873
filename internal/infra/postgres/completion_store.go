package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-progression-service/internal/domain"
)

// CompletionStore persists daily completion records as JSONB rows with a
// version column. Writes are conditional on the version the caller read, so a
// lost race surfaces as domain.ErrVersionConflict instead of a silent
// overwrite.
type CompletionStore struct {
	pool *pgxpool.Pool
}

func NewCompletionStore(pool *pgxpool.Pool) *CompletionStore {
	return &CompletionStore{pool: pool}
}

func (s *CompletionStore) Get(ctx context.Context, userID string) (*domain.DailyCompletion, int64, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM daily_completions WHERE user_id=$1`, userID,
	).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var rec domain.DailyCompletion
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, 0, fmt.Errorf("%w: decode completion record: %v", domain.ErrStoreUnavailable, err)
	}
	return &rec, version, nil
}

func (s *CompletionStore) Put(ctx context.Context, userID string, rec domain.DailyCompletion, expectedVersion int64) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode completion record: %w", err)
	}

	if expectedVersion == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO daily_completions (user_id, data, version) VALUES ($1, $2, 1)
			 ON CONFLICT (user_id) DO NOTHING`, userID, payload)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE daily_completions SET data=$2, version=version+1 WHERE user_id=$1 AND version=$3`,
		userID, payload, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
