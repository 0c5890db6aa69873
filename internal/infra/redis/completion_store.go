package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trivia-progression-service/internal/domain"
)

// CompletionStore keeps daily completion records in Redis, one JSON envelope
// per user. Conditional writes use WATCH so two concurrent submissions for
// the same user cannot both apply the streak-advance transition.
type CompletionStore struct {
	client *redis.Client
}

type completionEnvelope struct {
	Version int64                  `json:"version"`
	Record  domain.DailyCompletion `json:"record"`
}

func NewCompletionStore(client *redis.Client) *CompletionStore {
	return &CompletionStore{client: client}
}

func (s *CompletionStore) Get(ctx context.Context, userID string) (*domain.DailyCompletion, int64, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var env completionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: decode completion record: %v", domain.ErrStoreUnavailable, err)
	}
	return &env.Record, env.Version, nil
}

func (s *CompletionStore) Put(ctx context.Context, userID string, rec domain.DailyCompletion, expectedVersion int64) error {
	key := s.key(userID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored := int64(0)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// record does not exist yet
		case err != nil:
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		default:
			var env completionEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return fmt.Errorf("%w: decode completion record: %v", domain.ErrStoreUnavailable, err)
			}
			stored = env.Version
		}
		if stored != expectedVersion {
			return domain.ErrVersionConflict
		}

		payload, err := json.Marshal(completionEnvelope{Version: expectedVersion + 1, Record: rec})
		if err != nil {
			return fmt.Errorf("encode completion record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	return err
}

func (s *CompletionStore) key(userID string) string {
	return "daily:completion:" + userID
}
