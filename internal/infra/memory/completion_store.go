package memory

import (
	"context"
	"sync"

	"trivia-progression-service/internal/domain"
)

// CompletionStore is an in-memory implementation of app.CompletionStore with
// compare-and-swap semantics on a per-record version counter.
type CompletionStore struct {
	mu      sync.RWMutex
	records map[string]versionedRecord
}

type versionedRecord struct {
	rec     domain.DailyCompletion
	version int64
}

func NewCompletionStore() *CompletionStore {
	return &CompletionStore{records: make(map[string]versionedRecord)}
}

func (s *CompletionStore) Get(_ context.Context, userID string) (*domain.DailyCompletion, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[userID]
	if !ok {
		return nil, 0, nil
	}
	rec := entry.rec
	rec.QuizAttempts = cloneAttempts(entry.rec.QuizAttempts)
	return &rec, entry.version, nil
}

func (s *CompletionStore) Put(_ context.Context, userID string, rec domain.DailyCompletion, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[userID]
	current := int64(0)
	if ok {
		current = entry.version
	}
	if current != expectedVersion {
		return domain.ErrVersionConflict
	}
	rec.QuizAttempts = cloneAttempts(rec.QuizAttempts)
	s.records[userID] = versionedRecord{rec: rec, version: current + 1}
	return nil
}

func cloneAttempts(in map[string]domain.QuizAttempt) map[string]domain.QuizAttempt {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.QuizAttempt, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
