package memory

import (
	"context"
	"sync"

	"trivia-progression-service/internal/domain"
)

// ProgressionStore is an in-memory implementation of app.ProgressionStore.
type ProgressionStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProgression
}

func NewProgressionStore() *ProgressionStore {
	return &ProgressionStore{profiles: make(map[string]domain.UserProgression)}
}

func (s *ProgressionStore) Get(_ context.Context, userID string) (*domain.UserProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *ProgressionStore) Save(_ context.Context, p domain.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// DisplayName resolves a user's display name for leaderboard rows, falling
// back to the raw user id.
func (s *ProgressionStore) DisplayName(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return userID
}
