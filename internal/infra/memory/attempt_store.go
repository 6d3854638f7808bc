package memory

import (
	"context"
	"sort"
	"sync"

	"cps-exam-service/internal/domain"
)

// AttemptStore keeps finished attempts per user in memory.
type AttemptStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{byUser: make(map[string][]domain.Attempt)}
}

// RecordAttempt stores attempt, replacing an earlier record with the same id.
func (s *AttemptStore) RecordAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byUser[attempt.UserID]
	for i := range list {
		if list[i].ID == attempt.ID {
			list[i] = attempt
			return nil
		}
	}
	s.byUser[attempt.UserID] = append(list, attempt)
	return nil
}

// ListAttempts returns the newest attempts first. limit <= 0 returns all.
func (s *AttemptStore) ListAttempts(_ context.Context, userID string, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	list := append([]domain.Attempt(nil), s.byUser[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CompletedAt.After(list[j].CompletedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
