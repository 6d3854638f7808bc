package redis

import (
	"context"
	"sync"
	"time"

	"cps-exam-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Attempts live in a local map; the exam session and its timer are
//     process-local state.
//   - Redis marks attempt liveness so other instances can see which attempt
//     ids are active and who owns them.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *SessionStore) Put(attempt *app.Attempt) {
	id := attempt.ID()
	s.mu.Lock()
	s.attempts[id] = attempt
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), attempt.UserID(), s.ttl).Err()
}

func (s *SessionStore) Get(attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

func (s *SessionStore) Delete(attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

// Owner returns the user holding a live attempt, as seen by any instance.
func (s *SessionStore) Owner(ctx context.Context, attemptID string) (string, bool, error) {
	user, err := s.client.Get(ctx, s.key(attemptID)).Result()
	if isMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user, true, nil
}

func (s *SessionStore) key(attemptID string) string {
	return "exam:session:" + attemptID
}
