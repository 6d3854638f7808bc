package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cps-exam-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultHistoryLength caps how many attempts are kept per user.
const DefaultHistoryLength = 50

// AttemptStore keeps recent attempts per user in a capped Redis list, newest first.
// LPUSH exam:attempts:{userID} {json}; LTRIM to the history length.
// Recording an id that is already listed replaces that entry.
type AttemptStore struct {
	client *redis.Client
	keep   int64
}

func NewAttemptStore(client *redis.Client, keep int) *AttemptStore {
	if keep <= 0 {
		keep = DefaultHistoryLength
	}
	return &AttemptStore{client: client, keep: int64(keep)}
}

// RecordAttempt pushes attempt to the front of the user's list. An earlier
// entry for the same attempt id is replaced, under WATCH on the list key.
func (s *AttemptStore) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	key := s.key(attempt.UserID)
	txf := func(tx *redis.Tx) error {
		existing, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, item := range existing {
				if attemptID(item) == attempt.ID {
					pipe.LRem(ctx, key, 0, item)
				}
			}
			pipe.LPush(ctx, key, payload)
			pipe.LTrim(ctx, key, 0, s.keep-1)
			return nil
		})
		return err
	}

	for i := 0; i < maxRecordRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

const maxRecordRetries = 3

func attemptID(raw string) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &head); err != nil {
		return ""
	}
	return head.ID
}

// ListAttempts returns the newest attempts first. limit <= 0 returns all kept.
func (s *AttemptStore) ListAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.key(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(raw))
	for _, item := range raw {
		var attempt domain.Attempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		out = append(out, attempt)
	}
	return out, nil
}

func (s *AttemptStore) key(userID string) string {
	return "exam:attempts:" + userID
}
