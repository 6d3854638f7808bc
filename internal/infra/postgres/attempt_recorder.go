package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"cps-exam-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptRecorder persists finished attempts.
type AttemptRecorder struct {
	pool *pgxpool.Pool
}

func NewAttemptRecorder(pool *pgxpool.Pool) *AttemptRecorder {
	return &AttemptRecorder{pool: pool}
}

// RecordAttempt upserts by attempt id so a resubmitted attempt keeps its latest result.
func (r *AttemptRecorder) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO attempts (id, exam_id, user_id, score, answers, time_remaining, timed_out, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			answers = EXCLUDED.answers,
			time_remaining = EXCLUDED.time_remaining,
			timed_out = EXCLUDED.timed_out,
			completed_at = EXCLUDED.completed_at`,
		attempt.ID, attempt.ExamID, attempt.UserID, attempt.Score, string(answers),
		attempt.TimeRemaining, attempt.TimedOut, attempt.StartedAt, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the newest attempts first. limit <= 0 returns all.
func (r *AttemptRecorder) ListAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	query := `
		SELECT id, exam_id, user_id, score, answers, time_remaining, timed_out, started_at, completed_at
		FROM attempts WHERE user_id=$1 ORDER BY completed_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var (
			a   domain.Attempt
			raw []byte
		)
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Score, &raw, &a.TimeRemaining, &a.TimedOut, &a.StartedAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(raw, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
