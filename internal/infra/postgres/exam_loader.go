package postgres

import (
	"context"
	"errors"
	"fmt"

	"cps-exam-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ExamLoader loads exams and their ordered questions from Postgres.
type ExamLoader struct {
	pool *pgxpool.Pool
}

func NewExamLoader(pool *pgxpool.Pool) *ExamLoader {
	return &ExamLoader{pool: pool}
}

func (l *ExamLoader) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	exam := domain.Exam{ID: examID}
	err := l.pool.QueryRow(ctx,
		`SELECT title, description, time_limit_seconds FROM exams WHERE id=$1`, examID,
	).Scan(&exam.Title, &exam.Description, &exam.TimeLimitSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Exam{}, fmt.Errorf("load exam: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.category, q.prompt, q.options, q.correct_answer_index, q.explanation, q.difficulty
		FROM exam_questions eq
		JOIN questions q ON q.id = eq.question_id
		WHERE eq.exam_id=$1
		ORDER BY eq.position`, examID)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Prompt, &q.Options, &q.CorrectAnswerIndex, &q.Explanation, &q.Difficulty); err != nil {
			return domain.Exam{}, fmt.Errorf("scan question: %w", err)
		}
		exam.Questions = append(exam.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Exam{}, fmt.Errorf("load questions: %w", err)
	}
	return exam, nil
}

// SaveExam upserts an exam and replaces its question list.
func (l *ExamLoader) SaveExam(ctx context.Context, exam domain.Exam) error {
	if err := domain.ValidateExam(exam); err != nil {
		return err
	}
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO exams (id, title, description, time_limit_seconds) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
				time_limit_seconds=EXCLUDED.time_limit_seconds`,
			exam.ID, exam.Title, exam.Description, exam.TimeLimitSeconds)
		if err != nil {
			return fmt.Errorf("save exam: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id=$1`, exam.ID); err != nil {
			return fmt.Errorf("clear exam questions: %w", err)
		}
		for i, q := range exam.Questions {
			_, err := tx.Exec(ctx, `
				INSERT INTO questions (id, category, prompt, options, correct_answer_index, explanation, difficulty)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET category=EXCLUDED.category, prompt=EXCLUDED.prompt,
					options=EXCLUDED.options, correct_answer_index=EXCLUDED.correct_answer_index,
					explanation=EXCLUDED.explanation, difficulty=EXCLUDED.difficulty`,
				q.ID, q.Category, q.Prompt, q.Options, q.CorrectAnswerIndex, q.Explanation, q.Difficulty)
			if err != nil {
				return fmt.Errorf("save question %s: %w", q.ID, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO exam_questions (exam_id, question_id, position) VALUES ($1, $2, $3)`,
				exam.ID, q.ID, i); err != nil {
				return fmt.Errorf("link question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}
