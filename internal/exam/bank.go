package exam

import (
	"fmt"

	"cps-exam-service/internal/domain"
)

// Bank is the fixed, ordered question list of one session.
type Bank struct {
	questions []domain.Question
}

// NewBank copies questions into an immutable bank.
func NewBank(questions []domain.Question) (Bank, error) {
	if len(questions) == 0 {
		return Bank{}, fmt.Errorf("%w: empty question list", domain.ErrInvalidQuestion)
	}
	b := Bank{questions: make([]domain.Question, len(questions))}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return Bank{}, fmt.Errorf("%w: question at %d has no id", domain.ErrInvalidQuestion, i)
		}
		if _, dup := seen[q.ID]; dup {
			return Bank{}, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidQuestion, q.ID)
		}
		if len(q.Options) < 2 {
			return Bank{}, fmt.Errorf("%w: %s has %d options", domain.ErrInvalidQuestion, q.ID, len(q.Options))
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return Bank{}, fmt.Errorf("%w: %s correct index %d out of range", domain.ErrInvalidQuestion, q.ID, q.CorrectAnswerIndex)
		}
		q.Options = append([]string(nil), q.Options...)
		b.questions[i] = q
		seen[q.ID] = struct{}{}
	}
	return b, nil
}

func (b Bank) Len() int { return len(b.questions) }

// At returns the question at position i. Callers keep i in range.
func (b Bank) At(i int) domain.Question { return b.questions[i] }

// Questions returns a copy of the ordered list.
func (b Bank) Questions() []domain.Question {
	out := make([]domain.Question, len(b.questions))
	copy(out, b.questions)
	return out
}
