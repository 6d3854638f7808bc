package exam

import (
	"fmt"

	"cps-exam-service/internal/domain"
)

// Ledger holds committed answers keyed by question id.
type Ledger struct {
	answers map[string]domain.Answer
}

func NewLedger() *Ledger {
	return &Ledger{answers: make(map[string]domain.Answer)}
}

// Commit records the selection for q, overwriting any earlier answer.
// Correctness is always derived from q at commit time.
func (l *Ledger) Commit(q domain.Question, option int) (domain.Answer, error) {
	if option < 0 || option >= len(q.Options) {
		return domain.Answer{}, fmt.Errorf("%w: %d for question %s", domain.ErrOptionOutOfRange, option, q.ID)
	}
	answer := domain.Answer{
		QuestionID:          q.ID,
		SelectedOptionIndex: option,
		IsCorrect:           option == q.CorrectAnswerIndex,
	}
	l.answers[q.ID] = answer
	return answer, nil
}

func (l *Ledger) Get(questionID string) (domain.Answer, bool) {
	a, ok := l.answers[questionID]
	return a, ok
}

func (l *Ledger) Has(questionID string) bool {
	_, ok := l.answers[questionID]
	return ok
}

func (l *Ledger) Len() int { return len(l.answers) }

// Snapshot returns a copy of the committed answers.
func (l *Ledger) Snapshot() map[string]domain.Answer {
	out := make(map[string]domain.Answer, len(l.answers))
	for id, a := range l.answers {
		out[id] = a
	}
	return out
}
