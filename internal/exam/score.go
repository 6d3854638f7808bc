package exam

import (
	"math"

	"cps-exam-service/internal/domain"
)

// EffectiveAnswers is the read-time view of answers. When the countdown has
// expired, an uncommitted pending selection for the current question counts as
// answered. The ledger itself is never touched.
func EffectiveAnswers(ledger map[string]domain.Answer, pending *int, current domain.Question, expired bool) map[string]domain.Answer {
	out := make(map[string]domain.Answer, len(ledger)+1)
	for id, a := range ledger {
		out[id] = a
	}
	if !expired || pending == nil {
		return out
	}
	if _, committed := ledger[current.ID]; committed {
		return out
	}
	out[current.ID] = domain.Answer{
		QuestionID:          current.ID,
		SelectedOptionIndex: *pending,
		IsCorrect:           *pending == current.CorrectAnswerIndex,
	}
	return out
}

// Score is the rounded percentage of correct answers over every question in
// the session, so unanswered questions count against it.
func Score(answers map[string]domain.Answer, totalQuestions int) int {
	if len(answers) == 0 || totalQuestions <= 0 {
		return 0
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(totalQuestions)))
}
