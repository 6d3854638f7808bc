package exam

import (
	"testing"

	"cps-exam-service/internal/domain"
	"cps-exam-service/internal/testutil"
)

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:                 "q1",
			Category:           "Mathematical Reasoning",
			Prompt:             "Total friction loss for a 200-foot lay at 30 PSI per 100 feet?",
			Options:            []string{"30 PSI", "45 PSI", "60 PSI", "90 PSI"},
			CorrectAnswerIndex: 2,
			Explanation:        "30 PSI per 100ft x 2 = 60 PSI.",
		},
		{
			ID:                 "q2",
			Category:           "Mechanical Reasoning",
			Prompt:             "In a 3:1 system, pulling 30 feet of rope moves the load how far?",
			Options:            []string{"10 feet", "15 feet", "30 feet", "90 feet"},
			CorrectAnswerIndex: 0,
			Explanation:        "The load moves one third of the rope pulled.",
		},
		{
			ID:                 "q3",
			Category:           "Problem Sensitivity",
			Prompt:             "Roof decking feels spongy. What is the most immediate danger?",
			Options:            []string{"Equipment failure", "Flashover", "Structural collapse", "Backdraft"},
			CorrectAnswerIndex: 2,
			Explanation:        "Spongy decking indicates collapse risk.",
		},
	}
}

func newTestSession(t *testing.T, limit int, opts ...Option) (*Session, *testutil.ManualScheduler) {
	t.Helper()
	sched := &testutil.ManualScheduler{}
	all := append([]Option{WithTimeLimit(limit), WithScheduler(sched)}, opts...)
	s, err := New(sampleQuestions(), all...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, sched
}

func always(answer bool) (Confirm, *[]int) {
	var asked []int
	return func(n int) bool {
		asked = append(asked, n)
		return answer
	}, &asked
}
