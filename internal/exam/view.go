package exam

import "cps-exam-service/internal/domain"

// Mode reports the mode presentation layers should show. An expired countdown
// shows results while the stored mode is still in progress.
func (s *Session) Mode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveModeLocked()
}

func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Session) Current() domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.At(s.position)
}

// Pending returns the uncommitted selection for the current question, if any.
func (s *Session) Pending() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0, false
	}
	return *s.pending, true
}

func (s *Session) IsFlagged(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags.IsFlagged(questionID)
}

// Answer returns the committed answer for a question.
func (s *Session) Answer(questionID string) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(questionID)
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Remaining()
}

func (s *Session) TimeLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Total()
}

func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Expired()
}

// Questions returns the session's ordered question list.
func (s *Session) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.Questions()
}

// EffectiveAnswers is recomputed on every call.
func (s *Session) EffectiveAnswers() map[string]domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked()
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Score(s.effectiveLocked(), s.bank.Len())
}

// Unanswered counts questions missing from the effective answers.
func (s *Session) Unanswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.Len() - len(s.effectiveLocked())
}

func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() domain.SessionView {
	mode := s.effectiveModeLocked()
	q := s.bank.At(s.position)
	effective := s.effectiveLocked()

	view := domain.SessionView{
		Mode:           mode,
		Position:       s.position,
		TotalQuestions: s.bank.Len(),
		Question: domain.QuestionView{
			ID:       q.ID,
			Category: q.Category,
			Prompt:   q.Prompt,
			Options:  append([]string(nil), q.Options...),
		},
		Flagged:       s.flags.IDs(),
		Answered:      make([]string, 0, len(effective)),
		TimeRemaining: s.clock.Remaining(),
		TimeUp:        s.clock.Expired(),
	}
	if mode != domain.ModeInProgress {
		correct := q.CorrectAnswerIndex
		view.Question.CorrectAnswerIndex = &correct
		view.Question.Explanation = q.Explanation
	}
	if s.pending != nil {
		pending := *s.pending
		view.Pending = &pending
	}
	if a, ok := effective[q.ID]; ok {
		selected := a.SelectedOptionIndex
		view.Selected = &selected
	}
	for _, bq := range s.bank.questions {
		if _, ok := effective[bq.ID]; ok {
			view.Answered = append(view.Answered, bq.ID)
		}
	}
	if mode == domain.ModeResults {
		view.Score = Score(effective, s.bank.Len())
	}
	return view
}
