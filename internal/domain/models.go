package domain

import "time"

// Mode is the stage an exam session is in.
type Mode string

const (
	ModeInProgress Mode = "inProgress"
	ModeReview     Mode = "review"
	ModeResults    Mode = "results"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string   `json:"id" validate:"required"`
	Category           string   `json:"category"`
	Prompt             string   `json:"question" validate:"required"`
	Options            []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" validate:"gte=0"`
	Explanation        string   `json:"explanation"`
	Difficulty         string   `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// Exam is an ordered set of questions taken under one time limit.
type Exam struct {
	ID               string     `json:"id" validate:"required"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitSeconds int        `json:"timeLimitSeconds" validate:"gte=0"`
	Questions        []Question `json:"questions" validate:"min=1,dive"`
}

// Answer is a committed selection. IsCorrect is recomputed on every commit.
type Answer struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
	IsCorrect           bool   `json:"isCorrect"`
}

// Attempt is the record of a finished exam session.
type Attempt struct {
	ID            string    `json:"id"`
	ExamID        string    `json:"examId"`
	UserID        string    `json:"userId"`
	Score         int       `json:"score"`
	Answers       []Answer  `json:"answers"`
	TimeRemaining int       `json:"timeRemaining"`
	TimedOut      bool      `json:"timedOut"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}

// QuestionView is the presentation form of a question. The correct index and
// explanation are only filled in once answers can no longer change.
type QuestionView struct {
	ID                 string   `json:"id"`
	Category           string   `json:"category"`
	Prompt             string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

// SessionView is a read-only snapshot of a session for presentation layers.
type SessionView struct {
	AttemptID      string       `json:"attemptId,omitempty"`
	Mode           Mode         `json:"mode"`
	Position       int          `json:"position"`
	TotalQuestions int          `json:"totalQuestions"`
	Question       QuestionView `json:"question"`
	Pending        *int         `json:"pending,omitempty"`
	Selected       *int         `json:"selected,omitempty"`
	Flagged        []string     `json:"flagged"`
	Answered       []string     `json:"answered"`
	TimeRemaining  int          `json:"timeRemaining"`
	TimeUp         bool         `json:"timeUp"`
	Score          int          `json:"score"`
	Verdict        string       `json:"verdict,omitempty"`
}

// Outcome reports whether a transition took effect.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeNoop     Outcome = "noop"
	OutcomeDeclined Outcome = "declined"
)

// TransitionResult is returned by every session action.
type TransitionResult struct {
	Outcome    Outcome     `json:"outcome"`
	Unanswered int         `json:"unanswered"`
	View       SessionView `json:"view"`
}
