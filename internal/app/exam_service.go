package app

import (
	"context"
	"time"

	"cps-exam-service/internal/domain"
	"cps-exam-service/internal/exam"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(attempt *Attempt)
	Get(attemptID string) (*Attempt, bool)
	Delete(attemptID string)
}

// ExamRepository loads exam content (from cache/backing store).
type ExamRepository interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
}

// AttemptRecorder keeps the history of finished attempts.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
	ListAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error)
}

// Options tunes sessions created by the service.
type Options struct {
	// TimeLimit applies when the exam has no limit of its own.
	TimeLimit    int
	TickInterval time.Duration
	Scheduler    exam.Scheduler
	Benchmark    Benchmark
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// ExamService contains the exam attempt use cases.
type ExamService struct {
	sessions SessionRepository
	exams    ExamRepository
	attempts AttemptRecorder
	opts     Options
	log      zerolog.Logger
}

func NewExamService(store SessionRepository, exams ExamRepository, attempts AttemptRecorder, opts Options) *ExamService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Benchmark.Threshold == 0 {
		opts.Benchmark.Threshold = DefaultPassThreshold
	}
	return &ExamService{
		sessions: store,
		exams:    exams,
		attempts: attempts,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "exam_service").Logger(),
	}
}

// Start loads an exam and opens a new attempt for userID.
func (s *ExamService) Start(ctx context.Context, examID, userID string) (domain.SessionView, error) {
	content, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := domain.ValidateExam(content); err != nil {
		return domain.SessionView{}, err
	}

	attempt := newAttempt(uuid.NewString(), examID, userID, s.opts.Benchmark, s.opts.Clock)
	session, err := exam.New(content.Questions,
		exam.WithTimeLimit(s.timeLimit(content)),
		exam.WithTickInterval(s.opts.TickInterval),
		exam.WithScheduler(s.opts.Scheduler),
		exam.WithObserver(attempt.observe),
	)
	if err != nil {
		return domain.SessionView{}, err
	}
	attempt.bind(attempt.ID(), session)
	s.sessions.Put(attempt)

	s.log.Info().
		Str("attempt_id", attempt.ID()).
		Str("exam_id", examID).
		Str("user_id", userID).
		Int("questions", len(content.Questions)).
		Int("time_limit", session.TimeLimit()).
		Msg("attempt started")
	return attempt.View(), nil
}

func (s *ExamService) timeLimit(content domain.Exam) int {
	if content.TimeLimitSeconds > 0 {
		return content.TimeLimitSeconds
	}
	return s.opts.TimeLimit
}

// View returns the current state of an attempt.
func (s *ExamService) View(_ context.Context, attemptID string) (domain.SessionView, error) {
	attempt, ok := s.sessions.Get(attemptID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	return attempt.View(), nil
}

func (s *ExamService) Select(ctx context.Context, attemptID string, option int) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.Select(option)
	})
}

func (s *ExamService) Next(ctx context.Context, attemptID string, confirm bool) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.Next(c)
	})
}

func (s *ExamService) Previous(ctx context.Context, attemptID string) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.Previous()
	})
}

func (s *ExamService) ToggleFlag(ctx context.Context, attemptID string) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.ToggleFlag(), nil
	})
}

func (s *ExamService) EnterReview(ctx context.Context, attemptID string) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.EnterReview()
	})
}

func (s *ExamService) JumpTo(ctx context.Context, attemptID string, index int) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.JumpTo(index)
	})
}

func (s *ExamService) ReturnToExam(ctx context.Context, attemptID string) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, false, func(session *exam.Session, _ exam.Confirm) (domain.Outcome, error) {
		return session.ReturnToExam(), nil
	})
}

// Finish submits the attempt. confirm answers the unanswered-questions prompt.
func (s *ExamService) Finish(ctx context.Context, attemptID string, confirm bool) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.Finish(c)
	})
}

func (s *ExamService) ViewResults(ctx context.Context, attemptID string, confirm bool) (domain.TransitionResult, error) {
	return s.apply(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.ViewResults(c), nil
	})
}

// FinishWith and ViewResultsWith hand the confirmation decision to an
// interactive prompt instead of a precomputed answer.
func (s *ExamService) FinishWith(ctx context.Context, attemptID string, confirm exam.Confirm) (domain.TransitionResult, error) {
	return s.applyWith(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.Finish(c)
	})
}

func (s *ExamService) ViewResultsWith(ctx context.Context, attemptID string, confirm exam.Confirm) (domain.TransitionResult, error) {
	return s.applyWith(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.ViewResults(c), nil
	})
}

func (s *ExamService) NextWith(ctx context.Context, attemptID string, confirm exam.Confirm) (domain.TransitionResult, error) {
	return s.applyWith(ctx, attemptID, confirm, func(session *exam.Session, c exam.Confirm) (domain.Outcome, error) {
		return session.Next(c)
	})
}

// Restart replaces a finished attempt with a fresh one. The returned view
// carries the new attempt id; subscribers keep receiving updates. The fresh
// countdown only begins once the new id is bound.
func (s *ExamService) Restart(_ context.Context, attemptID string) (domain.TransitionResult, error) {
	attempt, ok := s.sessions.Get(attemptID)
	if !ok {
		return domain.TransitionResult{}, domain.ErrSessionNotFound
	}
	fresh, out := attempt.Session().Restart()
	if out != domain.OutcomeApplied {
		return domain.TransitionResult{Outcome: out, View: attempt.View()}, nil
	}

	attempt.bind(uuid.NewString(), fresh)
	s.sessions.Delete(attemptID)
	s.sessions.Put(attempt)
	fresh.Begin()
	s.log.Info().Str("attempt_id", attempt.ID()).Str("previous_id", attemptID).Msg("attempt restarted")
	return domain.TransitionResult{Outcome: out, View: attempt.View()}, nil
}

// Abandon stops the countdown and drops the attempt.
func (s *ExamService) Abandon(_ context.Context, attemptID string) {
	attempt, ok := s.sessions.Get(attemptID)
	if !ok {
		return
	}
	attempt.Session().Close()
	attempt.closeSubscribers()
	s.sessions.Delete(attemptID)
	s.log.Debug().Str("attempt_id", attemptID).Msg("attempt abandoned")
}

// Subscribe returns a channel that receives view updates for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) Subscribe(_ context.Context, attemptID string) (<-chan domain.SessionView, func(), error) {
	attempt, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := attempt.subscribe()
	return ch, cancel, nil
}

// History lists a user's finished attempts, newest first.
func (s *ExamService) History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx, userID, limit)
}

type transition func(session *exam.Session, confirm exam.Confirm) (domain.Outcome, error)

func (s *ExamService) apply(ctx context.Context, attemptID string, confirm bool, fn transition) (domain.TransitionResult, error) {
	return s.applyWith(ctx, attemptID, func(int) bool { return confirm }, fn)
}

func (s *ExamService) applyWith(ctx context.Context, attemptID string, confirm exam.Confirm, fn transition) (domain.TransitionResult, error) {
	attempt, ok := s.sessions.Get(attemptID)
	if !ok {
		return domain.TransitionResult{}, domain.ErrSessionNotFound
	}

	asked := 0
	port := func(unanswered int) bool {
		asked = unanswered
		return confirm != nil && confirm(unanswered)
	}
	out, err := fn(attempt.Session(), port)
	result := domain.TransitionResult{Outcome: out, Unanswered: asked, View: attempt.View()}
	if err != nil {
		return result, err
	}

	if out == domain.OutcomeApplied {
		switch result.View.Mode {
		case domain.ModeResults:
			s.recordOnce(ctx, attempt)
		case domain.ModeInProgress:
			// back in the exam: the next results screen is a new outcome
			attempt.unmarkRecorded()
		}
	}
	return result, nil
}

func (s *ExamService) recordOnce(ctx context.Context, attempt *Attempt) {
	if !attempt.markRecorded() {
		return
	}
	record := attempt.record()
	if err := s.attempts.RecordAttempt(ctx, record); err != nil {
		attempt.unmarkRecorded()
		s.log.Error().Err(err).Str("attempt_id", record.ID).Msg("record attempt failed")
		return
	}
	s.log.Info().
		Str("attempt_id", record.ID).
		Int("score", record.Score).
		Bool("timed_out", record.TimedOut).
		Msg("attempt recorded")
}
