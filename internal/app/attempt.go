package app

import (
	"sync"
	"time"

	"cps-exam-service/internal/domain"
	"cps-exam-service/internal/exam"
)

// Attempt is one user's live exam session plus the subscribers watching it.
type Attempt struct {
	examID    string
	userID    string
	benchmark Benchmark
	now       func() time.Time

	mu          sync.RWMutex
	id          string
	session     *exam.Session
	startedAt   time.Time
	recorded    bool
	latest      domain.SessionView
	subscribers map[chan domain.SessionView]struct{}
}

// NewAttempt is exported for infrastructure layers that need to seed attempts.
// The attempt has no session until the service binds one.
func NewAttempt(id, examID, userID string) *Attempt {
	return newAttempt(id, examID, userID, Benchmark{Threshold: DefaultPassThreshold}, time.Now)
}

func newAttempt(id, examID, userID string, benchmark Benchmark, now func() time.Time) *Attempt {
	return &Attempt{
		id:          id,
		examID:      examID,
		userID:      userID,
		benchmark:   benchmark,
		now:         now,
		startedAt:   now(),
		subscribers: make(map[chan domain.SessionView]struct{}),
	}
}

func (a *Attempt) ID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *Attempt) ExamID() string { return a.examID }
func (a *Attempt) UserID() string { return a.userID }

// Session returns the exam session currently owned by the attempt.
func (a *Attempt) Session() *exam.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// bind attaches a session. Restarts rebind a fresh session under a new id.
// Never call with a.mu held: the session view is read first.
func (a *Attempt) bind(id string, session *exam.Session) {
	view := session.View()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = id
	a.session = session
	a.startedAt = a.now()
	a.recorded = false
	a.broadcastLocked(a.decorateLocked(view))
}

// observe receives session events. It runs under the session lock and only
// touches attempt state.
func (a *Attempt) observe(e exam.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcastLocked(a.decorateLocked(e.View))
}

func (a *Attempt) View() domain.SessionView {
	view := a.Session().View()
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.decorateLocked(view)
}

func (a *Attempt) decorateLocked(view domain.SessionView) domain.SessionView {
	view.AttemptID = a.id
	if view.Mode == domain.ModeResults {
		view.Verdict = a.benchmark.Verdict(view.Score)
	}
	return view
}

// markRecorded reports whether the caller should record the attempt.
func (a *Attempt) markRecorded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recorded {
		return false
	}
	a.recorded = true
	return true
}

func (a *Attempt) unmarkRecorded() {
	a.mu.Lock()
	a.recorded = false
	a.mu.Unlock()
}

// record builds the history entry from the effective answers.
func (a *Attempt) record() domain.Attempt {
	session := a.Session()
	effective := session.EffectiveAnswers()
	answers := make([]domain.Answer, 0, len(effective))
	for _, q := range session.Questions() {
		if ans, ok := effective[q.ID]; ok {
			answers = append(answers, ans)
		}
	}

	score, remaining, expired := session.Score(), session.Remaining(), session.Expired()

	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.Attempt{
		ID:            a.id,
		ExamID:        a.examID,
		UserID:        a.userID,
		Score:         score,
		Answers:       answers,
		TimeRemaining: remaining,
		TimedOut:      expired,
		StartedAt:     a.startedAt,
		CompletedAt:   a.now(),
	}
}

func (a *Attempt) subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	ch <- a.latest
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) closeSubscribers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) broadcastLocked(view domain.SessionView) {
	a.latest = view
	for ch := range a.subscribers {
		select {
		case ch <- view:
		default:
			// drop the oldest view so a slow reader never blocks the session
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
