package exam

import (
	"fmt"
	"sync"
	"time"

	"cps-exam-service/internal/domain"
)

// Confirm asks the user whether to submit with unanswered questions.
// A nil Confirm declines.
type Confirm func(unanswered int) bool

func (c Confirm) ask(unanswered int) bool {
	if c == nil {
		return false
	}
	return c(unanswered)
}

// EventKind tells observers what produced a view update.
type EventKind string

const (
	EventTransition EventKind = "transition"
	EventTick       EventKind = "tick"
	EventExpired    EventKind = "expired"
)

// Event is delivered to the session observer while the session lock is held,
// so observers must not call back into the session.
type Event struct {
	Kind EventKind
	View domain.SessionView
}

type settings struct {
	timeLimit int
	interval  time.Duration
	scheduler Scheduler
	observer  func(Event)
}

// Option configures a Session.
type Option func(*settings)

// WithTimeLimit sets the countdown budget in seconds. Zero or less keeps the default.
func WithTimeLimit(seconds int) Option {
	return func(s *settings) {
		if seconds > 0 {
			s.timeLimit = seconds
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithScheduler(scheduler Scheduler) Option {
	return func(s *settings) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

func WithObserver(fn func(Event)) Option {
	return func(s *settings) { s.observer = fn }
}

// Session is one timed exam attempt. All transitions are serialized on mu,
// countdown ticks included.
type Session struct {
	mu       sync.Mutex
	cfg      settings
	bank     Bank
	mode     domain.Mode
	position int
	pending  *int
	ledger   *Ledger
	flags    *FlagSet
	clock    Countdown

	stopTicks func()
	tickGen   uint64
	closed    bool
}

// New starts a session in progress at the first question with the full time budget.
func New(questions []domain.Question, opts ...Option) (*Session, error) {
	bank, err := NewBank(questions)
	if err != nil {
		return nil, err
	}
	cfg := settings{
		timeLimit: DefaultTimeLimit,
		interval:  DefaultTickInterval,
		scheduler: TickerScheduler{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := newSession(bank, cfg)
	s.Begin()
	return s, nil
}

func newSession(bank Bank, cfg settings) *Session {
	return &Session{
		cfg:    cfg,
		bank:   bank,
		mode:   domain.ModeInProgress,
		ledger: NewLedger(),
		flags:  NewFlagSet(),
		clock:  NewCountdown(cfg.timeLimit),
	}
}

// Begin starts the countdown. Calling it on a running session does nothing.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeLocked()
}

// Select sets the pending selection for the current question.
func (s *Session) Select(option int) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editableLocked() {
		return domain.OutcomeNoop, nil
	}
	q := s.bank.At(s.position)
	if option < 0 || option >= len(q.Options) {
		return domain.OutcomeNoop, outOfRange(option, q)
	}
	s.pending = &option
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

// Next commits the pending selection and advances. On the last question it
// behaves exactly like Finish.
func (s *Session) Next(confirm Confirm) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editableLocked() || s.pending == nil {
		return domain.OutcomeNoop, nil
	}
	if s.position == s.bank.Len()-1 {
		return s.finishLocked(confirm)
	}
	if _, err := s.ledger.Commit(s.bank.At(s.position), *s.pending); err != nil {
		return domain.OutcomeNoop, err
	}
	s.moveLocked(s.position + 1)
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

// Previous commits any pending selection and steps back one question.
func (s *Session) Previous() (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editableLocked() || s.position == 0 {
		return domain.OutcomeNoop, nil
	}
	if err := s.commitPendingLocked(); err != nil {
		return domain.OutcomeNoop, err
	}
	s.moveLocked(s.position - 1)
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

// ToggleFlag flips the review flag of the current question.
func (s *Session) ToggleFlag() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editableLocked() {
		return domain.OutcomeNoop
	}
	s.flags.Toggle(s.bank.At(s.position).ID)
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied
}

// EnterReview commits any pending selection and opens review at the first
// question. It is reachable from the exam (also after time is up) and from results.
func (s *Session) EnterReview() (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == domain.ModeReview {
		return domain.OutcomeNoop, nil
	}
	if err := s.commitPendingLocked(); err != nil {
		return domain.OutcomeNoop, err
	}
	s.mode = domain.ModeReview
	s.pauseLocked()
	s.moveLocked(0)
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

// JumpTo moves to question index while reviewing.
func (s *Session) JumpTo(index int) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= s.bank.Len() {
		return domain.OutcomeNoop, fmt.Errorf("%w: %d of %d", domain.ErrPositionOutOfRange, index, s.bank.Len())
	}
	if s.mode != domain.ModeReview {
		return domain.OutcomeNoop, nil
	}
	s.moveLocked(index)
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

// ReturnToExam leaves review for the question under review. Not possible once time is up.
func (s *Session) ReturnToExam() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != domain.ModeReview || s.clock.Expired() {
		return domain.OutcomeNoop
	}
	s.pending = s.committedOptionLocked(s.position)
	s.mode = domain.ModeInProgress
	s.resumeLocked()
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied
}

// Finish submits the exam. It needs a pending selection unless time is up,
// and asks confirm when questions remain unanswered and time is left.
func (s *Session) Finish(confirm Confirm) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != domain.ModeInProgress {
		return domain.OutcomeNoop, nil
	}
	return s.finishLocked(confirm)
}

// ViewResults closes review and shows results, with the same confirmation rule as Finish.
func (s *Session) ViewResults(confirm Confirm) domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != domain.ModeReview {
		return domain.OutcomeNoop
	}
	unanswered := s.bank.Len() - len(s.effectiveLocked())
	if !s.clock.Expired() && unanswered > 0 && !confirm.ask(unanswered) {
		return domain.OutcomeDeclined
	}
	s.mode = domain.ModeResults
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied
}

// Restart discards this session and returns a fresh one over the same
// questions and options. Only available once results are showing. The fresh
// session's countdown is not running until Begin is called.
func (s *Session) Restart() (*Session, domain.Outcome) {
	s.mu.Lock()
	if s.effectiveModeLocked() != domain.ModeResults {
		s.mu.Unlock()
		return nil, domain.OutcomeNoop
	}
	s.pauseLocked()
	s.closed = true
	bank, cfg := s.bank, s.cfg
	s.mu.Unlock()

	return newSession(bank, cfg), domain.OutcomeApplied
}

// Close stops the countdown for a session that is being discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
	s.closed = true
}

func (s *Session) finishLocked(confirm Confirm) (domain.Outcome, error) {
	expired := s.clock.Expired()
	if s.pending == nil && !expired {
		return domain.OutcomeNoop, nil
	}

	answered := s.ledger.Len()
	if s.pending != nil && !s.ledger.Has(s.bank.At(s.position).ID) {
		answered++
	}
	unanswered := s.bank.Len() - answered
	if unanswered > 0 && !expired && !confirm.ask(unanswered) {
		return domain.OutcomeDeclined, nil
	}

	if err := s.commitPendingLocked(); err != nil {
		return domain.OutcomeNoop, err
	}
	s.mode = domain.ModeResults
	s.pauseLocked()
	s.emitLocked(EventTransition)
	return domain.OutcomeApplied, nil
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.tickGen || s.mode != domain.ModeInProgress {
		return
	}
	if !s.clock.Tick() {
		return
	}
	kind := EventTick
	if s.clock.Expired() {
		s.pauseLocked()
		kind = EventExpired
	}
	s.emitLocked(kind)
}

func (s *Session) resumeLocked() {
	if s.closed || s.stopTicks != nil || s.mode != domain.ModeInProgress || s.clock.Expired() {
		return
	}
	s.tickGen++
	gen := s.tickGen
	s.stopTicks = s.cfg.scheduler.Every(s.cfg.interval, func() { s.tick(gen) })
}

func (s *Session) pauseLocked() {
	s.tickGen++
	if s.stopTicks != nil {
		s.stopTicks()
		s.stopTicks = nil
	}
}

func (s *Session) editableLocked() bool {
	return s.mode == domain.ModeInProgress && !s.clock.Expired()
}

func (s *Session) effectiveModeLocked() domain.Mode {
	if s.mode == domain.ModeInProgress && s.clock.Expired() {
		return domain.ModeResults
	}
	return s.mode
}

func (s *Session) commitPendingLocked() error {
	if s.pending == nil {
		return nil
	}
	_, err := s.ledger.Commit(s.bank.At(s.position), *s.pending)
	return err
}

// moveLocked changes position and reloads the pending selection from the ledger.
func (s *Session) moveLocked(index int) {
	s.position = index
	s.pending = s.committedOptionLocked(index)
}

func (s *Session) committedOptionLocked(index int) *int {
	a, ok := s.ledger.Get(s.bank.At(index).ID)
	if !ok {
		return nil
	}
	option := a.SelectedOptionIndex
	return &option
}

func (s *Session) effectiveLocked() map[string]domain.Answer {
	return EffectiveAnswers(s.ledger.Snapshot(), s.pending, s.bank.At(s.position), s.clock.Expired())
}

func (s *Session) emitLocked(kind EventKind) {
	if s.cfg.observer == nil {
		return
	}
	s.cfg.observer(Event{Kind: kind, View: s.viewLocked()})
}

func outOfRange(option int, q domain.Question) error {
	return fmt.Errorf("%w: %d for question %s", domain.ErrOptionOutOfRange, option, q.ID)
}
