package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cps-exam-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ExamLoader fetches exam content from a backing store (Postgres, static fixtures).
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ExamRepository caches exams with TTL to avoid repeated DB hits.
type ExamRepository struct {
	loader ExamLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedExam
}

type cachedExam struct {
	exam      domain.Exam
	expiresAt time.Time
}

func NewExamRepository(loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	if exam, ok := r.cached(examID); ok {
		return exam, nil
	}

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		if exam, ok := r.cached(examID); ok {
			return exam, nil
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		r.mu.Lock()
		r.cache[examID] = cachedExam{
			exam:      exam,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ExamRepository) cached(examID string) (domain.Exam, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[examID]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Exam{}, false
	}
	return entry.exam, true
}

// ttlWithJitterLocked adds up to 10% jitter to spread expirations. rand.Rand
// is not safe for concurrent use, so callers hold mu.
func (r *ExamRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticExamLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticExamLoader struct {
	exams map[string]domain.Exam
}

func NewStaticExamLoader(exams map[string]domain.Exam) *StaticExamLoader {
	return &StaticExamLoader{exams: exams}
}

func (l *StaticExamLoader) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	if exam, ok := l.exams[examID]; ok {
		return exam, nil
	}
	return domain.Exam{}, domain.ErrExamNotFound
}

// SampleExams is the built-in CPS practice set used when no database is configured.
func SampleExams() map[string]domain.Exam {
	return map[string]domain.Exam{
		"cps-practice": {
			ID:               "cps-practice",
			Title:            "CPS Practice Exam",
			Description:      "Mathematical, mechanical and problem sensitivity practice.",
			TimeLimitSeconds: 20 * 60,
			Questions: []domain.Question{
				{
					ID:                 "q1",
					Category:           "Mathematical Reasoning",
					Prompt:             "A firefighter is using a 1.75-inch handline that flows 150 GPM. If the friction loss is 30 PSI per 100 feet, what is the total friction loss for a 200-foot hose lay?",
					Options:            []string{"30 PSI", "45 PSI", "60 PSI", "90 PSI"},
					CorrectAnswerIndex: 2,
					Explanation:        "Friction loss is cumulative: 30 PSI per 100ft x 2 = 60 PSI.",
					Difficulty:         "easy",
				},
				{
					ID:                 "q2",
					Category:           "Mechanical Reasoning",
					Prompt:             "In a 3:1 mechanical advantage system, if a firefighter pulls 30 feet of rope, how far will the load move?",
					Options:            []string{"10 feet", "15 feet", "30 feet", "90 feet"},
					CorrectAnswerIndex: 0,
					Explanation:        "In a 3:1 system, the load moves one third of the rope pulled: 30ft / 3 = 10ft.",
					Difficulty:         "medium",
				},
				{
					ID:                 "q3",
					Category:           "Problem Sensitivity",
					Prompt:             "You are ventilating a roof and notice the decking feels 'spongy' under your feet. What is the most immediate danger?",
					Options:            []string{"Equipment failure", "Flashover", "Structural collapse", "Backdraft"},
					CorrectAnswerIndex: 2,
					Explanation:        "Spongy decking indicates compromised structural integrity and collapse risk.",
					Difficulty:         "medium",
				},
			},
		},
	}
}
