package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/infra/memory"
	"cps-exam-service/internal/testutil"
	"github.com/rs/zerolog"
)

func newPracticeService(t *testing.T) (*app.ExamService, *testutil.ManualScheduler) {
	t.Helper()
	sched := &testutil.ManualScheduler{}
	service := app.NewExamService(
		memory.NewSessionStore(),
		memory.NewExamRepository(memory.NewStaticExamLoader(memory.SampleExams()), time.Minute),
		memory.NewAttemptStore(),
		app.Options{Scheduler: sched, Logger: zerolog.Nop()},
	)
	return service, sched
}

func TestPracticeSubmitWithConfirmation(t *testing.T) {
	service, _ := newPracticeService(t)
	var out bytes.Buffer
	script := strings.Join([]string{
		"3", // q1: 60 PSI
		"n",
		"s", // nothing selected yet
		"2", // q2: wrong
		"s",
		"n", // decline the prompt
		"s",
		"y",
		"q",
	}, "\n") + "\n"

	err := newPractice(service, strings.NewReader(script), &out).run(context.Background(), "cps-practice", "u1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Question 1/3  20:00 left",
		"Nothing to do.",
		"1 question(s) unanswered. Submit anyway? [y/N]",
		"Submission cancelled.",
		"Score: 33%  Below benchmark",
		"bye",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	history, err := service.History(context.Background(), "u1", 0)
	if err != nil || len(history) != 1 || history[0].Score != 33 {
		t.Fatalf("expected one recorded attempt with 33, got %+v %v", history, err)
	}
}

func TestPracticeReviewAndErrors(t *testing.T) {
	service, _ := newPracticeService(t)
	var out bytes.Buffer
	script := "zzz\n3\nf\nr\nj 9\nj 1\n"

	err := newPractice(service, strings.NewReader(script), &out).run(context.Background(), "cps-practice", "u1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		practiceHelp,
		"(flagged)",
		"REVIEW  Question 1/3",
		"error: question index out of range",
		"> 3) 60 PSI  (correct)",
		"Friction loss is cumulative",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPracticeTimeUp(t *testing.T) {
	service, sched := newPracticeService(t)
	in, feed := newLineFeed()
	var out syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- newPractice(service, in, &out).run(context.Background(), "cps-practice", "u1")
	}()

	feed("3")
	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, sched.Active, "countdown not started")
	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, func() bool {
		return strings.Contains(out.String(), "> 3) 60 PSI")
	}, "selection not rendered")
	sched.Fire(1200)
	feed("n")
	feed("q")

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Time is up.") || !strings.Contains(got, "Score: 33%") {
		t.Fatalf("expected expired results:\n%s", got)
	}
}

// newLineFeed returns a reader fed one line at a time by the test.
func newLineFeed() (io.Reader, func(string)) {
	r, w := io.Pipe()
	return r, func(line string) {
		_, _ = io.WriteString(w, line+"\n")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
