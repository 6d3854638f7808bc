package redis

import (
	"context"
	"testing"
	"time"

	"cps-exam-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestAttemptStoreKeepsNewestFirst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewAttemptStore(newClient(mr), 2)
	ctx := context.Background()
	done := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, score := range []int{33, 67, 100} {
		err := store.RecordAttempt(ctx, domain.Attempt{
			ID:          string(rune('a' + i)),
			UserID:      "u1",
			Score:       score,
			Answers:     []domain.Answer{{QuestionID: "q1", SelectedOptionIndex: 2, IsCorrect: true}},
			CompletedAt: done,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := store.ListAttempts(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected history trimmed to 2, got %d", len(list))
	}
	if list[0].Score != 100 || list[1].Score != 67 {
		t.Fatalf("unexpected order %+v", list)
	}
	if !list[0].CompletedAt.Equal(done) || len(list[0].Answers) != 1 {
		t.Fatalf("attempt not decoded: %+v", list[0])
	}

	one, err := store.ListAttempts(ctx, "u1", 1)
	if err != nil || len(one) != 1 {
		t.Fatalf("limit 1: %v %d", err, len(one))
	}

	none, err := store.ListAttempts(ctx, "nobody", 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty history, got %v %d", err, len(none))
	}
}

func TestAttemptStoreReplacesResubmittedAttempt(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewAttemptStore(newClient(mr), 5)
	ctx := context.Background()
	for _, a := range []domain.Attempt{
		{ID: "a", UserID: "u1", Score: 0},
		{ID: "b", UserID: "u1", Score: 67},
		{ID: "a", UserID: "u1", Score: 33},
	} {
		if err := store.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := store.ListAttempts(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[0].Score != 33 || list[1].ID != "b" {
		t.Fatalf("expected resubmitted attempt replaced, got %+v", list)
	}
}
