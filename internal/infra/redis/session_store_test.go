package redis

import (
	"context"
	"testing"
	"time"

	"cps-exam-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	store.Put(app.NewAttempt("attempt-1", "cps-practice", "u1"))
	if !mr.Exists("exam:session:attempt-1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("attempt-1"); !ok {
		t.Fatalf("expected attempt in local map")
	}

	owner, ok, err := store.Owner(context.Background(), "attempt-1")
	if err != nil || !ok || owner != "u1" {
		t.Fatalf("owner = %q %v %v", owner, ok, err)
	}

	store.Delete("attempt-1")
	if mr.Exists("exam:session:attempt-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok, _ := store.Owner(context.Background(), "attempt-1"); ok {
		t.Fatalf("expected no owner after delete")
	}
}
