package memory

import (
	"context"
	"errors"
	"testing"

	"trivia-progression-service/internal/domain"
)

func TestCompletionStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewCompletionStore()

	rec, version, err := store.Get(ctx, "u1")
	if err != nil || rec != nil || version != 0 {
		t.Fatalf("expected absent record, got %+v v%d err=%v", rec, version, err)
	}

	first := domain.DailyCompletion{UserID: "u1", CurrentStreak: 1, BestStreak: 1, TotalCompleted: 1}
	if err := store.Put(ctx, "u1", first, 0); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, version, err = store.Get(ctx, "u1")
	if err != nil || rec == nil || version != 1 {
		t.Fatalf("expected v1 record, got %+v v%d err=%v", rec, version, err)
	}

	// Stale writer loses.
	if err := store.Put(ctx, "u1", first, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	// Fresh writer wins and bumps the version.
	second := *rec
	second.CurrentStreak = 2
	if err := store.Put(ctx, "u1", second, version); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, version, _ = store.Get(ctx, "u1")
	if rec.CurrentStreak != 2 || version != 2 {
		t.Fatalf("expected streak 2 at v2, got %+v v%d", rec, version)
	}
}

func TestCompletionStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := NewCompletionStore()

	rec := domain.DailyCompletion{
		UserID: "u1",
		QuizAttempts: map[string]domain.QuizAttempt{
			"daily": {LastCompleted: "2025-01-11", Score: 80},
		},
	}
	if err := store.Put(ctx, "u1", rec, 0); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, _, _ := store.Get(ctx, "u1")
	got.QuizAttempts["daily"] = domain.QuizAttempt{Score: 1}

	again, _, _ := store.Get(ctx, "u1")
	if again.QuizAttempts["daily"].Score != 80 {
		t.Fatalf("caller mutation leaked into the store: %+v", again.QuizAttempts)
	}
}
