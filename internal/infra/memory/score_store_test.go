package memory

import (
	"context"
	"testing"
	"time"

	"trivia-progression-service/internal/domain"
)

func TestScoreStoreKeepsBestPerDay(t *testing.T) {
	ctx := context.Background()
	profiles := NewProgressionStore()
	store := NewScoreStore(profiles)

	day := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)
	put := func(score int, at time.Time) {
		if err := store.RecordScore(ctx, domain.ScoreEvent{
			UserID: "u1", QuizID: "daily", Score: score, CompletedAt: at,
		}); err != nil {
			t.Fatalf("record score: %v", err)
		}
	}
	put(60, day)
	put(90, day.Add(2*time.Hour)) // better retry wins
	put(70, day.Add(4*time.Hour)) // worse retry is ignored

	entries, err := store.LoadEntries(ctx, "daily", time.Time{}, "")
	if err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry per user, got %d", len(entries))
	}
	if entries[0].Score != 90 {
		t.Fatalf("expected best score 90, got %d", entries[0].Score)
	}
	if entries[0].DisplayName != "u1" {
		t.Fatalf("expected user id fallback name, got %q", entries[0].DisplayName)
	}
}

func TestScoreStoreFiltersWindow(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore(NewProgressionStore())

	old := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)
	_ = store.RecordScore(ctx, domain.ScoreEvent{UserID: "u1", QuizID: "daily", Score: 100, CompletedAt: old})
	_ = store.RecordScore(ctx, domain.ScoreEvent{UserID: "u2", QuizID: "daily", Score: 50, CompletedAt: recent})

	entries, err := store.LoadEntries(ctx, "daily", recent.AddDate(0, 0, -7), "")
	if err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u2" {
		t.Fatalf("expected only the recent completion, got %+v", entries)
	}

	all, err := store.LoadEntries(ctx, "daily", time.Time{}, "")
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all_time window must include both, got %+v", all)
	}
}

func TestScoreStoreUsesDisplayName(t *testing.T) {
	ctx := context.Background()
	profiles := NewProgressionStore()
	store := NewScoreStore(profiles)

	_ = profiles.Save(ctx, domain.UserProgression{UserID: "u1", DisplayName: "Alice"})
	_ = store.RecordScore(ctx, domain.ScoreEvent{UserID: "u1", QuizID: "daily", Score: 80, CompletedAt: time.Now()})

	entries, _ := store.LoadEntries(ctx, "daily", time.Time{}, "")
	if len(entries) != 1 || entries[0].DisplayName != "Alice" {
		t.Fatalf("expected display name from profile, got %+v", entries)
	}
}
