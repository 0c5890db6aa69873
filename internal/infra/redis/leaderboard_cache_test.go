package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"trivia-progression-service/internal/domain"
	"trivia-progression-service/internal/leaderboard"
)

func TestLeaderboardCacheSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewLeaderboardCache(newClient(mr), time.Minute)

	board := domain.Leaderboard{
		QuizID: "daily",
		Period: domain.PeriodDaily,
		Entries: []domain.LeaderboardEntry{
			{UserID: "u1", DisplayName: "Alice", Score: 90, Rank: 1},
		},
		UpdatedAt: time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC),
	}
	key := leaderboard.ScopeKey("daily", domain.PeriodDaily, "")
	if err := cache.Set(ctx, key, board); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("lb:daily:daily") {
		t.Fatalf("expected redis key to be set")
	}

	got, ok, err := cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Rank != 1 || got.Entries[0].DisplayName != "Alice" {
		t.Fatalf("unexpected cached board %+v", got)
	}

	weekly := board
	weekly.Period = domain.PeriodWeekly
	_ = cache.Set(ctx, leaderboard.ScopeKey("daily", domain.PeriodWeekly, ""), weekly)
	other := board
	other.QuizID = "bonus"
	_ = cache.Set(ctx, leaderboard.ScopeKey("bonus", domain.PeriodDaily, ""), other)

	if err := cache.DeleteScope(ctx, "daily"); err != nil {
		t.Fatalf("delete scope: %v", err)
	}
	if mr.Exists("lb:daily:daily") || mr.Exists("lb:daily:weekly") {
		t.Fatalf("expected daily scope keys removed")
	}
	if !mr.Exists("lb:bonus:daily") {
		t.Fatalf("other quiz scopes must survive")
	}

	if err := cache.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if mr.Exists("lb:bonus:daily") {
		t.Fatalf("expected all scopes removed")
	}
}

func TestLeaderboardCacheMissAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewLeaderboardCache(newClient(mr), time.Minute)

	key := leaderboard.ScopeKey("daily", domain.PeriodAllTime, "")
	if err := cache.Set(ctx, key, domain.Leaderboard{QuizID: "daily"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected expired entry to miss")
	}
}
