package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"trivia-progression-service/internal/domain"
	"trivia-progression-service/internal/progression"
	"trivia-progression-service/internal/streak"
)

// CompletionStore persists the per-user daily completion record with
// optimistic concurrency. Get returns (nil, 0, nil) for a user who has never
// completed; Put with expectedVersion 0 creates the record and must fail with
// domain.ErrVersionConflict if another writer got there first.
type CompletionStore interface {
	Get(ctx context.Context, userID string) (*domain.DailyCompletion, int64, error)
	Put(ctx context.Context, userID string, rec domain.DailyCompletion, expectedVersion int64) error
}

// ProgressionStore persists the user XP/coin record.
type ProgressionStore interface {
	Get(ctx context.Context, userID string) (*domain.UserProgression, error)
	Save(ctx context.Context, p domain.UserProgression) error
}

// ScoreRecorder feeds completion scores into the leaderboard read model.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, ev domain.ScoreEvent) error
}

// LeaderboardInvalidator drops cached rankings after a completion write.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// Rewards are the per-completion grants applied once per calendar day.
type Rewards struct {
	XP    int64
	Coins int64
}

const (
	maxScore = 100
	// one bounded retry of the read-decide-write sequence on version conflict
	casAttempts = 2
)

// CompletionService glues the streak machine, the progression calculator and
// the record stores into one idempotent completion operation.
type CompletionService struct {
	completions CompletionStore
	profiles    ProgressionStore
	scores      ScoreRecorder
	invalidator LeaderboardInvalidator
	calc        *progression.Calculator
	rewards     Rewards
	now         func() time.Time
	log         *zap.SugaredLogger
}

func NewCompletionService(
	completions CompletionStore,
	profiles ProgressionStore,
	scores ScoreRecorder,
	invalidator LeaderboardInvalidator,
	calc *progression.Calculator,
	rewards Rewards,
	log *zap.SugaredLogger,
) *CompletionService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CompletionService{
		completions: completions,
		profiles:    profiles,
		scores:      scores,
		invalidator: invalidator,
		calc:        calc,
		rewards:     rewards,
		now:         time.Now,
		log:         log,
	}
}

// NewCompletionServiceWithClock is test-only for deterministic dates.
func NewCompletionServiceWithClock(
	completions CompletionStore,
	profiles ProgressionStore,
	scores ScoreRecorder,
	invalidator LeaderboardInvalidator,
	calc *progression.Calculator,
	rewards Rewards,
	log *zap.SugaredLogger,
	now func() time.Time,
) *CompletionService {
	s := NewCompletionService(completions, profiles, scores, invalidator, calc, rewards, log)
	s.now = now
	return s
}

// RecordCompletion applies a daily-quiz completion for the authenticated user.
// Calling it twice on the same calendar day returns the same result both times
// and advances the streak, totalCompleted and XP/coin grants exactly once.
func (s *CompletionService) RecordCompletion(ctx context.Context, userID, displayName, quizID string, score int) (domain.CompletionResult, error) {
	if userID == "" {
		return domain.CompletionResult{}, domain.ErrUnauthorized
	}
	if quizID == "" {
		return domain.CompletionResult{}, domain.ErrQuizIDRequired
	}
	if score < 0 || score > maxScore {
		return domain.CompletionResult{}, domain.ErrScoreOutOfRange
	}
	if err := s.calc.ValidateXPGain(s.rewards.XP); err != nil {
		return domain.CompletionResult{}, err
	}
	if err := s.calc.ValidateCoinGain(s.rewards.Coins); err != nil {
		return domain.CompletionResult{}, err
	}

	now := s.now()
	today := now.Format(domain.DateLayout)

	var (
		next     domain.DailyCompletion
		advanced bool
	)
	for attempt := 0; ; attempt++ {
		rec, version, err := s.completions.Get(ctx, userID)
		if err != nil {
			return domain.CompletionResult{}, err
		}
		next, advanced = streak.Advance(rec, userID, quizID, score, today, now)
		err = s.completions.Put(ctx, userID, next, version)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrVersionConflict) && attempt+1 < casAttempts {
			continue
		}
		return domain.CompletionResult{}, err
	}

	if advanced {
		if err := s.grantRewards(ctx, userID, displayName, now); err != nil {
			return domain.CompletionResult{}, err
		}
	}

	// The read model and cache are allowed to be briefly stale, so failures
	// here do not fail the completion.
	if err := s.scores.RecordScore(ctx, domain.ScoreEvent{
		UserID:      userID,
		QuizID:      quizID,
		Score:       score,
		CompletedAt: now,
	}); err != nil {
		s.log.Warnw("record leaderboard score", "userId", userID, "quizId", quizID, "err", err)
	}
	if err := s.invalidator.Invalidate(ctx, quizID); err != nil {
		s.log.Warnw("invalidate leaderboard", "quizId", quizID, "err", err)
	}

	return resultFromRecord(&next, today), nil
}

// Status reports the caller's current completion state for today. A user who
// has never completed gets a zeroed result, not an error.
func (s *CompletionService) Status(ctx context.Context, userID string) (domain.CompletionResult, error) {
	if userID == "" {
		return domain.CompletionResult{}, domain.ErrUnauthorized
	}
	rec, _, err := s.completions.Get(ctx, userID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	return resultFromRecord(rec, s.now().Format(domain.DateLayout)), nil
}

// Progression returns the caller's XP/coin record. A missing record surfaces
// as domain.ErrProfileNotFound, distinct from zero progress.
func (s *CompletionService) Progression(ctx context.Context, userID string) (domain.UserProgression, error) {
	if userID == "" {
		return domain.UserProgression{}, domain.ErrUnauthorized
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return domain.UserProgression{}, err
	}
	return *p, nil
}

func (s *CompletionService) grantRewards(ctx context.Context, userID, displayName string, now time.Time) error {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		profile = &domain.UserProgression{UserID: userID}
	} else if err != nil {
		return err
	}

	applied, err := s.calc.Apply(profile.XP, s.rewards.XP)
	if err != nil {
		return err
	}
	profile.XP = applied.NewXP
	profile.Level = applied.NewLevel
	profile.XPToNextLevel = applied.XPToNextLevel
	profile.Coins += s.rewards.Coins
	profile.UpdatedAt = now
	if displayName != "" {
		profile.DisplayName = displayName
	}
	if profile.DisplayName == "" {
		profile.DisplayName = userID
	}
	if applied.LeveledUp {
		s.log.Infow("level up", "userId", userID, "level", applied.NewLevel, "levelsGained", applied.LevelsGained)
	}
	return s.profiles.Save(ctx, *profile)
}

func resultFromRecord(rec *domain.DailyCompletion, today string) domain.CompletionResult {
	if rec == nil {
		return domain.CompletionResult{}
	}
	return domain.CompletionResult{
		HasCompleted:      rec.LastCompletedDate == today,
		CurrentStreak:     rec.CurrentStreak,
		BestStreak:        rec.BestStreak,
		LastCompletedDate: rec.LastCompletedDate,
		CompletedAt:       rec.CompletedAt,
	}
}
