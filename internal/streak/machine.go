package streak

import (
	"time"

	"trivia-progression-service/internal/domain"
)

// State classifies a completion record against an evaluation date.
type State int

const (
	// Fresh means the user has never completed a daily quiz.
	Fresh State = iota
	// Active means the last completion was exactly yesterday.
	Active
	// Broken means the last completion was two or more days ago.
	Broken
	// DoneToday means the record already carries today's completion.
	DoneToday
)

// Classify decides the streak state for a record on the given calendar day.
// Comparison is calendar-date equality on domain.DateLayout: completing at
// 23:59 and again at 00:01 the next day continues the streak.
func Classify(rec *domain.DailyCompletion, today string) State {
	if rec == nil || rec.LastCompletedDate == "" {
		return Fresh
	}
	switch rec.LastCompletedDate {
	case today:
		return DoneToday
	case previousDay(today):
		return Active
	}
	return Broken
}

// Advance applies a completion event to a record. It returns the next record
// and whether the streak advanced. On a same-day repeat the streak fields are
// untouched and totalCompleted does not move, but the attempt for quizID is
// still recorded so distinct quiz ids attempted that day are all tracked.
func Advance(rec *domain.DailyCompletion, userID, quizID string, score int, today string, now time.Time) (domain.DailyCompletion, bool) {
	next := domain.DailyCompletion{UserID: userID}
	if rec != nil {
		next = *rec
		next.QuizAttempts = cloneAttempts(rec.QuizAttempts)
	}
	if next.QuizAttempts == nil {
		next.QuizAttempts = make(map[string]domain.QuizAttempt)
	}

	attempt := domain.QuizAttempt{LastCompleted: today, Score: score, CompletedAt: now}

	switch Classify(rec, today) {
	case DoneToday:
		next.QuizAttempts[quizID] = attempt
		return next, false
	case Active:
		next.CurrentStreak = rec.CurrentStreak + 1
	default: // Fresh or Broken
		next.CurrentStreak = 1
	}

	if next.CurrentStreak > next.BestStreak {
		next.BestStreak = next.CurrentStreak
	}
	next.LastCompletedDate = today
	next.CompletedAt = now
	next.TotalCompleted++
	next.QuizAttempts[quizID] = attempt
	return next, true
}

func previousDay(today string) string {
	t, err := time.Parse(domain.DateLayout, today)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(domain.DateLayout)
}

func cloneAttempts(in map[string]domain.QuizAttempt) map[string]domain.QuizAttempt {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.QuizAttempt, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
