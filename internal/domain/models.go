package domain

import "time"

// DateLayout is the calendar-date format used everywhere a completion day is
// stored or compared. Streak decisions are calendar-day comparisons on this
// format, never elapsed-hours.
const DateLayout = "2006-01-02"

// QuizAttempt records the most recent completion of a single quiz id.
type QuizAttempt struct {
	LastCompleted string    `json:"lastCompleted"`
	Score         int       `json:"score"`
	CompletedAt   time.Time `json:"completedAt"`
}

// DailyCompletion is the per-user completion record covering all daily-quiz
// history. It is mutated only by the completion service, at most one streak
// advance per calendar day.
type DailyCompletion struct {
	UserID            string                 `json:"userId"`
	LastCompletedDate string                 `json:"lastCompletedDate,omitempty"`
	CurrentStreak     int                    `json:"currentStreak"`
	BestStreak        int                    `json:"bestStreak"`
	CompletedAt       time.Time              `json:"completedAt"`
	TotalCompleted    int                    `json:"totalCompleted"`
	QuizAttempts      map[string]QuizAttempt `json:"quizAttempts,omitempty"`
}

// CompletionResult is the caller-visible outcome of a status read or a
// completion submission.
type CompletionResult struct {
	HasCompleted      bool      `json:"hasCompleted"`
	CurrentStreak     int       `json:"currentStreak"`
	BestStreak        int       `json:"bestStreak"`
	LastCompletedDate string    `json:"lastCompletedDate,omitempty"`
	CompletedAt       time.Time `json:"completedAt,omitempty"`
}

// UserProgression is the long-lived XP/coin record. Level and XPToNextLevel
// are caches of a pure function of XP and are recomputed on every write.
type UserProgression struct {
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	XP            int64     `json:"xp"`
	Level         int64     `json:"level"`
	XPToNextLevel int64     `json:"xpToNextLevel"`
	Coins         int64     `json:"coins"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Period selects the time window a leaderboard is ranked over.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// ParsePeriod maps a query-string period to a Period, defaulting to all_time
// for the empty string.
func ParsePeriod(raw string) (Period, error) {
	switch raw {
	case "":
		return PeriodAllTime, nil
	case string(PeriodDaily), string(PeriodWeekly), string(PeriodMonthly), string(PeriodAllTime):
		return Period(raw), nil
	}
	return "", ErrInvalidPeriod
}

// Start returns the inclusive lower bound of the period window ending at now.
// The zero time means unbounded (all_time).
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case PeriodMonthly:
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// LeaderboardEntry is one ranked row within a (quiz, period, category) scope.
// Ranks are dense 1..N; ties on score break by earliest CompletedAt.
type LeaderboardEntry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	Rank        int       `json:"rank"`
	CompletedAt time.Time `json:"completedAt"`
}

// Leaderboard is the ordered scoreboard for one scope.
type Leaderboard struct {
	QuizID     string             `json:"quizId"`
	Period     Period             `json:"period"`
	CategoryID string             `json:"categoryId,omitempty"`
	Entries    []LeaderboardEntry `json:"entries"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// ScoreEvent feeds the leaderboard read model after a completion write.
type ScoreEvent struct {
	UserID      string
	QuizID      string
	CategoryID  string
	Score       int
	CompletedAt time.Time
}
