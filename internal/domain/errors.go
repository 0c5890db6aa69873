package domain

import "errors"

var (
	// ErrUnauthorized is returned when no authenticated user id is present.
	// It is never downgraded to an anonymous/zeroed record.
	ErrUnauthorized = errors.New("no authenticated user")
	// ErrQuizIDRequired is returned when a submission carries no quiz id.
	ErrQuizIDRequired = errors.New("quiz id is required")
	// ErrScoreOutOfRange is returned for scores outside [0, 100].
	ErrScoreOutOfRange = errors.New("score out of range")
	// ErrXPGainOutOfRange rejects negative or over-limit XP grants.
	ErrXPGainOutOfRange = errors.New("xp gain out of range")
	// ErrCoinGainOutOfRange rejects negative or over-limit coin grants.
	ErrCoinGainOutOfRange = errors.New("coin gain out of range")
	// ErrInvalidPeriod indicates an unknown leaderboard period string.
	ErrInvalidPeriod = errors.New("invalid leaderboard period")
	// ErrProfileNotFound means the progression record was never initialized,
	// which is distinct from a record at zero progress.
	ErrProfileNotFound = errors.New("progression profile not found")
	// ErrVersionConflict means a conditional write lost a race and the
	// read-decide-write sequence should be retried.
	ErrVersionConflict = errors.New("completion record version conflict")
	// ErrStoreUnavailable wraps failures of the backing record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
