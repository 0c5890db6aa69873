package progression

import (
	"math"

	"trivia-progression-service/internal/domain"
)

// Defaults for the closed-form level curve and gain bounds.
const (
	DefaultXPPerLevel    int64 = 100
	DefaultMaxXPAmount   int64 = 10_000
	DefaultMaxCoinAmount int64 = 100_000
)

// Result describes the effect of applying an XP gain.
type Result struct {
	NewXP         int64 `json:"newXP"`
	NewLevel      int64 `json:"newLevel"`
	XPToNextLevel int64 `json:"xpToNextLevel"`
	LeveledUp     bool  `json:"leveledUp"`
	LevelsGained  int64 `json:"levelsGained"`
}

// Calculator converts XP totals into levels. It is pure and does no I/O; the
// level formula lives here and nowhere else so stored levels are always a
// cache of this function.
type Calculator struct {
	xpPerLevel int64
	maxXP      int64
	maxCoins   int64
}

func NewCalculator(xpPerLevel, maxXP, maxCoins int64) *Calculator {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	if maxXP <= 0 {
		maxXP = DefaultMaxXPAmount
	}
	if maxCoins <= 0 {
		maxCoins = DefaultMaxCoinAmount
	}
	return &Calculator{xpPerLevel: xpPerLevel, maxXP: maxXP, maxCoins: maxCoins}
}

func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultXPPerLevel, DefaultMaxXPAmount, DefaultMaxCoinAmount)
}

// Level returns the level for an XP total and the threshold of the next level:
// level = floor(sqrt(xp/xpPerLevel)) + 1, closed-form so it is O(1) on reads.
func (c *Calculator) Level(xp int64) (level, xpToNext int64) {
	if xp < 0 {
		xp = 0
	}
	level = int64(math.Sqrt(float64(xp)/float64(c.xpPerLevel))) + 1
	return level, level * c.xpPerLevel
}

// Apply computes the effect of adding gain to currentXP. The gain is validated
// before anything else so callers can fail fast with no partial state.
func (c *Calculator) Apply(currentXP, gain int64) (Result, error) {
	if err := c.ValidateXPGain(gain); err != nil {
		return Result{}, err
	}
	if currentXP < 0 {
		currentXP = 0
	}
	oldLevel, _ := c.Level(currentXP)
	newXP := currentXP + gain
	newLevel, xpToNext := c.Level(newXP)
	return Result{
		NewXP:         newXP,
		NewLevel:      newLevel,
		XPToNextLevel: xpToNext,
		LeveledUp:     newLevel > oldLevel,
		LevelsGained:  newLevel - oldLevel,
	}, nil
}

// ValidateXPGain enforces the [0, maxXP] bound on a single grant.
func (c *Calculator) ValidateXPGain(gain int64) error {
	if gain < 0 || gain > c.maxXP {
		return domain.ErrXPGainOutOfRange
	}
	return nil
}

// ValidateCoinGain enforces the [0, maxCoins] bound on a single grant.
func (c *Calculator) ValidateCoinGain(gain int64) error {
	if gain < 0 || gain > c.maxCoins {
		return domain.ErrCoinGainOutOfRange
	}
	return nil
}
