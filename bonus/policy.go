package bonus

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

type Achievement string

const (
	AchievementMarketingNinja Achievement = "marketing_ninja" // all tasks on time
	AchievementStrategyMaster Achievement = "strategy_master" // all tasks >= 7 days early
)

func (a Achievement) Title() string {
	switch a {
	case AchievementMarketingNinja:
		return "Marketing Ninja"
	case AchievementStrategyMaster:
		return "Strategy Master"
	}
	return string(a)
}

// Achievements lists what the verdict earned, on-time first.
func Achievements(v Verdict) []Achievement {
	var earned []Achievement
	if v.IsOnTimeBonus {
		earned = append(earned, AchievementMarketingNinja)
	}
	if v.IsEarlyBonus {
		earned = append(earned, AchievementStrategyMaster)
	}
	return earned
}

// =============================================================================
// AMOUNTS
// =============================================================================

var (
	OnTimeBonus = decimal.NewFromInt(10)
	EarlyBonus  = decimal.NewFromInt(20)
)

// Amounts maps a verdict to the bonus owed for each achievement.
// The two bonuses stack.
func Amounts(v Verdict) (onTime, early decimal.Decimal) {
	onTime, early = decimal.Zero, decimal.Zero
	if v.IsOnTimeBonus {
		onTime = OnTimeBonus
	}
	if v.IsEarlyBonus {
		early = EarlyBonus
	}
	return onTime, early
}
