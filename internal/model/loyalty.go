package model

import "time"

// Loyalty tier thresholds and multipliers.  The level is derived from
// lifetime earned points and never decreases: crossing a threshold takes
// effect on the NEXT accrual, not the one that crossed it.
const (
	LoyaltyLevel2Threshold = 1000 // lifetime points > 1000 -> level 2
	LoyaltyLevel3Threshold = 5000 // lifetime points > 5000 -> level 3
)

// PointsPerCurrencyUnit fixes the redemption rate: 100 points convert to
// one unit of wallet currency.  With balances kept in cents this makes
// one point worth exactly one cent.
const PointsPerCurrencyUnit = 100

// LoyaltyAccount tracks a tourist's spendable and lifetime points.  One
// row per tourist, provisioned by the external user service at account
// creation; accrual fails if the row is absent rather than creating it.
//
// Fields:
//
//	ID                – primary key identifier.
//	TouristID         – owner (unique).
//	Points            – spendable points.
//	TotalPointsEarned – lifetime earned points, never decremented.
//	Level             – 1, 2 or 3; monotonically derived from lifetime points.
//	UpdatedAt         – timestamp of last change.
type LoyaltyAccount struct {
	ID                uint64    // loyalty_accounts.id
	TouristID         uint64    // loyalty_accounts.tourist_id
	Points            int64     // loyalty_accounts.points
	TotalPointsEarned int64     // loyalty_accounts.total_points_earned
	Level             uint8     // loyalty_accounts.level
	UpdatedAt         time.Time // loyalty_accounts.updated_at
}

// AccrualMultiplier returns the points-per-cent multiplier for a tier
// level.  Unknown levels fall back to the level-1 rate.
func AccrualMultiplier(level uint8) float64 {
	switch level {
	case 2:
		return 1.0
	case 3:
		return 1.5
	default:
		return 0.5
	}
}

// LevelForLifetime derives the tier level from lifetime earned points.
// Thresholds are strict: exactly 1000 lifetime points is still level 1.
func LevelForLifetime(lifetime int64) uint8 {
	switch {
	case lifetime > LoyaltyLevel3Threshold:
		return 3
	case lifetime > LoyaltyLevel2Threshold:
		return 2
	default:
		return 1
	}
}
