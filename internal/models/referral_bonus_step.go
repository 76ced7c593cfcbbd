package models

import "time"

// ReferralBonusStep is one row of the referrer bonus staircase: the Nth
// linked referral pays the points of step N. Counts beyond the highest
// step plateau at the last step's amount. The table is seeded from config
// and editable at runtime so the policy is data, not code.
type ReferralBonusStep struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	StepIndex int   `gorm:"uniqueIndex;not null"` // 1-based
	Points    int64 `gorm:"not null"`
}

func (ReferralBonusStep) TableName() string {
	return "referral_bonus_steps"
}
