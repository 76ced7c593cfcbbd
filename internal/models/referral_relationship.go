package models

import "time"

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusLinked    ReferralStatus = "line_connected"
	ReferralStatusExpired   ReferralStatus = "expired"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// The lifecycle only moves forward: pending -> line_connected,
// pending -> expired, and pending/line_connected -> cancelled.
var validReferralTransitions = map[ReferralStatus][]ReferralStatus{
	ReferralStatusPending: {ReferralStatusLinked, ReferralStatusExpired, ReferralStatusCancelled},
	ReferralStatusLinked:  {ReferralStatusCancelled},
}

func (s ReferralStatus) CanTransitionTo(target ReferralStatus) bool {
	for _, allowed := range validReferralTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReferralRelationship is one referrer -> referred pair, created at signup
// when a referral code is presented. The referrer bonus fires at most once
// per relationship; BonusTransactionID records which ledger row paid it.
type ReferralRelationship struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ReferrerID   uint           `gorm:"not null;uniqueIndex:idx_referral_pair;index"`
	ReferredID   uint           `gorm:"not null;uniqueIndex:idx_referral_pair"`
	ReferralCode string         `gorm:"type:varchar(6);not null"`
	Status       ReferralStatus `gorm:"type:varchar(20);index;not null;default:'pending'"`

	LineConnectedAt    *time.Time
	BonusTransactionID *uint
	BonusPoints        int64 `gorm:"not null;default:0"`
}

func (ReferralRelationship) TableName() string {
	return "referral_relationships"
}
