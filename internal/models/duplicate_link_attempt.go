package models

import (
	"time"

	"gorm.io/datatypes"
)

// DuplicateLinkAttempt records every case of a LINE account being claimed
// by more than one internal user. Rows are never deleted; the claimant set
// is the raw material for fraud review.
type DuplicateLinkAttempt struct {
	ID         uint   `gorm:"primarykey"`
	LineUserID string `gorm:"uniqueIndex;type:varchar(64);not null"`

	// ClaimantIDs is the JSON array of distinct user ids that tried to
	// claim this LINE account, the legitimate holder included.
	ClaimantIDs       datatypes.JSON `gorm:"not null"`
	DistinctClaimants int            `gorm:"not null;default:0;index"`
	AttemptCount      int            `gorm:"not null;default:0"`

	FirstAttemptAt time.Time `gorm:"not null"`
	LastAttemptAt  time.Time `gorm:"not null"`
}

func (DuplicateLinkAttempt) TableName() string {
	return "duplicate_link_attempts"
}
