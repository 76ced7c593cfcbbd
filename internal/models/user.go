package models

import "time"

type User struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Role      string `gorm:"not null;default:'user'"`

	// LINE identity. Unique when present; binding is guarded by the
	// duplicate-link check before this column is ever written.
	LineUserID      *string `gorm:"uniqueIndex;type:varchar(64)"`
	LineConnectedAt *time.Time

	// Referral fields. ReferredBy is immutable once set.
	ReferralCode         string `gorm:"uniqueIndex;type:varchar(6);not null"`
	ReferredBy           *uint  `gorm:"index"`
	ReferralBonusGranted bool   `gorm:"not null;default:false"`

	// Cached counters, rebuildable from referral_relationships rows.
	// TotalReferralCount includes cancelled relationships;
	// LineConnectedReferralCount is the bonus-eligible counter.
	TotalReferralCount         int `gorm:"not null;default:0"`
	LineConnectedReferralCount int `gorm:"not null;default:0"`

	LastLoginAt *time.Time

	Version int `gorm:"default:1"`
}

const referralCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode derives a 6-character code from an email address.
// Same algorithm as the frontend so codes can be shown before signup completes.
func GenerateReferralCode(email string) string {
	var hash int64
	for i := 0; i < len(email); i++ {
		hash = (hash << 5) - hash + int64(email[i])
		hash = hash & 0x7FFFFFFF // keep it a 32bit integer
	}
	if hash < 0 {
		hash = -hash
	}

	code := make([]byte, 6)
	for i := range code {
		code[i] = referralCodeChars[hash%int64(len(referralCodeChars))]
		hash = hash / int64(len(referralCodeChars))
	}
	return string(code)
}
