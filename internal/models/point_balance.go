package models

import "time"

// PointBalance is the per-user balance row. CurrentPoints must always
// equal TotalEarned - TotalSpent and never goes below zero; both are
// enforced by the ledger service, which is the only writer.
type PointBalance struct {
	ID            uint `gorm:"primarykey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        uint  `gorm:"uniqueIndex;not null"`
	CurrentPoints int64 `gorm:"not null;default:0"`
	TotalEarned   int64 `gorm:"not null;default:0"`
	TotalSpent    int64 `gorm:"not null;default:0"`
	Version       int   `gorm:"not null;default:0"` // optimistic lock
}

func (PointBalance) TableName() string {
	return "point_balances"
}
