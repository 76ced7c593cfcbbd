package models

import "time"

const (
	ChatSessionStatusActive = "active"
	ChatSessionStatusClosed = "closed"
)

// ChatSession is one AI prediction chat. Chat is pay-per-session: every
// new session debits again, so there is no ownership row, only the session
// itself and the ledger transaction that paid for it.
type ChatSession struct {
	ID        string `gorm:"primarykey;type:varchar(36)"` // uuid
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID        uint   `gorm:"index;not null"`
	Title         string `gorm:"type:varchar(255)"`
	Status        string `gorm:"type:varchar(20);not null;default:'active'"`
	PointsUsed    int64  `gorm:"not null;default:0"`
	TransactionID uint   `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
