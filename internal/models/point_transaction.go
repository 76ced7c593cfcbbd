package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionTypeSignup           TransactionType = "signup"
	TransactionTypeDailyLogin       TransactionType = "daily_login"
	TransactionTypeLineLink         TransactionType = "line_link"
	TransactionTypeReferralReceived TransactionType = "referral_received"
	TransactionTypeReferralBonus    TransactionType = "referral_line_bonus"
	TransactionTypeChatCreate       TransactionType = "chat_create"
	TransactionTypeColumnAccess     TransactionType = "column_access"
	TransactionTypeRoomAccess       TransactionType = "room_access"
	TransactionTypeRefund           TransactionType = "refund"
	TransactionTypeAdminAdjustment  TransactionType = "admin_adjustment"
)

// PointTransaction is the append-only ledger log: one row per balance
// change, never updated or deleted. Corrections are new opposite-signed
// rows (type refund or admin_adjustment) referencing the original via
// RelatedEntityID.
type PointTransaction struct {
	ID              uint            `gorm:"primarykey"`
	CreatedAt       time.Time       `gorm:"precision:3;index"` // Millisecond precision
	UserID          uint            `gorm:"index;not null"`
	Amount          int64           `gorm:"not null"` // positive = earn, negative = spend
	BalanceAfter    int64           `gorm:"not null"`
	Type            TransactionType `gorm:"type:varchar(50);index;not null"`
	Reason          string          `gorm:"type:text"`
	RelatedEntityID string          `gorm:"type:varchar(64);index"` // resource id, relationship id or corrected transaction id
	RefundOfID      *uint           `gorm:"uniqueIndex"`            // set on refund rows; at most one refund per debit
	Operator        string          `gorm:"type:varchar(100)"`      // email or 'system'
	Hash            string          `gorm:"type:varchar(64);default:''"` // HMAC SHA256
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

// GenerateHash generates a tamper-proof hash for the transaction
func (t *PointTransaction) GenerateHash(secret string) string {
	data := fmt.Sprintf("%d|%d|%d|%d|%s|%s|%s|%s",
		t.UserID, t.CreatedAt.UnixNano(), t.Amount, t.BalanceAfter,
		t.Type, t.Reason, t.RelatedEntityID, t.Operator)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
