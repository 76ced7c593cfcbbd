package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateHash(t *testing.T) {
	tx := PointTransaction{
		UserID:       1,
		CreatedAt:    time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Amount:       -5,
		BalanceAfter: 45,
		Type:         TransactionTypeChatCreate,
		Reason:       "AI chat session",
		Operator:     "system",
	}

	h1 := tx.GenerateHash("secret")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, tx.GenerateHash("secret"))

	// Different secret or tampered row produces a different hash
	assert.NotEqual(t, h1, tx.GenerateHash("other"))
	tampered := tx
	tampered.Amount = -1
	assert.NotEqual(t, h1, tampered.GenerateHash("secret"))
}
