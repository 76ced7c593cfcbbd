package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func TestVerifyLedgerCleanState(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("audit1@example.com")
	_, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)
	_, err = UsePoints(u.ID, 3, models.TransactionTypeChatCreate, "AI chat session", "", "user")
	assert.NoError(t, err)

	drifts, err := VerifyLedger()
	assert.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestVerifyLedgerFlagsDrift(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("audit2@example.com")
	_, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	// Corrupt the cached balance behind the ledger's back.
	assert.NoError(t, database.DB.Model(&models.PointBalance{}).
		Where("user_id = ?", u.ID).
		Update("current_points", 999).Error)

	drifts, err := VerifyLedger()
	assert.NoError(t, err)
	assert.Len(t, drifts, 1)
	assert.Equal(t, u.ID, drifts[0].UserID)
	assert.Equal(t, int64(999), drifts[0].CurrentPoints)
	assert.Equal(t, int64(10), drifts[0].ComputedPoints)

	// The audit reports, it does not repair.
	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(999), balance.CurrentPoints)
}

func TestRebuildReferralCounters(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("audit3@example.com")
	friend := createTestUser("audit3-friend@example.com")

	_, err := ApplyReferralCode(friend.ID, referrer.ReferralCode)
	assert.NoError(t, err)
	_, err = ConfirmLineLink(friend.ID, "line-audit-1")
	assert.NoError(t, err)

	// Corrupt the display counter; the relationship rows stay truthful.
	assert.NoError(t, database.DB.Model(&models.User{}).
		Where("id = ?", referrer.ID).
		Update("line_connected_referral_count", 5).Error)

	corrected, err := RebuildReferralCounters()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), corrected)

	var updated models.User
	assert.NoError(t, database.DB.First(&updated, referrer.ID).Error)
	assert.Equal(t, 1, updated.LineConnectedReferralCount)

	// A second pass finds nothing to fix.
	corrected, err = RebuildReferralCounters()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), corrected)
}
