package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func TestPayOnceGrantAndReplay(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("access1@example.com")
	_, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	grant, err := GrantAccess(u.ID, models.ResourceTypeColumn, "42", 3, PaymentPolicyPayOnce, "Column access")
	assert.NoError(t, err)
	assert.False(t, grant.AlreadyOwned)
	assert.Equal(t, int64(3), grant.PointsUsed)
	assert.NotZero(t, grant.TransactionID)
	assert.NotEmpty(t, grant.GrantToken)

	// The second access replays the stored grant without a charge.
	replay, err := GrantAccess(u.ID, models.ResourceTypeColumn, "42", 3, PaymentPolicyPayOnce, "Column access")
	assert.NoError(t, err)
	assert.True(t, replay.AlreadyOwned)
	assert.Equal(t, grant.GrantToken, replay.GrantToken)
	assert.Equal(t, grant.TransactionID, replay.TransactionID)

	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), balance.CurrentPoints)

	owned, err := HasGrant(u.ID, models.ResourceTypeColumn, "42")
	assert.NoError(t, err)
	assert.True(t, owned)
}

func TestPayOnceConcurrentSingleDebit(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("access2@example.com")
	_, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	grants := make([]*AccessGrant, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			grants[i], errs[i] = GrantAccess(u.ID, models.ResourceTypeRoom, "7", 5, PaymentPolicyPayOnce, "Room membership")
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		assert.NoError(t, errs[i])
		assert.NotNil(t, grants[i])
	}

	// Exactly one debit regardless of interleaving.
	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), balance.CurrentPoints)

	var grantRows int64
	database.DB.Model(&models.ResourceGrant{}).
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", u.ID, models.ResourceTypeRoom, "7").
		Count(&grantRows)
	assert.Equal(t, int64(1), grantRows)

	var debits int64
	database.DB.Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", u.ID, models.TransactionTypeRoomAccess).
		Count(&debits)
	assert.Equal(t, int64(1), debits)
}

func TestPerUseChargesEveryAccess(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("access3@example.com")
	_, err := GrantPoints(u.ID, 5, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	first, err := GrantAccess(u.ID, models.ResourceTypeChat, "s-1", 1, PaymentPolicyPerUse, "AI chat session")
	assert.NoError(t, err)
	second, err := GrantAccess(u.ID, models.ResourceTypeChat, "s-2", 1, PaymentPolicyPerUse, "AI chat session")
	assert.NoError(t, err)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), balance.CurrentPoints)
}

func TestFreeAccessNeverTouchesLedger(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("access4@example.com")

	perUse, err := GrantAccess(u.ID, models.ResourceTypeChat, "s-free", 0, PaymentPolicyPerUse, "free chat")
	assert.NoError(t, err)
	assert.Zero(t, perUse.TransactionID)

	payOnce, err := GrantAccess(u.ID, models.ResourceTypeColumn, "9", 0, PaymentPolicyPayOnce, "free column")
	assert.NoError(t, err)
	assert.Zero(t, payOnce.TransactionID)

	var rows int64
	database.DB.Model(&models.PointTransaction{}).Where("user_id = ?", u.ID).Count(&rows)
	assert.Equal(t, int64(0), rows)
}

func TestInsufficientPointsBlocksAccess(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("access5@example.com")
	_, err := GrantPoints(u.ID, 2, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	_, err = GrantAccess(u.ID, models.ResourceTypeColumn, "11", 5, PaymentPolicyPayOnce, "Column access")
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	// No partial effects: no grant row, no debit.
	owned, err := HasGrant(u.ID, models.ResourceTypeColumn, "11")
	assert.NoError(t, err)
	assert.False(t, owned)

	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), balance.CurrentPoints)
}

func TestRefundAccess(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("refund1@example.com")
	grantTx, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	debit, err := UsePoints(u.ID, 4, models.TransactionTypeChatCreate, "AI chat session", "s-1", "user")
	assert.NoError(t, err)

	refund, err := RefundAccess(debit.ID, "Session creation failed", "system")
	assert.NoError(t, err)
	assert.Equal(t, int64(4), refund.Amount)
	assert.Equal(t, models.TransactionTypeRefund, refund.Type)

	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), balance.CurrentPoints)

	// A debit refunds at most once.
	_, err = RefundAccess(debit.ID, "again", "system")
	assert.ErrorIs(t, err, ErrAlreadyRefunded)

	// Credits are not refundable.
	_, err = RefundAccess(grantTx.ID, "nope", "system")
	assert.ErrorIs(t, err, ErrRefundNotAllowed)

	// Unknown transactions are reported as such.
	_, err = RefundAccess(99999, "missing", "system")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRefundAtMostOncePerDebit(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("refund2@example.com")
	_, err := GrantPoints(u.ID, 10, models.TransactionTypeSignup, "Signup bonus", "", "system")
	assert.NoError(t, err)

	debit, err := UsePoints(u.ID, 4, models.TransactionTypeChatCreate, "AI chat session", "s-2", "user")
	assert.NoError(t, err)

	refund, err := RefundAccess(debit.ID, "Session creation failed", "system")
	assert.NoError(t, err)
	assert.NotNil(t, refund.RefundOfID)
	assert.Equal(t, debit.ID, *refund.RefundOfID)

	// The unique index on refund_of_id is the arbiter of last resort: even
	// a write that bypasses the service's prior-refund check cannot insert
	// a second refund row for the same debit.
	dup := models.PointTransaction{
		UserID:       u.ID,
		Amount:       4,
		BalanceAfter: 14,
		Type:         models.TransactionTypeRefund,
		Reason:       "Refund of transaction",
		RefundOfID:   &debit.ID,
		Operator:     "system",
	}
	err = database.DB.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var refundRows int64
	database.DB.Model(&models.PointTransaction{}).
		Where("refund_of_id = ?", debit.ID).Count(&refundRows)
	assert.Equal(t, int64(1), refundRows)
}
