package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func seedBonusSteps(t *testing.T) {
	t.Helper()
	assert.NoError(t, SeedReferralBonusSteps([]int64{30, 40, 50, 60, 100}))
}

func TestApplyReferralCode(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("referrer@example.com")
	referred := createTestUser("referred@example.com")

	rel, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, rel.Status)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
	assert.Equal(t, referred.ID, rel.ReferredID)

	// Welcome bonus goes to the referred user at apply time.
	balance, err := GetOrCreateBalance(referred.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), balance.CurrentPoints)

	// The referrer earns nothing until the LINE link confirms.
	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), referrerBalance.CurrentPoints)

	var updated models.User
	assert.NoError(t, database.DB.First(&updated, referrer.ID).Error)
	assert.Equal(t, 1, updated.TotalReferralCount)
	assert.Equal(t, 0, updated.LineConnectedReferralCount)
}

func TestApplyReferralCodeRejections(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	referrer := createTestUser("referrer2@example.com")
	referred := createTestUser("referred2@example.com")

	_, err := ApplyReferralCode(referred.ID, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = ApplyReferralCode(referrer.ID, referrer.ReferralCode)
	assert.ErrorIs(t, err, ErrSelfReferral)

	_, err = ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	other := createTestUser("referrer3@example.com")
	_, err = ApplyReferralCode(referred.ID, other.ReferralCode)
	assert.ErrorIs(t, err, ErrAlreadyReferred)
}

func TestConfirmLineLinkPaysBonuses(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("staircase@example.com")
	referred := createTestUser("staircase-friend@example.com")

	_, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	result, err := ConfirmLineLink(referred.ID, "line-friend-1")
	assert.NoError(t, err)
	assert.False(t, result.AlreadyLinked)
	assert.Equal(t, int64(18), result.LinkBonus)
	assert.Equal(t, referrer.ID, result.ReferrerID)
	assert.Equal(t, int64(30), result.ReferrerBonus)
	assert.Equal(t, int64(1), result.LinkedCount)
	assert.Equal(t, models.ReferralStatusLinked, result.Relationship.Status)
	assert.NotNil(t, result.Relationship.BonusTransactionID)

	// Referred user: 10 welcome + 18 link bonus.
	referredBalance, err := GetOrCreateBalance(referred.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(28), referredBalance.CurrentPoints)

	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), referrerBalance.CurrentPoints)
}

func TestReferralBonusStaircase(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("scale@example.com")

	// The staircase pays 30/40/50/60/100 and plateaus at the last step.
	expected := []int64{30, 40, 50, 60, 100, 100, 100}
	for i, want := range expected {
		friend := createTestUser(fmt.Sprintf("scale-friend-%d@example.com", i))
		_, err := ApplyReferralCode(friend.ID, referrer.ReferralCode)
		assert.NoError(t, err)

		result, err := ConfirmLineLink(friend.ID, fmt.Sprintf("line-scale-%d", i))
		assert.NoError(t, err)
		assert.Equal(t, want, result.ReferrerBonus, "referral #%d", i+1)
		assert.Equal(t, int64(i+1), result.LinkedCount)
	}

	var total int64
	for _, b := range expected {
		total += b
	}
	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, total, referrerBalance.CurrentPoints)

	var updated models.User
	assert.NoError(t, database.DB.First(&updated, referrer.ID).Error)
	assert.Equal(t, len(expected), updated.LineConnectedReferralCount)
}

func TestConfirmLineLinkIdempotent(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("idem-referrer@example.com")
	referred := createTestUser("idem-referred@example.com")

	_, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	first, err := ConfirmLineLink(referred.ID, "line-idem-1")
	assert.NoError(t, err)
	assert.False(t, first.AlreadyLinked)

	// The replayed callback reports the prior outcome, credits nothing.
	second, err := ConfirmLineLink(referred.ID, "line-idem-1")
	assert.NoError(t, err)
	assert.True(t, second.AlreadyLinked)
	assert.Equal(t, first.ReferrerBonus, second.ReferrerBonus)

	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), referrerBalance.CurrentPoints)

	var bonusRows int64
	database.DB.Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", referrer.ID, models.TransactionTypeReferralBonus).
		Count(&bonusRows)
	assert.Equal(t, int64(1), bonusRows)

	// A different LINE account for an already-linked user is rejected.
	_, err = ConfirmLineLink(referred.ID, "line-idem-2")
	assert.ErrorIs(t, err, ErrLineAlreadyLinked)
}

func TestConfirmLineLinkDuplicateAccount(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	holder := createTestUser("holder@example.com")
	claimant := createTestUser("claimant@example.com")

	_, err := ConfirmLineLink(holder.ID, "line-contested")
	assert.NoError(t, err)

	_, err = ConfirmLineLink(claimant.ID, "line-contested")
	assert.ErrorIs(t, err, ErrDuplicateLineAccount)

	// The claimant earned nothing and the holder keeps the binding.
	claimantBalance, err := GetOrCreateBalance(claimant.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), claimantBalance.CurrentPoints)

	var holderUser models.User
	assert.NoError(t, database.DB.First(&holderUser, holder.ID).Error)
	assert.NotNil(t, holderUser.LineUserID)
	assert.Equal(t, "line-contested", *holderUser.LineUserID)

	// The attempt is on record with both claimants.
	suspicious, err := SuspiciousLineAccounts(2)
	assert.NoError(t, err)
	assert.Len(t, suspicious, 1)
	assert.Equal(t, "line-contested", suspicious[0].LineUserID)
	assert.Equal(t, 2, suspicious[0].DistinctClaimants)

	// A second try from the same claimant bumps the attempt counter only.
	_, err = ConfirmLineLink(claimant.ID, "line-contested")
	assert.ErrorIs(t, err, ErrDuplicateLineAccount)

	suspicious, err = SuspiciousLineAccounts(2)
	assert.NoError(t, err)
	assert.Len(t, suspicious, 1)
	assert.Equal(t, 2, suspicious[0].DistinctClaimants)
	assert.Equal(t, 2, suspicious[0].AttemptCount)
}

func TestConcurrentDuplicateLineClaims(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("race-referrer@example.com")
	userA := createTestUser("race-a@example.com")
	userB := createTestUser("race-b@example.com")

	_, err := ApplyReferralCode(userA.ID, referrer.ReferralCode)
	assert.NoError(t, err)
	_, err = ApplyReferralCode(userB.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	const lineID = "line-race-contested"
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, uid := range []uint{userA.ID, userB.ID} {
		wg.Add(1)
		go func(slot int, userID uint) {
			defer wg.Done()
			_, results[slot] = ConfirmLineLink(userID, lineID)
		}(i, uid)
	}
	wg.Wait()

	// Exactly one bind wins; the other is blocked and recorded.
	var successes, duplicates int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateLineAccount):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, duplicates)

	var holders int64
	database.DB.Model(&models.User{}).Where("line_user_id = ?", lineID).Count(&holders)
	assert.Equal(t, int64(1), holders)

	suspicious, err := SuspiciousLineAccounts(2)
	assert.NoError(t, err)
	assert.Len(t, suspicious, 1)
	assert.Equal(t, lineID, suspicious[0].LineUserID)
	assert.Equal(t, 2, suspicious[0].DistinctClaimants)

	// The referrer was credited for the winner only.
	var bonusRows int64
	database.DB.Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", referrer.ID, models.TransactionTypeReferralBonus).
		Count(&bonusRows)
	assert.Equal(t, int64(1), bonusRows)

	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), referrerBalance.CurrentPoints)
}

func TestCancelReferral(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("cancel-referrer@example.com")
	referred := createTestUser("cancel-referred@example.com")

	rel, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	_, err = ConfirmLineLink(referred.ID, "line-cancel-1")
	assert.NoError(t, err)

	assert.NoError(t, CancelReferral(rel.ID, "admin@example.com"))

	var updated models.ReferralRelationship
	assert.NoError(t, database.DB.First(&updated, rel.ID).Error)
	assert.Equal(t, models.ReferralStatusCancelled, updated.Status)

	// The linked counter drops, the paid bonus stays.
	var referrerUser models.User
	assert.NoError(t, database.DB.First(&referrerUser, referrer.ID).Error)
	assert.Equal(t, 0, referrerUser.LineConnectedReferralCount)

	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), referrerBalance.CurrentPoints)

	// Cancelled is terminal.
	assert.ErrorIs(t, CancelReferral(rel.ID, "admin@example.com"), ErrReferralNotCancellable)
}

func TestExpireStaleReferrals(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	referrer := createTestUser("expire-referrer@example.com")
	referred := createTestUser("expire-referred@example.com")

	rel, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	// Pending and young: the sweep leaves it alone.
	moved, err := ExpireStaleReferrals(time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), moved)

	// Backdate it past the cutoff.
	assert.NoError(t, database.DB.Model(&models.ReferralRelationship{}).
		Where("id = ?", rel.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	moved, err = ExpireStaleReferrals(24 * time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	var updated models.ReferralRelationship
	assert.NoError(t, database.DB.First(&updated, rel.ID).Error)
	assert.Equal(t, models.ReferralStatusExpired, updated.Status)

	// An expired relationship never pays the referrer.
	result, err := ConfirmLineLink(referred.ID, "line-expired-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.ReferrerBonus)

	referrerBalance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), referrerBalance.CurrentPoints)
}

func TestGetReferralStatus(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("status-referrer@example.com")

	status, err := GetReferralStatus(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, status.ReferralCode)
	assert.Equal(t, int64(0), status.LinkedCount)
	assert.Equal(t, int64(30), status.NextBonusPoints)

	friend := createTestUser("status-friend@example.com")
	_, err = ApplyReferralCode(friend.ID, referrer.ReferralCode)
	assert.NoError(t, err)

	status, err = GetReferralStatus(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), status.PendingCount)
	assert.Equal(t, int64(1), status.TotalCount)

	_, err = ConfirmLineLink(friend.ID, "line-status-1")
	assert.NoError(t, err)

	status, err = GetReferralStatus(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), status.LinkedCount)
	assert.Equal(t, int64(0), status.PendingCount)
	assert.Equal(t, int64(40), status.NextBonusPoints)
}

func TestSetReferralBonusStep(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	step, err := SetReferralBonusStep(2, 45)
	assert.NoError(t, err)
	assert.Equal(t, int64(45), step.Points)

	step, err = SetReferralBonusStep(6, 150)
	assert.NoError(t, err)
	assert.Equal(t, 6, step.StepIndex)

	steps, err := GetReferralBonusSteps()
	assert.NoError(t, err)
	assert.Len(t, steps, 6)
	assert.Equal(t, int64(45), steps[1].Points)
	assert.Equal(t, int64(150), steps[5].Points)
}
