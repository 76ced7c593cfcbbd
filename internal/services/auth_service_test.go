package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func TestRegisterUser(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u, err := RegisterUser("first@example.com", "password123", "")
	assert.NoError(t, err)
	assert.Equal(t, "admin", u.Role, "first account becomes admin")
	assert.Len(t, u.ReferralCode, 6)

	// Signup bonus is on the ledger.
	balance, err := GetOrCreateBalance(u.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), balance.CurrentPoints)

	second, err := RegisterUser("second@example.com", "password123", "")
	assert.NoError(t, err)
	assert.Equal(t, "user", second.Role)

	_, err = RegisterUser("first@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterUserWithReferralCode(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer, err := RegisterUser("inviter@example.com", "password123", "")
	assert.NoError(t, err)

	referred, err := RegisterUser("invitee@example.com", "password123", referrer.ReferralCode)
	assert.NoError(t, err)

	var rel models.ReferralRelationship
	assert.NoError(t, database.DB.Where("referred_id = ?", referred.ID).First(&rel).Error)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
	assert.Equal(t, models.ReferralStatusPending, rel.Status)

	// Signup bonus plus welcome bonus.
	balance, err := GetOrCreateBalance(referred.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(12), balance.CurrentPoints)
}

func TestRegisterUserBadReferralCodeIsIgnored(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u, err := RegisterUser("solo@example.com", "password123", "NOSUCH")
	assert.NoError(t, err, "signup never fails because of a bad code")
	assert.Nil(t, u.ReferredBy)
}

func TestLoginUser(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	_, err := RegisterUser("login@example.com", "password123", "")
	assert.NoError(t, err)

	token, u, err := LoginUser("login@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "login@example.com", u.Email)

	_, _, err = LoginUser("login@example.com", "wrongpassword")
	assert.Error(t, err)
}
