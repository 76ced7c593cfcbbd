package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func TestUpdateUserOptimisticLock(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	u := createTestUser("update@example.com")

	updated, err := UpdateUser(u.ID, map[string]interface{}{"role": "admin"}, "admin@example.com")
	assert.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)
	assert.Equal(t, u.Version+1, updated.Version)

	// referred_by is immutable through this path
	_, err = UpdateUser(u.ID, map[string]interface{}{"referred_by": 42}, "admin@example.com")
	assert.Error(t, err)

	_, err = UpdateUser(99999, map[string]interface{}{"role": "user"}, "admin@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()
	seedBonusSteps(t)

	referrer := createTestUser("cascade-referrer@example.com")
	referred := createTestUser("cascade-referred@example.com")

	_, err := ApplyReferralCode(referred.ID, referrer.ReferralCode)
	assert.NoError(t, err)
	_, err = ConfirmLineLink(referred.ID, "line-cascade-1")
	assert.NoError(t, err)

	room := createTestRoom(2)
	_, err = JoinRoom(referred.ID, room.ID)
	assert.NoError(t, err)

	assert.NoError(t, DeleteUser(referred.ID, "admin@example.com"))

	var users, balances, transactions, relationships, grants int64
	database.DB.Model(&models.User{}).Where("id = ?", referred.ID).Count(&users)
	database.DB.Model(&models.PointBalance{}).Where("user_id = ?", referred.ID).Count(&balances)
	database.DB.Model(&models.PointTransaction{}).Where("user_id = ?", referred.ID).Count(&transactions)
	database.DB.Model(&models.ReferralRelationship{}).Where("referred_id = ?", referred.ID).Count(&relationships)
	database.DB.Model(&models.ResourceGrant{}).Where("user_id = ?", referred.ID).Count(&grants)
	assert.Zero(t, users)
	assert.Zero(t, balances)
	assert.Zero(t, transactions)
	assert.Zero(t, relationships)
	assert.Zero(t, grants)

	// The referrer keeps the bonus already granted
	balance, err := GetOrCreateBalance(referrer.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), balance.CurrentPoints)

	assert.ErrorIs(t, DeleteUser(referred.ID, "admin@example.com"), ErrUserNotFound)
}
