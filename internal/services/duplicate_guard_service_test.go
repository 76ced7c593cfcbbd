package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func TestConcurrentDuplicateAttemptRecording(t *testing.T) {
	setupTestDB()
	mr := setupTestRedis()
	defer mr.Close()

	// Four claimants racing the first record of the same LINE account must
	// converge on one row with every claimant merged in.
	const lineID = "line-attempt-race"
	claimants := []uint{11, 12, 13, 14}
	errs := make([]error, len(claimants))
	var wg sync.WaitGroup
	for i, id := range claimants {
		wg.Add(1)
		go func(slot int, userID uint) {
			defer wg.Done()
			_, errs[slot] = RecordDuplicateLinkAttempt(lineID, 10, userID)
		}(i, id)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	var rows int64
	database.DB.Model(&models.DuplicateLinkAttempt{}).
		Where("line_user_id = ?", lineID).Count(&rows)
	assert.Equal(t, int64(1), rows)

	var attempt models.DuplicateLinkAttempt
	assert.NoError(t, database.DB.Where("line_user_id = ?", lineID).First(&attempt).Error)
	assert.Equal(t, 5, attempt.DistinctClaimants) // holder plus four claimants
	assert.Equal(t, 4, attempt.AttemptCount)
}

func TestMergeClaimants(t *testing.T) {
	assert.Equal(t, []uint{1, 2, 3}, mergeClaimants([]uint{1, 2}, []uint{2, 3, 3}))
	assert.Equal(t, []uint{7}, mergeClaimants(nil, []uint{7, 7}))
}
