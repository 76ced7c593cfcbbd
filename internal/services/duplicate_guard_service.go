package services

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

// CheckLineAccount reports whether candidateUserID may bind lineUserID.
// When another user already holds the LINE account, the attempt is
// recorded (that is the point: fraud must be visible, not just rejected)
// and blocked=false is returned along with the attempt count so far.
// The existing holder is never unbound.
func CheckLineAccount(candidateUserID uint, lineUserID string) (ok bool, attemptCount int, err error) {
	var holder models.User
	findErr := database.DB.Where("line_user_id = ? AND id <> ?", lineUserID, candidateUserID).First(&holder).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return true, 0, nil
		}
		return false, 0, findErr
	}

	attempt, recordErr := RecordDuplicateLinkAttempt(lineUserID, holder.ID, candidateUserID)
	if recordErr != nil {
		return false, 0, recordErr
	}

	zap.L().Warn("duplicate LINE account claim blocked",
		zap.String("line_user_id", lineUserID),
		zap.Uint("holder_id", holder.ID),
		zap.Uint("candidate_id", candidateUserID),
		zap.Int("distinct_claimants", attempt.DistinctClaimants))

	return false, attempt.AttemptCount, nil
}

// RecordDuplicateLinkAttempt upserts the attempt row keyed by the contested
// LINE account, appending any claimants not yet in the set. Rows are
// append-only at the entity level: never deleted, only accumulated.
func RecordDuplicateLinkAttempt(lineUserID string, claimantIDs ...uint) (*models.DuplicateLinkAttempt, error) {
	var attempt models.DuplicateLinkAttempt
	now := time.Now()

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("line_user_id = ?", lineUserID).First(&attempt).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			claimantsJSON, err := json.Marshal(mergeClaimants(nil, claimantIDs))
			if err != nil {
				return err
			}
			fresh := models.DuplicateLinkAttempt{
				LineUserID:        lineUserID,
				ClaimantIDs:       datatypes.JSON(claimantsJSON),
				DistinctClaimants: len(mergeClaimants(nil, claimantIDs)),
				AttemptCount:      1,
				FirstAttemptAt:    now,
				LastAttemptAt:     now,
			}
			// DO NOTHING keeps the transaction alive when a concurrent
			// claimant creates the row first; the loser merges into it below.
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				attempt = fresh
				return nil
			}
			if err := tx.Where("line_user_id = ?", lineUserID).First(&attempt).Error; err != nil {
				return err
			}
		}

		existing := []uint{}
		if len(attempt.ClaimantIDs) > 0 {
			if err := json.Unmarshal(attempt.ClaimantIDs, &existing); err != nil {
				return err
			}
		}
		merged := mergeClaimants(existing, claimantIDs)

		claimantsJSON, err := json.Marshal(merged)
		if err != nil {
			return err
		}

		attempt.ClaimantIDs = datatypes.JSON(claimantsJSON)
		attempt.DistinctClaimants = len(merged)
		attempt.AttemptCount++
		attempt.LastAttemptAt = now
		return tx.Save(&attempt).Error
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// mergeClaimants appends ids not already in base, preserving order.
func mergeClaimants(base []uint, ids []uint) []uint {
	seen := make(map[uint]bool, len(base))
	merged := make([]uint, 0, len(base)+len(ids))
	for _, id := range base {
		if !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	for _, id := range ids {
		if !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	return merged
}

// SuspiciousLineAccounts lists contested LINE accounts for manual review.
// Anything claimed by more than one distinct user is suspicious.
func SuspiciousLineAccounts(minClaimants int) ([]models.DuplicateLinkAttempt, error) {
	if minClaimants < 2 {
		minClaimants = 2
	}
	var attempts []models.DuplicateLinkAttempt
	err := database.DB.
		Where("distinct_claimants >= ?", minClaimants).
		Order("last_attempt_at desc").
		Find(&attempts).Error
	return attempts, err
}
