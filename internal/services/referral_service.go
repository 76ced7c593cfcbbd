package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/config"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

var (
	ErrInvalidReferralCode    = errors.New("referral code does not match any user")
	ErrSelfReferral           = errors.New("own referral code cannot be used")
	ErrAlreadyReferred        = errors.New("referral code already applied")
	ErrLineAlreadyLinked      = errors.New("a different LINE account is already linked")
	ErrDuplicateLineAccount   = errors.New("LINE account is already linked to another user")
	ErrReferralNotFound       = errors.New("referral relationship not found")
	ErrReferralNotCancellable = errors.New("referral relationship cannot be cancelled in its current status")
)

// errLineBindRace signals that another request bound this user's LINE
// account while we were working; the caller resolves it by re-reading.
var errLineBindRace = errors.New("line account bound concurrently")

// LineLinkResult is what a LINE link confirmation produced. Replayed
// confirmations return the prior outcome with AlreadyLinked set and
// nothing credited again.
type LineLinkResult struct {
	AlreadyLinked bool
	LinkBonus     int64
	ReferrerID    uint
	ReferrerBonus int64
	LinkedCount   int64
	Relationship  *models.ReferralRelationship
}

// ApplyReferralCode links a new user to the owner of code, creating the
// pending relationship and paying the referred user's welcome bonus.
// All failures here are no-ops for the caller: signup itself never fails
// because of a bad code.
func ApplyReferralCode(userID uint, code string) (*models.ReferralRelationship, error) {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}

	var referrer models.User
	if err := database.DB.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}
	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}

	cfg, _ := config.LoadConfig()
	rel := &models.ReferralRelationship{
		ReferrerID:   referrer.ID,
		ReferredID:   userID,
		ReferralCode: code,
		Status:       models.ReferralStatusPending,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// referred_by is immutable once set; the conditional write makes
		// concurrent applications first-wins.
		result := tx.Model(&models.User{}).
			Where("id = ? AND referred_by IS NULL", userID).
			Update("referred_by", referrer.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyReferred
		}

		if err := tx.Create(rel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReferred
			}
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", referrer.ID).
			Update("total_referral_count", gorm.Expr("total_referral_count + 1")).Error; err != nil {
			return err
		}

		if cfg != nil && cfg.PointsReferralReceived > 0 {
			_, err := applyPointsTx(tx, userID, cfg.PointsReferralReceived,
				models.TransactionTypeReferralReceived,
				fmt.Sprintf("Welcome bonus for joining via referral code %s", code),
				strconv.FormatUint(uint64(referrer.ID), 10), "system")
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateBalanceCache(userID)
	invalidateUserCache(userID)

	zap.L().Info("referral code applied",
		zap.Uint("referrer_id", referrer.ID),
		zap.Uint("referred_id", userID),
		zap.String("code", code))

	return rel, nil
}

// ConfirmLineLink is called by the OAuth callback once the LINE identity
// of userID is known and verified. It binds the identity, pays the link
// bonus, and advances the referral relationship to line_connected,
// crediting the referrer exactly once per relationship. Replayed
// confirmations for the same user and identity return the prior outcome.
func ConfirmLineLink(userID uint, lineUserID string) (*LineLinkResult, error) {
	if lineUserID == "" {
		return nil, errors.New("line user id is required")
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.LineUserID != nil {
		if *user.LineUserID == lineUserID {
			return lineLinkReplay(userID)
		}
		return nil, ErrLineAlreadyLinked
	}

	// Guard check before anything touches the ledger. A collision gets
	// recorded and the relationship stays pending.
	ok, _, err := CheckLineAccount(userID, lineUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicateLineAccount
	}

	var result *LineLinkResult
	for attempt := 0; attempt < pointsWriteMaxRetries; attempt++ {
		result, err = confirmLineLinkOnce(userID, lineUserID)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errLineBindRace) {
			// Another confirmation for this user won; resolve against the
			// committed state.
			if refreshErr := database.DB.First(&user, userID).Error; refreshErr != nil {
				return nil, refreshErr
			}
			if user.LineUserID != nil && *user.LineUserID == lineUserID {
				return lineLinkReplay(userID)
			}
			return nil, ErrLineAlreadyLinked
		}
		if errors.Is(err, ErrDuplicateLineAccount) {
			// Lost the unique-index race to another user: record it like
			// any other duplicate claim.
			CheckLineAccount(userID, lineUserID)
			return nil, ErrDuplicateLineAccount
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return nil, err
		}
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	return nil, err
}

func confirmLineLinkOnce(userID uint, lineUserID string) (*LineLinkResult, error) {
	cfg, _ := config.LoadConfig()
	now := time.Now()
	result := &LineLinkResult{}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// Bind the LINE identity. The IS NULL condition plus the unique
		// index close the race between two users claiming the same account.
		bind := tx.Model(&models.User{}).
			Where("id = ? AND line_user_id IS NULL", userID).
			Updates(map[string]interface{}{
				"line_user_id":      lineUserID,
				"line_connected_at": now,
			})
		if bind.Error != nil {
			if errors.Is(bind.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicateLineAccount
			}
			return bind.Error
		}
		if bind.RowsAffected == 0 {
			return errLineBindRace
		}

		if cfg != nil && cfg.PointsLineLink > 0 {
			_, err := applyPointsTx(tx, userID, cfg.PointsLineLink,
				models.TransactionTypeLineLink, "LINE account linked", lineUserID, "system")
			if err != nil {
				return err
			}
			result.LinkBonus = cfg.PointsLineLink
		}

		var rel models.ReferralRelationship
		relErr := tx.Where("referred_id = ?", userID).First(&rel).Error
		if relErr != nil {
			if errors.Is(relErr, gorm.ErrRecordNotFound) {
				return nil // not referred, nothing more to do
			}
			return relErr
		}
		if rel.Status != models.ReferralStatusPending {
			// expired or cancelled relationships earn nobody anything
			result.Relationship = &rel
			return nil
		}

		// The status transition is the idempotency guard: exactly one
		// confirmation moves pending to line_connected.
		transition := tx.Model(&models.ReferralRelationship{}).
			Where("id = ? AND status = ?", rel.ID, models.ReferralStatusPending).
			Updates(map[string]interface{}{
				"status":            models.ReferralStatusLinked,
				"line_connected_at": now,
			})
		if transition.Error != nil {
			return transition.Error
		}
		if transition.RowsAffected == 0 {
			return ErrOptimisticLock
		}

		// Recompute the bonus-eligible counter from relationship rows
		// inside the same transaction; the user column is only a cache.
		var linkedCount int64
		if err := tx.Model(&models.ReferralRelationship{}).
			Where("referrer_id = ? AND status = ?", rel.ReferrerID, models.ReferralStatusLinked).
			Count(&linkedCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", rel.ReferrerID).
			Update("line_connected_referral_count", linkedCount).Error; err != nil {
			return err
		}

		bonus, err := bonusPointsForCountTx(tx, int(linkedCount))
		if err != nil {
			return err
		}
		if bonus > 0 {
			txn, err := applyPointsTx(tx, rel.ReferrerID, bonus,
				models.TransactionTypeReferralBonus,
				fmt.Sprintf("Referral bonus: %d linked referrals (%d points)", linkedCount, bonus),
				strconv.FormatUint(uint64(rel.ID), 10), "system")
			if err != nil {
				return err
			}
			if err := tx.Model(&rel).Updates(map[string]interface{}{
				"bonus_transaction_id": txn.ID,
				"bonus_points":         bonus,
			}).Error; err != nil {
				return err
			}
			rel.BonusTransactionID = &txn.ID
			rel.BonusPoints = bonus
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("referral_bonus_granted", true).Error; err != nil {
			return err
		}

		rel.Status = models.ReferralStatusLinked
		rel.LineConnectedAt = &now
		result.Relationship = &rel
		result.ReferrerID = rel.ReferrerID
		result.ReferrerBonus = bonus
		result.LinkedCount = linkedCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateBalanceCache(userID)
	invalidateUserCache(userID)
	if result.ReferrerID != 0 {
		invalidateBalanceCache(result.ReferrerID)
		invalidateUserCache(result.ReferrerID)
	}

	zap.L().Info("LINE account linked",
		zap.Uint("user_id", userID),
		zap.Int64("link_bonus", result.LinkBonus),
		zap.Uint("referrer_id", result.ReferrerID),
		zap.Int64("referrer_bonus", result.ReferrerBonus))

	return result, nil
}

// lineLinkReplay rebuilds the outcome of an already-confirmed link so that
// duplicate callbacks are answered without touching the ledger.
func lineLinkReplay(userID uint) (*LineLinkResult, error) {
	result := &LineLinkResult{AlreadyLinked: true}

	var rel models.ReferralRelationship
	err := database.DB.Where("referred_id = ?", userID).First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, err
	}
	result.Relationship = &rel
	result.ReferrerID = rel.ReferrerID
	result.ReferrerBonus = rel.BonusPoints
	return result, nil
}

// CancelReferral is the administrative exit from the lifecycle. Cancelling
// a linked relationship removes it from the bonus-eligible counter but
// never claws back a bonus that was already granted.
func CancelReferral(relationshipID uint, operator string) error {
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var rel models.ReferralRelationship
		if err := tx.First(&rel, relationshipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferralNotFound
			}
			return err
		}
		if !rel.Status.CanTransitionTo(models.ReferralStatusCancelled) {
			return ErrReferralNotCancellable
		}

		result := tx.Model(&models.ReferralRelationship{}).
			Where("id = ? AND status = ?", rel.ID, rel.Status).
			Update("status", models.ReferralStatusCancelled)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}

		if rel.Status == models.ReferralStatusLinked {
			var linkedCount int64
			if err := tx.Model(&models.ReferralRelationship{}).
				Where("referrer_id = ? AND status = ?", rel.ReferrerID, models.ReferralStatusLinked).
				Count(&linkedCount).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).
				Where("id = ?", rel.ReferrerID).
				Update("line_connected_referral_count", linkedCount).Error; err != nil {
				return err
			}
		}

		zap.L().Info("referral relationship cancelled",
			zap.Uint("relationship_id", rel.ID),
			zap.String("previous_status", string(rel.Status)),
			zap.String("operator", operator))
		return nil
	})
	return err
}

// ReferralFilter narrows the admin relationship listing.
type ReferralFilter struct {
	ReferrerID *uint
	Status     *models.ReferralStatus
	Page       int
	Limit      int
}

func FindReferralRelationships(filter ReferralFilter) ([]models.ReferralRelationship, int64, error) {
	var relationships []models.ReferralRelationship
	var total int64

	query := database.DB.Model(&models.ReferralRelationship{})
	if filter.ReferrerID != nil {
		query = query.Where("referrer_id = ?", *filter.ReferrerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).
		Find(&relationships).Error; err != nil {
		return nil, 0, err
	}
	return relationships, total, nil
}

// ExpireStaleReferrals sweeps pending relationships older than maxAge to
// expired. Returns how many rows moved.
func ExpireStaleReferrals(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result := database.DB.Model(&models.ReferralRelationship{}).
		Where("status = ? AND created_at < ?", models.ReferralStatusPending, cutoff).
		Update("status", models.ReferralStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		zap.L().Info("expired stale referrals", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// ReferralStatusInfo is the user-facing referral summary.
type ReferralStatusInfo struct {
	ReferralCode    string `json:"referral_code"`
	LinkedCount     int64  `json:"line_connected_referral_count"`
	PendingCount    int64  `json:"pending_referral_count"`
	TotalCount      int64  `json:"total_referral_count"`
	NextBonusPoints int64  `json:"next_bonus_points"`
}

func GetReferralStatus(userID uint) (*ReferralStatusInfo, error) {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}

	var linked, pending, total int64
	base := database.DB.Model(&models.ReferralRelationship{}).Where("referrer_id = ?", userID)
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.ReferralStatusLinked).Count(&linked).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.ReferralStatusPending).Count(&pending).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	nextBonus, err := bonusPointsForCountTx(database.DB, int(linked)+1)
	if err != nil {
		return nil, err
	}

	return &ReferralStatusInfo{
		ReferralCode:    user.ReferralCode,
		LinkedCount:     linked,
		PendingCount:    pending,
		TotalCount:      total,
		NextBonusPoints: nextBonus,
	}, nil
}

// SeedReferralBonusSteps populates the staircase from config when the
// table is empty. Existing rows win: operators retune via the admin API.
func SeedReferralBonusSteps(steps []int64) error {
	var count int64
	if err := database.DB.Model(&models.ReferralBonusStep{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for i, points := range steps {
		step := models.ReferralBonusStep{StepIndex: i + 1, Points: points}
		if err := database.DB.Create(&step).Error; err != nil {
			return err
		}
	}
	return nil
}

func GetReferralBonusSteps() ([]models.ReferralBonusStep, error) {
	var steps []models.ReferralBonusStep
	err := database.DB.Order("step_index asc").Find(&steps).Error
	return steps, err
}

// SetReferralBonusStep upserts one step of the staircase.
func SetReferralBonusStep(stepIndex int, points int64) (*models.ReferralBonusStep, error) {
	if stepIndex < 1 || points < 0 {
		return nil, errors.New("step index must be >= 1 and points must be >= 0")
	}
	var step models.ReferralBonusStep
	err := database.DB.Where("step_index = ?", stepIndex).First(&step).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		step = models.ReferralBonusStep{StepIndex: stepIndex, Points: points}
		if err := database.DB.Create(&step).Error; err != nil {
			return nil, err
		}
		return &step, nil
	}
	step.Points = points
	if err := database.DB.Save(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

// bonusPointsForCountTx resolves the staircase: the highest step at or
// below count pays, so counts past the last step plateau.
func bonusPointsForCountTx(tx *gorm.DB, count int) (int64, error) {
	if count <= 0 {
		return 0, nil
	}
	var step models.ReferralBonusStep
	err := tx.Where("step_index <= ?", count).Order("step_index desc").First(&step).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return step.Points, nil
}
