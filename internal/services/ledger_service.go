package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jinjinsansan/boat-backend/config"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

var (
	ErrInvalidPointAmount = errors.New("point amount must be a positive integer")
	ErrInsufficientPoints = errors.New("insufficient points")
)

const (
	pointsWriteMaxRetries = 3
	balanceCachePrefix    = "points:balance:"
	balanceCacheTTL       = 5 * time.Minute
)

// GetOrCreateBalance returns the authoritative balance row, creating the
// zero row on first touch. Safe under concurrent first touches.
func GetOrCreateBalance(userID uint) (*models.PointBalance, error) {
	return getOrCreateBalanceTx(database.DB, userID)
}

func getOrCreateBalanceTx(tx *gorm.DB, userID uint) (*models.PointBalance, error) {
	var balance models.PointBalance
	err := tx.Where("user_id = ?", userID).First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// ON CONFLICT DO NOTHING keeps the enclosing transaction alive when
	// another first touch wins the creation race; the re-read returns the
	// winner's row either way.
	balance = models.PointBalance{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&balance).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetBalance serves display reads through a short redis cache. Paying
// operations never use this; they read the row inside their transaction.
func GetBalance(userID uint) (*models.PointBalance, error) {
	cacheKey := fmt.Sprintf("%s%d", balanceCachePrefix, userID)
	if database.RedisClient != nil {
		val, err := database.RedisClient.Get(database.Ctx, cacheKey).Result()
		if err == nil {
			var balance models.PointBalance
			if err := json.Unmarshal([]byte(val), &balance); err == nil {
				return &balance, nil
			}
		}
	}

	balance, err := GetOrCreateBalance(userID)
	if err != nil {
		return nil, err
	}

	if database.RedisClient != nil {
		if data, err := json.Marshal(balance); err == nil {
			database.RedisClient.Set(database.Ctx, cacheKey, data, balanceCacheTTL)
		}
	}

	return balance, nil
}

func invalidateBalanceCache(userID uint) {
	if database.RedisClient != nil {
		cacheKey := fmt.Sprintf("%s%d", balanceCachePrefix, userID)
		database.RedisClient.Del(database.Ctx, cacheKey)
	}
}

// GrantPoints adds amount to the user's balance and appends the matching
// ledger row, atomically. amount must be positive; direction is encoded by
// calling GrantPoints vs UsePoints, never by sign.
func GrantPoints(userID uint, amount int64, txType models.TransactionType, reason, relatedEntityID, operator string) (*models.PointTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidPointAmount
	}
	return applyPoints(userID, amount, txType, reason, relatedEntityID, operator)
}

// UsePoints subtracts amount from the user's balance and appends the
// matching ledger row, atomically. Fails with ErrInsufficientPoints when
// the balance would go negative, without any partial effect.
func UsePoints(userID uint, amount int64, txType models.TransactionType, reason, relatedEntityID, operator string) (*models.PointTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidPointAmount
	}
	return applyPoints(userID, -amount, txType, reason, relatedEntityID, operator)
}

var ErrDailyLoginAlreadyClaimed = errors.New("daily login bonus already claimed today")

// ClaimDailyLoginBonus pays the once-per-day login bonus. A day is the
// server's local calendar day; the claim check and the credit commit in
// one transaction so a replayed claim finds today's row and is rejected.
func ClaimDailyLoginBonus(userID uint) (*models.PointTransaction, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.PointsDailyLogin <= 0 {
		return nil, ErrInvalidPointAmount
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var txn *models.PointTransaction
	for attempt := 0; attempt < pointsWriteMaxRetries; attempt++ {
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var claimed int64
			if err := tx.Model(&models.PointTransaction{}).
				Where("user_id = ? AND type = ? AND created_at >= ?",
					userID, models.TransactionTypeDailyLogin, dayStart).
				Count(&claimed).Error; err != nil {
				return err
			}
			if claimed > 0 {
				return ErrDailyLoginAlreadyClaimed
			}

			var txErr error
			txn, txErr = applyPointsTx(tx, userID, cfg.PointsDailyLogin,
				models.TransactionTypeDailyLogin,
				fmt.Sprintf("Daily login bonus (%d points)", cfg.PointsDailyLogin), "", "system")
			if txErr != nil {
				return txErr
			}

			return tx.Model(&models.User{}).Where("id = ?", userID).
				Update("last_login_at", now).Error
		})
		if err == nil {
			invalidateBalanceCache(userID)
			invalidateUserCache(userID)
			return txn, nil
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return nil, err
		}
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	return nil, err
}

// applyPoints runs the balance update + ledger append in one transaction,
// retrying version conflicts with backoff. Exhausted retries surface
// ErrOptimisticLock, which callers may retry.
func applyPoints(userID uint, amount int64, txType models.TransactionType, reason, relatedEntityID, operator string) (*models.PointTransaction, error) {
	var txn *models.PointTransaction
	var err error

	for attempt := 0; attempt < pointsWriteMaxRetries; attempt++ {
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			txn, txErr = applyPointsTx(tx, userID, amount, txType, reason, relatedEntityID, operator)
			return txErr
		})
		if err == nil {
			invalidateBalanceCache(userID)
			return txn, nil
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return nil, err
		}
		zap.L().Warn("point balance version conflict, retrying",
			zap.Uint("user_id", userID),
			zap.Int("attempt", attempt+1))
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}

	return nil, err
}

// applyPointsTx is the composable single-attempt variant used by services
// that need the balance change inside their own transaction (referral
// bonus, access gate). amount is signed here: positive earns, negative
// spends. The conditional UPDATE carries both the version check and, for
// spends, the non-negative balance guard, so the row can never overdraw
// no matter how calls interleave.
func applyPointsTx(tx *gorm.DB, userID uint, amount int64, txType models.TransactionType, reason, relatedEntityID, operator string) (*models.PointTransaction, error) {
	return applyLedgerWriteTx(tx, userID, amount, txType, reason, relatedEntityID, operator, nil)
}

// applyLedgerWriteTx additionally stamps refund rows with the id of the
// debit they correct. The unique index on refund_of_id is the hard
// at-most-once arbiter for refunds: a second refund of the same debit
// fails its insert and rolls its credit back with it.
func applyLedgerWriteTx(tx *gorm.DB, userID uint, amount int64, txType models.TransactionType, reason, relatedEntityID, operator string, refundOf *uint) (*models.PointTransaction, error) {
	balance, err := getOrCreateBalanceTx(tx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	query := tx.Model(&models.PointBalance{}).Where("user_id = ? AND version = ?", userID, balance.Version)

	if amount >= 0 {
		updates["current_points"] = gorm.Expr("current_points + ?", amount)
		updates["total_earned"] = gorm.Expr("total_earned + ?", amount)
	} else {
		spend := -amount
		if balance.CurrentPoints < spend {
			return nil, ErrInsufficientPoints
		}
		updates["current_points"] = gorm.Expr("current_points - ?", spend)
		updates["total_spent"] = gorm.Expr("total_spent + ?", spend)
		query = query.Where("current_points >= ?", spend)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOptimisticLock
	}

	txn := &models.PointTransaction{
		CreatedAt:       time.Now(),
		UserID:          userID,
		Amount:          amount,
		BalanceAfter:    balance.CurrentPoints + amount,
		Type:            txType,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
		RefundOfID:      refundOf,
		Operator:        operator,
	}
	txn.Hash = txn.GenerateHash(transactionSecret())

	if err := tx.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

var (
	transactionSecretOnce sync.Once
	transactionSecretVal  string
)

// transactionSecret resolves the hash key once. The tamper-evidence hash
// is only as strong as its key, so a missing JWT_SECRET is fatal rather
// than silently degraded.
func transactionSecret() string {
	transactionSecretOnce.Do(func() {
		cfg, err := config.LoadConfig()
		if err != nil || cfg.JWTSecret == "" {
			zap.L().Fatal("JWT_SECRET must be set: point transaction hashes are keyed on it")
		}
		transactionSecretVal = cfg.JWTSecret
	})
	return transactionSecretVal
}
