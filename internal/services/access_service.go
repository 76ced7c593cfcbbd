package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/lock"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

type PaymentPolicy string

const (
	// PaymentPolicyPerUse debits on every access (chat sessions).
	PaymentPolicyPerUse PaymentPolicy = "per_use"
	// PaymentPolicyPayOnce debits the first access and replays the stored
	// grant for free afterwards (columns, rooms).
	PaymentPolicyPayOnce PaymentPolicy = "pay_once"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRefundNotAllowed    = errors.New("only spend transactions can be refunded")
	ErrAlreadyRefunded     = errors.New("transaction has already been refunded")
)

// errGrantExists aborts the debit transaction when the ownership row
// already exists, rolling the debit back with it.
var errGrantExists = errors.New("resource grant already recorded")

// AccessGrant is the gate's answer: the token the resource server attaches
// to the served content, and what the grant cost.
type AccessGrant struct {
	GrantToken    string              `json:"grant_token"`
	ResourceType  models.ResourceType `json:"resource_type"`
	ResourceID    string              `json:"resource_id"`
	PointsUsed    int64               `json:"points_used"`
	TransactionID uint                `json:"transaction_id"`
	AlreadyOwned  bool                `json:"already_owned"`
}

// GrantAccess converts a point cost into an atomic debit before releasing
// access to a resource. Free resources never touch the ledger. Pay-once
// resources charge at most once per (user, resource); the check and the
// debit commit together, so two concurrent first-time requests produce
// exactly one charge.
func GrantAccess(userID uint, resourceType models.ResourceType, resourceID string, cost int64, policy PaymentPolicy, reason string) (*AccessGrant, error) {
	if cost < 0 {
		return nil, ErrInvalidPointAmount
	}

	if policy == PaymentPolicyPayOnce {
		return grantPayOnce(userID, resourceType, resourceID, cost, reason)
	}

	if cost == 0 {
		return &AccessGrant{
			GrantToken:   uuid.New().String(),
			ResourceType: resourceType,
			ResourceID:   resourceID,
		}, nil
	}

	txn, err := UsePoints(userID, cost, transactionTypeFor(resourceType), reason, resourceID, "user")
	if err != nil {
		return nil, err
	}
	return &AccessGrant{
		GrantToken:    uuid.New().String(),
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		PointsUsed:    cost,
		TransactionID: txn.ID,
	}, nil
}

func grantPayOnce(userID uint, resourceType models.ResourceType, resourceID string, cost int64, reason string) (*AccessGrant, error) {
	if existing, err := findGrant(userID, resourceType, resourceID); err != nil {
		return nil, err
	} else if existing != nil {
		return replayGrant(existing), nil
	}

	// Serialize first-time purchases on the (user, resource) key. The
	// unique index on resource_grants stays the hard guarantee when redis
	// is degraded or another instance races past the lock.
	if database.RedisClient != nil {
		gateLock := lock.ForResource(database.RedisClient, userID, string(resourceType), resourceID, uuid.New().String())
		if err := gateLock.Acquire(database.Ctx, 20*time.Millisecond, 50); err == nil {
			defer gateLock.Release(database.Ctx)
		} else {
			zap.L().Warn("gate lock not acquired, relying on unique index",
				zap.Uint("user_id", userID),
				zap.String("resource", fmt.Sprintf("%s:%s", resourceType, resourceID)))
		}

		// Re-check under the lock: the race loser replays the winner's grant.
		if existing, err := findGrant(userID, resourceType, resourceID); err != nil {
			return nil, err
		} else if existing != nil {
			return replayGrant(existing), nil
		}
	}

	if cost == 0 {
		return recordFreeGrant(userID, resourceType, resourceID)
	}

	grantRow := &models.ResourceGrant{
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		GrantToken:   uuid.New().String(),
		PointsUsed:   cost,
	}

	var err error
	for attempt := 0; attempt < pointsWriteMaxRetries; attempt++ {
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			txn, txErr := applyPointsTx(tx, userID, -cost, transactionTypeFor(resourceType), reason, resourceID, "user")
			if txErr != nil {
				return txErr
			}
			grantRow.TransactionID = txn.ID
			if createErr := tx.Create(grantRow).Error; createErr != nil {
				if errors.Is(createErr, gorm.ErrDuplicatedKey) {
					return errGrantExists
				}
				return createErr
			}
			return nil
		})
		if err == nil {
			invalidateBalanceCache(userID)
			return &AccessGrant{
				GrantToken:    grantRow.GrantToken,
				ResourceType:  resourceType,
				ResourceID:    resourceID,
				PointsUsed:    cost,
				TransactionID: grantRow.TransactionID,
			}, nil
		}
		if errors.Is(err, errGrantExists) {
			// The debit rolled back with the insert; serve the winner's grant.
			existing, findErr := findGrant(userID, resourceType, resourceID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return replayGrant(existing), nil
			}
			return nil, err
		}
		if !errors.Is(err, ErrOptimisticLock) {
			return nil, err
		}
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	return nil, err
}

func recordFreeGrant(userID uint, resourceType models.ResourceType, resourceID string) (*AccessGrant, error) {
	grantRow := &models.ResourceGrant{
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		GrantToken:   uuid.New().String(),
	}
	err := database.DB.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(grantRow).Error
	if err != nil {
		return nil, err
	}
	existing, err := findGrant(userID, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("free grant not recorded")
	}
	return &AccessGrant{
		GrantToken:   existing.GrantToken,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}, nil
}

func findGrant(userID uint, resourceType models.ResourceType, resourceID string) (*models.ResourceGrant, error) {
	var grant models.ResourceGrant
	err := database.DB.
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", userID, resourceType, resourceID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func replayGrant(grant *models.ResourceGrant) *AccessGrant {
	return &AccessGrant{
		GrantToken:    grant.GrantToken,
		ResourceType:  grant.ResourceType,
		ResourceID:    grant.ResourceID,
		TransactionID: grant.TransactionID,
		AlreadyOwned:  true,
	}
}

// HasGrant reports whether the user already owns a pay-once resource.
func HasGrant(userID uint, resourceType models.ResourceType, resourceID string) (bool, error) {
	grant, err := findGrant(userID, resourceType, resourceID)
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// RefundAccess credits back a spend whose downstream action failed. The
// original debit row is never touched; the refund is a new opposite row
// referencing it, and a debit can be refunded at most once.
func RefundAccess(transactionID uint, reason, operator string) (*models.PointTransaction, error) {
	if database.RedisClient != nil {
		refundLock := lock.ForRefund(database.RedisClient, transactionID, uuid.New().String())
		if err := refundLock.Acquire(database.Ctx, 20*time.Millisecond, 50); err == nil {
			defer refundLock.Release(database.Ctx)
		}
	}

	var refund *models.PointTransaction
	var userID uint
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var original models.PointTransaction
		if err := tx.First(&original, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if original.Amount >= 0 {
			return ErrRefundNotAllowed
		}

		originalRef := strconv.FormatUint(uint64(original.ID), 10)
		var prior int64
		if err := tx.Model(&models.PointTransaction{}).
			Where("refund_of_id = ?", original.ID).
			Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return ErrAlreadyRefunded
		}

		userID = original.UserID
		if reason == "" {
			reason = fmt.Sprintf("Refund of transaction %d", original.ID)
		}
		// The unique index on refund_of_id closes the race the count check
		// cannot: concurrent refunds that both counted zero collide on the
		// insert, and the loser's credit rolls back with it.
		txn, err := applyLedgerWriteTx(tx, original.UserID, -original.Amount,
			models.TransactionTypeRefund, reason, originalRef, operator, &original.ID)
		if err != nil {
			return err
		}
		refund = txn
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyRefunded
		}
		return nil, err
	}

	invalidateBalanceCache(userID)
	zap.L().Info("transaction refunded",
		zap.Uint("original_transaction_id", transactionID),
		zap.Uint("refund_transaction_id", refund.ID),
		zap.Int64("amount", refund.Amount))

	return refund, nil
}

func transactionTypeFor(resourceType models.ResourceType) models.TransactionType {
	switch resourceType {
	case models.ResourceTypeChat:
		return models.TransactionTypeChatCreate
	case models.ResourceTypeColumn:
		return models.TransactionTypeColumnAccess
	case models.ResourceTypeRoom:
		return models.TransactionTypeRoomAccess
	default:
		return models.TransactionTypeAdminAdjustment
	}
}
