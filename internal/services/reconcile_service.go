package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

// LedgerDrift reports a balance row whose cached totals disagree with the
// transaction log. Drift is reported, never silently repaired: a drifted
// row means a write path bypassed the ledger and needs a human.
type LedgerDrift struct {
	UserID          uint  `json:"user_id"`
	CurrentPoints   int64 `json:"current_points"`
	ComputedPoints  int64 `json:"computed_points"`
	TotalEarned     int64 `json:"total_earned"`
	ComputedEarned  int64 `json:"computed_earned"`
	TotalSpent      int64 `json:"total_spent"`
	ComputedSpent   int64 `json:"computed_spent"`
	TransactionRows int64 `json:"transaction_rows"`
}

type ledgerAggregate struct {
	UserID   uint
	Earned   int64
	Spent    int64
	RowCount int64
}

// VerifyLedger recomputes every balance from the transaction log and
// returns the rows that drifted.
func VerifyLedger() ([]LedgerDrift, error) {
	var aggregates []ledgerAggregate
	err := database.DB.Model(&models.PointTransaction{}).
		Select("user_id, " +
			"COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS earned, " +
			"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS spent, " +
			"COUNT(*) AS row_count").
		Group("user_id").
		Scan(&aggregates).Error
	if err != nil {
		return nil, err
	}

	computed := make(map[uint]ledgerAggregate, len(aggregates))
	for _, agg := range aggregates {
		computed[agg.UserID] = agg
	}

	var drifts []LedgerDrift
	var balances []models.PointBalance
	if err := database.DB.FindInBatches(&balances, 500, func(tx *gorm.DB, _ int) error {
		for _, balance := range balances {
			agg := computed[balance.UserID]
			delete(computed, balance.UserID)
			if balance.CurrentPoints == agg.Earned-agg.Spent &&
				balance.TotalEarned == agg.Earned &&
				balance.TotalSpent == agg.Spent {
				continue
			}
			drifts = append(drifts, LedgerDrift{
				UserID:          balance.UserID,
				CurrentPoints:   balance.CurrentPoints,
				ComputedPoints:  agg.Earned - agg.Spent,
				TotalEarned:     balance.TotalEarned,
				ComputedEarned:  agg.Earned,
				TotalSpent:      balance.TotalSpent,
				ComputedSpent:   agg.Spent,
				TransactionRows: agg.RowCount,
			})
		}
		return nil
	}).Error; err != nil {
		return nil, err
	}

	// Transactions without a balance row mean the balance was never created.
	for _, agg := range computed {
		drifts = append(drifts, LedgerDrift{
			UserID:          agg.UserID,
			ComputedPoints:  agg.Earned - agg.Spent,
			ComputedEarned:  agg.Earned,
			ComputedSpent:   agg.Spent,
			TransactionRows: agg.RowCount,
		})
	}

	return drifts, nil
}

// RebuildReferralCounters recomputes each referrer's cached linked/total
// counts from the relationship rows. The counters are display caches, so
// unlike balances they are safe to repair in place. Returns the number of
// users corrected.
func RebuildReferralCounters() (int64, error) {
	type referralCount struct {
		ReferrerID uint
		Total      int64
		Linked     int64
	}

	var counts []referralCount
	err := database.DB.Model(&models.ReferralRelationship{}).
		Select("referrer_id, COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS linked",
			models.ReferralStatusLinked).
		Group("referrer_id").
		Scan(&counts).Error
	if err != nil {
		return 0, err
	}

	var corrected int64
	for _, count := range counts {
		result := database.DB.Model(&models.User{}).
			Where("id = ? AND (total_referral_count <> ? OR line_connected_referral_count <> ?)",
				count.ReferrerID, count.Total, count.Linked).
			Updates(map[string]interface{}{
				"total_referral_count":          count.Total,
				"line_connected_referral_count": count.Linked,
			})
		if result.Error != nil {
			return corrected, result.Error
		}
		if result.RowsAffected > 0 {
			corrected += result.RowsAffected
			zap.L().Warn("repaired referral counters",
				zap.Uint("referrer_id", count.ReferrerID),
				zap.Int64("total", count.Total),
				zap.Int64("linked", count.Linked))
		}
	}
	return corrected, nil
}

// StartMaintenanceScheduler runs the background sweeps: hourly stale
// referral expiry and a daily ledger audit. Returns the scheduler so the
// caller can shut it down.
func StartMaintenanceScheduler(pendingMaxAge time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			expired, err := ExpireStaleReferrals(pendingMaxAge)
			if err != nil {
				zap.L().Error("referral expiry sweep failed", zap.Error(err))
				return
			}
			if expired > 0 {
				zap.L().Info("expired stale referrals", zap.Int64("count", expired))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			drifts, err := VerifyLedger()
			if err != nil {
				zap.L().Error("ledger audit failed", zap.Error(err))
				return
			}
			for _, drift := range drifts {
				zap.L().Error("ledger drift detected",
					zap.Uint("user_id", drift.UserID),
					zap.Int64("current_points", drift.CurrentPoints),
					zap.Int64("computed_points", drift.ComputedPoints))
			}
			if _, err := RebuildReferralCounters(); err != nil {
				zap.L().Error("referral counter rebuild failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
