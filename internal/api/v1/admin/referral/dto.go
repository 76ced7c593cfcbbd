package referral

import (
	"time"

	"github.com/jinjinsansan/boat-backend/internal/models"
)

type RelationshipItem struct {
	ID              uint                  `json:"id"`
	ReferrerID      uint                  `json:"referrer_id"`
	ReferredID      uint                  `json:"referred_id"`
	Status          models.ReferralStatus `json:"status"`
	BonusPoints     int64                 `json:"bonus_points"`
	LineConnectedAt *time.Time            `json:"line_connected_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

type RelationshipListResponse struct {
	Relationships []RelationshipItem `json:"relationships"`
	Total         int64              `json:"total"`
	Page          int                `json:"page"`
	Limit         int                `json:"limit"`
}

type SuspiciousAccountItem struct {
	LineUserID        string    `json:"line_user_id"`
	DistinctClaimants int       `json:"distinct_claimants"`
	AttemptCount      int       `json:"attempt_count"`
	FirstAttemptAt    time.Time `json:"first_attempt_at"`
	LastAttemptAt     time.Time `json:"last_attempt_at"`
}

type BonusStepInput struct {
	StepIndex int   `json:"step_index" binding:"required,min=1"`
	Points    int64 `json:"points" binding:"required,min=1"`
}

type BonusStepItem struct {
	StepIndex int   `json:"step_index"`
	Points    int64 `json:"points"`
}
