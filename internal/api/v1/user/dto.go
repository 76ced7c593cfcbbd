package user

import "time"

// UserResponse defines the response structure for user information.
type UserResponse struct {
	ID              uint          `json:"id"`
	Email           string        `json:"email"`
	Role            string        `json:"role"`
	ReferralCode    string        `json:"referral_code"`
	LineLinked      bool          `json:"line_linked"`
	LineConnectedAt *time.Time    `json:"line_connected_at,omitempty"`
	Points          *PointsInfo   `json:"points,omitempty"`
	Referral        *ReferralInfo `json:"referral,omitempty"`
	Token           string        `json:"token,omitempty"`
}

// PointsInfo summarizes the user's ledger position.
type PointsInfo struct {
	CurrentPoints int64 `json:"current_points"`
	TotalEarned   int64 `json:"total_earned"`
	TotalSpent    int64 `json:"total_spent"`
}

// ReferralInfo summarizes the user's referral progress.
type ReferralInfo struct {
	LinkedCount     int64 `json:"linked_count"`
	PendingCount    int64 `json:"pending_count"`
	TotalCount      int64 `json:"total_count"`
	NextBonusPoints int64 `json:"next_bonus_points"`
}
