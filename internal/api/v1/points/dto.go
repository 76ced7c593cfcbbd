package points

import (
	"time"

	"github.com/jinjinsansan/boat-backend/internal/models"
)

type BalanceResponse struct {
	UserID        uint  `json:"user_id"`
	CurrentPoints int64 `json:"current_points"`
	TotalEarned   int64 `json:"total_earned"`
	TotalSpent    int64 `json:"total_spent"`
}

type DailyLoginResponse struct {
	PointsGranted int64 `json:"points_granted"`
	NewBalance    int64 `json:"new_balance"`
}

type TransactionItem struct {
	ID              uint                   `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	Amount          int64                  `json:"amount"`
	BalanceAfter    int64                  `json:"balance_after"`
	Type            models.TransactionType `json:"type"`
	Reason          string                 `json:"reason"`
	RelatedEntityID string                 `json:"related_entity_id,omitempty"`
}

type TransactionHistoryResponse struct {
	Transactions []TransactionItem `json:"transactions"`
	Total        int64             `json:"total"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
}
