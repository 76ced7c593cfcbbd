package transaction

import (
	"time"

	"github.com/jinjinsansan/boat-backend/internal/models"
)

type TransactionListItem struct {
	ID              uint                   `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	UserID          uint                   `json:"user_id"`
	Amount          int64                  `json:"amount"`
	BalanceAfter    int64                  `json:"balance_after"`
	Type            models.TransactionType `json:"type"`
	Reason          string                 `json:"reason"`
	RelatedEntityID string                 `json:"related_entity_id"`
	Operator        string                 `json:"operator"`
	Hash            string                 `json:"hash"`
}

type TransactionListResponse struct {
	Transactions []TransactionListItem `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}
