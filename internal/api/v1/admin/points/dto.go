package points

type AdjustInput struct {
	UserID uint   `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required,max=255"`
}

type AdjustResponse struct {
	TransactionID uint  `json:"transaction_id"`
	Amount        int64 `json:"amount"`
	BalanceAfter  int64 `json:"balance_after"`
}

type RefundInput struct {
	TransactionID uint   `json:"transaction_id" binding:"required"`
	Reason        string `json:"reason" binding:"required,max=255"`
}
