package points

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// GetBalance godoc
// @Summary Get point balance
// @Description Get the current user's point balance
// @Tags points
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=BalanceResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /points/balance [get]
func GetBalance(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	balance, err := services.GetBalance(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch balance"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Balance retrieved successfully", BalanceResponse{
		UserID:        u.ID,
		CurrentPoints: balance.CurrentPoints,
		TotalEarned:   balance.TotalEarned,
		TotalSpent:    balance.TotalSpent,
	}))
}

// ClaimDailyLogin godoc
// @Summary Claim daily login bonus
// @Description Grant the once-per-day login bonus to the current user
// @Tags points
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=DailyLoginResponse}
// @Failure 401 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /points/daily-login [post]
func ClaimDailyLogin(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	txn, err := services.ClaimDailyLoginBonus(u.ID)
	if err != nil {
		if err == services.ErrDailyLoginAlreadyClaimed {
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, "Daily login bonus already claimed today"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to claim daily login bonus"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Daily login bonus claimed", DailyLoginResponse{
		PointsGranted: txn.Amount,
		NewBalance:    txn.BalanceAfter,
	}))
}

// ListTransactions godoc
// @Summary List own transactions
// @Description Get the current user's point transaction history, newest first
// @Tags points
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param type query string false "Filter by transaction type"
// @Success 200 {object} utils.Response{data=TransactionHistoryResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /points/transactions [get]
func ListTransactions(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	userID := u.ID
	filter := services.TransactionFilter{
		UserID: &userID,
		Page:   page,
		Limit:  limit,
	}
	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}

	transactions, total, err := services.FindPointTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	items := make([]TransactionItem, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, TransactionItem{
			ID:              t.ID,
			CreatedAt:       t.CreatedAt,
			Amount:          t.Amount,
			BalanceAfter:    t.BalanceAfter,
			Type:            t.Type,
			Reason:          t.Reason,
			RelatedEntityID: t.RelatedEntityID,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionHistoryResponse{
		Transactions: items,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}))
}
