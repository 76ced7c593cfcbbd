package points

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

func operatorFrom(c *gin.Context) string {
	if userVal, exists := c.Get("user"); exists {
		if u, ok := userVal.(models.User); ok {
			return u.Email
		}
	}
	return "unknown"
}

// Adjust godoc
// @Summary Adjust a user's points
// @Description Grant (positive amount) or deduct (negative amount) points as an admin correction
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body AdjustInput true "Adjustment"
// @Success 200 {object} utils.Response{data=AdjustResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/points/adjust [post]
func Adjust(c *gin.Context) {
	var input AdjustInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	operator := operatorFrom(c)

	var tx *models.PointTransaction
	var err error
	if input.Amount > 0 {
		tx, err = services.GrantPoints(input.UserID, input.Amount,
			models.TransactionTypeAdminAdjustment, input.Reason, "", operator)
	} else {
		tx, err = services.UsePoints(input.UserID, -input.Amount,
			models.TransactionTypeAdminAdjustment, input.Reason, "", operator)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPointAmount):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		case errors.Is(err, services.ErrInsufficientPoints):
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to adjust points"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Points adjusted successfully", AdjustResponse{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		BalanceAfter:  tx.BalanceAfter,
	}))
}

// Refund godoc
// @Summary Refund a spend transaction
// @Description Credit back a debit whose downstream action failed. Each debit refunds at most once.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body RefundInput true "Refund request"
// @Success 200 {object} utils.Response{data=AdjustResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/points/refund [post]
func Refund(c *gin.Context) {
	var input RefundInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	refund, err := services.RefundAccess(input.TransactionID, input.Reason, operatorFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrRefundNotAllowed):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		case errors.Is(err, services.ErrAlreadyRefunded):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to refund transaction"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction refunded successfully", AdjustResponse{
		TransactionID: refund.ID,
		Amount:        refund.Amount,
		BalanceAfter:  refund.BalanceAfter,
	}))
}

// Audit godoc
// @Summary Audit the point ledger
// @Description Recompute every balance from the transaction log and report drifted rows
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=[]services.LedgerDrift}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/points/audit [get]
func Audit(c *gin.Context) {
	drifts, err := services.VerifyLedger()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to audit ledger"))
		return
	}

	message := "Ledger is consistent"
	if len(drifts) > 0 {
		message = "Ledger drift detected"
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse(message, drifts))
}
