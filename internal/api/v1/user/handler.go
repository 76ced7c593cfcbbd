package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// CurrentUser godoc
// @Summary Get current user
// @Description Get current user's profile with points and referral summary
// @Tags user
// @Produce  json
// @Security Bearer
// @Success 200 {object} utils.Response{data=user.UserResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/user [get]
func CurrentUser(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	u := user.(models.User)

	// Force reload from DB so the cached copy from the middleware never
	// hides a balance or link-state change
	var latestUser models.User
	if err := database.DB.First(&latestUser, u.ID).Error; err == nil {
		u = latestUser
	}

	token, err := utils.GenerateToken(u.ID, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Could not generate token"))
		return
	}

	resp := UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Role:            u.Role,
		ReferralCode:    u.ReferralCode,
		LineLinked:      u.LineUserID != nil,
		LineConnectedAt: u.LineConnectedAt,
		Token:           token,
	}

	if balance, err := services.GetBalance(u.ID); err == nil {
		resp.Points = &PointsInfo{
			CurrentPoints: balance.CurrentPoints,
			TotalEarned:   balance.TotalEarned,
			TotalSpent:    balance.TotalSpent,
		}
	}

	if status, err := services.GetReferralStatus(u.ID); err == nil {
		resp.Referral = &ReferralInfo{
			LinkedCount:     status.LinkedCount,
			PendingCount:    status.PendingCount,
			TotalCount:      status.TotalCount,
			NextBonusPoints: status.NextBonusPoints,
		}
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User information retrieved successfully", resp))
}
