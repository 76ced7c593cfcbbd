package referral

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// ApplyCode godoc
// @Summary Apply a referral code
// @Description Bind the current user to the code owner's referral program
// @Tags referral
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body ApplyCodeInput true "Referral code"
// @Success 200 {object} utils.Response{data=RelationshipResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /referral/apply [post]
func ApplyCode(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	var input ApplyCodeInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	rel, err := services.ApplyReferralCode(u.ID, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode), errors.Is(err, services.ErrSelfReferral):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		case errors.Is(err, services.ErrAlreadyReferred):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to apply referral code"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Referral code applied successfully", RelationshipResponse{
		ID:         rel.ID,
		ReferrerID: rel.ReferrerID,
		Status:     string(rel.Status),
		CreatedAt:  rel.CreatedAt,
	}))
}

// ConfirmLineLink godoc
// @Summary Confirm LINE account link
// @Description Bind a LINE account to the current user, paying the link bonus and any referral bonus
// @Tags referral
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body LineLinkInput true "LINE user ID"
// @Success 200 {object} utils.Response{data=LineLinkResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /referral/line-link [post]
func ConfirmLineLink(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	var input LineLinkInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	result, err := services.ConfirmLineLink(u.ID, input.LineUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateLineAccount), errors.Is(err, services.ErrLineAlreadyLinked):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to link LINE account"))
		}
		return
	}

	message := "LINE account linked successfully"
	if result.AlreadyLinked {
		message = "LINE account was already linked"
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse(message, LineLinkResponse{
		AlreadyLinked: result.AlreadyLinked,
		LinkBonus:     result.LinkBonus,
		ReferrerBonus: result.ReferrerBonus,
		LinkedCount:   result.LinkedCount,
	}))
}

// Status godoc
// @Summary Get referral status
// @Description Get the current user's referral code, counters and next bonus
// @Tags referral
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=services.ReferralStatusInfo}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /referral/status [get]
func Status(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	status, err := services.GetReferralStatus(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch referral status"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Referral status retrieved successfully", status))
}
