package referral

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// ListRelationships godoc
// @Summary List referral relationships
// @Description Get a paginated list of referral relationships with filtering. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param referrer_id query int false "Filter by referrer"
// @Param status query string false "Filter by status"
// @Success 200 {object} utils.Response{data=RelationshipListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/referrals [get]
func ListRelationships(c *gin.Context) {
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

	filter := services.ReferralFilter{Page: page, Limit: limit}
	if referrerStr, exists := c.GetQuery("referrer_id"); exists {
		referrerID, err := strconv.Atoi(referrerStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid referrer_id"))
			return
		}
		rid := uint(referrerID)
		filter.ReferrerID = &rid
	}
	if statusStr, exists := c.GetQuery("status"); exists {
		status := models.ReferralStatus(statusStr)
		filter.Status = &status
	}

	relationships, total, err := services.FindReferralRelationships(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch referral relationships"))
		return
	}

	var items []RelationshipItem
	for _, rel := range relationships {
		items = append(items, RelationshipItem{
			ID:              rel.ID,
			ReferrerID:      rel.ReferrerID,
			ReferredID:      rel.ReferredID,
			Status:          rel.Status,
			BonusPoints:     rel.BonusPoints,
			LineConnectedAt: rel.LineConnectedAt,
			CreatedAt:       rel.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Referral relationships retrieved successfully", RelationshipListResponse{
		Relationships: items,
		Total:         total,
		Page:          page,
		Limit:         limit,
	}))
}

// CancelRelationship godoc
// @Summary Cancel a referral relationship
// @Description Cancel a pending or linked relationship. Already-paid bonuses are never clawed back.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path int true "Relationship ID"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/referrals/{id}/cancel [post]
func CancelRelationship(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid relationship ID"))
		return
	}

	operator := "unknown"
	if userVal, exists := c.Get("user"); exists {
		if u, ok := userVal.(models.User); ok {
			operator = u.Email
		}
	}

	if err := services.CancelReferral(uint(id), operator); err != nil {
		switch {
		case errors.Is(err, services.ErrReferralNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrReferralNotCancellable):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to cancel referral relationship"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Referral relationship cancelled successfully", nil))
}

// SuspiciousAccounts godoc
// @Summary List suspicious LINE accounts
// @Description List LINE accounts claimed by two or more distinct users
// @Tags admin
// @Produce json
// @Security Bearer
// @Param min_claimants query int false "Minimum distinct claimants" default(2)
// @Success 200 {object} utils.Response{data=[]SuspiciousAccountItem}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/referrals/suspicious [get]
func SuspiciousAccounts(c *gin.Context) {
	minClaimants, err := strconv.Atoi(c.DefaultQuery("min_claimants", "2"))
	if err != nil || minClaimants < 2 {
		minClaimants = 2
	}

	attempts, err := services.SuspiciousLineAccounts(minClaimants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch suspicious accounts"))
		return
	}

	items := make([]SuspiciousAccountItem, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, SuspiciousAccountItem{
			LineUserID:        attempt.LineUserID,
			DistinctClaimants: attempt.DistinctClaimants,
			AttemptCount:      attempt.AttemptCount,
			FirstAttemptAt:    attempt.FirstAttemptAt,
			LastAttemptAt:     attempt.LastAttemptAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Suspicious accounts retrieved successfully", items))
}

// GetBonusSteps godoc
// @Summary Get the referral bonus staircase
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=[]BonusStepItem}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/referrals/bonus-steps [get]
func GetBonusSteps(c *gin.Context) {
	steps, err := services.GetReferralBonusSteps()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch bonus steps"))
		return
	}

	items := make([]BonusStepItem, 0, len(steps))
	for _, step := range steps {
		items = append(items, BonusStepItem{StepIndex: step.StepIndex, Points: step.Points})
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Bonus steps retrieved successfully", items))
}

// SetBonusStep godoc
// @Summary Set one step of the referral bonus staircase
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body BonusStepInput true "Step"
// @Success 200 {object} utils.Response{data=BonusStepItem}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/referrals/bonus-steps [put]
func SetBonusStep(c *gin.Context) {
	var input BonusStepInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	step, err := services.SetReferralBonusStep(input.StepIndex, input.Points)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to set bonus step"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Bonus step updated successfully", BonusStepItem{
		StepIndex: step.StepIndex,
		Points:    step.Points,
	}))
}
