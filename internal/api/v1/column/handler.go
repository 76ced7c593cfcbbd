package column

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// ListColumns godoc
// @Summary List published columns
// @Description List published columns without content, newest first
// @Tags column
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=ColumnListResponse}
// @Failure 400 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /columns [get]
func ListColumns(c *gin.Context) {
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

	columns, total, err := services.FindColumns(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch columns"))
		return
	}

	items := make([]ColumnListItem, 0, len(columns))
	for _, col := range columns {
		items = append(items, toListItem(col))
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Columns retrieved successfully", ColumnListResponse{
		Columns: items,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}))
}

// ViewColumn godoc
// @Summary View a column
// @Description Read a column, debiting the pay-once price on first access
// @Tags column
// @Produce json
// @Security Bearer
// @Param id path int true "Column ID"
// @Success 200 {object} utils.Response{data=ColumnDetailResponse}
// @Failure 401 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /columns/{id} [get]
func ViewColumn(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	columnID, err := strconv.Atoi(c.Param("id"))
	if err != nil || columnID < 1 {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Column not found"))
		return
	}

	view, err := services.ViewColumn(u.ID, uint(columnID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrColumnNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrInsufficientPoints):
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch column"))
		}
		return
	}

	resp := ColumnDetailResponse{
		ColumnListItem: toListItem(view.Column),
		HasAccess:      view.HasAccess,
	}
	if view.HasAccess {
		resp.Content = view.Column.Content
	}
	if view.Grant != nil {
		resp.PointsUsed = view.Grant.PointsUsed
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Column retrieved successfully", resp))
}
