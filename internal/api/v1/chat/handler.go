package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// CreateSession godoc
// @Summary Create a chat session
// @Description Open a new AI prediction chat, debiting the per-session cost
// @Tags chat
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body CreateSessionInput true "Session details"
// @Success 201 {object} utils.Response{data=SessionResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /chat/sessions [post]
func CreateSession(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	var input CreateSessionInput
	if !utils.BindAndValidate(c, &input) {
		return
	}
	if input.Title == "" {
		input.Title = "New prediction chat"
	}

	session, _, err := services.CreateChatSession(u.ID, input.Title)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientPoints) {
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create chat session"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Chat session created successfully", SessionResponse{
		ID:         session.ID,
		Title:      session.Title,
		Status:     session.Status,
		PointsUsed: session.PointsUsed,
		CreatedAt:  session.CreatedAt,
	}))
}

// ListSessions godoc
// @Summary List chat sessions
// @Description List the current user's chat sessions, newest first
// @Tags chat
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=SessionListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /chat/sessions [get]
func ListSessions(c *gin.Context) {
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

	sessions, total, err := services.FindChatSessions(u.ID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch chat sessions"))
		return
	}

	items := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, SessionResponse{
			ID:         s.ID,
			Title:      s.Title,
			Status:     s.Status,
			PointsUsed: s.PointsUsed,
			CreatedAt:  s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Chat sessions retrieved successfully", SessionListResponse{
		Sessions: items,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}))
}

// CloseSession godoc
// @Summary Close a chat session
// @Description Mark one of the current user's sessions as closed
// @Tags chat
// @Produce json
// @Security Bearer
// @Param id path string true "Session ID"
// @Success 200 {object} utils.Response{data=SessionResponse}
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /chat/sessions/{id}/close [post]
func CloseSession(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	session, err := services.CloseChatSession(u.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Chat session not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to close chat session"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Chat session closed successfully", SessionResponse{
		ID:         session.ID,
		Title:      session.Title,
		Status:     session.Status,
		PointsUsed: session.PointsUsed,
		CreatedAt:  session.CreatedAt,
	}))
}
