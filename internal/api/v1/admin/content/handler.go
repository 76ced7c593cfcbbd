package content

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// CreateColumn godoc
// @Summary Create a column
// @Description Create a premium article. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body CreateColumnInput true "Column"
// @Success 201 {object} utils.Response{data=models.Column}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/columns [post]
func CreateColumn(c *gin.Context) {
	var input CreateColumnInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	column := &models.Column{
		Title:          input.Title,
		Summary:        input.Summary,
		Content:        input.Content,
		AccessType:     input.AccessType,
		RequiredPoints: input.RequiredPoints,
	}
	if err := services.CreateColumn(column); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create column"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Column created successfully", column))
}

// UpdateColumn godoc
// @Summary Update a column
// @Description Apply partial updates to a column, including publishing it. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Column ID"
// @Param input body UpdateColumnInput true "Fields to update"
// @Success 200 {object} utils.Response{data=models.Column}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/columns/{id} [patch]
func UpdateColumn(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid column ID"))
		return
	}

	var input UpdateColumnInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	updates := make(map[string]interface{})
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Summary != nil {
		updates["summary"] = *input.Summary
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.AccessType != nil {
		updates["access_type"] = *input.AccessType
	}
	if input.RequiredPoints != nil {
		updates["required_points"] = *input.RequiredPoints
	}
	if input.IsPublished != nil {
		updates["is_published"] = *input.IsPublished
		if *input.IsPublished {
			now := time.Now()
			updates["published_at"] = &now
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	column, err := services.UpdateColumn(uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrColumnNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update column"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Column updated successfully", column))
}

// CreateRoom godoc
// @Summary Create a room
// @Description Create a prediction room. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body CreateRoomInput true "Room"
// @Success 201 {object} utils.Response{data=models.Room}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/rooms [post]
func CreateRoom(c *gin.Context) {
	var input CreateRoomInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	room := &models.Room{
		Name:           input.Name,
		Description:    input.Description,
		RequiredPoints: input.RequiredPoints,
		IsActive:       true,
	}
	if err := services.CreateRoom(room); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create room"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Room created successfully", room))
}

// UpdateRoom godoc
// @Summary Update a room
// @Description Apply partial updates to a room. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Room ID"
// @Param input body UpdateRoomInput true "Fields to update"
// @Success 200 {object} utils.Response{data=models.Room}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/rooms/{id} [patch]
func UpdateRoom(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid room ID"))
		return
	}

	var input UpdateRoomInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	updates := make(map[string]interface{})
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.RequiredPoints != nil {
		updates["required_points"] = *input.RequiredPoints
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	room, err := services.UpdateRoom(uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update room"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Room updated successfully", room))
}
