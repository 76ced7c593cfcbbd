package room

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

// ListRooms godoc
// @Summary List prediction rooms
// @Description List active rooms with the caller's membership state
// @Tags room
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=RoomListResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /rooms [get]
func ListRooms(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	memberships, err := services.FindRooms(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch rooms"))
		return
	}

	items := make([]RoomItem, 0, len(memberships))
	for _, m := range memberships {
		items = append(items, RoomItem{
			ID:             m.Room.ID,
			Name:           m.Room.Name,
			Description:    m.Room.Description,
			RequiredPoints: m.Room.RequiredPoints,
			Member:         m.Member,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Rooms retrieved successfully", RoomListResponse{Rooms: items}))
}

// JoinRoom godoc
// @Summary Join a prediction room
// @Description Join a room, debiting the pay-once price on first join
// @Tags room
// @Produce json
// @Security Bearer
// @Param id path int true "Room ID"
// @Success 200 {object} utils.Response{data=JoinRoomResponse}
// @Failure 401 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /rooms/{id}/join [post]
func JoinRoom(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := user.(models.User)

	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil || roomID < 1 {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Room not found"))
		return
	}

	membership, err := services.JoinRoom(u.ID, uint(roomID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, services.ErrInsufficientPoints):
			c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to join room"))
		}
		return
	}

	resp := JoinRoomResponse{
		Room: RoomItem{
			ID:             membership.Room.ID,
			Name:           membership.Room.Name,
			Description:    membership.Room.Description,
			RequiredPoints: membership.Room.RequiredPoints,
			Member:         true,
		},
	}
	if membership.Grant != nil {
		resp.PointsUsed = membership.Grant.PointsUsed
		resp.GrantToken = membership.Grant.GrantToken
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Room joined successfully", resp))
}
