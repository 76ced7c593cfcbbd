package services

import (
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomMembership is the result of a join: the room plus the grant that
// paid for it (nil when the room is free).
type RoomMembership struct {
	Room   models.Room  `json:"room"`
	Member bool         `json:"member"`
	Grant  *AccessGrant `json:"grant,omitempty"`
}

// FindRooms lists active rooms and whether the user already joined each.
func FindRooms(userID uint) ([]RoomMembership, error) {
	var rooms []models.Room
	if err := database.DB.Where("is_active = ?", true).Order("id asc").Find(&rooms).Error; err != nil {
		return nil, err
	}

	memberships := make([]RoomMembership, 0, len(rooms))
	for _, room := range rooms {
		member, err := HasGrant(userID, models.ResourceTypeRoom, strconv.FormatUint(uint64(room.ID), 10))
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, RoomMembership{Room: room, Member: member})
	}
	return memberships, nil
}

// JoinRoom grants membership in a prediction room. Membership is pay-once:
// rejoining an already-joined room costs nothing and replays the original
// grant.
func JoinRoom(userID, roomID uint) (*RoomMembership, error) {
	var room models.Room
	if err := database.DB.Where("id = ? AND is_active = ?", roomID, true).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	grant, err := GrantAccess(userID, models.ResourceTypeRoom, strconv.FormatUint(uint64(roomID), 10),
		room.RequiredPoints, PaymentPolicyPayOnce, "Room membership: "+room.Name)
	if err != nil {
		return nil, err
	}

	return &RoomMembership{Room: room, Member: true, Grant: grant}, nil
}

// CreateRoom is admin-only.
func CreateRoom(room *models.Room) error {
	return database.DB.Create(room).Error
}

// UpdateRoom applies partial updates to a room.
func UpdateRoom(roomID uint, updates map[string]interface{}) (*models.Room, error) {
	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if err := database.DB.Model(&room).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &room, nil
}
