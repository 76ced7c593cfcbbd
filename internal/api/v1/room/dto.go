package room

type RoomItem struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	RequiredPoints int64  `json:"required_points"`
	Member         bool   `json:"member"`
}

type RoomListResponse struct {
	Rooms []RoomItem `json:"rooms"`
}

type JoinRoomResponse struct {
	Room       RoomItem `json:"room"`
	PointsUsed int64    `json:"points_used"`
	GrantToken string   `json:"grant_token,omitempty"`
}
