package chat

import "time"

type CreateSessionInput struct {
	Title string `json:"title" binding:"omitempty,max=200"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	PointsUsed int64     `json:"points_used"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}
