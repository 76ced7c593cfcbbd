package column

import (
	"time"

	"github.com/jinjinsansan/boat-backend/internal/models"
)

type ColumnListItem struct {
	ID             uint       `json:"id"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	AccessType     string     `json:"access_type"`
	RequiredPoints int64      `json:"required_points"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

type ColumnListResponse struct {
	Columns []ColumnListItem `json:"columns"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

type ColumnDetailResponse struct {
	ColumnListItem
	Content    string `json:"content,omitempty"`
	HasAccess  bool   `json:"has_access"`
	PointsUsed int64  `json:"points_used,omitempty"`
}

func toListItem(col models.Column) ColumnListItem {
	return ColumnListItem{
		ID:             col.ID,
		Title:          col.Title,
		Summary:        col.Summary,
		AccessType:     col.AccessType,
		RequiredPoints: col.RequiredPoints,
		PublishedAt:    col.PublishedAt,
	}
}
