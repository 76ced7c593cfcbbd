package models

import "time"

const (
	ColumnAccessFree          = "free"
	ColumnAccessPointRequired = "point_required"
)

// Column is a premium article. Point-gated columns are pay-once: a reader
// is charged RequiredPoints the first time and never again.
type Column struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title          string `gorm:"type:varchar(255);not null"`
	Summary        string `gorm:"type:text"`
	Content        string `gorm:"type:text"`
	AccessType     string `gorm:"type:varchar(20);not null;default:'free'"`
	RequiredPoints int64  `gorm:"not null;default:0"`
	IsPublished    bool   `gorm:"not null;default:false;index"`
	PublishedAt    *time.Time
}

func (Column) TableName() string {
	return "columns"
}
