package models

import "time"

// Room is an expert chat room. Membership is pay-once.
type Room struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name           string `gorm:"type:varchar(255);not null"`
	Description    string `gorm:"type:text"`
	RequiredPoints int64  `gorm:"not null;default:0"`
	IsActive       bool   `gorm:"not null;default:true;index"`
}

func (Room) TableName() string {
	return "rooms"
}
