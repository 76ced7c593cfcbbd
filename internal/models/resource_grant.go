package models

import "time"

type ResourceType string

const (
	ResourceTypeChat   ResourceType = "chat"
	ResourceTypeColumn ResourceType = "column"
	ResourceTypeRoom   ResourceType = "room"
)

// ResourceGrant records ownership of a pay-once resource. The unique index
// on (user, type, id) is the hard guarantee that two concurrent first-time
// purchases of the same resource charge exactly once.
type ResourceGrant struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	UserID       uint         `gorm:"not null;uniqueIndex:idx_owner_resource"`
	ResourceType ResourceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_owner_resource"`
	ResourceID   string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_owner_resource"`

	GrantToken    string `gorm:"type:varchar(36);not null"`
	PointsUsed    int64  `gorm:"not null;default:0"`
	TransactionID uint   `gorm:"index"` // 0 for free grants
}

func (ResourceGrant) TableName() string {
	return "resource_grants"
}
