package services

import (
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

var ErrColumnNotFound = errors.New("column not found")

// ColumnView is a column plus the caller's access state. Content is
// omitted until access is held.
type ColumnView struct {
	Column    models.Column `json:"column"`
	HasAccess bool          `json:"has_access"`
	Grant     *AccessGrant  `json:"grant,omitempty"`
}

// FindColumns lists published columns without content, newest first.
func FindColumns(page, limit int) ([]models.Column, int64, error) {
	var columns []models.Column
	var total int64

	query := database.DB.Model(&models.Column{}).Where("is_published = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Omit("content").Order("published_at desc").
		Limit(limit).Offset(offset).Find(&columns).Error; err != nil {
		return nil, 0, err
	}
	return columns, total, nil
}

// ViewColumn returns a column, purchasing access when needed. Paid columns
// are pay-once: the first view debits RequiredPoints, every later view
// replays the stored grant for free.
func ViewColumn(userID, columnID uint) (*ColumnView, error) {
	var column models.Column
	if err := database.DB.Where("id = ? AND is_published = ?", columnID, true).First(&column).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, err
	}

	if column.AccessType == models.ColumnAccessFree {
		return &ColumnView{Column: column, HasAccess: true}, nil
	}

	grant, err := GrantAccess(userID, models.ResourceTypeColumn, strconv.FormatUint(uint64(columnID), 10),
		column.RequiredPoints, PaymentPolicyPayOnce, "Column access: "+column.Title)
	if err != nil {
		if errors.Is(err, ErrInsufficientPoints) {
			// Preview without content so the caller can show the price.
			column.Content = ""
			return &ColumnView{Column: column, HasAccess: false}, ErrInsufficientPoints
		}
		return nil, err
	}

	return &ColumnView{Column: column, HasAccess: true, Grant: grant}, nil
}

// CreateColumn is admin-only.
func CreateColumn(column *models.Column) error {
	if column.AccessType == "" {
		column.AccessType = models.ColumnAccessFree
	}
	return database.DB.Create(column).Error
}

// UpdateColumn applies partial updates to a column.
func UpdateColumn(columnID uint, updates map[string]interface{}) (*models.Column, error) {
	var column models.Column
	if err := database.DB.First(&column, columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, err
	}
	if err := database.DB.Model(&column).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &column, nil
}
