package models

import (
	"time"

	"gorm.io/gorm"
)

// Product produce catalog entry (box, bunch or weighed item)
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Unit        string         `gorm:"type:varchar(20);not null;default:'box'" json:"unit"`
	PriceAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`
	Tags        StringArray    `gorm:"type:json" json:"tags"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Product) TableName() string {
	return "products"
}
