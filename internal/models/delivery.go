package models

import (
	"time"

	"gorm.io/gorm"
)

// Delivery per-order delivery record, updated by the back office as the
// order moves through the route.
type Delivery struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	OrderID     uint           `gorm:"uniqueIndex;not null" json:"order_id"`
	Status      string         `gorm:"not null" json:"status"` // waiting/en_route/delivered/canceled
	CourierNote string         `gorm:"type:text" json:"courier_note"`
	HandledBy   *uint          `gorm:"index" json:"handled_by,omitempty"` // admin who marked it delivered
	DeliveredAt *time.Time     `gorm:"index" json:"delivered_at,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Delivery) TableName() string {
	return "deliveries"
}
