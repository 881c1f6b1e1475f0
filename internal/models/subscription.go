package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription recurring produce delivery plan
type Subscription struct {
	ID         uint  `gorm:"primarykey" json:"id"`
	CustomerID uint  `gorm:"index;not null" json:"customer_id"`
	AddressID  *uint `gorm:"index" json:"address_id,omitempty"`

	Frequency         string `gorm:"type:varchar(20);not null" json:"frequency"`      // weekly/biweekly
	DeliveryWeekday   int    `gorm:"not null" json:"delivery_weekday"`                // 1=Monday .. 5=Friday
	PreferredTimeSlot string `gorm:"type:varchar(20)" json:"preferred_time_slot"`     // morning/afternoon, empty = no preference
	PaymentMethod     string `gorm:"type:varchar(20);not null" json:"payment_method"` // pix/card

	Status           string     `gorm:"index;not null" json:"status"`
	NextDeliveryDate *time.Time `gorm:"index" json:"next_delivery_date"`
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`

	CycleAmount Money `gorm:"type:decimal(20,2);not null;default:0" json:"cycle_amount"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items    []SubscriptionItem `gorm:"foreignKey:SubscriptionID" json:"items,omitempty"`
	Customer *Customer          `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName sets the table name
func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionItem product and quantity included in each cycle
type SubscriptionItem struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	SubscriptionID uint           `gorm:"index;not null" json:"subscription_id"`
	ProductID      uint           `gorm:"index;not null" json:"product_id"`
	Name           string         `gorm:"not null" json:"name"`
	Unit           string         `gorm:"type:varchar(20);not null" json:"unit"`
	UnitPrice      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (SubscriptionItem) TableName() string {
	return "subscription_items"
}
