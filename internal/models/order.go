package models

import (
	"time"

	"gorm.io/gorm"
)

// Order one delivery of produce, manual or generated from a subscription
type Order struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	OrderNo        string `gorm:"uniqueIndex;not null" json:"order_no"`
	CustomerID     uint   `gorm:"index;not null" json:"customer_id"`
	AddressID      *uint  `gorm:"index" json:"address_id,omitempty"`
	SubscriptionID *uint  `gorm:"index" json:"subscription_id,omitempty"`
	Source         string `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`

	PaymentMethod      string     `gorm:"type:varchar(20);not null" json:"payment_method"` // pix/card
	PaymentStatus      string     `gorm:"index;not null" json:"payment_status"`
	PaymentConfirmedAt *time.Time `gorm:"index" json:"payment_confirmed_at"`

	DeliveryStatus       string     `gorm:"index;not null" json:"delivery_status"`
	DeliveryDate         *time.Time `gorm:"index" json:"delivery_date"`                 // date only, time part zero
	DeliveryTimeSlot     string     `gorm:"type:varchar(20)" json:"delivery_time_slot"` // morning/afternoon, empty until assigned
	SlotChosenByCustomer bool       `gorm:"not null;default:false" json:"slot_chosen_by_customer"`

	TotalAmount  Money  `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	CancelReason string `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	ClientIP     string `gorm:"type:varchar(64)" json:"client_ip,omitempty"`

	CanceledAt *time.Time     `gorm:"index" json:"canceled_at"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Delivery *Delivery   `gorm:"foreignKey:OrderID" json:"delivery,omitempty"`
}

// TableName sets the table name
func (Order) TableName() string {
	return "orders"
}
