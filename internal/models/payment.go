package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment a charge issued at the gateway for an order or a subscription cycle.
// Re-issuing replaces ProviderRef/CheckoutURL/PixPayload in place.
type Payment struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	Scope          string `gorm:"type:varchar(20);index;not null" json:"scope"` // order/subscription
	OrderID        *uint  `gorm:"index" json:"order_id,omitempty"`
	SubscriptionID *uint  `gorm:"index" json:"subscription_id,omitempty"`
	Method         string `gorm:"type:varchar(20);not null" json:"method"` // pix/card
	ProviderType   string `gorm:"not null" json:"provider_type"`           // pixgate/cardgate

	Amount Money  `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status string `gorm:"index;not null" json:"status"`

	// ReissueCount counts gateway re-issues; automatic re-issue fires
	// only while it is zero, manual re-issues are unrestricted.
	ReissueCount int `gorm:"not null;default:0" json:"reissue_count"`

	ProviderRef     string `gorm:"index" json:"provider_ref"`         // gateway txid / checkout intent id
	CheckoutURL     string `gorm:"type:text" json:"checkout_url"`     // card hosted checkout
	PixPayload      string `gorm:"type:text" json:"pix_payload"`      // BR Code copy-and-paste string
	QRCodeURL       string `gorm:"type:text" json:"qr_code_url"`      // rendered QR image, when the gateway provides one
	ProviderPayload JSON   `gorm:"type:json" json:"provider_payload"` // raw gateway response

	ExpiresAt *time.Time     `gorm:"index" json:"expires_at"`
	PaidAt    *time.Time     `gorm:"index" json:"paid_at"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Payment) TableName() string {
	return "payments"
}
