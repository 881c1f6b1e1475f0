package repository

import "time"

// CustomerListFilter filters for the customer list
type CustomerListFilter struct {
	Page        int
	PageSize    int
	Keyword     string // matches name, email, phone or document
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ProductListFilter filters for the product list
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// OrderListFilter filters for the order list
type OrderListFilter struct {
	Page             int
	PageSize         int
	CustomerID       uint
	SubscriptionID   uint
	PaymentStatus    string
	DeliveryStatus   string
	PaymentMethod    string
	OrderNo          string
	DeliveryDate     *time.Time
	DeliveryTimeSlot string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// PaymentListFilter filters for the charge list
type PaymentListFilter struct {
	Page           int
	PageSize       int
	Scope          string
	OrderID        uint
	SubscriptionID uint
	Method         string
	Status         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// SubscriptionListFilter filters for the subscription list
type SubscriptionListFilter struct {
	Page       int
	PageSize   int
	CustomerID uint
	Status     string
	Frequency  string
	Weekday    *int
	DueBefore  *time.Time // next_delivery_date at or before this instant
}

// AdminLoginLogListFilter filters for the login audit list
type AdminLoginLogListFilter struct {
	Page        int
	PageSize    int
	AdminID     uint
	Username    string
	Status      string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter filters for the permission audit list
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
