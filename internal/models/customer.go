package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer subscriber/buyer of produce boxes
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"not null;index" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string         `gorm:"type:varchar(32);index" json:"phone"`    // E.164 or national format, stored as given
	Document  string         `gorm:"type:varchar(20);index" json:"document"` // CPF or CNPJ, digits only
	Notes     string         `gorm:"type:text" json:"notes"`
	Status    string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Addresses []Address `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`
}

// TableName sets the table name
func (Customer) TableName() string {
	return "customers"
}
