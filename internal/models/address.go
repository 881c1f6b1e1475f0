package models

import (
	"time"

	"gorm.io/gorm"
)

// Address customer delivery address
type Address struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CustomerID uint           `gorm:"index;not null" json:"customer_id"`
	Label      string         `gorm:"type:varchar(50)" json:"label"` // home/work/other
	Street     string         `gorm:"not null" json:"street"`
	Number     string         `gorm:"type:varchar(20)" json:"number"`
	Complement string         `gorm:"type:varchar(100)" json:"complement"`
	District   string         `gorm:"type:varchar(100);index" json:"district"`
	City       string         `gorm:"type:varchar(100);not null" json:"city"`
	State      string         `gorm:"type:varchar(2);not null" json:"state"` // UF code
	ZipCode    string         `gorm:"type:varchar(9);index" json:"zip_code"` // CEP
	IsDefault  bool           `gorm:"not null;default:false" json:"is_default"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Address) TableName() string {
	return "addresses"
}
