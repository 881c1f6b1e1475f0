package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin back-office operator account
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // bump to invalidate all sessions
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                               // tokens issued before this are rejected
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // super admins bypass role checks
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name
func (Admin) TableName() string {
	return "admins"
}
