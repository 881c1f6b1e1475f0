package models

import "time"

// AdminLoginLog records back-office login attempts for auditing.
type AdminLoginLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AdminID    uint      `gorm:"index" json:"admin_id"` // zero when the attempt failed before lookup
	Username   string    `gorm:"index;not null" json:"username"`
	Status     string    `gorm:"index;not null" json:"status"` // success/failed
	FailReason string    `gorm:"index" json:"fail_reason"`
	ClientIP   string    `gorm:"type:varchar(64);index" json:"client_ip"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	RequestID  string    `gorm:"type:varchar(64);index" json:"request_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name
func (AdminLoginLog) TableName() string {
	return "admin_login_logs"
}
