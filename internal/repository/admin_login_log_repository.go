package repository

import (
	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
)

// AdminLoginLogRepository login audit data access
type AdminLoginLogRepository interface {
	Create(log *models.AdminLoginLog) error
	List(filter AdminLoginLogListFilter) ([]models.AdminLoginLog, int64, error)
}

// GormAdminLoginLogRepository GORM implementation
type GormAdminLoginLogRepository struct {
	db *gorm.DB
}

// NewAdminLoginLogRepository builds a login audit repository
func NewAdminLoginLogRepository(db *gorm.DB) *GormAdminLoginLogRepository {
	return &GormAdminLoginLogRepository{db: db}
}

// Create inserts a login record
func (r *GormAdminLoginLogRepository) Create(log *models.AdminLoginLog) error {
	return r.db.Create(log).Error
}

// List returns the paginated login audit trail
func (r *GormAdminLoginLogRepository) List(filter AdminLoginLogListFilter) ([]models.AdminLoginLog, int64, error) {
	query := r.db.Model(&models.AdminLoginLog{})

	if filter.AdminID != 0 {
		query = query.Where("admin_id = ?", filter.AdminID)
	}
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientIP != "" {
		query = query.Where("client_ip = ?", filter.ClientIP)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.AdminLoginLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
