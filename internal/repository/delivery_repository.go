package repository

import (
	"errors"

	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
)

// DeliveryRepository delivery record data access
type DeliveryRepository interface {
	Create(delivery *models.Delivery) error
	Update(delivery *models.Delivery) error
	GetByOrderID(orderID uint) (*models.Delivery, error)
	WithTx(tx *gorm.DB) *GormDeliveryRepository
}

// GormDeliveryRepository GORM implementation
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository builds a delivery repository
func NewDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormDeliveryRepository) WithTx(tx *gorm.DB) *GormDeliveryRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryRepository{db: tx}
}

// Create inserts a delivery record
func (r *GormDeliveryRepository) Create(delivery *models.Delivery) error {
	return r.db.Create(delivery).Error
}

// Update saves a delivery record
func (r *GormDeliveryRepository) Update(delivery *models.Delivery) error {
	return r.db.Save(delivery).Error
}

// GetByOrderID fetches the delivery record for an order
func (r *GormDeliveryRepository) GetByOrderID(orderID uint) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.Where("order_id = ?", orderID).First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}
