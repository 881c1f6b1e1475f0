package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository charge data access
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByIDForUpdate(id uint) (*models.Payment, error)
	GetLatestByProviderRef(providerRef string) (*models.Payment, error)
	GetLatestByOrderID(orderID uint) (*models.Payment, error)
	GetLatestBySubscriptionID(subscriptionID uint) (*models.Payment, error)
	ListByOrderID(orderID uint) ([]models.Payment, error)
	GetLatestPendingByOrder(orderID uint, now time.Time) (*models.Payment, error)
	ListPending(limit int) ([]models.Payment, error)
	ListExpiredPending(now time.Time, limit int) ([]models.Payment, error)
	ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM implementation
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository builds a charge repository
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create inserts a charge
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update saves a charge
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID fetches a charge
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDForUpdate fetches a charge with a row lock, for use inside a transaction
func (r *GormPaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetLatestByProviderRef fetches the newest charge for a gateway reference
func (r *GormPaymentRepository) GetLatestByProviderRef(providerRef string) (*models.Payment, error) {
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("provider_ref = ?", providerRef).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestByOrderID fetches the newest charge on an order. Subscription
// cycle charges carry their order id too, so no scope filter here.
func (r *GormPaymentRepository) GetLatestByOrderID(orderID uint) (*models.Payment, error) {
	if orderID == 0 {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("order_id = ?", orderID).
		Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestBySubscriptionID fetches the newest charge on a subscription cycle
func (r *GormPaymentRepository) GetLatestBySubscriptionID(subscriptionID uint) (*models.Payment, error) {
	if subscriptionID == 0 {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("subscription_id = ?", subscriptionID).
		Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListByOrderID returns all charges issued for an order
func (r *GormPaymentRepository) ListByOrderID(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.Where("order_id = ?", orderID).Order("id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// GetLatestPendingByOrder fetches the newest live charge with usable payment material
func (r *GormPaymentRepository) GetLatestPendingByOrder(orderID uint, now time.Time) (*models.Payment, error) {
	var payment models.Payment
	result := r.db.Where(
		"order_id = ? AND status IN ? AND (expires_at IS NULL OR expires_at > ?) AND ((checkout_url IS NOT NULL AND checkout_url <> '') OR (pix_payload IS NOT NULL AND pix_payload <> ''))",
		orderID,
		[]string{constants.ChargeStatusInitiated, constants.ChargeStatusPending},
		now,
	).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListPending returns charges still awaiting gateway confirmation
func (r *GormPaymentRepository) ListPending(limit int) ([]models.Payment, error) {
	var payments []models.Payment
	query := r.db.Where("status IN ?", []string{constants.ChargeStatusInitiated, constants.ChargeStatusPending}).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListExpiredPending returns pending charges whose expiry has passed
func (r *GormPaymentRepository) ListExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	query := r.db.Where(
		"status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
		[]string{constants.ChargeStatusInitiated, constants.ChargeStatusPending},
		now,
	).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListAdmin paginated charge list for the back office
func (r *GormPaymentRepository) ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.SubscriptionID != 0 {
		query = query.Where("subscription_id = ?", filter.SubscriptionID)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
