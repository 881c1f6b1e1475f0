package repository

import (
	"errors"

	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository subscription data access
type SubscriptionRepository interface {
	Create(subscription *models.Subscription, items []models.SubscriptionItem) error
	Update(subscription *models.Subscription) error
	UpdateFields(id uint, updates map[string]interface{}) error
	ReplaceItems(subscriptionID uint, items []models.SubscriptionItem) error
	GetByID(id uint) (*models.Subscription, error)
	List(filter SubscriptionListFilter) ([]models.Subscription, int64, error)
	ListDue(filter SubscriptionListFilter) ([]models.Subscription, error)
	WithTx(tx *gorm.DB) *GormSubscriptionRepository
}

// GormSubscriptionRepository GORM implementation
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository builds a subscription repository
func NewSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormSubscriptionRepository) WithTx(tx *gorm.DB) *GormSubscriptionRepository {
	if tx == nil {
		return r
	}
	return &GormSubscriptionRepository{db: tx}
}

// Create inserts a subscription with its items
func (r *GormSubscriptionRepository) Create(subscription *models.Subscription, items []models.SubscriptionItem) error {
	if err := r.db.Create(subscription).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SubscriptionID = subscription.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// Update saves a subscription
func (r *GormSubscriptionRepository) Update(subscription *models.Subscription) error {
	return r.db.Save(subscription).Error
}

// UpdateFields applies a partial update
func (r *GormSubscriptionRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// ReplaceItems swaps the cycle items
func (r *GormSubscriptionRepository) ReplaceItems(subscriptionID uint, items []models.SubscriptionItem) error {
	if subscriptionID == 0 {
		return nil
	}
	if err := r.db.Where("subscription_id = ?", subscriptionID).Delete(&models.SubscriptionItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SubscriptionID = subscriptionID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a subscription with items and customer
func (r *GormSubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.Preload("Items").Preload("Customer").First(&subscription, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// List returns the paginated subscription list
func (r *GormSubscriptionRepository) List(filter SubscriptionListFilter) ([]models.Subscription, int64, error) {
	query := r.buildListQuery(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var subscriptions []models.Subscription
	if err := query.Preload("Items").Preload("Customer").Order("id desc").Find(&subscriptions).Error; err != nil {
		return nil, 0, err
	}
	return subscriptions, total, nil
}

// ListDue returns subscriptions whose next delivery is at or before the cutoff instant
func (r *GormSubscriptionRepository) ListDue(filter SubscriptionListFilter) ([]models.Subscription, error) {
	query := r.buildListQuery(filter)
	var subscriptions []models.Subscription
	if err := query.Preload("Items").Preload("Customer").Order("next_delivery_date asc, id asc").Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *GormSubscriptionRepository) buildListQuery(filter SubscriptionListFilter) *gorm.DB {
	query := r.db.Model(&models.Subscription{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Frequency != "" {
		query = query.Where("frequency = ?", filter.Frequency)
	}
	if filter.Weekday != nil {
		query = query.Where("delivery_weekday = ?", *filter.Weekday)
	}
	if filter.DueBefore != nil {
		query = query.Where("next_delivery_date IS NOT NULL AND next_delivery_date <= ?", *filter.DueBefore)
	}
	return query
}
