package repository

import (
	"errors"
	"strings"

	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository customer data access
type CustomerRepository interface {
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	CreateAddress(address *models.Address) error
	UpdateAddress(address *models.Address) error
	DeleteAddress(id uint) error
	GetAddressByID(id uint) (*models.Address, error)
	ListAddresses(customerID uint) ([]models.Address, error)
	ClearDefaultAddress(customerID uint) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM implementation
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository builds a customer repository
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// Create inserts a customer
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update saves a customer
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// GetByID fetches a customer with addresses
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Preload("Addresses").First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByEmail fetches a customer by email
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	var customer models.Customer
	result := r.db.Where("email = ?", email).Limit(1).Find(&customer)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &customer, nil
}

// List returns the paginated customer list
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where(
			"name LIKE ? OR email LIKE ? OR phone LIKE ? OR document LIKE ?",
			like, like, like, like,
		)
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

	var customers []models.Customer
	if err := query.Preload("Addresses").Order("id desc").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// CreateAddress inserts an address
func (r *GormCustomerRepository) CreateAddress(address *models.Address) error {
	return r.db.Create(address).Error
}

// UpdateAddress saves an address
func (r *GormCustomerRepository) UpdateAddress(address *models.Address) error {
	return r.db.Save(address).Error
}

// DeleteAddress soft deletes an address
func (r *GormCustomerRepository) DeleteAddress(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Address{}, id).Error
}

// GetAddressByID fetches an address
func (r *GormCustomerRepository) GetAddressByID(id uint) (*models.Address, error) {
	var address models.Address
	if err := r.db.First(&address, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

// ListAddresses returns the customer's addresses
func (r *GormCustomerRepository) ListAddresses(customerID uint) ([]models.Address, error) {
	var addresses []models.Address
	if customerID == 0 {
		return addresses, nil
	}
	if err := r.db.Where("customer_id = ?", customerID).Order("is_default desc, id asc").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// ClearDefaultAddress unsets the default flag before electing a new one
func (r *GormCustomerRepository) ClearDefaultAddress(customerID uint) error {
	if customerID == 0 {
		return nil
	}
	return r.db.Model(&models.Address{}).
		Where("customer_id = ? AND is_default = ?", customerID, true).
		Update("is_default", false).Error
}
