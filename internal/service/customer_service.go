package service

import (
	"strings"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"

	"gorm.io/gorm"
)

// CustomerService customer and address business service
type CustomerService struct {
	repo repository.CustomerRepository
}

// NewCustomerService builds a customer service
func NewCustomerService(repo repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// CustomerInput create/update parameters
type CustomerInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"` // CPF or CNPJ
	Notes    string `json:"notes"`
	Status   string `json:"status"`
}

// AddressInput address create/update parameters
type AddressInput struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	IsDefault  bool   `json:"is_default"`
}

// CreateCustomer registers a customer
func (s *CustomerService) CreateCustomer(input CustomerInput) (*models.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrInputInvalid
	}
	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCustomerEmailTaken
	}

	status := input.Status
	if status != constants.CustomerStatusInactive {
		status = constants.CustomerStatusActive
	}
	customer := &models.Customer{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Document: keepDigits(input.Document),
		Notes:    input.Notes,
		Status:   status,
	}
	if err := s.repo.Create(customer); err != nil {
		return nil, err
	}
	logger.Infow("customer_created", "customer_id", customer.ID, "email", customer.Email)
	return customer, nil
}

// UpdateCustomer updates customer profile fields
func (s *CustomerService) UpdateCustomer(id uint, input CustomerInput) (*models.Customer, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" && email != customer.Email {
		existing, err := s.repo.GetByEmail(email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != customer.ID {
			return nil, ErrCustomerEmailTaken
		}
		customer.Email = email
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		customer.Name = name
	}
	customer.Phone = strings.TrimSpace(input.Phone)
	customer.Document = keepDigits(input.Document)
	customer.Notes = input.Notes
	if input.Status == constants.CustomerStatusActive || input.Status == constants.CustomerStatusInactive {
		customer.Status = input.Status
	}

	if err := s.repo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomer fetches a customer with addresses
func (s *CustomerService) GetCustomer(id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// ListCustomers returns the paginated customer list
func (s *CustomerService) ListCustomers(filter repository.CustomerListFilter) ([]models.Customer, int64, error) {
	return s.repo.List(filter)
}

// CreateAddress adds a delivery address
func (s *CustomerService) CreateAddress(customerID uint, input AddressInput) (*models.Address, error) {
	customer, err := s.repo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	if strings.TrimSpace(input.Street) == "" || strings.TrimSpace(input.City) == "" {
		return nil, ErrInputInvalid
	}

	address := &models.Address{
		CustomerID: customerID,
		Label:      strings.TrimSpace(input.Label),
		Street:     strings.TrimSpace(input.Street),
		Number:     strings.TrimSpace(input.Number),
		Complement: strings.TrimSpace(input.Complement),
		District:   strings.TrimSpace(input.District),
		City:       strings.TrimSpace(input.City),
		State:      strings.ToUpper(strings.TrimSpace(input.State)),
		ZipCode:    strings.TrimSpace(input.ZipCode),
		IsDefault:  input.IsDefault,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if address.IsDefault {
			if err := repo.ClearDefaultAddress(customerID); err != nil {
				return err
			}
		}
		return repo.CreateAddress(address)
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// UpdateAddress updates a delivery address
func (s *CustomerService) UpdateAddress(customerID, addressID uint, input AddressInput) (*models.Address, error) {
	address, err := s.repo.GetAddressByID(addressID)
	if err != nil {
		return nil, err
	}
	if address == nil || address.CustomerID != customerID {
		return nil, ErrAddressNotFound
	}

	address.Label = strings.TrimSpace(input.Label)
	address.Street = strings.TrimSpace(input.Street)
	address.Number = strings.TrimSpace(input.Number)
	address.Complement = strings.TrimSpace(input.Complement)
	address.District = strings.TrimSpace(input.District)
	address.City = strings.TrimSpace(input.City)
	address.State = strings.ToUpper(strings.TrimSpace(input.State))
	address.ZipCode = strings.TrimSpace(input.ZipCode)

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault && !address.IsDefault {
			if err := repo.ClearDefaultAddress(customerID); err != nil {
				return err
			}
		}
		address.IsDefault = input.IsDefault
		return repo.UpdateAddress(address)
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// DeleteAddress removes a delivery address
func (s *CustomerService) DeleteAddress(customerID, addressID uint) error {
	address, err := s.repo.GetAddressByID(addressID)
	if err != nil {
		return err
	}
	if address == nil || address.CustomerID != customerID {
		return ErrAddressNotFound
	}
	return s.repo.DeleteAddress(addressID)
}

// ListAddresses returns the customer's addresses
func (s *CustomerService) ListAddresses(customerID uint) ([]models.Address, error) {
	return s.repo.ListAddresses(customerID)
}
