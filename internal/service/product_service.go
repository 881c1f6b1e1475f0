package service

import (
	"strings"

	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService produce catalog business service
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService builds a product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductInput create/update parameters
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Unit        string   `json:"unit"`  // bag/bunch/unit/kg
	Price       string   `json:"price"` // decimal string
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
	SortOrder   int      `json:"sort_order"`
}

// CreateProduct adds a produce item to the catalog
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInputInvalid
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil || price.IsNegative() {
		return nil, ErrInputInvalid
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Unit:        strings.TrimSpace(input.Unit),
		PriceAmount: models.NewMoneyFromDecimal(price),
		Tags:        models.StringArray(input.Tags),
		IsActive:    active,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	logger.Infow("product_created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// UpdateProduct updates a catalog item
func (s *ProductService) UpdateProduct(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		product.Name = name
	}
	if trimmed := strings.TrimSpace(input.Price); trimmed != "" {
		price, err := decimal.NewFromString(trimmed)
		if err != nil || price.IsNegative() {
			return nil, ErrInputInvalid
		}
		product.PriceAmount = models.NewMoneyFromDecimal(price)
	}
	product.Description = strings.TrimSpace(input.Description)
	product.Unit = strings.TrimSpace(input.Unit)
	product.Tags = models.StringArray(input.Tags)
	product.SortOrder = input.SortOrder
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct fetches a catalog item
func (s *ProductService) GetProduct(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListProducts returns the paginated catalog
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(filter)
}

// DeleteProduct soft-deletes a catalog item; order snapshots are unaffected
func (s *ProductService) DeleteProduct(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.repo.Delete(id)
}
