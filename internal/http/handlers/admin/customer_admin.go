package admin

import (
	"errors"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCustomers returns the customer list.
func (h *Handler) ListCustomers(c *gin.Context) {
	page, pageSize := normalizePagination(queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	filter := repository.CustomerListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("search"),
		Status:   c.Query("status"),
	}

	customers, total, err := h.CustomerService.ListCustomers(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "customer fetch failed", err)
		return
	}
	response.SuccessWithPage(c, customers, buildPagination(page, pageSize, total))
}

// GetCustomer returns one customer with addresses.
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	customer, err := h.CustomerService.GetCustomer(id)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			respondError(c, response.CodeNotFound, "customer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "customer fetch failed", err)
		return
	}
	response.Success(c, customer)
}

// CreateCustomer registers a customer.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req service.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	customer, err := h.CustomerService.CreateCustomer(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInputInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrCustomerEmailTaken):
			respondError(c, response.CodeConflict, "email already registered", nil)
		default:
			respondError(c, response.CodeInternal, "customer save failed", err)
		}
		return
	}
	response.Success(c, customer)
}

// UpdateCustomer updates a customer.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req service.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	customer, err := h.CustomerService.UpdateCustomer(id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(c, response.CodeNotFound, "customer not found", nil)
		case errors.Is(err, service.ErrInputInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrCustomerEmailTaken):
			respondError(c, response.CodeConflict, "email already registered", nil)
		default:
			respondError(c, response.CodeInternal, "customer save failed", err)
		}
		return
	}
	response.Success(c, customer)
}

// ListAddresses returns a customer's addresses.
func (h *Handler) ListAddresses(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	addresses, err := h.CustomerService.ListAddresses(id)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			respondError(c, response.CodeNotFound, "customer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "address fetch failed", err)
		return
	}
	response.Success(c, addresses)
}

// CreateAddress adds a delivery address to a customer.
func (h *Handler) CreateAddress(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	address, err := h.CustomerService.CreateAddress(id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(c, response.CodeNotFound, "customer not found", nil)
		case errors.Is(err, service.ErrInputInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "address save failed", err)
		}
		return
	}
	response.Success(c, address)
}

// UpdateAddress updates a delivery address.
func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	addressID, ok := paramUint(c, "address_id")
	if !ok {
		return
	}
	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	address, err := h.CustomerService.UpdateAddress(id, addressID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAddressNotFound):
			respondError(c, response.CodeNotFound, "address not found", nil)
		case errors.Is(err, service.ErrInputInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "address save failed", err)
		}
		return
	}
	response.Success(c, address)
}

// DeleteAddress removes a delivery address.
func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	addressID, ok := paramUint(c, "address_id")
	if !ok {
		return
	}

	if err := h.CustomerService.DeleteAddress(id, addressID); err != nil {
		if errors.Is(err, service.ErrAddressNotFound) {
			respondError(c, response.CodeNotFound, "address not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "address delete failed", err)
		return
	}
	response.SuccessWithMsg(c, "address deleted", nil)
}
