package admin

import (
	"errors"
	"time"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOrders returns the order list.
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := normalizePagination(queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	filter := repository.OrderListFilter{
		Page:             page,
		PageSize:         pageSize,
		CustomerID:       queryUint(c, "customer_id"),
		SubscriptionID:   queryUint(c, "subscription_id"),
		PaymentStatus:    c.Query("payment_status"),
		DeliveryStatus:   c.Query("delivery_status"),
		PaymentMethod:    c.Query("payment_method"),
		OrderNo:          c.Query("order_no"),
		DeliveryTimeSlot: c.Query("delivery_time_slot"),
	}
	if raw := c.Query("delivery_date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid delivery_date", nil)
			return
		}
		filter.DeliveryDate = &date
	}

	orders, total, err := h.OrderService.ListOrders(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, buildPagination(page, pageSize, total))
}

// GetOrder returns one order with items, customer and delivery record.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.Success(c, order)
}

// CreateOrder registers a manual order placed over phone or WhatsApp.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	req.ClientIP = c.ClientIP()

	order, err := h.OrderService.CreateOrder(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			respondError(c, response.CodeNotFound, "customer not found", nil)
		case errors.Is(err, service.ErrAddressNotFound):
			respondError(c, response.CodeNotFound, "address not found", nil)
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, response.CodeNotFound, "product not found", nil)
		case errors.Is(err, service.ErrProductInactive):
			respondError(c, response.CodeBadRequest, "product inactive", nil)
		case errors.Is(err, service.ErrOrderItemsEmpty):
			respondError(c, response.CodeBadRequest, "order items empty", nil)
		case errors.Is(err, service.ErrPaymentMethodInvalid):
			respondError(c, response.CodeBadRequest, "payment method invalid", nil)
		case errors.Is(err, service.ErrInputInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "order save failed", err)
		}
		return
	}
	response.Success(c, order)
}

// UpdateDeliveryStatusRequest delivery transition payload.
type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdateDeliveryStatus moves an order along the delivery flow.
func (h *Handler) UpdateDeliveryStatus(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.UpdateDeliveryStatus(id, req.Status, adminID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrStatusInvalid):
			respondError(c, response.CodeBadRequest, "delivery status transition not allowed", nil)
		case errors.Is(err, service.ErrOrderNotPending):
			respondError(c, response.CodeBadRequest, "payment not confirmed", nil)
		default:
			respondError(c, response.CodeInternal, "delivery status update failed", err)
		}
		return
	}
	response.Success(c, order)
}

// CancelOrderRequest cancel payload.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder cancels an undelivered order.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CancelOrder(id, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrStatusInvalid):
			respondError(c, response.CodeBadRequest, "delivered orders cannot be canceled", nil)
		default:
			respondError(c, response.CodeInternal, "order cancel failed", err)
		}
		return
	}
	response.Success(c, order)
}

// ConfirmOrderPayment marks an order paid by hand, for payments settled
// outside the gateways (bank transfer, cash on handover).
func (h *Handler) ConfirmOrderPayment(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.ConfirmPayment(id, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderCanceled):
			respondError(c, response.CodeBadRequest, "order is canceled", nil)
		case errors.Is(err, service.ErrOrderNotPending):
			respondError(c, response.CodeBadRequest, "declined orders cannot be confirmed", nil)
		default:
			respondError(c, response.CodeInternal, "payment confirmation failed", err)
		}
		return
	}
	response.Success(c, order)
}
