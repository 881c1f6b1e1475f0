package admin

import (
	"errors"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// ListPayments returns the paginated charge list.
func (h *Handler) ListPayments(c *gin.Context) {
	page, pageSize := normalizePagination(queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	filter := repository.PaymentListFilter{
		Page:           page,
		PageSize:       pageSize,
		OrderID:        queryUint(c, "order_id"),
		SubscriptionID: queryUint(c, "subscription_id"),
		Method:         c.Query("method"),
		Status:         c.Query("status"),
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}
	response.SuccessWithPage(c, payments, buildPagination(page, pageSize, total))
}

// GetPayment returns one charge.
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(id)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "payment not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}
	response.Success(c, payment)
}

// CreateChargeRequest charge creation payload.
type CreateChargeRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreateCharge opens a gateway charge for a pending order.
func (h *Handler) CreateCharge(c *gin.Context) {
	var req CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	payment, err := h.PaymentService.CreateCharge(c.Request.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderNotPending):
			respondError(c, response.CodeBadRequest, "order is not awaiting payment", nil)
		case errors.Is(err, service.ErrOrderCanceled):
			respondError(c, response.CodeBadRequest, "order is canceled", nil)
		case errors.Is(err, service.ErrGatewayConfigInvalid):
			respondError(c, response.CodeInternal, "payment gateway not configured", err)
		case errors.Is(err, service.ErrGatewayRequestFailed), errors.Is(err, service.ErrGatewayResponseInvalid):
			respondError(c, response.CodeInternal, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "charge creation failed", err)
		}
		return
	}
	response.Success(c, payment)
}

// CheckCharge queries the gateway for the current charge status and
// applies the result.
func (h *Handler) CheckCharge(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	h.checkChargeByID(c, id)
}

// ChargeScopeRequest addresses the newest charge of an order or a
// subscription.
type ChargeScopeRequest struct {
	Type string `json:"type" binding:"required,oneof=order subscription"`
	ID   uint   `json:"id" binding:"required"`
}

// CheckChargeByScope checks the newest charge of the given order or
// subscription.
func (h *Handler) CheckChargeByScope(c *gin.Context) {
	var req ChargeScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	payment, err := h.PaymentService.ResolveLatestCharge(req.Type, req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "no charge found", nil)
			return
		}
		respondError(c, response.CodeInternal, "charge lookup failed", err)
		return
	}
	h.checkChargeByID(c, payment.ID)
}

func (h *Handler) checkChargeByID(c *gin.Context, id uint) {
	result, err := h.PaymentService.CheckCharge(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrGatewayConfigInvalid):
			respondError(c, response.CodeInternal, "payment gateway not configured", err)
		case errors.Is(err, service.ErrGatewayRequestFailed), errors.Is(err, service.ErrGatewayResponseInvalid):
			respondError(c, response.CodeInternal, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "charge check failed", err)
		}
		return
	}
	response.Success(c, gin.H{
		"payment": result.Payment,
		"status":  result.Status,
		"updated": result.Updated,
	})
}

// ReissueCharge replaces an expired charge with a fresh one of the same
// method and amount.
func (h *Handler) ReissueCharge(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	h.reissueChargeByID(c, id)
}

// ReissueChargeByScope reissues the newest charge of the given order or
// subscription.
func (h *Handler) ReissueChargeByScope(c *gin.Context) {
	var req ChargeScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	payment, err := h.PaymentService.ResolveLatestCharge(req.Type, req.ID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "no charge found", nil)
			return
		}
		respondError(c, response.CodeInternal, "charge lookup failed", err)
		return
	}
	h.reissueChargeByID(c, payment.ID)
}

func (h *Handler) reissueChargeByID(c *gin.Context, id uint) {
	payment, err := h.PaymentService.ReissueCharge(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrReissueInProgress):
			respondError(c, response.CodeConflict, "reissue already in progress", nil)
		case errors.Is(err, service.ErrPaymentNotExpired):
			respondError(c, response.CodeBadRequest, "only expired charges can be reissued", nil)
		case errors.Is(err, service.ErrOrderNotPending):
			respondError(c, response.CodeBadRequest, "order is not awaiting payment", nil)
		case errors.Is(err, service.ErrGatewayConfigInvalid):
			respondError(c, response.CodeInternal, "payment gateway not configured", err)
		case errors.Is(err, service.ErrGatewayRequestFailed), errors.Is(err, service.ErrGatewayResponseInvalid):
			respondError(c, response.CodeInternal, "payment gateway unavailable", err)
		default:
			respondError(c, response.CodeInternal, "charge reissue failed", err)
		}
		return
	}
	response.Success(c, payment)
}
