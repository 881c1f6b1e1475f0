package admin

import (
	"errors"
	"time"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// ListSubscriptions returns the paginated plan list.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	page, pageSize := normalizePagination(queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	filter := repository.SubscriptionListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: queryUint(c, "customer_id"),
		Status:     c.Query("status"),
		Frequency:  c.Query("frequency"),
	}
	if raw := c.Query("weekday"); raw != "" {
		weekday := queryInt(c, "weekday", 0)
		filter.Weekday = &weekday
	}

	subscriptions, total, err := h.SubscriptionService.ListSubscriptions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "subscription fetch failed", err)
		return
	}
	response.SuccessWithPage(c, subscriptions, buildPagination(page, pageSize, total))
}

// GetSubscription returns one plan with its items.
func (h *Handler) GetSubscription(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	subscription, err := h.SubscriptionService.GetSubscription(id)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			respondError(c, response.CodeNotFound, "subscription not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "subscription fetch failed", err)
		return
	}
	response.Success(c, subscription)
}

// CreateSubscription registers a recurring delivery plan.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req service.SubscriptionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	subscription, err := h.SubscriptionService.CreateSubscription(req)
	if err != nil {
		h.respondSubscriptionSaveError(c, err)
		return
	}
	response.Success(c, subscription)
}

// UpdateSubscription replaces the plan basket and schedule.
func (h *Handler) UpdateSubscription(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req service.SubscriptionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	subscription, err := h.SubscriptionService.UpdateSubscription(id, req)
	if err != nil {
		h.respondSubscriptionSaveError(c, err)
		return
	}
	response.Success(c, subscription)
}

func (h *Handler) respondSubscriptionSaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound):
		respondError(c, response.CodeNotFound, "subscription not found", nil)
	case errors.Is(err, service.ErrSubscriptionInactive):
		respondError(c, response.CodeBadRequest, "subscription is canceled", nil)
	case errors.Is(err, service.ErrCustomerNotFound):
		respondError(c, response.CodeNotFound, "customer not found", nil)
	case errors.Is(err, service.ErrSubscriptionWeekdayInvalid):
		respondError(c, response.CodeBadRequest, "delivery weekday must be Monday through Friday", nil)
	case errors.Is(err, service.ErrPaymentMethodInvalid):
		respondError(c, response.CodeBadRequest, "payment method invalid", nil)
	case errors.Is(err, service.ErrOrderItemsEmpty):
		respondError(c, response.CodeBadRequest, "subscription items empty", nil)
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrProductInactive):
		respondError(c, response.CodeBadRequest, "product inactive", nil)
	case errors.Is(err, service.ErrInputInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "subscription save failed", err)
	}
}

// PauseSubscription suspends cycle generation for an active plan.
func (h *Handler) PauseSubscription(c *gin.Context) {
	h.transitionSubscription(c, h.SubscriptionService.PauseSubscription, "subscription pause failed")
}

// ResumeSubscription reactivates a paused plan.
func (h *Handler) ResumeSubscription(c *gin.Context) {
	h.transitionSubscription(c, h.SubscriptionService.ResumeSubscription, "subscription resume failed")
}

// CancelSubscription permanently ends a plan.
func (h *Handler) CancelSubscription(c *gin.Context) {
	h.transitionSubscription(c, h.SubscriptionService.CancelSubscription, "subscription cancel failed")
}

func (h *Handler) transitionSubscription(c *gin.Context, fn func(uint) (*models.Subscription, error), failMsg string) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	subscription, err := fn(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubscriptionNotFound):
			respondError(c, response.CodeNotFound, "subscription not found", nil)
		case errors.Is(err, service.ErrStatusInvalid):
			respondError(c, response.CodeBadRequest, "subscription status transition not allowed", nil)
		default:
			respondError(c, response.CodeInternal, failMsg, err)
		}
		return
	}
	response.Success(c, subscription)
}

// GenerateSubscriptionOrder forces the pending order for a due cycle,
// useful when the renewal worker is down.
func (h *Handler) GenerateSubscriptionOrder(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	order, err := h.SubscriptionService.GenerateCycleOrder(id, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubscriptionNotFound):
			respondError(c, response.CodeNotFound, "subscription not found", nil)
		case errors.Is(err, service.ErrSubscriptionInactive):
			respondError(c, response.CodeBadRequest, "subscription is not active", nil)
		default:
			respondError(c, response.CodeInternal, "cycle order generation failed", err)
		}
		return
	}
	if order == nil {
		response.SuccessWithMsg(c, "subscription not due yet", nil)
		return
	}
	response.Success(c, order)
}

// RunSubscriptionRenewals generates cycle orders for every due
// subscription, the on-demand twin of the worker renewal loop.
func (h *Handler) RunSubscriptionRenewals(c *gin.Context) {
	now := time.Now()
	subscriptions, err := h.SubscriptionService.ListDueSubscriptions(now)
	if err != nil {
		respondError(c, response.CodeInternal, "due subscription lookup failed", err)
		return
	}

	generated := 0
	failed := 0
	for _, sub := range subscriptions {
		order, genErr := h.SubscriptionService.GenerateCycleOrder(sub.ID, now)
		if genErr != nil {
			failed++
			requestLog(c).Warnw("subscription_renewal_failed", "subscription_id", sub.ID, "error", genErr)
			continue
		}
		if order != nil {
			generated++
		}
	}
	response.Success(c, gin.H{
		"due":       len(subscriptions),
		"generated": generated,
		"failed":    failed,
	})
}
