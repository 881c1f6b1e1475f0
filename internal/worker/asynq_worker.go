package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/provider"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles queued tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds task handlers onto the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskChargeExpire, c.handleChargeExpire)
	mux.HandleFunc(queue.TaskChargeReissue, c.handleChargeReissue)
	mux.HandleFunc(queue.TaskOrderStatusEmail, c.handleOrderStatusEmail)
	mux.HandleFunc(queue.TaskSubscriptionRenewal, c.handleSubscriptionRenewal)
}

func (c *Consumer) handleChargeExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.ChargeExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_charge_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_charge_expire_skip_payment_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	err := c.PaymentService.ExpireCharge(payload.PaymentID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			logger.Debugw("worker_charge_expire_skip_not_found", "payment_id", payload.PaymentID)
			return nil
		default:
			logger.Warnw("worker_charge_expire_failed", "payment_id", payload.PaymentID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleChargeReissue(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.ChargeReissuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_charge_reissue_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_charge_reissue_skip_payment_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	_, err := c.PaymentService.ReissueCharge(ctx, payload.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			logger.Debugw("worker_charge_reissue_skip_not_found", "payment_id", payload.PaymentID)
			return nil
		case errors.Is(err, service.ErrPaymentNotExpired):
			logger.Debugw("worker_charge_reissue_skip_not_expired", "payment_id", payload.PaymentID)
			return nil
		case errors.Is(err, service.ErrReissueInProgress):
			logger.Debugw("worker_charge_reissue_skip_in_progress", "payment_id", payload.PaymentID)
			return nil
		case errors.Is(err, service.ErrOrderNotPending):
			logger.Debugw("worker_charge_reissue_skip_order_not_pending", "payment_id", payload.PaymentID)
			return nil
		default:
			logger.Warnw("worker_charge_reissue_failed", "payment_id", payload.PaymentID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleOrderStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_status_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_status_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}

	receiverEmail := ""
	if order.Customer != nil {
		receiverEmail = strings.TrimSpace(order.Customer.Email)
	}
	if receiverEmail == "" {
		logger.Debugw("worker_order_status_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_status_email_skip_email_service_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}

	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = order.DeliveryStatus
	}
	input := service.OrderStatusEmailInput{
		OrderNo:          order.OrderNo,
		Status:           status,
		Amount:           order.TotalAmount,
		DeliveryDate:     order.DeliveryDate,
		DeliveryTimeSlot: order.DeliveryTimeSlot,
		CancelReason:     order.CancelReason,
	}
	if err := c.EmailService.SendOrderStatusEmail(receiverEmail, input); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_order_status_email_skip_disabled", "order_id", order.ID, "order_no", order.OrderNo)
			return nil
		}
		logger.Warnw("worker_order_status_email_send_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"receiver_email", receiverEmail,
			"status", status,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleSubscriptionRenewal(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.SubscriptionRenewalPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_subscription_renewal_unmarshal_failed", "error", err)
		return err
	}
	if payload.SubscriptionID == 0 {
		return nil
	}
	if c.SubscriptionService == nil {
		logger.Warnw("worker_subscription_renewal_skip_service_nil", "subscription_id", payload.SubscriptionID)
		return nil
	}
	order, err := c.SubscriptionService.GenerateCycleOrder(payload.SubscriptionID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubscriptionNotFound):
			logger.Debugw("worker_subscription_renewal_skip_not_found", "subscription_id", payload.SubscriptionID)
			return nil
		case errors.Is(err, service.ErrSubscriptionInactive):
			logger.Debugw("worker_subscription_renewal_skip_inactive", "subscription_id", payload.SubscriptionID)
			return nil
		default:
			logger.Warnw("worker_subscription_renewal_failed", "subscription_id", payload.SubscriptionID, "error", err)
			return err
		}
	}
	if order != nil {
		logger.Infow("worker_subscription_renewal_order_created",
			"subscription_id", payload.SubscriptionID,
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
	}
	return nil
}
