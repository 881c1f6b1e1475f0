package queue

import (
	"encoding/json"

	"github.com/hortafresh/backoffice/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskChargeExpire marks an unpaid charge expired after its deadline
	TaskChargeExpire = constants.TaskChargeExpire
	// TaskChargeReissue re-issues an expired charge
	TaskChargeReissue = constants.TaskChargeReissue
	// TaskOrderStatusEmail notifies the customer about an order status change
	TaskOrderStatusEmail = constants.TaskOrderStatusEmail
	// TaskSubscriptionRenewal generates the next order of a subscription cycle
	TaskSubscriptionRenewal = constants.TaskSubscriptionRenewal
)

// ChargeExpirePayload charge expiry task payload
type ChargeExpirePayload struct {
	PaymentID uint `json:"payment_id"`
}

// ChargeReissuePayload charge re-issue task payload
type ChargeReissuePayload struct {
	PaymentID uint `json:"payment_id"`
}

// OrderStatusEmailPayload order status email task payload
type OrderStatusEmailPayload struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

// SubscriptionRenewalPayload subscription renewal task payload
type SubscriptionRenewalPayload struct {
	SubscriptionID uint `json:"subscription_id"`
}

// NewChargeExpireTask creates a charge expiry task
func NewChargeExpireTask(payload ChargeExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChargeExpire, body), nil
}

// NewChargeReissueTask creates a charge re-issue task
func NewChargeReissueTask(payload ChargeReissuePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChargeReissue, body), nil
}

// NewOrderStatusEmailTask creates an order status email task
func NewOrderStatusEmailTask(payload OrderStatusEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusEmail, body), nil
}

// NewSubscriptionRenewalTask creates a subscription renewal task
func NewSubscriptionRenewalTask(payload SubscriptionRenewalPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubscriptionRenewal, body), nil
}
