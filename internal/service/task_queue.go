package service

import (
	"time"

	"github.com/hortafresh/backoffice/internal/queue"

	"github.com/hibiken/asynq"
)

// TaskQueue is the queue client surface the services enqueue through.
// *queue.Client satisfies it; a nil or disabled client makes every
// enqueue a no-op.
type TaskQueue interface {
	Enabled() bool
	EnqueueChargeExpire(payload queue.ChargeExpirePayload, delay time.Duration) error
	EnqueueChargeReissue(payload queue.ChargeReissuePayload, opts ...asynq.Option) error
	EnqueueOrderStatusEmail(payload queue.OrderStatusEmailPayload, opts ...asynq.Option) error
}
