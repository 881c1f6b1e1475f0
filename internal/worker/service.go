package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	reconcileBatchSize       = 100
	defaultReconcileInterval = 15 * time.Second
	defaultRenewalInterval   = time.Hour
)

// Service runs the asynq server plus the periodic loops.
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService creates the queue worker service.
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the server and the periodic loops.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.PaymentService != nil {
		go s.runChargeReconcileLoop(ctx)
	}
	if s.consumer != nil && s.consumer.SubscriptionService != nil {
		go s.runSubscriptionRenewalLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the server down.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runChargeReconcileLoop re-checks pending charges against the gateway.
// Catches confirmations whose per-order watcher died with the process.
func (s *Service) runChargeReconcileLoop(ctx context.Context) {
	interval := defaultReconcileInterval
	if s.consumer.Config != nil && s.consumer.Config.Payment.ReconcileIntervalSeconds > 0 {
		interval = time.Duration(s.consumer.Config.Payment.ReconcileIntervalSeconds) * time.Second
	}

	runOnce := func() {
		payments, err := s.consumer.PaymentRepo.ListPending(reconcileBatchSize)
		if err != nil {
			logger.Warnw("worker_charge_reconcile_list_failed", "error", err)
			return
		}
		for _, payment := range payments {
			if ctx.Err() != nil {
				return
			}
			result, err := s.consumer.PaymentService.CheckCharge(ctx, payment.ID)
			if err != nil {
				logger.Warnw("worker_charge_reconcile_check_failed", "payment_id", payment.ID, "error", err)
				continue
			}
			if result != nil && result.Updated {
				logger.Infow("worker_charge_reconcile_updated", "payment_id", payment.ID, "status", result.Status)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runSubscriptionRenewalLoop enqueues a renewal task for every
// subscription whose next delivery has come due.
func (s *Service) runSubscriptionRenewalLoop(ctx context.Context) {
	interval := defaultRenewalInterval
	if s.consumer.Config != nil && s.consumer.Config.Delivery.RenewalIntervalMinutes > 0 {
		interval = time.Duration(s.consumer.Config.Delivery.RenewalIntervalMinutes) * time.Minute
	}

	runOnce := func() {
		subscriptions, err := s.consumer.SubscriptionService.ListDueSubscriptions(time.Now())
		if err != nil {
			logger.Warnw("worker_subscription_renewal_list_failed", "error", err)
			return
		}
		for _, sub := range subscriptions {
			if s.consumer.QueueClient == nil || !s.consumer.QueueClient.Enabled() {
				// No queue client in this process, generate inline.
				if _, err := s.consumer.SubscriptionService.GenerateCycleOrder(sub.ID, time.Now()); err != nil {
					logger.Warnw("worker_subscription_renewal_inline_failed", "subscription_id", sub.ID, "error", err)
				}
				continue
			}
			if err := s.consumer.QueueClient.EnqueueSubscriptionRenewal(queue.SubscriptionRenewalPayload{SubscriptionID: sub.ID}); err != nil {
				logger.Warnw("worker_subscription_renewal_enqueue_failed", "subscription_id", sub.ID, "error", err)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
