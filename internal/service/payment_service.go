package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/payment/cardgate"
	"github.com/hortafresh/backoffice/internal/payment/pixgate"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/repository"
)

const defaultChargeExpireMinutes = 30

// PaymentService charge lifecycle: issue, check, expire, re-issue
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	orderRepo      repository.OrderRepository
	orderService   *OrderService
	settingService *SettingService
	queueClient    TaskQueue

	// per-payment re-issue guard
	reissueMu       sync.Mutex
	reissueInFlight map[uint]struct{}

	// in-process watchers, used when no queue worker handles expiry
	watchMu  sync.Mutex
	watchers map[uint]*ChargeWatcher
}

// NewPaymentService builds a payment service
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	orderService *OrderService,
	settingService *SettingService,
	queueClient TaskQueue,
) *PaymentService {
	return &PaymentService{
		paymentRepo:     paymentRepo,
		orderRepo:       orderRepo,
		orderService:    orderService,
		settingService:  settingService,
		queueClient:     queueClient,
		reissueInFlight: make(map[uint]struct{}),
		watchers:        make(map[uint]*ChargeWatcher),
	}
}

// CheckResult outcome of a gateway status check
type CheckResult struct {
	Payment *models.Payment `json:"payment"`
	Status  string          `json:"status"`
	Updated bool            `json:"updated"`
}

// CreateCharge issues a gateway charge for a pending order. An existing
// pending charge with a usable payload is returned as is.
func (s *PaymentService) CreateCharge(ctx context.Context, orderID uint) (*models.Payment, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus != constants.PaymentStatusPending {
		return nil, ErrOrderNotPending
	}
	if order.CanceledAt != nil {
		return nil, ErrOrderCanceled
	}

	existing, err := s.paymentRepo.GetLatestPendingByOrder(order.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	expireMinutes, err := s.settingService.GetChargeExpireMinutes(defaultChargeExpireMinutes)
	if err != nil {
		logger.Warnw("charge_expire_setting_failed", "error", err)
		expireMinutes = defaultChargeExpireMinutes
	}

	payment := &models.Payment{
		Scope:          constants.ChargeScopeOrder,
		OrderID:        &order.ID,
		SubscriptionID: order.SubscriptionID,
		Method:         order.PaymentMethod,
		ProviderType:   providerForMethod(order.PaymentMethod),
		Amount:         order.TotalAmount,
		Status:         constants.ChargeStatusInitiated,
	}
	// A subscription cycle charge is addressable through either the
	// cycle order or the owning subscription.
	if order.SubscriptionID != nil {
		payment.Scope = constants.ChargeScopeSubscription
	}

	if err := s.applyGatewayCharge(ctx, order, payment, expireMinutes); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	s.scheduleExpiry(payment)
	logger.Infow("charge_created",
		"payment_id", payment.ID,
		"order_id", order.ID,
		"method", payment.Method,
		"provider", payment.ProviderType,
		"amount", payment.Amount.String(),
		"expires_at", payment.ExpiresAt,
	)
	return payment, nil
}

// applyGatewayCharge calls the gateway and fills the charge fields in place
func (s *PaymentService) applyGatewayCharge(ctx context.Context, order *models.Order, payment *models.Payment, expireMinutes int) error {
	rawCfg, err := s.settingService.GetGatewayConfig(payment.ProviderType)
	if err != nil {
		return err
	}

	amount := payment.Amount.Decimal.StringFixed(2)
	description := fmt.Sprintf("Pedido %s", order.OrderNo)

	switch payment.ProviderType {
	case constants.PaymentProviderPixgate:
		cfg, err := pixgate.ParseConfig(rawCfg)
		if err != nil {
			return mapPixgateError(err)
		}
		result, err := pixgate.CreateCharge(ctx, cfg, pixgate.CreateInput{
			Reference:        order.OrderNo,
			Amount:           amount,
			CustomerName:     order.Customer.Name,
			CustomerDocument: order.Customer.Document,
			Description:      description,
			ExpireMinutes:    expireMinutes,
		})
		if err != nil {
			return mapPixgateError(err)
		}
		payment.ProviderRef = result.TxID
		payment.PixPayload = result.PixPayload
		payment.QRCodeURL = result.QRCodeURL
		payment.CheckoutURL = ""
		payment.ProviderPayload = models.JSON(result.Raw)
		expiresAt := result.ExpiresAt
		payment.ExpiresAt = &expiresAt
	case constants.PaymentProviderCardgate:
		cfg, err := cardgate.ParseConfig(rawCfg)
		if err != nil {
			return mapCardgateError(err)
		}
		result, err := cardgate.CreateCheckout(ctx, cfg, cardgate.CreateInput{
			Reference:     order.OrderNo,
			Amount:        amount,
			CustomerName:  order.Customer.Name,
			CustomerEmail: order.Customer.Email,
			Description:   description,
			ExpireMinutes: expireMinutes,
		})
		if err != nil {
			return mapCardgateError(err)
		}
		payment.ProviderRef = result.IntentID
		payment.CheckoutURL = result.CheckoutURL
		payment.PixPayload = ""
		payment.QRCodeURL = ""
		payment.ProviderPayload = models.JSON(result.Raw)
		expiresAt := result.ExpiresAt
		payment.ExpiresAt = &expiresAt
	default:
		return ErrProviderTypeInvalid
	}

	payment.Status = constants.ChargeStatusPending
	return nil
}

// CheckCharge queries the gateway and applies the resulting status.
// Confirmed charges confirm their order, expired ones are marked expired.
func (s *PaymentService) CheckCharge(ctx context.Context, paymentID uint) (*CheckResult, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.ChargeStatusPending {
		return &CheckResult{Payment: payment, Status: payment.Status, Updated: false}, nil
	}

	status, paidAt, err := s.queryGatewayStatus(ctx, payment)
	if err != nil {
		return nil, err
	}

	switch status {
	case constants.ChargeStatusConfirmed:
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
		if err := s.markConfirmed(payment, *paidAt); err != nil {
			return nil, err
		}
	case constants.ChargeStatusExpired:
		if err := s.markExpired(payment); err != nil {
			return nil, err
		}
	case constants.ChargeStatusFailed:
		if err := s.markFailed(payment); err != nil {
			return nil, err
		}
	default:
		return &CheckResult{Payment: payment, Status: constants.ChargeStatusPending, Updated: false}, nil
	}

	refreshed, err := s.paymentRepo.GetByID(payment.ID)
	if err != nil {
		return nil, err
	}
	return &CheckResult{Payment: refreshed, Status: status, Updated: true}, nil
}

func (s *PaymentService) queryGatewayStatus(ctx context.Context, payment *models.Payment) (string, *time.Time, error) {
	rawCfg, err := s.settingService.GetGatewayConfig(payment.ProviderType)
	if err != nil {
		return "", nil, err
	}

	switch payment.ProviderType {
	case constants.PaymentProviderPixgate:
		cfg, err := pixgate.ParseConfig(rawCfg)
		if err != nil {
			return "", nil, mapPixgateError(err)
		}
		result, err := pixgate.GetCharge(ctx, cfg, payment.ProviderRef)
		if err != nil {
			if errors.Is(err, pixgate.ErrChargeNotFound) {
				return constants.ChargeStatusExpired, nil, nil
			}
			return "", nil, mapPixgateError(err)
		}
		return pixgate.ToChargeStatus(result.Status), result.PaidAt, nil
	case constants.PaymentProviderCardgate:
		cfg, err := cardgate.ParseConfig(rawCfg)
		if err != nil {
			return "", nil, mapCardgateError(err)
		}
		result, err := cardgate.GetCheckout(ctx, cfg, payment.ProviderRef)
		if err != nil {
			if errors.Is(err, cardgate.ErrIntentNotFound) {
				return constants.ChargeStatusExpired, nil, nil
			}
			return "", nil, mapCardgateError(err)
		}
		return cardgate.ToChargeStatus(result.Status), result.PaidAt, nil
	default:
		return "", nil, ErrProviderTypeInvalid
	}
}

func (s *PaymentService) markConfirmed(payment *models.Payment, paidAt time.Time) error {
	payment.Status = constants.ChargeStatusConfirmed
	payment.PaidAt = &paidAt
	if err := s.paymentRepo.Update(payment); err != nil {
		return err
	}
	logger.Infow("charge_confirmed", "payment_id", payment.ID, "paid_at", paidAt)

	if payment.OrderID != nil {
		if _, err := s.orderService.ConfirmPayment(*payment.OrderID, paidAt); err != nil {
			// the charge is paid either way, surface the order problem
			logger.Errorw("order_confirm_after_charge_failed",
				"payment_id", payment.ID,
				"order_id", *payment.OrderID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (s *PaymentService) markExpired(payment *models.Payment) error {
	payment.Status = constants.ChargeStatusExpired
	if err := s.paymentRepo.Update(payment); err != nil {
		return err
	}
	logger.Infow("charge_expired", "payment_id", payment.ID, "provider_ref", payment.ProviderRef)
	s.scheduleAutoReissue(payment)
	return nil
}

// scheduleAutoReissue enqueues one automatic re-issue for a freshly
// expired charge. A charge that was already re-issued stays expired for
// manual handling; in queue-less processes the in-process watcher covers
// this instead.
func (s *PaymentService) scheduleAutoReissue(payment *models.Payment) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if payment.OrderID == nil {
		return
	}
	if payment.ReissueCount > 0 {
		logger.Infow("charge_auto_reissue_skipped",
			"payment_id", payment.ID,
			"reissue_count", payment.ReissueCount,
		)
		return
	}
	payload := queue.ChargeReissuePayload{PaymentID: payment.ID}
	if err := s.queueClient.EnqueueChargeReissue(payload); err != nil {
		logger.Warnw("charge_reissue_enqueue_failed", "payment_id", payment.ID, "error", err)
		return
	}
	logger.Infow("charge_auto_reissue_enqueued", "payment_id", payment.ID)
}

func (s *PaymentService) markFailed(payment *models.Payment) error {
	payment.Status = constants.ChargeStatusFailed
	if err := s.paymentRepo.Update(payment); err != nil {
		return err
	}
	logger.Warnw("charge_failed", "payment_id", payment.ID, "provider_ref", payment.ProviderRef)

	if payment.OrderID != nil {
		if err := s.orderService.DeclinePayment(*payment.OrderID); err != nil {
			logger.Errorw("order_decline_after_charge_failed", "order_id", *payment.OrderID, "error", err)
		}
	}
	return nil
}

// ExpireCharge marks a pending charge expired once its deadline passed.
// Used by the queue expiry task; a charge paid in the meantime is left alone.
func (s *PaymentService) ExpireCharge(paymentID uint, now time.Time) error {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	if payment.Status != constants.ChargeStatusPending && payment.Status != constants.ChargeStatusInitiated {
		return nil
	}
	if payment.ExpiresAt != nil && payment.ExpiresAt.After(now) {
		return nil
	}
	return s.markExpired(payment)
}

// ReissueCharge replaces an expired charge with a fresh one at the gateway:
// same method, same amount, new payment payload. At most one re-issue per
// payment runs at a time; a second caller gets ErrReissueInProgress.
func (s *PaymentService) ReissueCharge(ctx context.Context, paymentID uint) (*models.Payment, error) {
	if !s.acquireReissue(paymentID) {
		return nil, ErrReissueInProgress
	}
	defer s.releaseReissue(paymentID)

	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.ChargeStatusExpired {
		return nil, ErrPaymentNotExpired
	}
	if payment.OrderID == nil {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(*payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.CanceledAt != nil || order.PaymentStatus != constants.PaymentStatusPending {
		return nil, ErrOrderNotPending
	}

	expireMinutes, err := s.settingService.GetChargeExpireMinutes(defaultChargeExpireMinutes)
	if err != nil {
		expireMinutes = defaultChargeExpireMinutes
	}

	previousRef := payment.ProviderRef
	if err := s.applyGatewayCharge(ctx, order, payment, expireMinutes); err != nil {
		// the charge stays expired when the gateway refuses
		logger.Errorw("charge_reissue_failed",
			"payment_id", payment.ID,
			"order_id", order.ID,
			"error", err,
		)
		return nil, err
	}
	payment.ReissueCount++
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, err
	}

	s.scheduleExpiry(payment)
	logger.Infow("charge_reissued",
		"payment_id", payment.ID,
		"order_id", order.ID,
		"previous_ref", previousRef,
		"provider_ref", payment.ProviderRef,
		"expires_at", payment.ExpiresAt,
	)
	return payment, nil
}

// GetPayment fetches a charge
func (s *PaymentService) GetPayment(id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetLatestChargeByOrder fetches the newest charge of an order
func (s *PaymentService) GetLatestChargeByOrder(orderID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetLatestByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetLatestChargeBySubscription fetches the newest charge of a subscription
func (s *PaymentService) GetLatestChargeBySubscription(subscriptionID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetLatestBySubscriptionID(subscriptionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ResolveLatestCharge looks the newest charge up by owning scope.
// scope is "order" or "subscription".
func (s *PaymentService) ResolveLatestCharge(scope string, id uint) (*models.Payment, error) {
	switch scope {
	case constants.ChargeScopeOrder:
		return s.GetLatestChargeByOrder(id)
	case constants.ChargeScopeSubscription:
		return s.GetLatestChargeBySubscription(id)
	default:
		return nil, ErrInputInvalid
	}
}

// ListPayments returns the paginated charge list
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

func (s *PaymentService) scheduleExpiry(payment *models.Payment) {
	if payment.ExpiresAt == nil {
		return
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		// no worker to pick the expiry up, watch in process
		s.watchInProcess(payment.ID)
		return
	}
	delay := time.Until(*payment.ExpiresAt)
	payload := queue.ChargeExpirePayload{PaymentID: payment.ID}
	if err := s.queueClient.EnqueueChargeExpire(payload, delay); err != nil {
		logger.Warnw("charge_expire_enqueue_failed", "payment_id", payment.ID, "error", err)
	}
}

// watchInProcess runs a ChargeWatcher for the payment until it settles.
// At most one watcher per payment.
func (s *PaymentService) watchInProcess(paymentID uint) {
	s.watchMu.Lock()
	if _, running := s.watchers[paymentID]; running {
		s.watchMu.Unlock()
		return
	}
	watcher := NewChargeWatcher(paymentID, s, s)
	s.watchers[paymentID] = watcher
	s.watchMu.Unlock()

	go func() {
		watcher.Run(context.Background())
		s.watchMu.Lock()
		delete(s.watchers, paymentID)
		s.watchMu.Unlock()
	}()
}

// StopWatchers halts every in-process charge watcher.
func (s *PaymentService) StopWatchers() {
	s.watchMu.Lock()
	watchers := make([]*ChargeWatcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchMu.Unlock()
	for _, w := range watchers {
		w.Stop()
	}
}

func (s *PaymentService) acquireReissue(paymentID uint) bool {
	s.reissueMu.Lock()
	defer s.reissueMu.Unlock()
	if _, busy := s.reissueInFlight[paymentID]; busy {
		return false
	}
	s.reissueInFlight[paymentID] = struct{}{}
	return true
}

func (s *PaymentService) releaseReissue(paymentID uint) {
	s.reissueMu.Lock()
	defer s.reissueMu.Unlock()
	delete(s.reissueInFlight, paymentID)
}

func providerForMethod(method string) string {
	if method == constants.PaymentMethodCard {
		return constants.PaymentProviderCardgate
	}
	return constants.PaymentProviderPixgate
}

func mapPixgateError(err error) error {
	switch {
	case errors.Is(err, pixgate.ErrConfigInvalid):
		return fmt.Errorf("%w: %v", ErrGatewayConfigInvalid, err)
	case errors.Is(err, pixgate.ErrResponseInvalid):
		return fmt.Errorf("%w: %v", ErrGatewayResponseInvalid, err)
	case errors.Is(err, pixgate.ErrRequestFailed):
		return fmt.Errorf("%w: %v", ErrGatewayRequestFailed, err)
	default:
		return err
	}
}

func mapCardgateError(err error) error {
	switch {
	case errors.Is(err, cardgate.ErrConfigInvalid):
		return fmt.Errorf("%w: %v", ErrGatewayConfigInvalid, err)
	case errors.Is(err, cardgate.ErrResponseInvalid):
		return fmt.Errorf("%w: %v", ErrGatewayResponseInvalid, err)
	case errors.Is(err, cardgate.ErrRequestFailed):
		return fmt.Errorf("%w: %v", ErrGatewayRequestFailed, err)
	default:
		return err
	}
}
