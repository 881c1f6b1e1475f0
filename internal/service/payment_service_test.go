package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/payment/pixgate"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupPaymentServiceTest(t *testing.T, name string) (*PaymentService, *OrderService, *gorm.DB) {
	t.Helper()
	return setupPaymentServiceTestWithQueue(t, name, nil)
}

func setupPaymentServiceTestWithQueue(t *testing.T, name string, taskQueue TaskQueue) (*PaymentService, *OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{}, &models.Address{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.Delivery{},
		&models.Payment{}, &models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	settingService := NewSettingService(repository.NewSettingRepository(db))
	orderRepo := repository.NewOrderRepository(db)
	orderSvc := NewOrderService(
		orderRepo,
		repository.NewCustomerRepository(db),
		repository.NewProductRepository(db),
		repository.NewDeliveryRepository(db),
		settingService,
		nil,
	)
	paymentSvc := NewPaymentService(
		repository.NewPaymentRepository(db),
		orderRepo,
		orderSvc,
		settingService,
		taskQueue,
	)
	return paymentSvc, orderSvc, db
}

// recordingTaskQueue captures enqueued tasks in place of a real queue
type recordingTaskQueue struct {
	mu       sync.Mutex
	expires  []queue.ChargeExpirePayload
	reissues []queue.ChargeReissuePayload
}

func (q *recordingTaskQueue) Enabled() bool { return true }

func (q *recordingTaskQueue) EnqueueChargeExpire(payload queue.ChargeExpirePayload, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expires = append(q.expires, payload)
	return nil
}

func (q *recordingTaskQueue) EnqueueChargeReissue(payload queue.ChargeReissuePayload, _ ...asynq.Option) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reissues = append(q.reissues, payload)
	return nil
}

func (q *recordingTaskQueue) EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload, ...asynq.Option) error {
	return nil
}

func (q *recordingTaskQueue) reissuePayloads() []queue.ChargeReissuePayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.ChargeReissuePayload(nil), q.reissues...)
}

func storePixgateConfig(t *testing.T, svc *PaymentService, gatewayURL string) {
	t.Helper()
	if _, err := svc.settingService.Update(constants.SettingKeyPixgateConfig, map[string]interface{}{
		"gateway_url": gatewayURL,
		"api_key":     "sk_test_123",
		"pix_key":     "financeiro@hortafresh.com.br",
	}); err != nil {
		t.Fatalf("store gateway config failed: %v", err)
	}
}

// pixGatewayStub fakes the PIX gateway create and status endpoints
type pixGatewayStub struct {
	mu       sync.Mutex
	creates  int
	status   string
	paidAt   *time.Time
	blocking chan struct{} // when set, create blocks until closed
	entered  chan struct{} // signals that a blocked create started
}

func (g *pixGatewayStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		block := g.blocking
		entered := g.entered
		g.mu.Unlock()

		if r.Method == http.MethodPost {
			if block != nil {
				if entered != nil {
					entered <- struct{}{}
				}
				<-block
			}
			g.mu.Lock()
			g.creates++
			n := g.creates
			g.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"txid":        fmt.Sprintf("tx_%03d", n),
				"pix_payload": "00020126580014br.gov.bcb.pix",
				"qr_code_url": "https://pix.example.com/qr.png",
				"expires_at":  time.Now().Add(30 * time.Minute).Format(time.RFC3339),
				"status":      pixgate.StatusActive,
			})
			return
		}

		g.mu.Lock()
		status := g.status
		paidAt := g.paidAt
		g.mu.Unlock()
		resp := map[string]interface{}{"txid": "tx_001", "status": status}
		if paidAt != nil {
			resp["paid_at"] = paidAt.Format(time.RFC3339)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (g *pixGatewayStub) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates
}

func TestCreateChargeIssuesPixCharge(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "create")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-create", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if payment.Status != constants.ChargeStatusPending {
		t.Fatalf("status = %q, want pending", payment.Status)
	}
	if payment.ProviderRef != "tx_001" || payment.PixPayload == "" {
		t.Fatalf("unexpected charge: %+v", payment)
	}
	if !payment.Amount.Decimal.Equal(order.TotalAmount.Decimal) {
		t.Fatalf("amount = %s, want %s", payment.Amount.String(), order.TotalAmount.String())
	}
	if payment.ExpiresAt == nil {
		t.Fatalf("expected an expiry")
	}

	// a second call reuses the pending charge instead of issuing again
	again, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
	if again.ID != payment.ID {
		t.Fatalf("expected the pending charge to be reused")
	}
	if stub.createCount() != 1 {
		t.Fatalf("gateway creates = %d, want 1", stub.createCount())
	}
}

func TestCheckChargeConfirmsOrder(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "check")
	paidAt := time.Date(2026, 3, 4, 10, 30, 0, 0, time.Local)
	stub := &pixGatewayStub{status: pixgate.StatusCompleted, paidAt: &paidAt}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-check", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}

	result, err := paymentSvc.CheckCharge(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("check charge failed: %v", err)
	}
	if !result.Updated || result.Status != constants.ChargeStatusConfirmed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Payment.PaidAt == nil || !result.Payment.PaidAt.Equal(paidAt) {
		t.Fatalf("paid at = %v, want %v", result.Payment.PaidAt, paidAt)
	}

	confirmed, err := orderSvc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusConfirmed {
		t.Fatalf("order payment status = %q, want confirmed", confirmed.PaymentStatus)
	}
	if confirmed.PaymentConfirmedAt == nil || !confirmed.PaymentConfirmedAt.Equal(paidAt) {
		t.Fatalf("order confirmed at = %v, want gateway paid_at", confirmed.PaymentConfirmedAt)
	}
	if confirmed.DeliveryDate == nil {
		t.Fatalf("expected a delivery date after confirmation")
	}
}

func TestCheckChargeStillPending(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "pending")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-pending", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}

	result, err := paymentSvc.CheckCharge(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("check charge failed: %v", err)
	}
	if result.Updated || result.Status != constants.ChargeStatusPending {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExpireChargeRespectsDeadline(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "expire")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-expire", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}

	// deadline not reached yet
	if err := paymentSvc.ExpireCharge(payment.ID, time.Now()); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	fresh, _ := paymentSvc.GetPayment(payment.ID)
	if fresh.Status != constants.ChargeStatusPending {
		t.Fatalf("charge expired before its deadline")
	}

	if err := paymentSvc.ExpireCharge(payment.ID, payment.ExpiresAt.Add(time.Minute)); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	fresh, _ = paymentSvc.GetPayment(payment.ID)
	if fresh.Status != constants.ChargeStatusExpired {
		t.Fatalf("status = %q, want expired", fresh.Status)
	}
}

func TestReissueChargeReplacesPayload(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "reissue")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-reissue", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if err := paymentSvc.ExpireCharge(payment.ID, payment.ExpiresAt.Add(time.Minute)); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	reissued, err := paymentSvc.ReissueCharge(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if reissued.ID != payment.ID {
		t.Fatalf("reissue must replace in place, got a new row")
	}
	if reissued.Status != constants.ChargeStatusPending {
		t.Fatalf("status = %q, want pending", reissued.Status)
	}
	if reissued.ProviderRef == payment.ProviderRef {
		t.Fatalf("provider ref was not replaced")
	}
	if reissued.Method != payment.Method || !reissued.Amount.Decimal.Equal(payment.Amount.Decimal) {
		t.Fatalf("method or amount changed on reissue")
	}
}

func TestExpiredChargeAutoReissuesOnce(t *testing.T) {
	taskQueue := &recordingTaskQueue{}
	paymentSvc, orderSvc, db := setupPaymentServiceTestWithQueue(t, "autoreissue", taskQueue)
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-auto-reissue", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}

	// the first expiry hands the charge to the re-issue task
	if err := paymentSvc.ExpireCharge(payment.ID, payment.ExpiresAt.Add(time.Minute)); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	fresh, _ := paymentSvc.GetPayment(payment.ID)
	if fresh.Status != constants.ChargeStatusExpired {
		t.Fatalf("status = %q, want expired", fresh.Status)
	}
	reissues := taskQueue.reissuePayloads()
	if len(reissues) != 1 || reissues[0].PaymentID != payment.ID {
		t.Fatalf("reissue tasks = %+v, want one for payment %d", reissues, payment.ID)
	}

	// the worker picks the task up
	reissued, err := paymentSvc.ReissueCharge(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if reissued.ReissueCount != 1 {
		t.Fatalf("reissue count = %d, want 1", reissued.ReissueCount)
	}

	// a re-issued charge that expires again stays expired for manual handling
	if err := paymentSvc.ExpireCharge(payment.ID, reissued.ExpiresAt.Add(time.Minute)); err != nil {
		t.Fatalf("second expire failed: %v", err)
	}
	fresh, _ = paymentSvc.GetPayment(payment.ID)
	if fresh.Status != constants.ChargeStatusExpired {
		t.Fatalf("status = %q, want expired after second deadline", fresh.Status)
	}
	if got := len(taskQueue.reissuePayloads()); got != 1 {
		t.Fatalf("reissue tasks = %d, want still 1", got)
	}
}

func TestSubscriptionCycleChargeResolvesBySubscription(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "subscope")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	customer := seedCustomer(t, db, "ciclo@example.com.br")
	product := seedProduct(t, db, "Cesta semanal", 89, true)
	subscriptionID := uint(77)
	order, err := orderSvc.CreateOrder(CreateOrderInput{
		CustomerID:     customer.ID,
		PaymentMethod:  constants.PaymentMethodPix,
		SubscriptionID: &subscriptionID,
		Items:          []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create cycle order failed: %v", err)
	}

	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if payment.Scope != constants.ChargeScopeSubscription {
		t.Fatalf("scope = %q, want subscription", payment.Scope)
	}
	if payment.SubscriptionID == nil || *payment.SubscriptionID != subscriptionID {
		t.Fatalf("subscription id = %v, want %d", payment.SubscriptionID, subscriptionID)
	}

	bySub, err := paymentSvc.ResolveLatestCharge(constants.ChargeScopeSubscription, subscriptionID)
	if err != nil {
		t.Fatalf("resolve by subscription failed: %v", err)
	}
	if bySub.ID != payment.ID {
		t.Fatalf("resolved charge %d, want %d", bySub.ID, payment.ID)
	}

	// the cycle order still addresses the same charge
	byOrder, err := paymentSvc.ResolveLatestCharge(constants.ChargeScopeOrder, order.ID)
	if err != nil {
		t.Fatalf("resolve by order failed: %v", err)
	}
	if byOrder.ID != payment.ID {
		t.Fatalf("resolved charge %d, want %d", byOrder.ID, payment.ID)
	}
}

func TestReissueChargeRequiresExpired(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "reissuepending")
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-reissue-pending", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if _, err := paymentSvc.ReissueCharge(context.Background(), payment.ID); !errors.Is(err, ErrPaymentNotExpired) {
		t.Fatalf("expected ErrPaymentNotExpired, got %v", err)
	}
}

func TestReissueChargeGuardsConcurrentCalls(t *testing.T) {
	paymentSvc, orderSvc, db := setupPaymentServiceTest(t, "reissueguard")
	block := make(chan struct{})
	stub := &pixGatewayStub{status: pixgate.StatusActive}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	storePixgateConfig(t, paymentSvc, server.URL)

	order := createPendingOrder(t, orderSvc, db, "charge-reissue-guard", "")
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if err := paymentSvc.ExpireCharge(payment.ID, payment.ExpiresAt.Add(time.Minute)); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	// first reissue blocks at the gateway, the second must be refused
	entered := make(chan struct{})
	stub.mu.Lock()
	stub.blocking = block
	stub.entered = entered
	stub.mu.Unlock()

	firstErr := make(chan error, 1)
	go func() {
		_, err := paymentSvc.ReissueCharge(context.Background(), payment.ID)
		firstErr <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("first reissue never reached the gateway")
	}
	if _, err := paymentSvc.ReissueCharge(context.Background(), payment.ID); !errors.Is(err, ErrReissueInProgress) {
		t.Fatalf("expected ErrReissueInProgress, got %v", err)
	}

	close(block)
	if err := <-firstErr; err != nil {
		t.Fatalf("first reissue failed: %v", err)
	}
	if stub.createCount() != 2 {
		t.Fatalf("gateway creates = %d, want 2 (initial + one reissue)", stub.createCount())
	}
}
