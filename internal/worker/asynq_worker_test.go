package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/payment/pixgate"
	"github.com/hortafresh/backoffice/internal/provider"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// chargeTaskRecorder collects enqueued charge tasks in place of a real queue
type chargeTaskRecorder struct {
	mu       sync.Mutex
	reissues []queue.ChargeReissuePayload
}

func (q *chargeTaskRecorder) Enabled() bool { return true }

func (q *chargeTaskRecorder) EnqueueChargeExpire(queue.ChargeExpirePayload, time.Duration) error {
	return nil
}

func (q *chargeTaskRecorder) EnqueueChargeReissue(payload queue.ChargeReissuePayload, _ ...asynq.Option) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reissues = append(q.reissues, payload)
	return nil
}

func (q *chargeTaskRecorder) EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload, ...asynq.Option) error {
	return nil
}

func (q *chargeTaskRecorder) reissuePayloads() []queue.ChargeReissuePayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.ChargeReissuePayload(nil), q.reissues...)
}

func pixStubHandler(creates *int32, mu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			*creates++
			n := *creates
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"txid":        fmt.Sprintf("tx_%03d", n),
				"pix_payload": "00020126580014br.gov.bcb.pix",
				"qr_code_url": "https://pix.example.com/qr.png",
				"expires_at":  time.Now().Add(30 * time.Minute).Format(time.RFC3339),
				"status":      pixgate.StatusActive,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"txid":   "tx_001",
			"status": pixgate.StatusActive,
		})
	}
}

func setupChargeConsumerTest(t *testing.T, name string, taskQueue service.TaskQueue) (*Consumer, *service.PaymentService, *service.OrderService, *service.SettingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
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

	settingSvc := service.NewSettingService(repository.NewSettingRepository(db))
	orderRepo := repository.NewOrderRepository(db)
	orderSvc := service.NewOrderService(
		orderRepo,
		repository.NewCustomerRepository(db),
		repository.NewProductRepository(db),
		repository.NewDeliveryRepository(db),
		settingSvc,
		nil,
	)
	paymentSvc := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		orderRepo,
		orderSvc,
		settingSvc,
		taskQueue,
	)
	consumer := NewConsumer(&provider.Container{
		OrderRepo:      orderRepo,
		SettingService: settingSvc,
		OrderService:   orderSvc,
		PaymentService: paymentSvc,
	})
	return consumer, paymentSvc, orderSvc, settingSvc, db
}

func createExpiringCharge(t *testing.T, paymentSvc *service.PaymentService, orderSvc *service.OrderService, settingSvc *service.SettingService, db *gorm.DB, gatewayURL string) *models.Payment {
	t.Helper()
	if _, err := settingSvc.Update(constants.SettingKeyPixgateConfig, map[string]interface{}{
		"gateway_url": gatewayURL,
		"api_key":     "sk_test_123",
		"pix_key":     "financeiro@hortafresh.com.br",
	}); err != nil {
		t.Fatalf("store gateway config failed: %v", err)
	}

	customer := &models.Customer{
		Name:   "Ana Souza",
		Email:  "expira@example.com.br",
		Phone:  "+55 11 91234-5678",
		Status: constants.CustomerStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	product := &models.Product{
		Name:        "Alface crespa",
		Unit:        "bag",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(12)),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	order, err := orderSvc.CreateOrder(service.CreateOrderInput{
		CustomerID:    customer.ID,
		PaymentMethod: constants.PaymentMethodPix,
		Items:         []service.CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment, err := paymentSvc.CreateCharge(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	return payment
}

func ageChargeDeadline(t *testing.T, db *gorm.DB, paymentID uint) {
	t.Helper()
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Payment{}).Where("id = ?", paymentID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("age charge deadline failed: %v", err)
	}
}

func TestConsumerExpireTaskReissuesExpiredCharge(t *testing.T) {
	taskQueue := &chargeTaskRecorder{}
	consumer, paymentSvc, orderSvc, settingSvc, db := setupChargeConsumerTest(t, "expirereissue", taskQueue)

	var creates int32
	var mu sync.Mutex
	server := httptest.NewServer(pixStubHandler(&creates, &mu))
	defer server.Close()

	payment := createExpiringCharge(t, paymentSvc, orderSvc, settingSvc, db, server.URL)
	ageChargeDeadline(t, db, payment.ID)

	expireTask, err := queue.NewChargeExpireTask(queue.ChargeExpirePayload{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("build expire task failed: %v", err)
	}
	if err := consumer.handleChargeExpire(context.Background(), expireTask); err != nil {
		t.Fatalf("expire task failed: %v", err)
	}

	expired, err := paymentSvc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if expired.Status != constants.ChargeStatusExpired {
		t.Fatalf("status = %q, want expired", expired.Status)
	}
	reissues := taskQueue.reissuePayloads()
	if len(reissues) != 1 || reissues[0].PaymentID != payment.ID {
		t.Fatalf("reissue tasks = %+v, want one for payment %d", reissues, payment.ID)
	}

	// the re-issue task replaces the gateway charge in place
	reissueTask, err := queue.NewChargeReissueTask(reissues[0])
	if err != nil {
		t.Fatalf("build reissue task failed: %v", err)
	}
	if err := consumer.handleChargeReissue(context.Background(), reissueTask); err != nil {
		t.Fatalf("reissue task failed: %v", err)
	}
	reissued, err := paymentSvc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reissued.Status != constants.ChargeStatusPending {
		t.Fatalf("status = %q, want pending after reissue", reissued.Status)
	}
	if reissued.ProviderRef == payment.ProviderRef {
		t.Fatalf("provider ref was not replaced")
	}
	if reissued.ReissueCount != 1 {
		t.Fatalf("reissue count = %d, want 1", reissued.ReissueCount)
	}

	// a second expiry leaves the charge for manual handling
	ageChargeDeadline(t, db, payment.ID)
	if err := consumer.handleChargeExpire(context.Background(), expireTask); err != nil {
		t.Fatalf("second expire task failed: %v", err)
	}
	final, _ := paymentSvc.GetPayment(payment.ID)
	if final.Status != constants.ChargeStatusExpired {
		t.Fatalf("status = %q, want expired after second deadline", final.Status)
	}
	if got := len(taskQueue.reissuePayloads()); got != 1 {
		t.Fatalf("reissue tasks = %d, want still 1", got)
	}
}
