package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/payment/pixgate"
	"github.com/hortafresh/backoffice/internal/provider"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentHandlerTest(t *testing.T, name string) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:payment_handler_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
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

	settingService := service.NewSettingService(repository.NewSettingRepository(db))
	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(
		orderRepo,
		repository.NewCustomerRepository(db),
		repository.NewProductRepository(db),
		repository.NewDeliveryRepository(db),
		settingService,
		nil,
	)
	paymentService := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		orderRepo,
		orderService,
		settingService,
		nil,
	)

	h := &Handler{Container: &provider.Container{
		PaymentService: paymentService,
		SettingService: settingService,
	}}
	return h, db
}

// pixStatusStub answers the gateway create and status endpoints
func pixStatusStub(t *testing.T, status string, paidAt *time.Time) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"txid":        fmt.Sprintf("tx_reissued_%d", time.Now().UnixNano()),
				"pix_payload": "00020126580014br.gov.bcb.pix",
				"qr_code_url": "https://pix.example.com/qr.png",
				"expires_at":  time.Now().Add(30 * time.Minute).Format(time.RFC3339),
				"status":      pixgate.StatusActive,
			})
			return
		}
		resp := map[string]interface{}{"txid": "tx_handler_001", "status": status}
		if paidAt != nil {
			resp["paid_at"] = paidAt.Format(time.RFC3339)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func storeHandlerPixgateConfig(t *testing.T, h *Handler, gatewayURL string) {
	t.Helper()
	if _, err := h.SettingService.Update(constants.SettingKeyPixgateConfig, map[string]interface{}{
		"gateway_url": gatewayURL,
		"api_key":     "sk_test_handler",
		"pix_key":     "financeiro@hortafresh.com.br",
	}); err != nil {
		t.Fatalf("store gateway config failed: %v", err)
	}
}

func seedPaymentHandlerOrder(t *testing.T, db *gorm.DB, chargeStatus string) (*models.Order, *models.Payment) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	customer := models.Customer{
		Name:   "Teresa Lima",
		Email:  "teresa@example.com.br",
		Phone:  "+55 11 98888-0000",
		Status: constants.CustomerStatusActive,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	order := models.Order{
		OrderNo:        "HF-20260800001",
		CustomerID:     customer.ID,
		Source:         constants.OrderSourceManual,
		PaymentMethod:  constants.PaymentMethodPix,
		PaymentStatus:  constants.PaymentStatusPending,
		DeliveryStatus: constants.DeliveryStatusWaiting,
		TotalAmount:    models.NewMoneyFromDecimal(decimal.NewFromInt(120)),
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	expires := now.Add(-time.Minute)
	if chargeStatus == constants.ChargeStatusPending {
		expires = now.Add(30 * time.Minute)
	}
	payment := models.Payment{
		Scope:        constants.ChargeScopeOrder,
		OrderID:      &order.ID,
		Method:       constants.PaymentMethodPix,
		ProviderType: constants.PaymentProviderPixgate,
		Amount:       order.TotalAmount,
		Status:       chargeStatus,
		ProviderRef:  "tx_handler_001",
		PixPayload:   "00020126330014br.gov.bcb.pix.old",
		ExpiresAt:    &expires,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return &order, &payment
}

func performPaymentRequest(t *testing.T, h *Handler, handle gin.HandlerFunc, paymentID uint) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", paymentID)}}
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/payments/check", nil)
	handle(c)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var envelope struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return envelope.StatusCode, envelope.Data
}

func TestCheckChargeConfirmsOrder(t *testing.T) {
	h, db := setupPaymentHandlerTest(t, "check")
	paidAt := time.Now().UTC().Truncate(time.Second)
	stub := pixStatusStub(t, pixgate.StatusCompleted, &paidAt)
	defer stub.Close()
	storeHandlerPixgateConfig(t, h, stub.URL)
	order, payment := seedPaymentHandlerOrder(t, db, constants.ChargeStatusPending)

	w := performPaymentRequest(t, h, h.CheckCharge, payment.ID)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d body=%s", code, w.Body.String())
	}
	if updated, _ := data["updated"].(bool); !updated {
		t.Fatalf("expected updated=true, got %v", data["updated"])
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", reloaded.PaymentStatus)
	}
	if reloaded.DeliveryDate == nil {
		t.Fatalf("expected delivery date assigned on confirmation")
	}
}

func TestReissueChargeReplacesProviderRef(t *testing.T) {
	h, db := setupPaymentHandlerTest(t, "reissue")
	stub := pixStatusStub(t, pixgate.StatusExpired, nil)
	defer stub.Close()
	storeHandlerPixgateConfig(t, h, stub.URL)
	_, payment := seedPaymentHandlerOrder(t, db, constants.ChargeStatusExpired)

	w := performPaymentRequest(t, h, h.ReissueCharge, payment.ID)

	code, _ := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d body=%s", code, w.Body.String())
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.Status != constants.ChargeStatusPending {
		t.Fatalf("expected pending after reissue, got %s", reloaded.Status)
	}
	if reloaded.ProviderRef == payment.ProviderRef {
		t.Fatalf("expected a fresh provider ref, still %s", reloaded.ProviderRef)
	}
	if reloaded.PixPayload == payment.PixPayload {
		t.Fatalf("expected a fresh PIX payload")
	}
}

func TestReissueChargeRejectsPendingCharge(t *testing.T) {
	h, db := setupPaymentHandlerTest(t, "reissue_pending")
	_, payment := seedPaymentHandlerOrder(t, db, constants.ChargeStatusPending)

	w := performPaymentRequest(t, h, h.ReissueCharge, payment.ID)

	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("expected status_code 400, got %d body=%s", code, w.Body.String())
	}
}

func TestCheckChargeByScopeResolvesOrderCharge(t *testing.T) {
	h, db := setupPaymentHandlerTest(t, "scope_check")
	paidAt := time.Now().UTC().Truncate(time.Second)
	stub := pixStatusStub(t, pixgate.StatusCompleted, &paidAt)
	defer stub.Close()
	storeHandlerPixgateConfig(t, h, stub.URL)
	order, _ := seedPaymentHandlerOrder(t, db, constants.ChargeStatusPending)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := fmt.Sprintf(`{"type":"order","id":%d}`, order.ID)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/charges/check", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.CheckChargeByScope(c)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected status_code 0, got %d body=%s", code, w.Body.String())
	}
	if status, _ := data["status"].(string); status != constants.ChargeStatusConfirmed {
		t.Fatalf("expected confirmed status, got %v", data["status"])
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	h, _ := setupPaymentHandlerTest(t, "not_found")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "9999"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/payments/9999", nil)
	h.GetPayment(c)

	code, _ := decodeEnvelope(t, w)
	if code != 404 {
		t.Fatalf("expected status_code 404, got %d body=%s", code, w.Body.String())
	}
}
