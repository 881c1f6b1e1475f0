package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T, name string) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{}, &models.Address{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.Delivery{}, &models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	settingService := NewSettingService(repository.NewSettingRepository(db))
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewProductRepository(db),
		repository.NewDeliveryRepository(db),
		settingService,
		nil,
	)
	return svc, db
}

func seedCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:   "Ana Souza",
		Email:  email,
		Phone:  "+55 11 91234-5678",
		Status: constants.CustomerStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int64, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Unit:        "bag",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		IsActive:    active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if !active {
		// IsActive has a gorm default of true, so a zero-value false is
		// dropped from the INSERT; persist it explicitly.
		if err := db.Model(product).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product failed: %v", err)
		}
	}
	return product
}

func createPendingOrder(t *testing.T, svc *OrderService, db *gorm.DB, name, slot string) *models.Order {
	t.Helper()
	customer := seedCustomer(t, db, fmt.Sprintf("%s@example.com.br", name))
	product := seedProduct(t, db, "Alface crespa", 12, true)
	order, err := svc.CreateOrder(CreateOrderInput{
		CustomerID:       customer.ID,
		PaymentMethod:    constants.PaymentMethodPix,
		DeliveryTimeSlot: slot,
		Items:            []CreateOrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestCreateOrderSnapshotsItems(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "snapshot")
	customer := seedCustomer(t, db, "snapshot@example.com.br")
	lettuce := seedProduct(t, db, "Alface crespa", 12, true)
	tomato := seedProduct(t, db, "Tomate cereja", 18, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		CustomerID:    customer.ID,
		PaymentMethod: constants.PaymentMethodPix,
		Items: []CreateOrderItemInput{
			{ProductID: lettuce.ID, Quantity: 3},
			{ProductID: tomato.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.OrderNo == "" || order.OrderNo[:2] != "HF" {
		t.Fatalf("unexpected order no: %q", order.OrderNo)
	}
	if order.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("payment status = %q, want pending", order.PaymentStatus)
	}
	if order.DeliveryStatus != constants.DeliveryStatusWaiting {
		t.Fatalf("delivery status = %q, want waiting", order.DeliveryStatus)
	}
	if order.SlotChosenByCustomer {
		t.Fatalf("slot should not be marked customer-chosen")
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(54)) {
		t.Fatalf("total = %s, want 54.00", order.TotalAmount.String())
	}
	if order.Items[0].Name != "Alface crespa" || order.Items[0].Quantity != 3 {
		t.Fatalf("unexpected item snapshot: %+v", order.Items[0])
	}
	if order.Delivery == nil || order.Delivery.Status != constants.DeliveryStatusWaiting {
		t.Fatalf("expected waiting delivery record, got %+v", order.Delivery)
	}
}

func TestCreateOrderRejectsInactiveProduct(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "inactive")
	customer := seedCustomer(t, db, "inactive@example.com.br")
	product := seedProduct(t, db, "Rúcula", 9, false)

	_, err := svc.CreateOrder(CreateOrderInput{
		CustomerID:    customer.ID,
		PaymentMethod: constants.PaymentMethodPix,
		Items:         []CreateOrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestCreateOrderMarksCustomerSlot(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "slot")
	order := createPendingOrder(t, svc, db, "slot", constants.TimeSlotMorning)
	if !order.SlotChosenByCustomer {
		t.Fatalf("expected customer-chosen slot")
	}
	if order.DeliveryTimeSlot != constants.TimeSlotMorning {
		t.Fatalf("slot = %q, want morning", order.DeliveryTimeSlot)
	}
}

func TestConfirmPaymentBeforeCutoffSameDayAfternoon(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "beforecutoff")
	order := createPendingOrder(t, svc, db, "beforecutoff", "")

	// Wednesday 10:00, before the 12:00 cutoff
	confirmedAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	confirmed, err := svc.ConfirmPayment(order.ID, confirmedAt)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusConfirmed {
		t.Fatalf("payment status = %q, want confirmed", confirmed.PaymentStatus)
	}
	if confirmed.PaymentConfirmedAt == nil || !confirmed.PaymentConfirmedAt.Equal(confirmedAt) {
		t.Fatalf("confirmed at = %v, want %v", confirmed.PaymentConfirmedAt, confirmedAt)
	}
	if confirmed.DeliveryDate == nil || confirmed.DeliveryDate.Format("2006-01-02") != "2026-03-04" {
		t.Fatalf("delivery date = %v, want 2026-03-04", confirmed.DeliveryDate)
	}
	if confirmed.DeliveryTimeSlot != constants.TimeSlotAfternoon {
		t.Fatalf("slot = %q, want afternoon", confirmed.DeliveryTimeSlot)
	}
}

func TestConfirmPaymentAfterCutoffNextDayMorning(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "aftercutoff")
	order := createPendingOrder(t, svc, db, "aftercutoff", "")

	// Wednesday 13:00, past the cutoff
	confirmedAt := time.Date(2026, 3, 4, 13, 0, 0, 0, time.Local)
	confirmed, err := svc.ConfirmPayment(order.ID, confirmedAt)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.DeliveryDate == nil || confirmed.DeliveryDate.Format("2006-01-02") != "2026-03-05" {
		t.Fatalf("delivery date = %v, want 2026-03-05", confirmed.DeliveryDate)
	}
	if confirmed.DeliveryTimeSlot != constants.TimeSlotMorning {
		t.Fatalf("slot = %q, want morning", confirmed.DeliveryTimeSlot)
	}
}

func TestConfirmPaymentKeepsCustomerSlot(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "keepslot")
	order := createPendingOrder(t, svc, db, "keepslot", constants.TimeSlotMorning)

	// before cutoff would default to afternoon, the chosen slot must win
	confirmedAt := time.Date(2026, 3, 4, 9, 0, 0, 0, time.Local)
	confirmed, err := svc.ConfirmPayment(order.ID, confirmedAt)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.DeliveryTimeSlot != constants.TimeSlotMorning {
		t.Fatalf("slot = %q, customer choice was overwritten", confirmed.DeliveryTimeSlot)
	}
	if confirmed.DeliveryDate == nil {
		t.Fatalf("expected a delivery date")
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "idempotent")
	order := createPendingOrder(t, svc, db, "idempotent", "")

	first := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	if _, err := svc.ConfirmPayment(order.ID, first); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	second, err := svc.ConfirmPayment(order.ID, first.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if second.PaymentConfirmedAt == nil || !second.PaymentConfirmedAt.Equal(first) {
		t.Fatalf("confirmation timestamp changed on repeat: %v", second.PaymentConfirmedAt)
	}
}

func TestConfirmPaymentRejectsCanceledOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "canceled")
	order := createPendingOrder(t, svc, db, "canceled", "")

	if _, err := svc.CancelOrder(order.ID, "customer gave up"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	_, err := svc.ConfirmPayment(order.ID, time.Now())
	if !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled, got %v", err)
	}

	refreshed, err := svc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if refreshed.DeliveryDate != nil {
		t.Fatalf("canceled order must not receive a delivery date")
	}
}

func TestConfirmPaymentSkipsConfiguredHoliday(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "holiday")
	order := createPendingOrder(t, svc, db, "holiday", "")

	// Thursday and Friday are holidays, the weekend follows
	if _, err := svc.settingService.Update(constants.SettingKeyDeliveryConfig, map[string]interface{}{
		constants.SettingFieldCutoffTime: "12:00",
		constants.SettingFieldHolidays:   []interface{}{"2026-03-05", "2026-03-06"},
	}); err != nil {
		t.Fatalf("store delivery config failed: %v", err)
	}

	// Wednesday 14:00: next day shifts over holidays and weekend to Monday
	confirmedAt := time.Date(2026, 3, 4, 14, 0, 0, 0, time.Local)
	confirmed, err := svc.ConfirmPayment(order.ID, confirmedAt)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.DeliveryDate == nil || confirmed.DeliveryDate.Format("2006-01-02") != "2026-03-09" {
		t.Fatalf("delivery date = %v, want 2026-03-09", confirmed.DeliveryDate)
	}
	if confirmed.DeliveryTimeSlot != constants.TimeSlotMorning {
		t.Fatalf("slot = %q, want morning from the confirmation time", confirmed.DeliveryTimeSlot)
	}
}

func TestConfirmPaymentSurvivesUnassignableDate(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "unassignable")
	order := createPendingOrder(t, svc, db, "unassignable", "")

	// every candidate day inside the search window is a holiday
	holidays := make([]interface{}, 0, 40)
	start := time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local)
	for i := 0; i < 40; i++ {
		holidays = append(holidays, start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	if _, err := svc.settingService.Update(constants.SettingKeyDeliveryConfig, map[string]interface{}{
		constants.SettingFieldCutoffTime: "12:00",
		constants.SettingFieldHolidays:   holidays,
	}); err != nil {
		t.Fatalf("store delivery config failed: %v", err)
	}

	confirmedAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	confirmed, err := svc.ConfirmPayment(order.ID, confirmedAt)
	if err != nil {
		t.Fatalf("confirm must succeed without a date, got: %v", err)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusConfirmed {
		t.Fatalf("payment status = %q, want confirmed", confirmed.PaymentStatus)
	}
	if confirmed.DeliveryDate != nil {
		t.Fatalf("expected no delivery date, got %v", confirmed.DeliveryDate)
	}
}

func TestCancelOrderRecordsReason(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "cancelreason")
	order := createPendingOrder(t, svc, db, "cancelreason", "")

	canceled, err := svc.CancelOrder(order.ID, "address out of range")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.PaymentStatus != constants.PaymentStatusCanceled {
		t.Fatalf("payment status = %q, want canceled", canceled.PaymentStatus)
	}
	if canceled.DeliveryStatus != constants.DeliveryStatusCanceled {
		t.Fatalf("delivery status = %q, want canceled", canceled.DeliveryStatus)
	}
	if canceled.CancelReason != "address out of range" {
		t.Fatalf("reason = %q", canceled.CancelReason)
	}
	if canceled.CanceledAt == nil {
		t.Fatalf("expected canceled_at")
	}
}

func TestDeliveryStatusTransitions(t *testing.T) {
	svc, db := setupOrderServiceTest(t, "transitions")
	order := createPendingOrder(t, svc, db, "transitions", "")

	// unpaid orders cannot leave for delivery
	if _, err := svc.UpdateDeliveryStatus(order.ID, constants.DeliveryStatusEnRoute, 1, ""); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending for unpaid order, got %v", err)
	}

	if _, err := svc.ConfirmPayment(order.ID, time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// waiting cannot jump straight to delivered
	if _, err := svc.UpdateDeliveryStatus(order.ID, constants.DeliveryStatusDelivered, 1, ""); !errors.Is(err, ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid for waiting->delivered, got %v", err)
	}

	if _, err := svc.UpdateDeliveryStatus(order.ID, constants.DeliveryStatusEnRoute, 1, "left 08:30"); err != nil {
		t.Fatalf("waiting->en_route failed: %v", err)
	}
	updated, err := svc.UpdateDeliveryStatus(order.ID, constants.DeliveryStatusDelivered, 2, "")
	if err != nil {
		t.Fatalf("en_route->delivered failed: %v", err)
	}
	if updated.DeliveryStatus != constants.DeliveryStatusDelivered {
		t.Fatalf("delivery status = %q, want delivered", updated.DeliveryStatus)
	}
	if updated.Delivery == nil || updated.Delivery.DeliveredAt == nil {
		t.Fatalf("expected delivered_at on the delivery record")
	}
	if updated.Delivery.HandledBy == nil || *updated.Delivery.HandledBy != 2 {
		t.Fatalf("expected handling admin recorded")
	}

	// delivered orders cannot be canceled
	if _, err := svc.CancelOrder(order.ID, "late"); !errors.Is(err, ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid canceling a delivered order, got %v", err)
	}
}
