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

func setupSubscriptionServiceTest(t *testing.T, name string) (*SubscriptionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:subscription_service_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{}, &models.Address{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.Delivery{},
		&models.Subscription{}, &models.SubscriptionItem{}, &models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	settingService := NewSettingService(repository.NewSettingRepository(db))
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderSvc := NewOrderService(
		repository.NewOrderRepository(db),
		customerRepo,
		productRepo,
		repository.NewDeliveryRepository(db),
		settingService,
		nil,
	)
	svc := NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		customerRepo,
		productRepo,
		orderSvc,
	)
	return svc, db
}

func seedSubscription(t *testing.T, svc *SubscriptionService, db *gorm.DB, name string) *models.Subscription {
	t.Helper()
	customer := seedCustomer(t, db, fmt.Sprintf("%s@example.com.br", name))
	product := seedProduct(t, db, "Cesta média", 75, true)
	subscription, err := svc.CreateSubscription(SubscriptionInput{
		CustomerID:        customer.ID,
		Frequency:         constants.SubscriptionFrequencyWeekly,
		DeliveryWeekday:   3, // Wednesday
		PreferredTimeSlot: constants.TimeSlotMorning,
		PaymentMethod:     constants.PaymentMethodPix,
		Items:             []SubscriptionItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create subscription failed: %v", err)
	}
	return subscription
}

func TestCreateSubscriptionComputesFirstDelivery(t *testing.T) {
	svc, db := setupSubscriptionServiceTest(t, "create")
	subscription := seedSubscription(t, svc, db, "sub-create")

	if subscription.Status != constants.SubscriptionStatusActive {
		t.Fatalf("status = %q, want active", subscription.Status)
	}
	if subscription.NextDeliveryDate == nil {
		t.Fatalf("expected a first delivery date")
	}
	if got := isoWeekday(*subscription.NextDeliveryDate); got != 3 {
		t.Fatalf("first delivery weekday = %d, want 3", got)
	}
	if !subscription.NextDeliveryDate.After(time.Now().AddDate(0, 0, -1)) {
		t.Fatalf("first delivery in the past: %v", subscription.NextDeliveryDate)
	}
	if !subscription.CycleAmount.Decimal.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("cycle amount = %s, want 75.00", subscription.CycleAmount.String())
	}
	if len(subscription.Items) != 1 || subscription.Items[0].Name != "Cesta média" {
		t.Fatalf("unexpected items: %+v", subscription.Items)
	}
}

func TestCreateSubscriptionRejectsWeekend(t *testing.T) {
	svc, db := setupSubscriptionServiceTest(t, "weekend")
	customer := seedCustomer(t, db, "weekend@example.com.br")
	product := seedProduct(t, db, "Cesta pequena", 45, true)

	_, err := svc.CreateSubscription(SubscriptionInput{
		CustomerID:      customer.ID,
		Frequency:       constants.SubscriptionFrequencyWeekly,
		DeliveryWeekday: 6,
		PaymentMethod:   constants.PaymentMethodPix,
		Items:           []SubscriptionItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrSubscriptionWeekdayInvalid) {
		t.Fatalf("expected ErrSubscriptionWeekdayInvalid, got %v", err)
	}
}

func TestGenerateCycleOrder(t *testing.T) {
	svc, db := setupSubscriptionServiceTest(t, "cycle")
	subscription := seedSubscription(t, svc, db, "sub-cycle")
	due := *subscription.NextDeliveryDate

	// not due yet
	order, err := svc.GenerateCycleOrder(subscription.ID, due.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if order != nil {
		t.Fatalf("generated an order before the cycle was due")
	}

	order, err = svc.GenerateCycleOrder(subscription.ID, due)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if order == nil {
		t.Fatalf("expected a cycle order")
	}
	if order.Source != constants.OrderSourceSubscription {
		t.Fatalf("source = %q, want subscription", order.Source)
	}
	if order.SubscriptionID == nil || *order.SubscriptionID != subscription.ID {
		t.Fatalf("order not linked to the subscription")
	}
	if order.DeliveryTimeSlot != constants.TimeSlotMorning || !order.SlotChosenByCustomer {
		t.Fatalf("preferred slot not carried: %+v", order)
	}
	if !order.TotalAmount.Decimal.Equal(subscription.CycleAmount.Decimal) {
		t.Fatalf("total = %s, want %s", order.TotalAmount.String(), subscription.CycleAmount.String())
	}

	refreshed, err := svc.GetSubscription(subscription.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	wantNext := due.AddDate(0, 0, 7)
	if refreshed.NextDeliveryDate == nil || !refreshed.NextDeliveryDate.Equal(wantNext) {
		t.Fatalf("next delivery = %v, want %v", refreshed.NextDeliveryDate, wantNext)
	}
}

func TestGenerateCycleOrderSkipsPaused(t *testing.T) {
	svc, db := setupSubscriptionServiceTest(t, "paused")
	subscription := seedSubscription(t, svc, db, "sub-paused")

	if _, err := svc.PauseSubscription(subscription.ID); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	_, err := svc.GenerateCycleOrder(subscription.ID, subscription.NextDeliveryDate.AddDate(0, 0, 1))
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Fatalf("expected ErrSubscriptionInactive, got %v", err)
	}
}

func TestPauseResumeCancelFlow(t *testing.T) {
	svc, db := setupSubscriptionServiceTest(t, "flow")
	subscription := seedSubscription(t, svc, db, "sub-flow")

	paused, err := svc.PauseSubscription(subscription.ID)
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.Status != constants.SubscriptionStatusPaused || paused.PausedAt == nil {
		t.Fatalf("unexpected paused state: %+v", paused)
	}
	// cannot pause twice
	if _, err := svc.PauseSubscription(subscription.ID); !errors.Is(err, ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}

	resumed, err := svc.ResumeSubscription(subscription.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != constants.SubscriptionStatusActive || resumed.NextDeliveryDate == nil {
		t.Fatalf("unexpected resumed state: %+v", resumed)
	}

	canceled, err := svc.CancelSubscription(subscription.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.SubscriptionStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("unexpected canceled state: %+v", canceled)
	}
	if canceled.NextDeliveryDate != nil {
		t.Fatalf("canceled plan kept a next delivery date")
	}
	// cancel is idempotent
	if _, err := svc.CancelSubscription(subscription.ID); err != nil {
		t.Fatalf("repeat cancel failed: %v", err)
	}
}

func TestNextWeekdayOccurrence(t *testing.T) {
	// Wednesday 2026-03-04
	from := time.Date(2026, 3, 4, 15, 0, 0, 0, time.Local)
	cases := []struct {
		weekday int
		want    string
	}{
		{1, "2026-03-09"},
		{3, "2026-03-11"}, // same weekday goes to next week
		{5, "2026-03-06"},
	}
	for _, tc := range cases {
		got := nextWeekdayOccurrence(from, tc.weekday)
		if got.Format("2006-01-02") != tc.want {
			t.Fatalf("nextWeekdayOccurrence(%d) = %s, want %s", tc.weekday, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestAdvanceCycle(t *testing.T) {
	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local)
	if got := advanceCycle(from, constants.SubscriptionFrequencyWeekly); got.Format("2006-01-02") != "2026-03-11" {
		t.Fatalf("weekly advance = %s", got.Format("2006-01-02"))
	}
	if got := advanceCycle(from, constants.SubscriptionFrequencyBiweekly); got.Format("2006-01-02") != "2026-03-18" {
		t.Fatalf("biweekly advance = %s", got.Format("2006-01-02"))
	}
}
