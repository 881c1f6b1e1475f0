package service

import (
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionService recurring-delivery plans and cycle order generation
type SubscriptionService struct {
	repo         repository.SubscriptionRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	orderService *OrderService
}

// NewSubscriptionService builds a subscription service
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	orderService *OrderService,
) *SubscriptionService {
	return &SubscriptionService{
		repo:         repo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		orderService: orderService,
	}
}

// SubscriptionItemInput one product per cycle
type SubscriptionItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// SubscriptionInput create/update parameters
type SubscriptionInput struct {
	CustomerID        uint                    `json:"customer_id"`
	AddressID         *uint                   `json:"address_id"`
	Frequency         string                  `json:"frequency"`         // weekly/biweekly
	DeliveryWeekday   int                     `json:"delivery_weekday"`  // 1=Monday .. 5=Friday
	PreferredTimeSlot string                  `json:"preferred_time_slot"`
	PaymentMethod     string                  `json:"payment_method"`
	Items             []SubscriptionItemInput `json:"items"`
}

// CreateSubscription registers an active plan and computes the first delivery date
func (s *SubscriptionService) CreateSubscription(input SubscriptionInput) (*models.Subscription, error) {
	if err := validateSubscriptionInput(input); err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.GetByID(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	items, cycleAmount, err := s.buildSubscriptionItems(input.Items)
	if err != nil {
		return nil, err
	}

	next := nextWeekdayOccurrence(time.Now(), input.DeliveryWeekday)
	subscription := &models.Subscription{
		CustomerID:        input.CustomerID,
		AddressID:         input.AddressID,
		Frequency:         input.Frequency,
		DeliveryWeekday:   input.DeliveryWeekday,
		PreferredTimeSlot: input.PreferredTimeSlot,
		PaymentMethod:     input.PaymentMethod,
		Status:            constants.SubscriptionStatusActive,
		NextDeliveryDate:  &next,
		CycleAmount:       models.NewMoneyFromDecimal(cycleAmount),
	}
	if err := s.repo.Create(subscription, items); err != nil {
		return nil, err
	}

	logger.Infow("subscription_created",
		"subscription_id", subscription.ID,
		"customer_id", subscription.CustomerID,
		"frequency", subscription.Frequency,
		"next_delivery_date", next.Format("2006-01-02"),
	)
	return s.repo.GetByID(subscription.ID)
}

// UpdateSubscription updates the plan; item changes replace the cycle contents
func (s *SubscriptionService) UpdateSubscription(id uint, input SubscriptionInput) (*models.Subscription, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Status == constants.SubscriptionStatusCanceled {
		return nil, ErrSubscriptionInactive
	}
	if err := validateSubscriptionInput(input); err != nil {
		return nil, err
	}

	items, cycleAmount, err := s.buildSubscriptionItems(input.Items)
	if err != nil {
		return nil, err
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]interface{}{
			"frequency":           input.Frequency,
			"delivery_weekday":    input.DeliveryWeekday,
			"preferred_time_slot": input.PreferredTimeSlot,
			"payment_method":      input.PaymentMethod,
			"cycle_amount":        models.NewMoneyFromDecimal(cycleAmount),
		}
		if input.AddressID != nil {
			updates["address_id"] = *input.AddressID
		}
		if subscription.DeliveryWeekday != input.DeliveryWeekday {
			next := nextWeekdayOccurrence(time.Now(), input.DeliveryWeekday)
			updates["next_delivery_date"] = next
		}
		if err := repo.UpdateFields(id, updates); err != nil {
			return err
		}
		return repo.ReplaceItems(id, items)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// GetSubscription fetches a plan
func (s *SubscriptionService) GetSubscription(id uint) (*models.Subscription, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	return subscription, nil
}

// ListSubscriptions returns the paginated plan list
func (s *SubscriptionService) ListSubscriptions(filter repository.SubscriptionListFilter) ([]models.Subscription, int64, error) {
	return s.repo.List(filter)
}

// PauseSubscription suspends cycle generation
func (s *SubscriptionService) PauseSubscription(id uint) (*models.Subscription, error) {
	return s.transition(id, constants.SubscriptionStatusActive, constants.SubscriptionStatusPaused)
}

// ResumeSubscription reactivates a paused plan and recomputes the next delivery
func (s *SubscriptionService) ResumeSubscription(id uint) (*models.Subscription, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Status != constants.SubscriptionStatusPaused {
		return nil, ErrStatusInvalid
	}

	next := nextWeekdayOccurrence(time.Now(), subscription.DeliveryWeekday)
	if err := s.repo.UpdateFields(id, map[string]interface{}{
		"status":             constants.SubscriptionStatusActive,
		"paused_at":          nil,
		"next_delivery_date": next,
	}); err != nil {
		return nil, err
	}
	logger.Infow("subscription_resumed", "subscription_id", id, "next_delivery_date", next.Format("2006-01-02"))
	return s.repo.GetByID(id)
}

// CancelSubscription ends the plan permanently
func (s *SubscriptionService) CancelSubscription(id uint) (*models.Subscription, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Status == constants.SubscriptionStatusCanceled {
		return subscription, nil
	}

	now := time.Now()
	if err := s.repo.UpdateFields(id, map[string]interface{}{
		"status":             constants.SubscriptionStatusCanceled,
		"canceled_at":        now,
		"next_delivery_date": nil,
	}); err != nil {
		return nil, err
	}
	logger.Infow("subscription_canceled", "subscription_id", id)
	return s.repo.GetByID(id)
}

// ListDueSubscriptions returns active plans whose next cycle is due
func (s *SubscriptionService) ListDueSubscriptions(now time.Time) ([]models.Subscription, error) {
	return s.repo.ListDue(repository.SubscriptionListFilter{
		Status:    constants.SubscriptionStatusActive,
		DueBefore: &now,
	})
}

// GenerateCycleOrder creates the pending order for a due cycle and advances
// the next delivery date by the plan frequency. Safe to call repeatedly:
// a plan that is not due is skipped.
func (s *SubscriptionService) GenerateCycleOrder(id uint, now time.Time) (*models.Order, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Status != constants.SubscriptionStatusActive {
		return nil, ErrSubscriptionInactive
	}
	if subscription.NextDeliveryDate == nil || subscription.NextDeliveryDate.After(now) {
		return nil, nil
	}

	items := make([]CreateOrderItemInput, 0, len(subscription.Items))
	for _, item := range subscription.Items {
		items = append(items, CreateOrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := s.orderService.CreateOrder(CreateOrderInput{
		CustomerID:       subscription.CustomerID,
		AddressID:        subscription.AddressID,
		PaymentMethod:    subscription.PaymentMethod,
		DeliveryTimeSlot: subscription.PreferredTimeSlot,
		Items:            items,
		Source:           constants.OrderSourceSubscription,
		SubscriptionID:   &subscription.ID,
	})
	if err != nil {
		return nil, err
	}

	next := advanceCycle(*subscription.NextDeliveryDate, subscription.Frequency)
	if err := s.repo.UpdateFields(subscription.ID, map[string]interface{}{
		"next_delivery_date": next,
	}); err != nil {
		return nil, err
	}

	logger.Infow("subscription_cycle_order_created",
		"subscription_id", subscription.ID,
		"order_id", order.ID,
		"next_delivery_date", next.Format("2006-01-02"),
	)
	return order, nil
}

func (s *SubscriptionService) transition(id uint, from, to string) (*models.Subscription, error) {
	subscription, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Status != from {
		return nil, ErrStatusInvalid
	}

	updates := map[string]interface{}{"status": to}
	if to == constants.SubscriptionStatusPaused {
		now := time.Now()
		updates["paused_at"] = now
	}
	if err := s.repo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	logger.Infow("subscription_status_changed", "subscription_id", id, "status", to)
	return s.repo.GetByID(id)
}

func (s *SubscriptionService) buildSubscriptionItems(inputs []SubscriptionItemInput) ([]models.SubscriptionItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, ErrOrderItemsEmpty
	}
	ids := make([]uint, 0, len(inputs))
	for _, item := range inputs {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, decimal.Zero, ErrOrderItemsEmpty
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.SubscriptionItem, 0, len(inputs))
	total := decimal.Zero
	for _, input := range inputs {
		product, ok := byID[input.ProductID]
		if !ok {
			return nil, decimal.Zero, ErrProductNotFound
		}
		if !product.IsActive {
			return nil, decimal.Zero, ErrProductInactive
		}
		items = append(items, models.SubscriptionItem{
			ProductID: product.ID,
			Name:      product.Name,
			Unit:      product.Unit,
			UnitPrice: product.PriceAmount,
			Quantity:  input.Quantity,
		})
		total = total.Add(product.PriceAmount.Decimal.Mul(decimal.NewFromInt(int64(input.Quantity))))
	}
	return items, total, nil
}

func validateSubscriptionInput(input SubscriptionInput) error {
	if input.Frequency != constants.SubscriptionFrequencyWeekly && input.Frequency != constants.SubscriptionFrequencyBiweekly {
		return ErrInputInvalid
	}
	if input.DeliveryWeekday < 1 || input.DeliveryWeekday > 5 {
		return ErrSubscriptionWeekdayInvalid
	}
	if input.PaymentMethod != constants.PaymentMethodPix && input.PaymentMethod != constants.PaymentMethodCard {
		return ErrPaymentMethodInvalid
	}
	if slot := input.PreferredTimeSlot; slot != "" && slot != constants.TimeSlotMorning && slot != constants.TimeSlotAfternoon {
		return ErrInputInvalid
	}
	return nil
}

// nextWeekdayOccurrence strictly-future date falling on the given ISO weekday
func nextWeekdayOccurrence(from time.Time, weekday int) time.Time {
	date := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < 7; i++ {
		date = date.AddDate(0, 0, 1)
		if isoWeekday(date) == weekday {
			return date
		}
	}
	return date
}

func advanceCycle(from time.Time, frequency string) time.Time {
	if frequency == constants.SubscriptionFrequencyBiweekly {
		return from.AddDate(0, 0, 14)
	}
	return from.AddDate(0, 0, 7)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
