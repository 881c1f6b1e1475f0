package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// deliveryStatusTransitions allowed delivery status moves
var deliveryStatusTransitions = map[string][]string{
	constants.DeliveryStatusWaiting:   {constants.DeliveryStatusEnRoute, constants.DeliveryStatusCanceled},
	constants.DeliveryStatusEnRoute:   {constants.DeliveryStatusDelivered, constants.DeliveryStatusCanceled},
	constants.DeliveryStatusDelivered: {},
	constants.DeliveryStatusCanceled:  {},
}

// OrderService order business service
type OrderService struct {
	orderRepo      repository.OrderRepository
	customerRepo   repository.CustomerRepository
	productRepo    repository.ProductRepository
	deliveryRepo   repository.DeliveryRepository
	settingService *SettingService
	queueClient    TaskQueue
}

// NewOrderService builds an order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	deliveryRepo repository.DeliveryRepository,
	settingService *SettingService,
	queueClient TaskQueue,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		customerRepo:   customerRepo,
		productRepo:    productRepo,
		deliveryRepo:   deliveryRepo,
		settingService: settingService,
		queueClient:    queueClient,
	}
}

// CreateOrderItemInput one line of a new order
type CreateOrderItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput new order parameters
type CreateOrderInput struct {
	CustomerID       uint                   `json:"customer_id"`
	AddressID        *uint                  `json:"address_id"`
	PaymentMethod    string                 `json:"payment_method"`
	DeliveryTimeSlot string                 `json:"delivery_time_slot"` // set by the customer, optional
	Items            []CreateOrderItemInput `json:"items"`
	ClientIP         string                 `json:"-"`
	Source           string                 `json:"-"`
	SubscriptionID   *uint                  `json:"-"`
}

// CreateOrder creates a pending order with its items and delivery record
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.PaymentMethod != constants.PaymentMethodPix && input.PaymentMethod != constants.PaymentMethodCard {
		return nil, ErrPaymentMethodInvalid
	}
	if len(input.Items) == 0 {
		return nil, ErrOrderItemsEmpty
	}

	customer, err := s.customerRepo.GetByID(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	slot := strings.TrimSpace(input.DeliveryTimeSlot)
	if slot != "" && slot != constants.TimeSlotMorning && slot != constants.TimeSlotAfternoon {
		return nil, ErrStatusInvalid
	}

	items, total, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = constants.OrderSourceManual
	}

	order := &models.Order{
		OrderNo:              generateOrderNo(),
		CustomerID:           input.CustomerID,
		AddressID:            input.AddressID,
		SubscriptionID:       input.SubscriptionID,
		Source:               source,
		PaymentMethod:        input.PaymentMethod,
		PaymentStatus:        constants.PaymentStatusPending,
		DeliveryStatus:       constants.DeliveryStatusWaiting,
		DeliveryTimeSlot:     slot,
		SlotChosenByCustomer: slot != "",
		TotalAmount:          models.NewMoneyFromDecimal(total),
		ClientIP:             input.ClientIP,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(order, items); err != nil {
			return err
		}
		delivery := &models.Delivery{
			OrderID: order.ID,
			Status:  constants.DeliveryStatusWaiting,
		}
		return s.deliveryRepo.WithTx(tx).Create(delivery)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"customer_id", order.CustomerID,
		"total", order.TotalAmount.String(),
		"source", source,
	)
	return s.orderRepo.GetByID(order.ID)
}

func (s *OrderService) buildOrderItems(inputs []CreateOrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
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

	items := make([]models.OrderItem, 0, len(inputs))
	total := decimal.Zero
	for _, input := range inputs {
		product, ok := byID[input.ProductID]
		if !ok {
			return nil, decimal.Zero, ErrProductNotFound
		}
		if !product.IsActive {
			return nil, decimal.Zero, ErrProductInactive
		}
		lineTotal := product.PriceAmount.Decimal.Mul(decimal.NewFromInt(int64(input.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Unit:       product.Unit,
			UnitPrice:  product.PriceAmount,
			Quantity:   input.Quantity,
			TotalPrice: models.NewMoneyFromDecimal(lineTotal),
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

// GetOrder fetches an order
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the paginated order list
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ConfirmPayment marks the order paid and assigns the delivery schedule.
//
// The delivery date is computed from the confirmation instant and the
// delivery settings; a customer-chosen time slot is never overwritten.
// Confirming an already confirmed order is a no-op; canceled orders are
// rejected and never receive a date.
func (s *OrderService) ConfirmPayment(orderID uint, confirmedAt time.Time) (*models.Order, error) {
	deliveryCfg, err := s.settingService.GetDeliveryConfig()
	if err != nil {
		// degrade to defaults, confirmation must not be blocked
		logger.Errorw("delivery_config_load_failed", "order_id", orderID, "error", err)
		deliveryCfg = DeliveryConfig{CutoffTime: constants.DefaultDeliveryCutoff}
	}

	var confirmed *models.Order
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		switch order.PaymentStatus {
		case constants.PaymentStatusConfirmed:
			confirmed = order
			return nil
		case constants.PaymentStatusCanceled:
			return ErrOrderCanceled
		case constants.PaymentStatusDeclined:
			return ErrOrderNotPending
		}
		if order.CanceledAt != nil || order.DeliveryStatus == constants.DeliveryStatusCanceled {
			return ErrOrderCanceled
		}

		updates := map[string]interface{}{
			"payment_status":       constants.PaymentStatusConfirmed,
			"payment_confirmed_at": confirmedAt,
		}

		schedule, err := ComputeDeliverySchedule(confirmedAt, deliveryCfg)
		if err != nil {
			// broken holiday configuration: confirm without a date and
			// leave it for manual assignment
			logger.Errorw("delivery_date_unassignable",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
		} else {
			updates["delivery_date"] = schedule.Date
			if order.DeliveryTimeSlot == "" {
				updates["delivery_time_slot"] = schedule.Slot
			}
		}

		if err := orderRepo.UpdateFields(order.ID, updates); err != nil {
			return err
		}
		confirmed, err = orderRepo.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if confirmed != nil && confirmed.PaymentConfirmedAt != nil {
		logger.Infow("order_payment_confirmed",
			"order_id", confirmed.ID,
			"order_no", confirmed.OrderNo,
			"confirmed_at", confirmed.PaymentConfirmedAt,
			"delivery_date", confirmed.DeliveryDate,
			"delivery_time_slot", confirmed.DeliveryTimeSlot,
		)
		s.enqueueStatusEmail(confirmed.ID, constants.PaymentStatusConfirmed)
	}
	return confirmed, nil
}

// UpdateDeliveryStatus moves the delivery status along the allowed transitions
func (s *OrderService) UpdateDeliveryStatus(orderID uint, target string, adminID uint, note string) (*models.Order, error) {
	if _, ok := deliveryStatusTransitions[target]; !ok {
		return nil, ErrStatusInvalid
	}

	var updated *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !isTransitionAllowed(deliveryStatusTransitions, order.DeliveryStatus, target) {
			return ErrStatusInvalid
		}
		if target == constants.DeliveryStatusEnRoute && order.PaymentStatus != constants.PaymentStatusConfirmed {
			return ErrOrderNotPending
		}

		if err := orderRepo.UpdateFields(order.ID, map[string]interface{}{
			"delivery_status": target,
		}); err != nil {
			return err
		}

		deliveryRepo := s.deliveryRepo.WithTx(tx)
		delivery, err := deliveryRepo.GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		if delivery == nil {
			delivery = &models.Delivery{OrderID: order.ID}
		}
		delivery.Status = target
		if note != "" {
			delivery.CourierNote = note
		}
		if target == constants.DeliveryStatusDelivered {
			now := time.Now()
			delivery.DeliveredAt = &now
			if adminID != 0 {
				delivery.HandledBy = &adminID
			}
		}
		if delivery.ID == 0 {
			if err := deliveryRepo.Create(delivery); err != nil {
				return err
			}
		} else if err := deliveryRepo.Update(delivery); err != nil {
			return err
		}

		updated, err = orderRepo.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_delivery_status_updated",
		"order_id", orderID,
		"status", target,
		"admin_id", adminID,
	)
	s.enqueueStatusEmail(orderID, target)
	return updated, nil
}

// DeclinePayment marks a still-pending order as declined by the gateway
func (s *OrderService) DeclinePayment(orderID uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PaymentStatus != constants.PaymentStatusPending {
			return nil
		}
		return orderRepo.UpdateFields(order.ID, map[string]interface{}{
			"payment_status": constants.PaymentStatusDeclined,
		})
	})
}

// CancelOrder cancels an order that has not been delivered
func (s *OrderService) CancelOrder(orderID uint, reason string) (*models.Order, error) {
	var updated *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.DeliveryStatus == constants.DeliveryStatusDelivered {
			return ErrStatusInvalid
		}
		if order.CanceledAt != nil {
			updated = order
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"delivery_status": constants.DeliveryStatusCanceled,
			"canceled_at":     now,
			"cancel_reason":   strings.TrimSpace(reason),
		}
		if order.PaymentStatus == constants.PaymentStatusPending {
			updates["payment_status"] = constants.PaymentStatusCanceled
		}
		if err := orderRepo.UpdateFields(order.ID, updates); err != nil {
			return err
		}

		deliveryRepo := s.deliveryRepo.WithTx(tx)
		delivery, err := deliveryRepo.GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		if delivery != nil {
			delivery.Status = constants.DeliveryStatusCanceled
			if err := deliveryRepo.Update(delivery); err != nil {
				return err
			}
		}

		updated, err = orderRepo.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_canceled", "order_id", orderID, "reason", reason)
	s.enqueueStatusEmail(orderID, constants.DeliveryStatusCanceled)
	return updated, nil
}

func (s *OrderService) enqueueStatusEmail(orderID uint, status string) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	payload := queue.OrderStatusEmailPayload{OrderID: orderID, Status: status}
	if err := s.queueClient.EnqueueOrderStatusEmail(payload); err != nil {
		logger.Warnw("order_status_email_enqueue_failed", "order_id", orderID, "status", status, "error", err)
	}
}

func isTransitionAllowed(transitions map[string][]string, from, to string) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// generateOrderNo builds HF + timestamp + random numeric suffix
func generateOrderNo() string {
	return fmt.Sprintf("HF%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

func randNumeric(n int) string {
	const digits = "0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(digits[idx.Int64()])
	}
	return b.String()
}
