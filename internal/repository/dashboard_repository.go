package repository

import (
	"fmt"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository aggregate queries backing the back-office home
// screen. Statistics only, no business rules.
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error)
	GetDeliveryLoad(fromDate time.Time, days int) ([]DashboardDeliverySlotRow, error)
	GetTopProducts(startAt, endAt time.Time, limit int) ([]DashboardProductRankingRow, error)
}

// DashboardOverviewRow raw overview counters.
type DashboardOverviewRow struct {
	OrdersTotal          int64
	ConfirmedOrders      int64
	PendingPaymentOrders int64
	CanceledOrders       int64
	RevenueConfirmed     float64
	DeliveriesWaiting    int64
	DeliveriesEnRoute    int64
	DeliveriesDelivered  int64
	ChargesPending       int64
	ChargesExpired       int64
	NewCustomers         int64
	ActiveProducts       int64
	ActiveSubscriptions  int64
}

// DashboardOrderTrendRow per-day order statistics.
type DashboardOrderTrendRow struct {
	Day              string
	OrdersTotal      int64
	OrdersConfirmed  int64
	RevenueConfirmed float64
}

// DashboardDeliverySlotRow orders booked per delivery date and slot.
type DashboardDeliverySlotRow struct {
	DeliveryDate string
	TimeSlot     string
	Orders       int64
}

// DashboardProductRankingRow product ranking raw row.
type DashboardProductRankingRow struct {
	ProductID  uint
	Name       string
	Orders     int64
	Quantity   int64
	PaidAmount float64
}

// GormDashboardRepository GORM implementation.
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository builds a dashboard repository.
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview collects the overview counters for one window.
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	orderBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := orderBase().Count(&result.OrdersTotal).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("payment_status = ?", constants.PaymentStatusConfirmed).Count(&result.ConfirmedOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("payment_status = ?", constants.PaymentStatusPending).Count(&result.PendingPaymentOrders).Error; err != nil {
		return result, err
	}
	if err := orderBase().Where("delivery_status = ?", constants.DeliveryStatusCanceled).Count(&result.CanceledOrders).Error; err != nil {
		return result, err
	}

	// Revenue counts by confirmation moment, not order creation moment.
	if err := r.db.Model(&models.Order{}).
		Where("payment_confirmed_at IS NOT NULL AND payment_confirmed_at >= ? AND payment_confirmed_at < ?", startAt, endAt).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.RevenueConfirmed).Error; err != nil {
		return result, err
	}

	deliveryBase := func() *gorm.DB {
		return r.db.Model(&models.Order{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := deliveryBase().Where("delivery_status = ?", constants.DeliveryStatusWaiting).Count(&result.DeliveriesWaiting).Error; err != nil {
		return result, err
	}
	if err := deliveryBase().Where("delivery_status = ?", constants.DeliveryStatusEnRoute).Count(&result.DeliveriesEnRoute).Error; err != nil {
		return result, err
	}
	if err := deliveryBase().Where("delivery_status = ?", constants.DeliveryStatusDelivered).Count(&result.DeliveriesDelivered).Error; err != nil {
		return result, err
	}

	chargeBase := func() *gorm.DB {
		return r.db.Model(&models.Payment{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := chargeBase().Where("status = ?", constants.ChargeStatusPending).Count(&result.ChargesPending).Error; err != nil {
		return result, err
	}
	if err := chargeBase().Where("status = ?", constants.ChargeStatusExpired).Count(&result.ChargesExpired).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Customer{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewCustomers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&result.ActiveProducts).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Subscription{}).
		Where("status = ?", constants.SubscriptionStatusActive).
		Count(&result.ActiveSubscriptions).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetOrderTrends groups orders and confirmed revenue by day.
func (r *GormDashboardRepository) GetOrderTrends(startAt, endAt time.Time) ([]DashboardOrderTrendRow, error) {
	type totalRow struct {
		Day   string
		Total int64
	}
	type confirmedRow struct {
		Day     string
		Total   int64
		Revenue float64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var totals []totalRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	confirmedExpr := "CAST(date(payment_confirmed_at) AS TEXT)"
	var confirmed []confirmedRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(total_amount), 0) as revenue", confirmedExpr)).
		Where("payment_confirmed_at IS NOT NULL AND payment_confirmed_at >= ? AND payment_confirmed_at < ?", startAt, endAt).
		Group(confirmedExpr).
		Order("day asc").
		Scan(&confirmed).Error; err != nil {
		return nil, err
	}

	confirmedMap := make(map[string]confirmedRow, len(confirmed))
	for _, item := range confirmed {
		confirmedMap[item.Day] = item
	}

	rows := make([]DashboardOrderTrendRow, 0, len(totals))
	seen := make(map[string]struct{}, len(totals))
	for _, item := range totals {
		c := confirmedMap[item.Day]
		rows = append(rows, DashboardOrderTrendRow{
			Day:              item.Day,
			OrdersTotal:      item.Total,
			OrdersConfirmed:  c.Total,
			RevenueConfirmed: c.Revenue,
		})
		seen[item.Day] = struct{}{}
	}
	for _, item := range confirmed {
		if _, ok := seen[item.Day]; ok {
			continue
		}
		rows = append(rows, DashboardOrderTrendRow{
			Day:              item.Day,
			OrdersConfirmed:  item.Total,
			RevenueConfirmed: item.Revenue,
		})
	}
	return rows, nil
}

// GetDeliveryLoad counts scheduled orders per upcoming delivery date and
// slot, so the route planners can see how full each window is.
func (r *GormDashboardRepository) GetDeliveryLoad(fromDate time.Time, days int) ([]DashboardDeliverySlotRow, error) {
	if days <= 0 {
		days = 7
	}
	until := fromDate.AddDate(0, 0, days)

	dateExpr := "CAST(date(delivery_date) AS TEXT)"
	var rows []DashboardDeliverySlotRow
	if err := r.db.Model(&models.Order{}).
		Select(fmt.Sprintf("%s as delivery_date, delivery_time_slot as time_slot, COUNT(*) as orders", dateExpr)).
		Where("delivery_date IS NOT NULL AND delivery_date >= ? AND delivery_date < ?", fromDate, until).
		Where("delivery_status IN ?", []string{constants.DeliveryStatusWaiting, constants.DeliveryStatusEnRoute}).
		Group(fmt.Sprintf("%s, delivery_time_slot", dateExpr)).
		Order("delivery_date asc, time_slot asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopProducts ranks products by confirmed order volume.
func (r *GormDashboardRepository) GetTopProducts(startAt, endAt time.Time, limit int) ([]DashboardProductRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []DashboardProductRankingRow
	if err := r.db.Model(&models.OrderItem{}).
		Select("order_items.product_id as product_id, MAX(order_items.name) as name, COUNT(DISTINCT order_items.order_id) as orders, COALESCE(SUM(order_items.quantity), 0) as quantity, COALESCE(SUM(order_items.total_price), 0) as paid_amount").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.payment_confirmed_at IS NOT NULL AND orders.payment_confirmed_at >= ? AND orders.payment_confirmed_at < ?", startAt, endAt).
		Group("order_items.product_id").
		Order("paid_amount DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
