package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/cache"
	"github.com/hortafresh/backoffice/internal/repository"
)

const (
	dashboardCacheTTL       = 45 * time.Second
	dashboardCustomMaxDays  = 90
	dashboardScheduleDays   = 7
	dashboardTopProductsMax = 10
)

// DashboardService aggregates the numbers shown on the back-office
// home screen.
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput window selection for dashboard queries.
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse overview payload.
type DashboardOverviewResponse struct {
	Range    string       `json:"range"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Timezone string       `json:"timezone"`
	KPI      DashboardKPI `json:"kpi"`
}

// DashboardKPI core business counters.
type DashboardKPI struct {
	OrdersTotal          int64  `json:"orders_total"`
	ConfirmedOrders      int64  `json:"confirmed_orders"`
	PendingPaymentOrders int64  `json:"pending_payment_orders"`
	CanceledOrders       int64  `json:"canceled_orders"`
	RevenueConfirmed     string `json:"revenue_confirmed"`
	ConfirmationRate     string `json:"confirmation_rate"`
	DeliveriesWaiting    int64  `json:"deliveries_waiting"`
	DeliveriesEnRoute    int64  `json:"deliveries_en_route"`
	DeliveriesDelivered  int64  `json:"deliveries_delivered"`
	ChargesPending       int64  `json:"charges_pending"`
	ChargesExpired       int64  `json:"charges_expired"`
	NewCustomers         int64  `json:"new_customers"`
	ActiveProducts       int64  `json:"active_products"`
	ActiveSubscriptions  int64  `json:"active_subscriptions"`
}

// DashboardTrendResponse per-day series.
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint one day of the series.
type DashboardTrendPoint struct {
	Date             string `json:"date"`
	OrdersTotal      int64  `json:"orders_total"`
	OrdersConfirmed  int64  `json:"orders_confirmed"`
	RevenueConfirmed string `json:"revenue_confirmed"`
}

// DashboardScheduleResponse upcoming delivery load per date and slot.
type DashboardScheduleResponse struct {
	From  string                  `json:"from"`
	Days  int                     `json:"days"`
	Slots []DashboardScheduleSlot `json:"slots"`
}

// DashboardScheduleSlot booked orders for one date and slot.
type DashboardScheduleSlot struct {
	DeliveryDate string `json:"delivery_date"`
	TimeSlot     string `json:"time_slot"`
	Orders       int64  `json:"orders"`
}

// DashboardRankingsResponse top products payload.
type DashboardRankingsResponse struct {
	Range       string                    `json:"range"`
	From        string                    `json:"from"`
	To          string                    `json:"to"`
	Timezone    string                    `json:"timezone"`
	TopProducts []DashboardProductRanking `json:"top_products"`
}

// DashboardProductRanking product ranking item.
type DashboardProductRanking struct {
	ProductID  uint   `json:"product_id"`
	Name       string `json:"name"`
	Orders     int64  `json:"orders"`
	Quantity   int64  `json:"quantity"`
	PaidAmount string `json:"paid_amount"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview returns the overview counters for one window.
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	confirmationRate := 0.0
	if overview.OrdersTotal > 0 {
		confirmationRate = float64(overview.ConfirmedOrders) / float64(overview.OrdersTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			OrdersTotal:          overview.OrdersTotal,
			ConfirmedOrders:      overview.ConfirmedOrders,
			PendingPaymentOrders: overview.PendingPaymentOrders,
			CanceledOrders:       overview.CanceledOrders,
			RevenueConfirmed:     formatMoneyValue(overview.RevenueConfirmed),
			ConfirmationRate:     formatPercentValue(confirmationRate),
			DeliveriesWaiting:    overview.DeliveriesWaiting,
			DeliveriesEnRoute:    overview.DeliveriesEnRoute,
			DeliveriesDelivered:  overview.DeliveriesDelivered,
			ChargesPending:       overview.ChargesPending,
			ChargesExpired:       overview.ChargesExpired,
			NewCustomers:         overview.NewCustomers,
			ActiveProducts:       overview.ActiveProducts,
			ActiveSubscriptions:  overview.ActiveSubscriptions,
		},
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends returns the per-day order and revenue series.
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetOrderTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	rowMap := make(map[string]repository.DashboardOrderTrendRow, len(rows))
	for _, item := range rows {
		rowMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		item := rowMap[day]
		points = append(points, DashboardTrendPoint{
			Date:             day,
			OrdersTotal:      item.OrdersTotal,
			OrdersConfirmed:  item.OrdersConfirmed,
			RevenueConfirmed: formatMoneyValue(item.RevenueConfirmed),
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetDeliverySchedule returns the booked delivery load for the next days.
func (s *DashboardService) GetDeliverySchedule(ctx context.Context, days int) (*DashboardScheduleResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardScheduleResponse{}, nil
	}
	if days <= 0 || days > dashboardCustomMaxDays {
		days = dashboardScheduleDays
	}

	now := time.Now()
	fromDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	cacheKey := fmt.Sprintf("dashboard:schedule:%s:%d", fromDate.Format("2006-01-02"), days)
	var cached DashboardScheduleResponse
	hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
	if cacheErr == nil && hit {
		return &cached, nil
	}

	rows, err := s.repo.GetDeliveryLoad(fromDate, days)
	if err != nil {
		return nil, err
	}

	slots := make([]DashboardScheduleSlot, 0, len(rows))
	for _, item := range rows {
		slots = append(slots, DashboardScheduleSlot{
			DeliveryDate: item.DeliveryDate,
			TimeSlot:     item.TimeSlot,
			Orders:       item.Orders,
		})
	}

	response := &DashboardScheduleResponse{
		From:  fromDate.Format("2006-01-02"),
		Days:  days,
		Slots: slots,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings returns the top products by confirmed revenue.
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetTopProducts(window.startAt, window.endAt, dashboardTopProductsMax)
	if err != nil {
		return nil, err
	}

	products := make([]DashboardProductRanking, 0, len(rows))
	for _, item := range rows {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "-"
		}
		products = append(products, DashboardProductRanking{
			ProductID:  item.ProductID,
			Name:       name,
			Orders:     item.Orders,
			Quantity:   item.Quantity,
			PaidAmount: formatMoneyValue(item.PaidAmount),
		})
	}

	response := &DashboardRankingsResponse{
		Range:       window.rangeKey,
		From:        window.startAt.Format(time.RFC3339),
		To:          window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:    window.timezone,
		TopProducts: products,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
