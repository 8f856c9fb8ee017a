package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/grocery-store/models"
	"gorm.io/gorm"
)

// ReportService aggregates the staff dashboard figures.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

type DashboardStats struct {
	TotalOrders   int64            `json:"total_orders"`
	TodayOrders   int64            `json:"today_orders"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
	TodayRevenue  decimal.Decimal  `json:"today_revenue"`
	OrderStats    map[string]int64 `json:"order_stats"`
	PaymentStats  map[string]int64 `json:"payment_stats"`
	LowStockCount int64            `json:"low_stock_count"`
}

type statusCount struct {
	Status string
	Total  int64
}

// Stats counts orders and payments by status. Revenue is the sum of completed payments.
func (s *ReportService) Stats(ctx context.Context, actor Actor) (*DashboardStats, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	db := s.db.WithContext(ctx)

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats := DashboardStats{
		OrderStats: map[string]int64{
			models.OrderStatusPending:    0,
			models.OrderStatusProcessing: 0,
			models.OrderStatusCompleted:  0,
			models.OrderStatusCancelled:  0,
		},
		PaymentStats: map[string]int64{
			models.PaymentStatusPending:   0,
			models.PaymentStatusCompleted: 0,
			models.PaymentStatusFailed:    0,
			models.PaymentStatusCancelled: 0,
		},
	}

	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if err := db.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&stats.TodayOrders).Error; err != nil {
		return nil, fmt.Errorf("count today orders: %w", err)
	}

	var orderCounts []statusCount
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS total").Group("status").Scan(&orderCounts).Error; err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	for _, c := range orderCounts {
		stats.OrderStats[c.Status] = c.Total
	}

	var paymentCounts []statusCount
	if err := db.Model(&models.Payment{}).Select("status, COUNT(*) AS total").Group("status").Scan(&paymentCounts).Error; err != nil {
		return nil, fmt.Errorf("count payments by status: %w", err)
	}
	for _, c := range paymentCounts {
		stats.PaymentStats[c.Status] = c.Total
	}

	total, err := sumRevenue(db.Where("status = ?", models.PaymentStatusCompleted))
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = total

	today, err := sumRevenue(db.Where("status = ? AND paid_at >= ? AND paid_at < ?", models.PaymentStatusCompleted, dayStart, dayEnd))
	if err != nil {
		return nil, err
	}
	stats.TodayRevenue = today

	if err := db.Model(&models.Product{}).
		Where("stock <= ? AND is_available = ?", DefaultLowStockThreshold, true).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, fmt.Errorf("count low stock: %w", err)
	}

	return &stats, nil
}

func sumRevenue(q *gorm.DB) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := q.Model(&models.Payment{}).Select("SUM(amount)").Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum revenue: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}
