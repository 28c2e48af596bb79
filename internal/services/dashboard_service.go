package services

import (
	"context"
	"time"

	"z7shop/internal/models"
	"z7shop/internal/repositories"

	"github.com/shopspring/decimal"
)

const recentOrdersCount = 5

// DashboardStats summarizes orders for the admin dashboard.
type DashboardStats struct {
	TotalOrders    int64
	OrdersByStatus map[models.OrderStatus]int64
	MonthlyOrders  [12]int64
	MonthlyRevenue [12]decimal.Decimal
	RecentOrders   []models.Order
}

// DashboardService computes admin dashboard statistics.
type DashboardService struct {
	orders repositories.OrderRepository
	Now    func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(orders repositories.OrderRepository) *DashboardService {
	return &DashboardService{orders: orders, Now: time.Now}
}

// Stats returns order totals, a per-status breakdown, monthly counts and
// revenue for the current calendar year and the most recent orders.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}
	for _, st := range models.OrderStatuses {
		stats.OrdersByStatus[st] = 0
	}
	for i := range stats.MonthlyRevenue {
		stats.MonthlyRevenue[i] = decimal.Zero
	}

	var err error
	if stats.TotalOrders, err = s.orders.Count(ctx); err != nil {
		return nil, err
	}

	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		if c.Status.Valid() {
			stats.OrdersByStatus[c.Status] = c.Count
		}
	}

	// Bucketing happens here rather than in SQL so it works on both drivers.
	now := s.Now()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	orders, err := s.orders.ListCreatedBetween(ctx, start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		m := o.CreatedAt.In(now.Location()).Month() - 1
		stats.MonthlyOrders[m]++
		stats.MonthlyRevenue[m] = stats.MonthlyRevenue[m].Add(o.TotalAmount)
	}

	if stats.RecentOrders, err = s.orders.Recent(ctx, recentOrdersCount); err != nil {
		return nil, err
	}
	return stats, nil
}
