package entity

import "github.com/shopspring/decimal"

// AllOrderStatuses lists every status in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// StatusTotal aggregates the orders in one status.
type StatusTotal struct {
	Status OrderStatus
	Count  int
	Amount decimal.Decimal
}

// OrderStatistics summarises a set of orders. Cancelled orders count towards
// TotalOrders and the breakdown but not towards TotalSpent.
type OrderStatistics struct {
	TotalOrders       int                 `json:"total_orders"`
	TotalSpent        decimal.Decimal     `json:"total_spent"`
	AverageOrderValue decimal.Decimal     `json:"average_order_value"`
	StatusBreakdown   map[OrderStatus]int `json:"status_breakdown"`
}

// NewOrderStatistics folds per-status totals into OrderStatistics. The
// average is TotalSpent over TotalOrders, rounded to cents.
func NewOrderStatistics(totals []StatusTotal) OrderStatistics {
	stats := OrderStatistics{
		TotalSpent:        decimal.Zero,
		AverageOrderValue: decimal.Zero,
		StatusBreakdown:   make(map[OrderStatus]int, len(AllOrderStatuses())),
	}
	for _, status := range AllOrderStatuses() {
		stats.StatusBreakdown[status] = 0
	}

	for _, total := range totals {
		stats.TotalOrders += total.Count
		stats.StatusBreakdown[total.Status] += total.Count
		if total.Status != OrderStatusCancelled {
			stats.TotalSpent = stats.TotalSpent.Add(total.Amount)
		}
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalSpent.
			DivRound(decimal.NewFromInt(int64(stats.TotalOrders)), PriceScale)
	}
	return stats
}
