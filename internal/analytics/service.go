package analytics

import (
	"context"
	"sort"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

// Service backs the admin and management dashboards: revenue, queue depth
// and item popularity per stall.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

type StallSummary struct {
	StallID       string  `json:"stall_id"`
	TotalRevenue  float64 `json:"total_revenue"`
	PaidOrders    int     `json:"paid_orders"`
	PendingOrders int     `json:"pending_orders"`
	ServedOrders  int     `json:"served_orders"`
}

type ItemCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type statusRow struct {
	OrderStatus   string  `bun:"order_status"`
	PaymentStatus string  `bun:"payment_status"`
	Count         int     `bun:"count"`
	Revenue       float64 `bun:"revenue"`
}

// StallSummary aggregates order counts and paid revenue for one stall.
func (s *Service) StallSummary(ctx context.Context, stallID string) (*StallSummary, error) {
	var rows []statusRow
	err := s.db.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("order_status").
		ColumnExpr("payment_status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(total_amount) AS revenue").
		Where("stall_id = ?", stallID).
		GroupExpr("order_status, payment_status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	summary := &StallSummary{StallID: stallID}
	for _, row := range rows {
		if row.PaymentStatus == models.PaymentStatusPaid {
			summary.PaidOrders += row.Count
			summary.TotalRevenue += row.Revenue
		}
		switch row.OrderStatus {
		case models.OrderStatusPending:
			summary.PendingOrders += row.Count
		case models.OrderStatusServed:
			summary.ServedOrders += row.Count
		}
	}
	return summary, nil
}

// TopItems ranks a stall's items by quantity sold across paid orders.
// Line items live as JSON on the order row, so the tally happens here
// rather than in SQL.
func (s *Service) TopItems(ctx context.Context, stallID string, limit int) ([]ItemCount, error) {
	var orders []models.Order
	err := s.db.NewSelect().
		Model(&orders).
		Column("items").
		Where("stall_id = ?", stallID).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	tally := make(map[string]int)
	for _, ord := range orders {
		for _, item := range ord.Items {
			tally[item.Name] += item.Quantity
		}
	}

	counts := make([]ItemCount, 0, len(tally))
	for name, qty := range tally {
		counts = append(counts, ItemCount{Name: name, Quantity: qty})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Quantity != counts[j].Quantity {
			return counts[i].Quantity > counts[j].Quantity
		}
		return counts[i].Name < counts[j].Name
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}
