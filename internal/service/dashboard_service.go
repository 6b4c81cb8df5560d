package service

import (
	"context"
	"fmt"
	"time"

	"go-pos-store/internal/client"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"
	"go-pos-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DashboardService interface {
	Stats(ctx context.Context, from, to time.Time) (*DashboardStats, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
	// DailySales covers the last days calendar days in the store's time
	// zone, today included.
	DailySales(ctx context.Context, days int) ([]repository.DailySales, error)
}

type DashboardStats struct {
	Orders         int64                       `json:"orders"`
	Revenue        decimal.Decimal             `json:"revenue"`
	AverageTicket  decimal.Decimal             `json:"average_ticket"`
	ByStatus       map[model.OrderStatus]int64 `json:"by_status"`
	Products       int64                       `json:"products"`
	ActiveProducts int64                       `json:"active_products"`
}

type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type dashboardService struct {
	db       *client.Client
	settings SettingsService
	now      func() time.Time
}

func NewDashboardService(db *client.Client, settings SettingsService) DashboardService {
	return &dashboardService{db: db, settings: settings, now: time.Now}
}

// inRange matches timestamps between from and to. Rows are stamped in local
// time, so bounds are compared in the same zone.
func inRange(from, to time.Time) query.Filter {
	return query.Between(from.Local(), to.Local())
}

func (s *dashboardService) Stats(ctx context.Context, from, to time.Time) (*DashboardStats, error) {
	completed := query.Where{Fields: map[string]query.Filter{
		"created_at": inRange(from, to),
		"status":     query.Eq(model.OrderCompleted),
	}}
	agg, err := s.db.Orders.Aggregate(ctx, query.AggregateArgs{
		Where: completed,
		Aggregates: query.Aggregates{
			Count: []string{query.AllRows},
			Sum:   []string{"total"},
			Avg:   []string{"total"},
		},
	})
	if err != nil {
		return nil, err
	}

	groups, err := s.db.Orders.GroupBy(ctx, query.GroupByArgs{
		By:         []string{"status"},
		Where:      query.Field("created_at", inRange(from, to)),
		Aggregates: query.Aggregates{Count: []string{query.AllRows}},
	})
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Orders:        agg.CountAll(),
		Revenue:       agg.SumOf("total"),
		AverageTicket: agg.Avg["total"].Decimal.Round(2),
		ByStatus:      map[model.OrderStatus]int64{},
	}
	for _, g := range groups {
		stats.ByStatus[model.OrderStatus(fmt.Sprint(g.Keys["status"]))] = g.CountAll()
	}

	if stats.Products, err = s.db.Products.Count(ctx, query.Where{}); err != nil {
		return nil, err
	}
	if stats.ActiveProducts, err = s.db.Products.Count(ctx, query.Is("available", true)); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *dashboardService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	orders, err := s.db.Orders.FindMany(ctx, query.FindArgs{
		Where: query.Where{Fields: map[string]query.Filter{
			"created_at": inRange(from, to),
			"status":     query.Eq(model.OrderCompleted),
		}},
		Select: []string{"id"},
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []TopProduct{}, nil
	}
	ids := make([]any, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	groups, err := s.db.OrderItems.GroupBy(ctx, query.GroupByArgs{
		By:      []string{"product_id"},
		Where:   query.Field("order_id", query.In(ids...)),
		OrderBy: []query.OrderBy{query.Desc("_sum.quantity"), query.Asc("product_id")},
		Take:    limit,
		Aggregates: query.Aggregates{
			Sum: []string{"quantity", "subtotal"},
		},
	})
	if err != nil {
		return nil, err
	}

	top := make([]TopProduct, 0, len(groups))
	productIDs := make([]any, 0, len(groups))
	for _, g := range groups {
		id, err := uuid.Parse(fmt.Sprint(g.Keys["product_id"]))
		if err != nil {
			return nil, fmt.Errorf("group key product_id: %w", err)
		}
		top = append(top, TopProduct{
			ProductID: id,
			Quantity:  g.SumOf("quantity").IntPart(),
			Revenue:   g.SumOf("subtotal"),
		})
		productIDs = append(productIDs, id)
	}

	products, err := s.db.Products.FindMany(ctx, query.FindArgs{
		Where:  query.Field("id", query.In(productIDs...)),
		Select: []string{"id", "name"},
	})
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for i := range top {
		top[i].Name = names[top[i].ProductID]
	}
	return top, nil
}

func (s *dashboardService) DailySales(ctx context.Context, days int) ([]repository.DailySales, error) {
	if days <= 0 {
		days = 7
	}
	loc, err := s.settings.Location(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	return s.db.Orders.DailySales(ctx, from, now, loc)
}
