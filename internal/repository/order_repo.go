package repository

import (
	"context"
	"time"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	Repository[model.Order]
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, number int) (*model.Order, error)
	NextOrderNumber(ctx context.Context) (int, error)
	DailySales(ctx context.Context, from, to time.Time, loc *time.Location) ([]DailySales, error)
}

// DailySales is one point of the sales chart.
type DailySales struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// OrderDetail is what a full order view loads alongside the order.
var OrderDetail = []string{"items.product", "comments", "user"}

type orderRepo struct {
	*Delegate[model.Order]
}

func NewOrderRepo(src Source, chain *Chain) OrderRepository {
	return &orderRepo{NewDelegate[model.Order](src, chain)}
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.FindUnique(ctx, query.ByID(id), OrderDetail...)
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, number int) (*model.Order, error) {
	return r.FindUnique(ctx, query.Is("order_number", number), OrderDetail...)
}

// NextOrderNumber is one past the highest order number in use.
func (r *orderRepo) NextOrderNumber(ctx context.Context) (int, error) {
	res, err := r.Aggregate(ctx, query.AggregateArgs{
		Aggregates: query.Aggregates{Max: []string{"order_number"}},
	})
	if err != nil {
		return 0, err
	}
	return int(toInt64(res.Max["order_number"])) + 1, nil
}

// DailySales buckets completed orders between from and to by local calendar day.
func (r *orderRepo) DailySales(ctx context.Context, from, to time.Time, loc *time.Location) ([]DailySales, error) {
	if loc == nil {
		loc = time.UTC
	}
	orders, err := r.FindMany(ctx, query.FindArgs{
		Where: query.Where{Fields: map[string]query.Filter{
			"created_at": query.Between(from.Local(), to.Local()),
			"status":     query.Eq(model.OrderCompleted),
		}},
		OrderBy: []query.OrderBy{query.Asc("created_at")},
		Select:  []string{"created_at", "total"},
	})
	if err != nil {
		return nil, err
	}

	var results []DailySales
	index := map[string]int{}
	for _, o := range orders {
		day := o.CreatedAt.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(results)
			index[day] = i
			results = append(results, DailySales{Date: day})
		}
		results[i].Orders++
		results[i].Revenue = results[i].Revenue.Add(o.Total)
	}
	return results, nil
}
