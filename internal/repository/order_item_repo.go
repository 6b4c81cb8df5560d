package repository

import (
	"context"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
)

type OrderItemRepository interface {
	Repository[model.OrderItem]
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
}

type orderItemRepo struct {
	*Delegate[model.OrderItem]
}

func NewOrderItemRepo(src Source, chain *Chain) OrderItemRepository {
	return &orderItemRepo{NewDelegate[model.OrderItem](src, chain)}
}

func (r *orderItemRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	return r.FindMany(ctx, query.FindArgs{
		Where:   query.Is("order_id", orderID),
		Include: []string{"product"},
	})
}
