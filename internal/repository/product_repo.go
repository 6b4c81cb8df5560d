package repository

import (
	"context"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Repository[model.Product]
	FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Product, error)
	FindAvailable(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
}

type productRepo struct {
	*Delegate[model.Product]
}

func NewProductRepo(src Source, chain *Chain) ProductRepository {
	return &productRepo{NewDelegate[model.Product](src, chain)}
}

func (r *productRepo) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Product, error) {
	return r.FindMany(ctx, query.FindArgs{
		Where:   query.Is("category_id", categoryID),
		OrderBy: []query.OrderBy{query.Asc("name")},
		Include: []string{"category"},
	})
}

// FindAvailable loads the products in ids that can be sold right now.
func (r *productRepo) FindAvailable(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return r.FindMany(ctx, query.FindArgs{
		Where: query.Field("id", query.In(values...)).With("available", query.Eq(true)),
	})
}
