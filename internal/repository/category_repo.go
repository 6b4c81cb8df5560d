package repository

import (
	"context"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"
)

type CategoryRepository interface {
	Repository[model.Category]
	FindActive(ctx context.Context) ([]model.Category, error)
}

type categoryRepo struct {
	*Delegate[model.Category]
}

func NewCategoryRepo(src Source, chain *Chain) CategoryRepository {
	return &categoryRepo{NewDelegate[model.Category](src, chain)}
}

func (r *categoryRepo) FindActive(ctx context.Context) ([]model.Category, error) {
	return r.FindMany(ctx, query.FindArgs{
		Where:   query.Is("active", true),
		OrderBy: []query.OrderBy{query.Asc("name")},
	})
}
