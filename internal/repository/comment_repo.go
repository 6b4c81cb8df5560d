package repository

import (
	"context"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
)

type CommentRepository interface {
	Repository[model.Comment]
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error)
}

type commentRepo struct {
	*Delegate[model.Comment]
}

func NewCommentRepo(src Source, chain *Chain) CommentRepository {
	return &commentRepo{NewDelegate[model.Comment](src, chain)}
}

// FindByOrder returns the comments of an order, oldest first.
func (r *commentRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error) {
	return r.FindMany(ctx, query.FindArgs{
		Where:   query.Is("order_id", orderID),
		OrderBy: []query.OrderBy{query.Asc("created_at")},
	})
}
