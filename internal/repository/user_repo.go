package repository

import (
	"context"

	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
)

type UserRepository interface {
	Repository[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

type userRepo struct {
	*Delegate[model.User]
}

func NewUserRepo(src Source, chain *Chain) UserRepository {
	return &userRepo{NewDelegate[model.User](src, chain)}
}

// FindByEmail returns nil when no user has the address.
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindUnique(ctx, query.Is("email", email))
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.FindUniqueOrThrow(ctx, query.ByID(id))
}

func (r *userRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	_, err := r.Update(ctx, query.ByID(userID), query.Data{"password": hashedPassword})
	return err
}
