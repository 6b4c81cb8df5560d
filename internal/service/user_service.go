package service

import (
	"context"
	"fmt"

	"go-pos-store/internal/client"
	"go-pos-store/internal/dberr"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff"`
}

type UpdateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	Name     string  `json:"name" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=admin manager staff"`
	Active   *bool   `json:"active"`
}

type userService struct {
	db *client.Client
}

func NewUserService(db *client.Client) UserService {
	return &userService{db: db}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Active: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.db.Users.Create(ctx, user); err != nil {
		if dberr.IsCode(err, dberr.CodeUniqueConstraint) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	response := user.ToResponse()
	return &response, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	data := query.Data{
		"email": req.Email,
		"name":  req.Name,
		"role":  req.Role,
	}
	if req.Active != nil {
		data["active"] = *req.Active
	}
	if req.Password != nil && *req.Password != "" {
		var tmp model.User
		if err := tmp.SetPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		data["password"] = tmp.Password
	}

	user, err := s.db.Users.Update(ctx, query.ByID(userID), data)
	if err != nil {
		if dberr.IsCode(err, dberr.CodeUniqueConstraint) {
			return nil, ErrEmailExists
		}
		return nil, translate(err, ErrUserNotFound, nil)
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Users.Update(ctx, query.ByID(userID), query.Data{"active": false})
	return translate(err, ErrUserNotFound, nil)
}

// DeleteUser removes a user without orders; users with history should be deactivated.
func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Users.Delete(ctx, query.ByID(userID))
	return translate(err, ErrUserNotFound, ErrUserHasOrders)
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.db.Users.FindMany(ctx, query.FindArgs{OrderBy: []query.OrderBy{query.Asc("name")}})
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.db.Users.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, nil)
	}
	response := user.ToResponse()
	return &response, nil
}
