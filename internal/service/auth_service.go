package service

import (
	"context"
	"fmt"

	"go-pos-store/internal/client"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"
	"go-pos-store/pkg/jwt"

	"github.com/google/uuid"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	db     *client.Client
	tokens *jwt.Manager
}

func NewAuthService(db *client.Client, tokens *jwt.Manager) AuthService {
	return &authService{db: db, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.db.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.Active {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.db.Users.FindByID(ctx, userID)
	if err != nil {
		return translate(err, ErrUserNotFound, nil)
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, user, newPassword)
}

// ResetPassword sets a new password without knowing the old one.
func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.db.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *authService) setPassword(ctx context.Context, user *model.User, password string) error {
	if len(password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.Users.UpdatePassword(ctx, user.ID, user.Password)
}

// Authenticate resolves a bearer token to an active user.
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.db.Users.FindUnique(ctx, query.ByID(claims.UserID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return user, nil
}
