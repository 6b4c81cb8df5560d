package service_test

import (
	"context"
	"testing"

	"go-pos-store/internal/model"
	"go-pos-store/internal/service"
	"go-pos-store/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	db := testutil.NewClient(t)
	users := service.NewUserService(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     service.CreateUserRequest
		wantErr error
	}{
		{"valid", service.CreateUserRequest{Email: "ana@example.com", Password: "secret123", Name: "Ana", Role: model.RoleManager}, nil},
		{"duplicate email", service.CreateUserRequest{Email: "ana@example.com", Password: "secret123", Name: "Ana 2", Role: model.RoleStaff}, service.ErrEmailExists},
		{"bad role", service.CreateUserRequest{Email: "bob@example.com", Password: "secret123", Name: "Bob", Role: "owner"}, service.ErrValidation},
		{"short password", service.CreateUserRequest{Email: "bob@example.com", Password: "123", Name: "Bob", Role: model.RoleStaff}, service.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := users.CreateUser(ctx, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.Email, res.Email)
			assert.True(t, res.Active)
		})
	}
}

func TestUpdateUser(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	users := service.NewUserService(db)
	ctx := context.Background()

	inactive := false
	pw := "changed1"
	res, err := users.UpdateUser(ctx, fx.User.ID, &service.UpdateUserRequest{
		Email: "staff@example.com", Name: "Renamed", Role: model.RoleManager, Active: &inactive, Password: &pw,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Name)
	assert.Equal(t, model.RoleManager, res.Role)
	assert.False(t, res.Active)

	stored, err := db.Users.FindByID(ctx, fx.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("changed1"))

	_, err = users.UpdateUser(ctx, uuid.New(), &service.UpdateUserRequest{
		Email: "x@example.com", Name: "X", Role: model.RoleStaff,
	})
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = users.CreateUser(ctx, &service.CreateUserRequest{Email: "other@example.com", Password: "secret123", Name: "O", Role: model.RoleStaff})
	require.NoError(t, err)
	_, err = users.UpdateUser(ctx, fx.User.ID, &service.UpdateUserRequest{
		Email: "other@example.com", Name: "Renamed", Role: model.RoleStaff,
	})
	assert.ErrorIs(t, err, service.ErrEmailExists)
}

func TestDeleteUser(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	users := service.NewUserService(db)
	orders := service.NewOrderService(db, service.NewSettingsService(db, nil, nil), nil, nil, nil)
	ctx := context.Background()

	_, err := orders.PlaceOrder(ctx, fx.User.ID, &service.PlaceOrderRequest{
		Items: []service.OrderItemRequest{{ProductID: fx.Cola.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, users.DeleteUser(ctx, fx.User.ID), service.ErrUserHasOrders)
	require.NoError(t, users.Deactivate(ctx, fx.User.ID))
	got, err := users.GetUserByID(ctx, fx.User.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, users.DeleteUser(ctx, uuid.New()), service.ErrUserNotFound)
	_, err = users.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	fresh, err := users.CreateUser(ctx, &service.CreateUserRequest{Email: "temp@example.com", Password: "secret123", Name: "Temp", Role: model.RoleStaff})
	require.NoError(t, err)
	require.NoError(t, users.DeleteUser(ctx, fresh.ID))

	all, err := users.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
