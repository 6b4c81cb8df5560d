package service_test

import (
	"context"
	"testing"
	"time"

	"go-pos-store/internal/query"
	"go-pos-store/internal/service"
	"go-pos-store/internal/testutil"
	"go-pos-store/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	auth := service.NewAuthService(db, jwt.NewManager("test-secret", time.Hour))
	ctx := context.Background()

	res, err := auth.Login(ctx, "staff@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, fx.User.ID, res.User.ID)

	user, err := auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)

	_, err = auth.Login(ctx, "staff@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = db.Users.Update(ctx, query.ByID(fx.User.ID), query.Data{"active": false})
	require.NoError(t, err)
	_, err = auth.Login(ctx, "staff@example.com", "secret123")
	assert.ErrorIs(t, err, service.ErrUserInactive)
	_, err = auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, service.ErrUserInactive)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	db := testutil.NewClient(t)
	auth := service.NewAuthService(db, jwt.NewManager("test-secret", time.Hour))

	_, err := auth.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)
	_, err = auth.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestChangeAndResetPassword(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	auth := service.NewAuthService(db, jwt.NewManager("test-secret", time.Hour))
	ctx := context.Background()

	assert.ErrorIs(t, auth.ChangePassword(ctx, fx.User.ID, "wrong", "newpass1"), service.ErrWrongPassword)
	assert.ErrorIs(t, auth.ChangePassword(ctx, fx.User.ID, "secret123", "123"), service.ErrValidation)
	require.NoError(t, auth.ChangePassword(ctx, fx.User.ID, "secret123", "newpass1"))

	_, err := auth.Login(ctx, "staff@example.com", "newpass1")
	require.NoError(t, err)

	require.NoError(t, auth.ResetPassword(ctx, "staff@example.com", "another1"))
	_, err = auth.Login(ctx, "staff@example.com", "another1")
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ResetPassword(ctx, "nobody@example.com", "another1"), service.ErrUserNotFound)
}
