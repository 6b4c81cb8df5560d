package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-pos-store/internal/audit"
	"go-pos-store/internal/model"
	"go-pos-store/internal/service"
	"go-pos-store/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuth accepts a single token.
type stubAuth struct {
	service.AuthService
	user *model.User
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if token != "good" {
		return nil, jwt.ErrInvalidToken
	}
	return s.user, nil
}

func TestRequireAuthAndRole(t *testing.T) {
	user := &model.User{Email: "staff@example.com", Name: "Staff", Role: model.RoleStaff}
	user.ID = uuid.New()

	app := fiber.New()
	app.Use(RequireAuth(stubAuth{user: user}))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string) + " " + audit.ActorFrom(c.UserContext()))
	})
	app.Get("/admin", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/floor", RequireRole(model.RoleAdmin, model.RoleStaff), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic good", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer bad", http.StatusUnauthorized},
		{"ok", "/me", "Bearer good", http.StatusOK},
		{"role denied", "/admin", "Bearer good", http.StatusForbidden},
		{"role allowed", "/floor", "Bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireSocketAuth(t *testing.T) {
	user := &model.User{Email: "staff@example.com", Name: "Staff", Role: model.RoleStaff}
	user.ID = uuid.New()

	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) }
	app.Get("/api", RequireAuth(stubAuth{user: user}), ok)
	app.Get("/ws", RequireSocketAuth(stubAuth{user: user}), ok)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"query token ignored on api", "/api?token=good", "", http.StatusUnauthorized},
		{"no token", "/ws", "", http.StatusUnauthorized},
		{"bad query token", "/ws?token=bad", "", http.StatusUnauthorized},
		{"query token", "/ws?token=good", "", http.StatusNoContent},
		{"header wins over query", "/ws?token=good", "Bearer bad", http.StatusUnauthorized},
		{"header token", "/ws", "Bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
