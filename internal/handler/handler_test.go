package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go-pos-store/internal/audit"
	"go-pos-store/internal/handler"
	"go-pos-store/internal/model"
	"go-pos-store/internal/service"
	"go-pos-store/internal/testutil"
	"go-pos-store/internal/ws"
	"go-pos-store/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memAudit keeps audit entries in memory.
type memAudit struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *memAudit) Record(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) History(_ context.Context, entityID string, limit int64) ([]*audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.Entry
	for i := len(m.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.entries[i].EntityID == entityID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type api struct {
	t     *testing.T
	app   *fiber.App
	fx    testutil.Fixtures
	admin string
	staff string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)

	admin := &model.User{Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin, Active: true}
	require.NoError(t, admin.SetPassword("admin123"))
	require.NoError(t, db.Users.Create(context.Background(), admin))

	trail := &memAudit{}
	db.Use(audit.Middleware(trail, nil))

	settings := service.NewSettingsService(db, nil, nil)
	auth := service.NewAuthService(db, jwt.NewManager("test-secret", time.Hour))
	app := fiber.New()
	handler.Register(app, handler.Services{
		Auth:      auth,
		Users:     service.NewUserService(db),
		Catalog:   service.NewCatalogService(db),
		Orders:    service.NewOrderService(db, settings, nil, nil, nil),
		Settings:  settings,
		Dashboard: service.NewDashboardService(db, settings),
		Audit:     trail,
	}, ws.NewHub(nil))

	a := &api{t: t, app: app, fx: fx}
	a.admin = a.login("admin@example.com", "admin123")
	a.staff = a.login("staff@example.com", "secret123")
	return a
}

func (a *api) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/v1/auth/login", "", handler.LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func TestAuthRoutes(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodPost, "/api/v1/auth/login", "", handler.LoginRequest{Email: "admin@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", handler.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := a.do(http.MethodGet, "/api/v1/auth/me", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "staff", body["role"])

	code, _ = a.do(http.MethodPost, "/api/v1/auth/change-password", a.staff, handler.ChangePasswordRequest{OldPassword: "bad", NewPassword: "newpass1"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodPost, "/api/v1/auth/change-password", a.staff, handler.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newpass1"})
	assert.Equal(t, http.StatusOK, code)
	a.login("staff@example.com", "newpass1")
}

func TestRoleChecks(t *testing.T) {
	a := newAPI(t)
	product := map[string]interface{}{"name": "Water", "price": "1.00", "category_id": a.fx.Category.ID}

	code, _ := a.do(http.MethodPost, "/api/v1/products", a.staff, product)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/api/v1/users", a.staff, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/api/v1/dashboard/stats", a.staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := a.do(http.MethodPost, "/api/v1/products", a.admin, product)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Water", body["name"])

	code, body = a.do(http.MethodGet, "/api/v1/products?search=wat", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 1)

	code, _ = a.do(http.MethodGet, "/api/v1/products?category_id=nope", a.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOrderFlow(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/v1/orders", a.staff, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": a.fx.Cola.ID, "quantity": 2},
			{"product_id": a.fx.Tea.ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "pending", body["status"])
	id := body["id"].(string)

	code, _ = a.do(http.MethodPost, "/api/v1/orders", a.staff, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/api/v1/orders", a.staff, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": uuid.New(), "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = a.do(http.MethodPut, "/api/v1/orders/"+id+"/status", a.staff, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, code)
	code, body = a.do(http.MethodPut, "/api/v1/orders/"+id+"/status", a.staff, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "in_progress", body["status"])

	code, body = a.do(http.MethodPost, "/api/v1/orders/"+id+"/comments", a.staff, map[string]string{"content": "extra napkins"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Staff", body["created_by"])

	code, body = a.do(http.MethodGet, "/api/v1/orders/number/1", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["id"])
	assert.Len(t, body["comments"], 1)

	code, body = a.do(http.MethodGet, "/api/v1/orders/"+id+"/receipt", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["lines"], 2)

	code, _ = a.do(http.MethodPost, "/api/v1/orders/"+id+"/print", a.staff, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = a.do(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), a.staff, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/v1/orders/not-a-uuid", a.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodGet, "/api/v1/orders?status=in_progress", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["orders"], 1)

	code, body = a.do(http.MethodGet, "/api/v1/dashboard/stats", a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["orders"])
}

func TestSettingsRoutes(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/api/v1/settings/hours", a.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["days"], 7)
	assert.Contains(t, body, "open_now")

	code, _ = a.do(http.MethodPut, "/api/v1/settings/hours/2", a.staff, service.BusinessHoursRequest{OpenTime: "08:00", CloseTime: "20:00"})
	assert.Equal(t, http.StatusForbidden, code)
	code, body = a.do(http.MethodPut, "/api/v1/settings/hours/2", a.admin, service.BusinessHoursRequest{OpenTime: "08:00", CloseTime: "20:00"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "08:00", body["open_time"])
	code, _ = a.do(http.MethodPut, "/api/v1/settings/hours/x", a.admin, service.BusinessHoursRequest{OpenTime: "08:00", CloseTime: "20:00"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPut, "/api/v1/settings/store", a.admin, service.StoreSettingsRequest{Name: "Corner Cafe"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Corner Cafe", body["name"])
	code, _ = a.do(http.MethodPut, "/api/v1/settings/store", a.admin, service.StoreSettingsRequest{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUserRoutes(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/v1/users", a.admin, service.CreateUserRequest{
		Email: "new@example.com", Password: "secret123", Name: "New", Role: model.RoleStaff,
	})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["data"].(map[string]interface{})["id"].(string)

	code, _ = a.do(http.MethodPost, "/api/v1/users", a.admin, service.CreateUserRequest{
		Email: "new@example.com", Password: "secret123", Name: "Dup", Role: model.RoleStaff,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodDelete, "/api/v1/users/"+id, a.admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/v1/users/"+id, a.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAuditTrail(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/v1/categories", a.admin, service.CategoryRequest{Name: "Snacks"})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)
	code, _ = a.do(http.MethodPut, "/api/v1/categories/"+id, a.admin, service.CategoryRequest{Name: "Salty snacks"})
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, "/api/v1/audit/"+id, a.staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+a.admin)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []audit.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "update", entries[0].Action)
	assert.Equal(t, "create", entries[1].Action)
	assert.Equal(t, "admin@example.com", entries[0].Actor)
	assert.Equal(t, "Category", entries[0].Model)
}

func TestSocketRequiresToken(t *testing.T) {
	a := newAPI(t)

	upgrade := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := a.app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, upgrade("/ws", ""))
	assert.Equal(t, http.StatusUnauthorized, upgrade("/ws?token=forged", ""))
	assert.Equal(t, http.StatusUnauthorized, upgrade("/ws", "forged"))

	// authenticated plain requests get past auth and are asked to upgrade
	code, _ := a.do(http.MethodGet, "/ws", a.staff, nil)
	assert.Equal(t, http.StatusUpgradeRequired, code)
	code, _ = a.do(http.MethodGet, "/ws?token="+a.staff, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, code)
}
