// Package testutil builds connected clients over private in-memory sqlite
// databases for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-pos-store/internal/client"
	"go-pos-store/internal/config"
	"go-pos-store/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewClient returns a migrated client that is disconnected when the test ends.
func NewClient(t *testing.T) *client.Client {
	t.Helper()
	return NewClientURL(t, "sqlite::memory:")
}

// NewFileClient is NewClient over a database file in a temporary directory.
// Use it when a test needs more than one connection.
func NewFileClient(t *testing.T) *client.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pos.db")
	return NewClientURL(t, "file:"+path+"?_pragma=busy_timeout(5000)")
}

func NewClientURL(t *testing.T, url string) *client.Client {
	t.Helper()
	c := client.New(config.DatabaseConfig{
		URL:      url,
		LogLevel: "silent",
		MaxWait:  2 * time.Second,
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Migrate(ctx))
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}

// Fixtures are a small catalog and a staff user.
type Fixtures struct {
	User     *model.User
	Category *model.Category
	Cola     *model.Product
	Tea      *model.Product
}

func Seed(t *testing.T, c *client.Client) Fixtures {
	t.Helper()
	ctx := context.Background()

	user := &model.User{Email: "staff@example.com", Name: "Staff", Role: model.RoleStaff, Active: true}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, c.Users.Create(ctx, user))

	cat := &model.Category{Name: "Beverages", Active: true}
	require.NoError(t, c.Categories.Create(ctx, cat))

	cola := &model.Product{Name: "Cola", Price: decimal.RequireFromString("1.50"), CategoryID: cat.ID, Available: true}
	require.NoError(t, c.Products.Create(ctx, cola))
	tea := &model.Product{Name: "Tea", Price: decimal.RequireFromString("2.25"), CategoryID: cat.ID, Available: true}
	require.NoError(t, c.Products.Create(ctx, tea))

	return Fixtures{User: user, Category: cat, Cola: cola, Tea: tea}
}
