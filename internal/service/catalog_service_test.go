package service_test

import (
	"context"
	"fmt"
	"testing"

	"go-pos-store/internal/service"
	"go-pos-store/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	off := false
	snacks, err := catalog.CreateCategory(ctx, &service.CategoryRequest{Name: "Snacks", Active: &off})
	require.NoError(t, err)
	assert.False(t, snacks.Active)

	all, err := catalog.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := catalog.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Beverages", active[0].Name)

	_, err = catalog.UpdateCategory(ctx, uuid.New(), &service.CategoryRequest{Name: "Nope"})
	assert.ErrorIs(t, err, service.ErrCategoryNotFound)

	assert.ErrorIs(t, catalog.DeleteCategory(ctx, fx.Category.ID), service.ErrCategoryInUse)
	require.NoError(t, catalog.DeleteCategory(ctx, snacks.ID))
	assert.ErrorIs(t, catalog.DeleteCategory(ctx, snacks.ID), service.ErrCategoryNotFound)
}

func TestProductRules(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	off := false
	closed, err := catalog.CreateCategory(ctx, &service.CategoryRequest{Name: "Retired", Active: &off})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     service.ProductRequest
		wantErr error
	}{
		{"valid", service.ProductRequest{Name: "Water", Price: dec("1.00"), CategoryID: fx.Category.ID}, nil},
		{"negative price", service.ProductRequest{Name: "Water", Price: dec("-1"), CategoryID: fx.Category.ID}, service.ErrValidation},
		{"missing category id", service.ProductRequest{Name: "Water", Price: dec("1")}, service.ErrValidation},
		{"unknown category", service.ProductRequest{Name: "Water", Price: dec("1"), CategoryID: uuid.New()}, service.ErrCategoryNotFound},
		{"inactive category", service.ProductRequest{Name: "Water", Price: dec("1"), CategoryID: closed.ID}, service.ErrCategoryInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := catalog.CreateProduct(ctx, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Available)
		})
	}

	got, err := catalog.GetProduct(ctx, fx.Cola.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Beverages", got.Category.Name)

	_, err = catalog.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrProductNotFound)

	off = false
	updated, err := catalog.UpdateProduct(ctx, fx.Tea.ID, &service.ProductRequest{
		Name: "Green tea", Price: dec("2.50"), CategoryID: fx.Category.ID, Available: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "Green tea", updated.Name)
	assert.False(t, updated.Available)
	assertDecimal(t, "2.50", updated.Price)
}

func TestDeleteProductInUse(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	catalog := service.NewCatalogService(db)
	orders := service.NewOrderService(db, service.NewSettingsService(db, nil, nil), nil, nil, nil)
	ctx := context.Background()

	_, err := orders.PlaceOrder(ctx, fx.User.ID, &service.PlaceOrderRequest{
		Items: []service.OrderItemRequest{{ProductID: fx.Cola.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, catalog.DeleteProduct(ctx, fx.Cola.ID), service.ErrProductInUse)
	require.NoError(t, catalog.DeleteProduct(ctx, fx.Tea.ID))
	assert.ErrorIs(t, catalog.DeleteProduct(ctx, fx.Tea.ID), service.ErrProductNotFound)
}

func TestSearchProducts(t *testing.T) {
	db := testutil.NewClient(t)
	fx := testutil.Seed(t, db)
	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	off := false
	for i := 0; i < 5; i++ {
		_, err := catalog.CreateProduct(ctx, &service.ProductRequest{
			Name: fmt.Sprintf("Juice %d", i), Price: dec("3"), CategoryID: fx.Category.ID,
		})
		require.NoError(t, err)
	}
	_, err := catalog.CreateProduct(ctx, &service.ProductRequest{
		Name: "Juice hidden", Price: dec("3"), CategoryID: fx.Category.ID, Available: &off,
	})
	require.NoError(t, err)

	page, err := catalog.SearchProducts(ctx, service.ProductQuery{Search: "JUICE", AvailableOnly: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Juice 0", page.Products[0].Name)
	require.NotNil(t, page.NextCursor)

	var names []string
	for page.NextCursor != nil {
		page, err = catalog.SearchProducts(ctx, service.ProductQuery{Search: "juice", AvailableOnly: true, Limit: 2, Cursor: page.NextCursor})
		require.NoError(t, err)
		for _, p := range page.Products {
			names = append(names, p.Name)
		}
	}
	assert.Equal(t, []string{"Juice 2", "Juice 3", "Juice 4"}, names)

	all, err := catalog.SearchProducts(ctx, service.ProductQuery{CategoryID: &fx.Category.ID})
	require.NoError(t, err)
	assert.Len(t, all.Products, 8)
	assert.Nil(t, all.NextCursor)
}
