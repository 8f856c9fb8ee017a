package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogProductLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)

	category, err := catalog.CreateCategory(ctx, f.staff, "Dairy", "milk and cheese")
	require.NoError(t, err)

	price := dec("3.499")
	product, err := catalog.CreateProduct(ctx, f.staff, ProductInput{
		CategoryID: &category.ID,
		Name:       strPtr("Cheese"),
		Price:      &price,
		Stock:      intPtr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "3.50", product.Price.StringFixed(2))
	assert.True(t, product.IsAvailable)

	updated, err := catalog.UpdateProduct(ctx, f.staff, product.ID, ProductInput{IsAvailable: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, "Cheese", updated.Name)

	reloaded, err := catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAvailable)
	assert.Equal(t, 12, reloaded.Stock)

	require.NoError(t, catalog.DeleteProduct(ctx, f.staff, product.ID))
	_, err = catalog.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogWritesAreStaffOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)
	milk := createProduct(t, f.db, "Milk", "2", 10)

	_, err := catalog.CreateProduct(ctx, f.customer, ProductInput{Name: strPtr("X")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = catalog.UpdateStock(ctx, f.customer, milk.ID, intPtr(1))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = catalog.CreateCategory(ctx, f.customer, "Bakery", "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, catalog.DeleteProduct(ctx, f.customer, milk.ID), ErrForbidden)
}

func TestCatalogValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)

	negative := dec("-1")
	_, err := catalog.CreateProduct(ctx, f.staff, ProductInput{
		Name:       strPtr(" "),
		Price:      &negative,
		Stock:      intPtr(-2),
		CategoryID: func() *uint { id := uint(77); return &id }(),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "stock")
	assert.Contains(t, verr.Fields, "category")

	_, err = catalog.CreateCategory(ctx, f.staff, "Fruit", "")
	require.NoError(t, err)
	_, err = catalog.CreateCategory(ctx, f.staff, "Fruit", "")
	require.ErrorAs(t, err, &verr)
}

func TestUpdateStockAndLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)
	milk := createProduct(t, f.db, "Milk", "2", 50)
	eggs := createProduct(t, f.db, "Eggs", "3", 4)

	_, err := catalog.UpdateStock(ctx, f.staff, milk.ID, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	_, err = catalog.UpdateStock(ctx, f.staff, milk.ID, intPtr(-1))
	require.ErrorAs(t, err, &verr)

	updated, err := catalog.UpdateStock(ctx, f.staff, milk.ID, intPtr(8))
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Stock)

	low, err := catalog.LowStock(ctx, DefaultLowStockThreshold)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, eggs.ID, low[0].ID)

	low, err = catalog.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, eggs.ID, low[0].ID)
}

func TestListProductsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)
	createProduct(t, f.db, "Green Apple", "1", 10)
	createProduct(t, f.db, "Red Apple", "3", 10)
	pear := createProduct(t, f.db, "Pear", "2", 10)
	require.NoError(t, f.db.Model(pear).Update("is_available", false).Error)

	apples, err := catalog.ListProducts(ctx, ProductFilter{Search: "apple", Ordering: "-price"})
	require.NoError(t, err)
	require.Len(t, apples, 2)
	assert.Equal(t, "Red Apple", apples[0].Name)

	available, err := catalog.ListProducts(ctx, ProductFilter{IsAvailable: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, available, 2)
}

func TestDeleteProductInUseIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db)
	milk := createProduct(t, f.db, "Milk", "2", 10)
	_, err := f.orders.CreateOrder(ctx, f.customer, []ItemInput{{ProductID: milk.ID, Quantity: 1}})
	require.NoError(t, err)

	err = catalog.DeleteProduct(ctx, f.staff, milk.ID)
	var rule *RuleViolationError
	require.True(t, errors.As(err, &rule))
	assert.Equal(t, "product_in_use", rule.Code)
}
