package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/grocery-store/models"
)

type productView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	IsAvailable bool   `json:"is_available"`
}

func TestProductAdministration(t *testing.T) {
	app := newTestApp(t)
	_, customer := app.seedUser("alice", models.RoleCustomer)
	_, clerk := app.seedUser("clerk", models.RoleStaff)

	body := map[string]interface{}{"name": "Butter", "price": "4.20", "stock": 6}
	code, _ := app.do(http.MethodPost, "/products", customer, body)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := app.do(http.MethodPost, "/products", clerk, body)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var product productView
	decode(t, env.Data, &product)
	assertMoney(t, "4.2", product.Price)
	assert.True(t, product.IsAvailable)

	code, _ = app.do(http.MethodPost, "/products", clerk, map[string]interface{}{"price": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(http.MethodPost, fmt.Sprintf("/products/%d/update_stock", product.ID), clerk, map[string]interface{}{"quantity": 3})
	require.Equal(t, http.StatusOK, code)
	decode(t, env.Data, &product)
	assert.Equal(t, 3, product.Stock)

	code, _ = app.do(http.MethodPost, fmt.Sprintf("/products/%d/update_stock", product.ID), clerk, map[string]interface{}{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(http.MethodGet, "/products/low_stock?threshold=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	var low []productView
	decode(t, env.Data, &low)
	require.Len(t, low, 1)
	assert.Equal(t, product.ID, low[0].ID)

	code, _ = app.do(http.MethodGet, "/products/low_stock?threshold=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(http.MethodPatch, fmt.Sprintf("/products/%d", product.ID), clerk, map[string]interface{}{"is_available": false})
	require.Equal(t, http.StatusOK, code)
	decode(t, env.Data, &product)
	assert.False(t, product.IsAvailable)

	code, env = app.do(http.MethodGet, "/products?is_available=true", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list []productView
	decode(t, env.Data, &list)
	assert.Empty(t, list)

	code, _ = app.do(http.MethodDelete, fmt.Sprintf("/products/%d", product.ID), clerk, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = app.do(http.MethodGet, fmt.Sprintf("/products/%d", product.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCategories(t *testing.T) {
	app := newTestApp(t)
	_, clerk := app.seedUser("clerk", models.RoleStaff)

	code, _ := app.do(http.MethodPost, "/categories", clerk, map[string]interface{}{"name": "Bakery"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.do(http.MethodPost, "/categories", clerk, map[string]interface{}{"name": "Bakery"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = app.do(http.MethodPost, "/categories", "", map[string]interface{}{"name": "Dairy"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := app.do(http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, code)
	var categories []struct {
		Name string `json:"name"`
	}
	decode(t, env.Data, &categories)
	require.Len(t, categories, 1)
	assert.Equal(t, "Bakery", categories[0].Name)
}

func TestAdminStats(t *testing.T) {
	app := newTestApp(t)
	_, customer := app.seedUser("alice", models.RoleCustomer)
	_, admin := app.seedUser("root", models.RoleAdmin)
	placeOrder(t, app, customer, "12", 1)

	code, _ := app.do(http.MethodGet, "/admin/stats", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := app.do(http.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var body struct {
		Stats struct {
			TotalOrders int64            `json:"total_orders"`
			OrderStats  map[string]int64 `json:"order_stats"`
		} `json:"stats"`
	}
	decode(t, env.Data, &body)
	assert.EqualValues(t, 1, body.Stats.TotalOrders)
	assert.EqualValues(t, 1, body.Stats.OrderStats[models.OrderStatusPending])
}
