package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/grocery-store/models"
)

func TestCreateAndGetOrder(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)
	rice := app.seedProduct("Rice", "100", 10)

	code, env := app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product": rice.ID, "quantity": 3, "price": "1.00"},
		},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.True(t, env.Status)

	var created orderView
	decode(t, env.Data, &created)
	assertMoney(t, "300", created.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, created.Status)
	require.Len(t, created.Items, 1)
	assertMoney(t, "100", created.Items[0].Price)
	assertMoney(t, "300", created.Items[0].TotalPrice)
	assert.Equal(t, "Rice", created.Items[0].ProductName)

	code, env = app.do(http.MethodGet, fmt.Sprintf("/orders/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	var fetched orderView
	decode(t, env.Data, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	code, env := app.do(http.MethodPost, "/orders", "", map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Status)
}

func TestCreateOrderValidationErrors(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)
	milk := app.seedProduct("Milk", "2", 1)

	code, env := app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": 999, "quantity": 1}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, env.Data, &body)
	assert.Contains(t, body.Fields, "items[0].product")

	code, env = app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{{"quantity": 1}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	decode(t, env.Data, &body)
	assert.Contains(t, body.Fields, "items[0].product")

	code, env = app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": milk.ID, "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "insufficient stock")
}

func TestOrderOwnershipAndStaffActions(t *testing.T) {
	app := newTestApp(t)
	_, alice := app.seedUser("alice", models.RoleCustomer)
	_, bob := app.seedUser("bob", models.RoleCustomer)
	_, clerk := app.seedUser("clerk", models.RoleStaff)
	milk := app.seedProduct("Milk", "2", 10)

	_, env := app.do(http.MethodPost, "/orders", alice, map[string]interface{}{
		"items": []map[string]interface{}{{"product": milk.ID, "quantity": 1}},
	})
	var order orderView
	decode(t, env.Data, &order)
	path := fmt.Sprintf("/orders/%d", order.ID)

	code, _ := app.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = app.do(http.MethodPost, path+"/mark_paid", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = app.do(http.MethodPatch, path, alice, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = app.do(http.MethodPost, path+"/mark_paid", clerk, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, env.Data, &order)
	assert.True(t, order.Paid)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	code, _ = app.do(http.MethodPatch, path, clerk, map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, code)

	code, env = app.do(http.MethodPost, path+"/cancel", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "cannot cancel a completed order", env.Message)

	code, env = app.do(http.MethodGet, "/orders/my_orders", bob, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []orderView
	decode(t, env.Data, &mine)
	assert.Empty(t, mine)
}

func TestUpdateOrderReplacesItems(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)
	milk := app.seedProduct("Milk", "2", 10)
	jam := app.seedProduct("Jam", "4.50", 10)

	_, env := app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": milk.ID, "quantity": 1}},
	})
	var order orderView
	decode(t, env.Data, &order)

	code, env := app.do(http.MethodPut, fmt.Sprintf("/orders/%d", order.ID), token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": jam.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	decode(t, env.Data, &order)
	assertMoney(t, "9", order.TotalPrice)
	require.Len(t, order.Items, 1)
	assert.Equal(t, jam.ID, order.Items[0].Product)
}

func TestDeleteOrder(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)
	milk := app.seedProduct("Milk", "2", 10)
	_, env := app.do(http.MethodPost, "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": milk.ID, "quantity": 1}},
	})
	var order orderView
	decode(t, env.Data, &order)

	code, _ := app.do(http.MethodDelete, fmt.Sprintf("/orders/%d", order.ID), token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = app.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = app.do(http.MethodGet, "/orders/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateEmptyOrder(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)

	code, env := app.do(http.MethodPost, "/orders", token, map[string]interface{}{"items": []interface{}{}})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var order orderView
	decode(t, env.Data, &order)
	assertMoney(t, "0", order.TotalPrice)
	assert.Empty(t, order.Items)
}

func TestUpdateOrderItemsAfterPaymentIsRejected(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser("alice", models.RoleCustomer)
	order := placeOrder(t, app, token, "8", 1)

	code, _ := app.do(http.MethodPost, "/payment/create_qr_payment", token, map[string]uint{"order_id": order.ID})
	require.Equal(t, http.StatusCreated, code)

	jam := app.seedProduct("Jam", "3", 10)
	code, env := app.do(http.MethodPut, fmt.Sprintf("/orders/%d", order.ID), token, map[string]interface{}{
		"items": []map[string]interface{}{{"product": jam.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	var body struct {
		Code string `json:"code"`
	}
	decode(t, env.Data, &body)
	assert.Equal(t, "order_has_payment", body.Code)
}
