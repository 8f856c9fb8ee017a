package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderItemsTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		{Quantity: 3, Price: decimal.RequireFromString("1.10")},
		{Quantity: 1, Price: decimal.RequireFromString("0.005")},
	}}
	assert.Equal(t, "3.31", order.ItemsTotal().StringFixed(2))

	assert.True(t, (&Order{}).ItemsTotal().IsZero())
}

func TestOrderItemJSON(t *testing.T) {
	item := OrderItem{
		ID:        4,
		OrderID:   2,
		ProductID: 9,
		Product:   &Product{ID: 9, Name: "Milk"},
		Quantity:  2,
		Price:     decimal.RequireFromString("12.50"),
	}
	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(9), out["product"])
	assert.Equal(t, "Milk", out["product_name"])
	assert.Equal(t, "25", out["total_price"])
	assert.Equal(t, "12.5", out["price"])

	item.Product = nil
	raw, err = json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "product_name")
}
