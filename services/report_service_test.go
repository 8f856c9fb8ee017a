package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/grocery-store/models"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reports := NewReportService(f.db)

	paidOrder := placeOrder(t, f, "250", 2)
	openOrder := placeOrder(t, f, "40", 1)
	payment, _, err := f.payments.GetOrCreateQRPayment(ctx, f.customer, paidOrder.ID)
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, f.staff, payment.ID, "")
	require.NoError(t, err)
	_, _, err = f.payments.GetOrCreateQRPayment(ctx, f.customer, openOrder.ID)
	require.NoError(t, err)

	_, err = reports.Stats(ctx, f.customer)
	assert.ErrorIs(t, err, ErrForbidden)

	stats, err := reports.Stats(ctx, f.staff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 2, stats.TodayOrders)
	assert.EqualValues(t, 1, stats.OrderStats[models.OrderStatusProcessing])
	assert.EqualValues(t, 1, stats.OrderStats[models.OrderStatusPending])
	assert.EqualValues(t, 0, stats.OrderStats[models.OrderStatusCancelled])
	assert.EqualValues(t, 1, stats.PaymentStats[models.PaymentStatusCompleted])
	assert.EqualValues(t, 1, stats.PaymentStats[models.PaymentStatusPending])
	assert.Equal(t, "500.00", stats.TotalRevenue.StringFixed(2))
	assert.Equal(t, "500.00", stats.TodayRevenue.StringFixed(2))
}

func TestDashboardStatsEmpty(t *testing.T) {
	f := newFixture(t)
	stats, err := NewReportService(f.db).Stats(context.Background(), f.staff)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalOrders)
	assert.True(t, stats.TotalRevenue.IsZero())
}
