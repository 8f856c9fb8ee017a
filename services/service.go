package services

import (
	"github.com/yeremiapane/grocery-store/models"
	"gorm.io/gorm"
)

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsStaff() bool {
	return models.IsStaffRole(a.Role)
}

// Notifier receives committed domain events. hub.Hub is the production implementation.
type Notifier interface {
	Publish(event string, data interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, interface{}) {}

const (
	EventOrderCreated     = "order_created"
	EventOrderUpdated     = "order_updated"
	EventOrderCancelled   = "order_cancelled"
	EventOrderDeleted     = "order_deleted"
	EventPaymentCreated   = "payment_created"
	EventPaymentUpdated   = "payment_updated"
	EventPaymentCompleted = "payment_completed"
	EventPaymentCancelled = "payment_cancelled"
	EventPaymentFailed    = "payment_failed"
)

// scopeOrders restricts non-staff callers to their own orders.
func scopeOrders(tx *gorm.DB, actor Actor) *gorm.DB {
	if actor.IsStaff() {
		return tx
	}
	return tx.Where("orders.user_id = ?", actor.UserID)
}

// scopePayments restricts non-staff callers to payments of their own orders.
func scopePayments(tx *gorm.DB, actor Actor) *gorm.DB {
	if actor.IsStaff() {
		return tx
	}
	owned := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Order{}).
		Select("id").
		Where("user_id = ?", actor.UserID)
	return tx.Where("payments.order_id IN (?)", owned)
}

func orDefault(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
