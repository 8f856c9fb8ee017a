package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/models"
	"github.com/yeremiapane/grocery-store/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService owns the order aggregate: its items, total and lifecycle.
type OrderService struct {
	db              *gorm.DB
	notifier        Notifier
	restockOnCancel bool
}

func NewOrderService(db *gorm.DB, cfg config.OrderConfig, notifier Notifier) *OrderService {
	return &OrderService{
		db:              db,
		notifier:        orDefault(notifier),
		restockOnCancel: cfg.RestockOnCancel,
	}
}

// UpdateOrderInput is a partial order update. Nil fields are left alone.
// An empty Items slice counts as not supplied.
type UpdateOrderInput struct {
	Paid   *bool
	Status *string
	Items  []ItemInput
}

func rollback(tx *gorm.DB, err error) error {
	tx.Rollback()
	return err
}

func (s *OrderService) List(ctx context.Context, actor Actor) ([]models.Order, error) {
	var orders []models.Order
	err := scopeOrders(s.db.WithContext(ctx), actor).
		Preload("Items.Product").
		Order("orders.created_at desc, orders.id desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListMine is the caller's own orders regardless of role.
func (s *OrderService) ListMine(ctx context.Context, actor Actor) ([]models.Order, error) {
	return s.List(ctx, Actor{UserID: actor.UserID, Role: models.RoleCustomer})
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	return s.load(scopeOrders(s.db.WithContext(ctx), actor), id)
}

func (s *OrderService) load(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Items.Product").Preload("Payment").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &order, nil
}

// lock reads the order row for update inside tx.
func (s *OrderService) lock(tx *gorm.DB, actor Actor, id uint) (*models.Order, error) {
	var order models.Order
	err := scopeOrders(tx, actor).Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %d: %w", id, err)
	}
	return &order, nil
}

// CreateOrder places an order for the caller. Items are priced from the
// catalog and stock is reserved; any failure leaves no trace.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, inputs []ItemInput) (*models.Order, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	items, err := priceItems(tx, inputs)
	if err != nil {
		return nil, rollback(tx, err)
	}

	order := models.Order{
		UserID: actor.UserID,
		Status: models.OrderStatusPending,
	}
	if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, rollback(tx, fmt.Errorf("create order: %w", err))
	}

	for i := range items {
		if err := reserveStock(tx, items[i].Product, items[i].Quantity); err != nil {
			return nil, rollback(tx, err)
		}
		items[i].OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(&items[i]).Error; err != nil {
			return nil, rollback(tx, fmt.Errorf("create order item: %w", err))
		}
	}

	if err := calculateTotal(tx, &order); err != nil {
		return nil, rollback(tx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	created, err := s.load(s.db.WithContext(ctx), order.ID)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": created.ID,
		"user_id":  actor.UserID,
		"items":    len(created.Items),
		"total":    created.TotalPrice.StringFixed(2),
	}).Info("Order created")
	s.notifier.Publish(EventOrderCreated, created)
	return created, nil
}

// reserveStock decrements stock only if enough is left, so concurrent orders
// can never drive it negative.
func reserveStock(tx *gorm.DB, product *models.Product, quantity int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", product.ID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("reserve stock for product %d: %w", product.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Product
		if err := tx.Select("stock").First(&current, product.ID).Error; err != nil {
			return fmt.Errorf("reload product %d: %w", product.ID, err)
		}
		return &RuleViolationError{
			Code:   ErrInsufficientStock.Code,
			Reason: fmt.Sprintf("insufficient stock for %q: requested %d, available %d", product.Name, quantity, current.Stock),
		}
	}
	return nil
}

// calculateTotal recomputes total_price from the stored items and persists it.
func calculateTotal(tx *gorm.DB, order *models.Order) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("load items of order %d: %w", order.ID, err)
	}
	order.TotalPrice = sumItems(items)
	if err := tx.Model(order).UpdateColumn("total_price", order.TotalPrice).Error; err != nil {
		return fmt.Errorf("save total of order %d: %w", order.ID, err)
	}
	return nil
}

// CalculateTotal recomputes and stores the total of an order.
func (s *OrderService) CalculateTotal(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	order, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if err := calculateTotal(tx, order); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit total: %w", err)
	}
	return s.load(s.db.WithContext(ctx), id)
}

// Update applies status fields and item replacement as one unit.
func (s *OrderService) Update(ctx context.Context, actor Actor, id uint, in UpdateOrderInput) (*models.Order, error) {
	return s.mutate(ctx, actor, id, func(tx *gorm.DB, order *models.Order) error {
		if in.Paid != nil || in.Status != nil {
			if err := updateStatusFields(tx, actor, order, in.Paid, in.Status); err != nil {
				return err
			}
		}
		if len(in.Items) > 0 {
			return replaceItems(tx, order, in.Items)
		}
		return nil
	})
}

// ReplaceItems swaps the whole item set of a pending order.
func (s *OrderService) ReplaceItems(ctx context.Context, actor Actor, id uint, inputs []ItemInput) (*models.Order, error) {
	return s.mutate(ctx, actor, id, func(tx *gorm.DB, order *models.Order) error {
		return replaceItems(tx, order, inputs)
	})
}

// UpdateStatusFields sets paid and/or status. Only staff may do this.
func (s *OrderService) UpdateStatusFields(ctx context.Context, actor Actor, id uint, paid *bool, status *string) (*models.Order, error) {
	return s.mutate(ctx, actor, id, func(tx *gorm.DB, order *models.Order) error {
		return updateStatusFields(tx, actor, order, paid, status)
	})
}

// mutate runs fn against the locked order and publishes the result on success.
func (s *OrderService) mutate(ctx context.Context, actor Actor, id uint, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	order, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if err := fn(tx, order); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit order %d: %w", id, err)
	}
	return s.afterUpdate(ctx, id, EventOrderUpdated)
}

func updateStatusFields(tx *gorm.DB, actor Actor, order *models.Order, paid *bool, status *string) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	updates := map[string]interface{}{}
	if status != nil {
		if !models.ValidOrderStatus(*status) {
			return NewValidationError("status", fmt.Sprintf("%q is not a valid order status", *status))
		}
		updates["status"] = *status
	}
	if paid != nil {
		updates["paid"] = *paid
	}
	if len(updates) == 0 {
		return nil
	}
	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	if status != nil {
		order.Status = *status
	}
	if paid != nil {
		order.Paid = *paid
	}
	return nil
}

func replaceItems(tx *gorm.DB, order *models.Order, inputs []ItemInput) error {
	if order.Status != models.OrderStatusPending {
		return ErrOrderNotEditable
	}
	if len(inputs) == 0 {
		return NewValidationError("items", "at least one item is required")
	}
	// The payment amount was taken from the current total.
	var payments int64
	if err := tx.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&payments).Error; err != nil {
		return fmt.Errorf("check payment of order %d: %w", order.ID, err)
	}
	if payments > 0 {
		return ErrOrderHasPayment
	}
	items, err := priceItems(tx, inputs)
	if err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("clear items of order %d: %w", order.ID, err)
	}
	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(&items[i]).Error; err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return calculateTotal(tx, order)
}

// MarkPaid is the manual staff shortcut for settling an order outside the payment flow.
func (s *OrderService) MarkPaid(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	order, err := s.mutate(ctx, actor, id, func(tx *gorm.DB, order *models.Order) error {
		if order.Status == models.OrderStatusCompleted || order.Status == models.OrderStatusCancelled {
			return ErrOrderClosed
		}
		return tx.Model(order).Updates(map[string]interface{}{
			"paid":   true,
			"status": models.OrderStatusProcessing,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"order_id": id, "by": actor.UserID}).Info("Order marked as paid")
	return order, nil
}

// Cancel moves an order to cancelled. Cancelling twice is a no-op.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	order, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}

	switch order.Status {
	case models.OrderStatusCompleted:
		return nil, rollback(tx, ErrOrderCompleted)
	case models.OrderStatusCancelled:
		tx.Rollback()
		return s.load(s.db.WithContext(ctx), id)
	}

	if err := tx.Model(order).Update("status", models.OrderStatusCancelled).Error; err != nil {
		return nil, rollback(tx, fmt.Errorf("cancel order %d: %w", id, err))
	}
	paymentCancelled, err := cancelPendingPayment(tx, order.ID)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if s.restockOnCancel {
		if err := restock(tx, order.ID); err != nil {
			return nil, rollback(tx, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": id,
		"by":       actor.UserID,
		"restock":  s.restockOnCancel,
	}).Info("Order cancelled")
	cancelled, err := s.afterUpdate(ctx, id, EventOrderCancelled)
	if err != nil {
		return nil, err
	}
	if paymentCancelled && cancelled.Payment != nil {
		s.notifier.Publish(EventPaymentCancelled, cancelled.Payment)
	}
	return cancelled, nil
}

// cancelPendingPayment closes the order's payment if it is still awaiting a transfer.
func cancelPendingPayment(tx *gorm.DB, orderID uint) (bool, error) {
	var payment models.Payment
	res := tx.Where("order_id = ? AND status = ?", orderID, models.PaymentStatusPending).Limit(1).Find(&payment)
	if res.Error != nil {
		return false, fmt.Errorf("load payment of order %d: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := tx.Model(&payment).Update("status", models.PaymentStatusCancelled).Error; err != nil {
		return false, fmt.Errorf("cancel payment %d: %w", payment.ID, err)
	}
	if err := appendLog(tx, payment.ID, models.PaymentStatusCancelled, "Payment cancelled: order cancelled"); err != nil {
		return false, err
	}
	return true, nil
}

func restock(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return fmt.Errorf("load items of order %d: %w", orderID, err)
	}
	for _, item := range items {
		err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		if err != nil {
			return fmt.Errorf("restock product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

// Delete removes an order with its items, payment and payment logs.
func (s *OrderService) Delete(ctx context.Context, actor Actor, id uint) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	order, err := s.lock(tx, actor, id)
	if err != nil {
		return rollback(tx, err)
	}

	paymentIDs := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Payment{}).Select("id").Where("order_id = ?", order.ID)
	if err := tx.Where("payment_id IN (?)", paymentIDs).Delete(&models.PaymentLog{}).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete payment logs: %w", err))
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete payment: %w", err))
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete order items: %w", err))
	}
	if err := tx.Delete(order).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete order: %w", err))
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": id, "by": actor.UserID}).Info("Order deleted")
	s.notifier.Publish(EventOrderDeleted, map[string]uint{"id": id})
	return nil
}

func (s *OrderService) afterUpdate(ctx context.Context, id uint, event string) (*models.Order, error) {
	order, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(event, order)
	return order, nil
}
