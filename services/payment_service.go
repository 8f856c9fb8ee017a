package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/models"
	"github.com/yeremiapane/grocery-store/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService owns payments and their audit log. Confirming a payment
// settles its order in the same transaction.
type PaymentService struct {
	db       *gorm.DB
	bank     config.BankConfig
	notifier Notifier
	now      func() time.Time
}

func NewPaymentService(db *gorm.DB, bank config.BankConfig, notifier Notifier) *PaymentService {
	return &PaymentService{
		db:       db,
		bank:     bank,
		notifier: orDefault(notifier),
		now:      time.Now,
	}
}

// CreatePaymentInput is the generic payment create; amount always comes from the order.
type CreatePaymentInput struct {
	OrderID uint
	Method  string
}

// UpdatePaymentInput carries the staff-editable payment fields. Status is
// changed only through confirm, cancel and fail.
type UpdatePaymentInput struct {
	TransactionID *string
	BankName      *string
	AccountNumber *string
	AccountName   *string
}

// QRCodeInfo is what a customer needs to make the transfer.
type QRCodeInfo struct {
	QRCodeURL     string          `json:"qr_code_url"`
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	OrderID       uint            `json:"order_id"`
}

func withLogs(db *gorm.DB) *gorm.DB {
	return db.Order("created_at desc, id desc")
}

func (s *PaymentService) List(ctx context.Context, actor Actor) ([]models.Payment, error) {
	var payments []models.Payment
	err := scopePayments(s.db.WithContext(ctx), actor).
		Preload("Logs", withLogs).
		Order("payments.created_at desc, payments.id desc").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) Get(ctx context.Context, actor Actor, id uint) (*models.Payment, error) {
	return s.load(scopePayments(s.db.WithContext(ctx), actor), id)
}

func (s *PaymentService) load(tx *gorm.DB, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Preload("Logs", withLogs).First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "payment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load payment %d: %w", id, err)
	}
	return &payment, nil
}

func (s *PaymentService) lock(tx *gorm.DB, actor Actor, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := scopePayments(tx, actor).Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "payment", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("lock payment %d: %w", id, err)
	}
	return &payment, nil
}

// GenerateQRURL is BuildQRURL with the configured bank.
func (s *PaymentService) GenerateQRURL(p *models.Payment) string {
	return BuildQRURL(s.bank, p)
}

// GetOrCreateQRPayment returns the order's payment, creating a pending QR
// payment when none exists yet. The bool reports whether one was created.
// An existing payment is returned as is, apart from keeping its QR URL current.
// Concurrent callers for the same order all end up with the same payment.
func (s *PaymentService) GetOrCreateQRPayment(ctx context.Context, actor Actor, orderID uint) (*models.Payment, bool, error) {
	if orderID == 0 {
		return nil, false, NewValidationError("order_id", "order_id is required")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	order, err := lockOrder(tx, actor, orderID)
	if err != nil {
		return nil, false, rollback(tx, err)
	}

	payment, err := findPaymentOfOrder(tx, order.ID)
	if err != nil {
		return nil, false, rollback(tx, err)
	}
	created := false
	if payment == nil {
		if order.Status == models.OrderStatusCancelled {
			return nil, false, rollback(tx, ErrOrderCancelled)
		}
		fresh := s.newPayment(order, models.PaymentMethodQRCode)
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
			Create(fresh)
		if res.Error != nil {
			return nil, false, rollback(tx, fmt.Errorf("create payment: %w", res.Error))
		}
		if created = res.RowsAffected > 0; created {
			payment = fresh
			if err := appendLog(tx, payment.ID, models.PaymentStatusPending, "QR code created"); err != nil {
				return nil, false, rollback(tx, err)
			}
		} else {
			// Lost a race with another creator; use theirs.
			if payment, err = findPaymentOfOrder(tx, order.ID); err != nil {
				return nil, false, rollback(tx, err)
			}
			if payment == nil {
				return nil, false, rollback(tx, fmt.Errorf("payment of order %d missing after conflict", order.ID))
			}
		}
	}

	if err := s.syncQRURL(tx, payment); err != nil {
		return nil, false, rollback(tx, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, false, fmt.Errorf("commit qr payment: %w", err)
	}

	result, err := s.load(s.db.WithContext(ctx), payment.ID)
	if err != nil {
		return nil, false, err
	}
	if created {
		utils.InfoLogger.WithFields(logrus.Fields{
			"payment_id": result.ID,
			"order_id":   order.ID,
			"amount":     result.Amount.StringFixed(2),
		}).Info("QR payment created")
		s.notifier.Publish(EventPaymentCreated, result)
	}
	return result, created, nil
}

func (s *PaymentService) newPayment(order *models.Order, method string) *models.Payment {
	return &models.Payment{
		OrderID:       order.ID,
		Amount:        order.TotalPrice.Round(2),
		Method:        method,
		Status:        models.PaymentStatusPending,
		BankName:      s.bank.BankName,
		AccountNumber: s.bank.AccountNumber,
		AccountName:   s.bank.AccountName,
	}
}

// findPaymentOfOrder returns nil when the order has no payment yet.
func findPaymentOfOrder(tx *gorm.DB, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	res := tx.Where("order_id = ?", orderID).Limit(1).Find(&payment)
	if res.Error != nil {
		return nil, fmt.Errorf("load payment of order %d: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// syncQRURL stores the QR URL derived from the payment's current state if
// the stored one is missing or stale.
func (s *PaymentService) syncQRURL(tx *gorm.DB, payment *models.Payment) error {
	url := s.GenerateQRURL(payment)
	if payment.QRCodeURL != nil && *payment.QRCodeURL == url {
		return nil
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).UpdateColumn("qr_code_url", url).Error; err != nil {
		return fmt.Errorf("store qr url of payment %d: %w", payment.ID, err)
	}
	payment.QRCodeURL = &url
	return nil
}

// lockOrder reads an order the caller owns (or any order, for staff) for update.
func lockOrder(tx *gorm.DB, actor Actor, orderID uint) (*models.Order, error) {
	var order models.Order
	err := scopeOrders(tx, actor).Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order", ID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}
	return &order, nil
}

// lockOrderForPayment loads an order the caller may start a new payment for.
func lockOrderForPayment(tx *gorm.DB, actor Actor, orderID uint) (*models.Order, error) {
	order, err := lockOrder(tx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}
	return order, nil
}

// Create is the generic payment create. A second payment for the same order is rejected.
func (s *PaymentService) Create(ctx context.Context, actor Actor, in CreatePaymentInput) (*models.Payment, error) {
	if in.OrderID == 0 {
		return nil, NewValidationError("order_id", "order_id is required")
	}
	method := in.Method
	if method == "" {
		method = models.PaymentMethodQRCode
	}
	if !models.ValidPaymentMethod(method) {
		return nil, NewValidationError("method", fmt.Sprintf("%q is not a valid payment method", method))
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	order, err := lockOrderForPayment(tx, actor, in.OrderID)
	if err != nil {
		return nil, rollback(tx, err)
	}

	payment := s.newPayment(order, method)
	res := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(payment)
	if res.Error != nil {
		return nil, rollback(tx, fmt.Errorf("create payment: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, rollback(tx, ErrPaymentExists)
	}
	if method == models.PaymentMethodQRCode {
		if err := s.syncQRURL(tx, payment); err != nil {
			return nil, rollback(tx, err)
		}
	}
	if err := appendLog(tx, payment.ID, models.PaymentStatusPending, "Payment created"); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	result, err := s.load(s.db.WithContext(ctx), payment.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventPaymentCreated, result)
	return result, nil
}

func (s *PaymentService) Update(ctx context.Context, actor Actor, id uint, in UpdatePaymentInput) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	updates := map[string]interface{}{}
	if in.TransactionID != nil {
		updates["transaction_id"] = strings.TrimSpace(*in.TransactionID)
	}
	if in.BankName != nil {
		updates["bank_name"] = *in.BankName
	}
	if in.AccountNumber != nil {
		updates["account_number"] = *in.AccountNumber
	}
	if in.AccountName != nil {
		updates["account_name"] = *in.AccountName
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	payment, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if len(updates) > 0 {
		if err := tx.Model(payment).Updates(updates).Error; err != nil {
			return nil, rollback(tx, fmt.Errorf("update payment %d: %w", id, err))
		}
		if err := tx.First(payment, payment.ID).Error; err != nil {
			return nil, rollback(tx, fmt.Errorf("reload payment %d: %w", id, err))
		}
	}
	// The QR URL encodes the routing fields.
	if payment.QRCodeURL != nil || payment.Method == models.PaymentMethodQRCode {
		if err := s.syncQRURL(tx, payment); err != nil {
			return nil, rollback(tx, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit payment update: %w", err)
	}
	return s.afterChange(ctx, id, EventPaymentUpdated)
}

// Delete removes a payment and its logs. Completed payments are kept.
func (s *PaymentService) Delete(ctx context.Context, actor Actor, id uint) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	payment, err := s.lock(tx, actor, id)
	if err != nil {
		return rollback(tx, err)
	}
	if payment.Status == models.PaymentStatusCompleted {
		return rollback(tx, ErrPaymentDeleteCompleted)
	}
	if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.PaymentLog{}).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete payment logs: %w", err))
	}
	if err := tx.Delete(payment).Error; err != nil {
		return rollback(tx, fmt.Errorf("delete payment: %w", err))
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit payment delete: %w", err)
	}
	utils.InfoLogger.WithFields(logrus.Fields{"payment_id": id, "by": actor.UserID}).Info("Payment deleted")
	return nil
}

// ConfirmPayment marks a pending payment completed and settles its order.
// An empty transactionID gets a generated TXN- reference.
func (s *PaymentService) ConfirmPayment(ctx context.Context, actor Actor, id uint, transactionID string) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	ref := strings.TrimSpace(transactionID)
	if ref == "" {
		ref = "TXN-" + uuid.NewString()
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	// Order row first, then payment, the same order Cancel takes them in.
	var target models.Payment
	err := scopePayments(tx, actor).Select("id", "order_id").First(&target, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rollback(tx, &NotFoundError{Resource: "payment", ID: id})
	}
	if err != nil {
		return nil, rollback(tx, fmt.Errorf("load payment %d: %w", id, err))
	}
	order, err := lockOrder(tx, actor, target.OrderID)
	if err != nil {
		return nil, rollback(tx, err)
	}
	payment, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	switch payment.Status {
	case models.PaymentStatusCompleted:
		return nil, rollback(tx, ErrPaymentAlreadyConfirmed)
	case models.PaymentStatusCancelled, models.PaymentStatusFailed:
		return nil, rollback(tx, ErrPaymentNotPending)
	}
	if order.Status == models.OrderStatusCompleted || order.Status == models.OrderStatusCancelled {
		return nil, rollback(tx, ErrOrderClosed)
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCompleted,
			"paid_at":        s.now(),
			"transaction_id": ref,
		})
	if res.Error != nil {
		return nil, rollback(tx, fmt.Errorf("confirm payment %d: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, rollback(tx, ErrPaymentAlreadyConfirmed)
	}

	err = tx.Model(order).Updates(map[string]interface{}{
		"paid":   true,
		"status": models.OrderStatusProcessing,
	}).Error
	if err != nil {
		return nil, rollback(tx, fmt.Errorf("settle order %d: %w", payment.OrderID, err))
	}
	if err := appendLog(tx, payment.ID, models.PaymentStatusCompleted, "Payment confirmed"); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"payment_id":     id,
		"order_id":       payment.OrderID,
		"transaction_id": ref,
		"by":             actor.UserID,
	}).Info("Payment confirmed")
	return s.afterChange(ctx, id, EventPaymentCompleted)
}

// CancelPayment cancels a pending payment. Cancelling twice is a no-op.
func (s *PaymentService) CancelPayment(ctx context.Context, actor Actor, id uint) (*models.Payment, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	payment, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	switch payment.Status {
	case models.PaymentStatusCompleted:
		return nil, rollback(tx, ErrPaymentCompleted)
	case models.PaymentStatusFailed:
		return nil, rollback(tx, ErrPaymentNotPending)
	case models.PaymentStatusCancelled:
		tx.Rollback()
		return s.load(s.db.WithContext(ctx), id)
	}

	if err := tx.Model(payment).Update("status", models.PaymentStatusCancelled).Error; err != nil {
		return nil, rollback(tx, fmt.Errorf("cancel payment %d: %w", id, err))
	}
	if err := appendLog(tx, payment.ID, models.PaymentStatusCancelled, "Payment cancelled"); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"payment_id": id, "by": actor.UserID}).Info("Payment cancelled")
	return s.afterChange(ctx, id, EventPaymentCancelled)
}

// FailPayment records that a pending transfer did not go through.
func (s *PaymentService) FailPayment(ctx context.Context, actor Actor, id uint, reason string) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	message := "Payment failed"
	if r := strings.TrimSpace(reason); r != "" {
		message = message + ": " + r
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	payment, err := s.lock(tx, actor, id)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, rollback(tx, ErrPaymentNotPending)
	}
	if err := tx.Model(payment).Update("status", models.PaymentStatusFailed).Error; err != nil {
		return nil, rollback(tx, fmt.Errorf("fail payment %d: %w", id, err))
	}
	if err := appendLog(tx, payment.ID, models.PaymentStatusFailed, message); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit fail: %w", err)
	}

	utils.ErrorLogger.WithFields(logrus.Fields{"payment_id": id, "reason": reason}).Warn("Payment failed")
	return s.afterChange(ctx, id, EventPaymentFailed)
}

// GetQRCode returns the transfer details, refreshing a missing or stale QR URL.
func (s *PaymentService) GetQRCode(ctx context.Context, actor Actor, id uint) (*QRCodeInfo, error) {
	payment, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.syncQRURL(s.db.WithContext(ctx), payment); err != nil {
		return nil, err
	}
	return &QRCodeInfo{
		QRCodeURL:     *payment.QRCodeURL,
		Amount:        payment.Amount,
		BankName:      payment.BankName,
		AccountNumber: payment.AccountNumber,
		AccountName:   payment.AccountName,
		OrderID:       payment.OrderID,
	}, nil
}

func appendLog(tx *gorm.DB, paymentID uint, status, message string) error {
	entry := models.PaymentLog{PaymentID: paymentID, Status: status, Message: message}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append payment log: %w", err)
	}
	return nil
}

func (s *PaymentService) afterChange(ctx context.Context, id uint, event string) (*models.Payment, error) {
	payment, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(event, payment)
	return payment, nil
}
