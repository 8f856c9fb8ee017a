package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// ValidationError reports malformed input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RuleViolationError is a well-formed request that the current state does not allow.
type RuleViolationError struct {
	Code   string
	Reason string
}

func (e *RuleViolationError) Error() string {
	return e.Reason
}

// Is matches another RuleViolationError with the same code, so wrapped or
// freshly built violations compare equal to the sentinels below.
func (e *RuleViolationError) Is(target error) bool {
	t, ok := target.(*RuleViolationError)
	return ok && t.Code == e.Code
}

var (
	ErrInsufficientStock       = &RuleViolationError{Code: "insufficient_stock", Reason: "insufficient stock"}
	ErrOrderCompleted          = &RuleViolationError{Code: "order_completed", Reason: "cannot cancel a completed order"}
	ErrOrderClosed             = &RuleViolationError{Code: "order_closed", Reason: "order is already completed or cancelled"}
	ErrOrderNotEditable        = &RuleViolationError{Code: "order_not_editable", Reason: "items can only be changed while the order is pending"}
	ErrOrderCancelled          = &RuleViolationError{Code: "order_cancelled", Reason: "cannot pay for a cancelled order"}
	ErrOrderHasPayment         = &RuleViolationError{Code: "order_has_payment", Reason: "items cannot be changed once the order has a payment"}
	ErrPaymentExists           = &RuleViolationError{Code: "payment_exists", Reason: "order already has a payment"}
	ErrPaymentAlreadyConfirmed = &RuleViolationError{Code: "payment_already_confirmed", Reason: "payment has already been confirmed"}
	ErrPaymentCompleted        = &RuleViolationError{Code: "payment_completed", Reason: "cannot cancel a completed payment"}
	ErrPaymentNotPending       = &RuleViolationError{Code: "payment_not_pending", Reason: "payment is no longer pending"}
	ErrPaymentDeleteCompleted  = &RuleViolationError{Code: "payment_delete_completed", Reason: "cannot delete a completed payment"}
)

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
