package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/grocery-store/services"
	"github.com/yeremiapane/grocery-store/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

type createQRPaymentRequest struct {
	OrderID uint `json:"order_id"`
}

type createPaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Method  string `json:"method" binding:"omitempty,oneof=cash bank_transfer qr_code"`
}

type updatePaymentRequest struct {
	TransactionID *string `json:"transaction_id"`
	BankName      *string `json:"bank_name"`
	AccountNumber *string `json:"account_number"`
	AccountName   *string `json:"account_name"`
}

type confirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

type failPaymentRequest struct {
	Reason string `json:"reason"`
}

func (pc *PaymentController) GetAllPayments(c *gin.Context) {
	payments, err := pc.Payments.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", payments)
}

func (pc *PaymentController) GetPaymentByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := pc.Payments.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	payment, err := pc.Payments.Create(c.Request.Context(), actorFrom(c), services.CreatePaymentInput{
		OrderID: req.OrderID,
		Method:  req.Method,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment created", payment)
}

// CreateQRPayment returns 201 with a new payment, or 200 with the order's existing one.
func (pc *PaymentController) CreateQRPayment(c *gin.Context) {
	var req createQRPaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}
	payment, created, err := pc.Payments.GetOrCreateQRPayment(c.Request.Context(), actorFrom(c), req.OrderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if created {
		utils.RespondJSON(c, http.StatusCreated, "QR payment created", payment)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Existing payment returned", payment)
}

func (pc *PaymentController) UpdatePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	payment, err := pc.Payments.Update(c.Request.Context(), actorFrom(c), id, services.UpdatePaymentInput{
		TransactionID: req.TransactionID,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment updated", payment)
}

func (pc *PaymentController) DeletePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := pc.Payments.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment deleted", nil)
}

func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}
	payment, err := pc.Payments.ConfirmPayment(c.Request.Context(), actorFrom(c), id, req.TransactionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", payment)
}

func (pc *PaymentController) CancelPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := pc.Payments.CancelPayment(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment cancelled", payment)
}

func (pc *PaymentController) FailPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req failPaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}
	payment, err := pc.Payments.FailPayment(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment marked as failed", payment)
}

func (pc *PaymentController) GetQRCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	info, err := pc.Payments.GetQRCode(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "QR code", gin.H{
		"qr_code_url":      info.QRCodeURL,
		"amount":           info.Amount.StringFixed(2),
		"amount_formatted": utils.FormatCurrencyVND(info.Amount),
		"bank_name":        info.BankName,
		"account_number":   info.AccountNumber,
		"account_name":     info.AccountName,
		"order_id":         info.OrderID,
	})
}
