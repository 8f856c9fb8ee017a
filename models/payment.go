package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment settles exactly one order; the unique index on order_id enforces it.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        string          `gorm:"type:varchar(20);not null;default:'qr_code'" json:"method"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionID *string         `gorm:"type:varchar(100)" json:"transaction_id"`
	QRCodeURL     *string         `gorm:"type:varchar(500)" json:"qr_code_url"`
	BankName      string          `gorm:"type:varchar(100)" json:"bank_name"`
	AccountNumber string          `gorm:"type:varchar(50)" json:"account_number"`
	AccountName   string          `gorm:"type:varchar(200)" json:"account_name"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	PaidAt        *time.Time      `json:"paid_at"`
	Logs          []PaymentLog    `gorm:"foreignKey:PaymentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"logs"`
}

// PaymentLog is an append-only audit entry of a payment status change.
type PaymentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID uint      `gorm:"not null;index" json:"-"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
