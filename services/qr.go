package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/models"
)

const (
	fallbackAccountNumber = "0123456789"
	fallbackAccountName   = "GROCERY STORE"
)

// BuildQRURL returns the image URL of a bank-transfer QR code for the payment.
// It only builds the address; the image is rendered by the external service.
//
//	{base}/{bank}-{account}-{template}.png?accountName=..&addInfo=Order+{id}&amount={whole units}
func BuildQRURL(bank config.BankConfig, p *models.Payment) string {
	accountNumber := p.AccountNumber
	if accountNumber == "" {
		accountNumber = fallbackAccountNumber
	}
	accountName := p.AccountName
	if accountName == "" {
		accountName = fallbackAccountName
	}

	params := url.Values{}
	params.Set("amount", p.Amount.Truncate(0).String())
	params.Set("addInfo", fmt.Sprintf("Order %d", p.OrderID))
	params.Set("accountName", accountName)

	base := strings.TrimRight(bank.QRBaseURL, "/")
	return fmt.Sprintf("%s/%s-%s-%s.png?%s",
		base, bank.BankID, url.PathEscape(accountNumber), bank.QRTemplate, params.Encode())
}
