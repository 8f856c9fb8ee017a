package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrencyVND renders an amount with dot thousand separators and the dong sign.
// Fractional dong are dropped: 1500000.40 -> "1.500.000 ₫".
func FormatCurrencyVND(amount decimal.Decimal) string {
	integerPart := amount.Truncate(0).Abs().String()

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	sign := ""
	if amount.IsNegative() && !amount.Truncate(0).IsZero() {
		sign = "-"
	}
	return sign + strings.Join(groups, ".") + " ₫"
}
