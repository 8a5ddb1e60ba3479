package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatVND renders an amount the way vi-VN prints đồng: 1.250.000 ₫.
func FormatVND(amount decimal.Decimal) string {
	s := amount.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteString(" ₫")
	return b.String()
}

// FormatVNDFloat is FormatVND for backend float prices.
func FormatVNDFloat(amount float64) string {
	return FormatVND(decimal.NewFromFloat(amount))
}
