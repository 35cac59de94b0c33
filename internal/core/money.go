// Package core holds the finance domain: entities, currency conversion,
// ledger rules and the derived summaries computed over them.
//
// This file parses user-entered amounts and formats amounts for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// amountPlaces is the number of decimal places kept for stored amounts.
const amountPlaces = 2

// ParseAmount converts a user-entered decimal string into an amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Digits past the
// second decimal are rounded half-up. Negative, zero and malformed inputs are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(amountPlaces)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundAmount rounds a computed amount to the stored precision.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(amountPlaces)
}

// FormatAmount renders amount with the symbol used for c.
func FormatAmount(amount decimal.Decimal, c Currency) string {
	s := amount.StringFixed(amountPlaces)
	switch c {
	case VEF:
		return "Bs. " + s
	case USD:
		return "$" + s
	default:
		return s + " " + string(c)
	}
}
