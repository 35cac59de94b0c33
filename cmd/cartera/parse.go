package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

const dateLayout = "2006-01-02"

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}

// parseBalance is parseAmount that also accepts zero.
func parseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil && d.IsZero() {
		return decimal.Zero, nil
	}
	return parseAmount(s)
}

// parseDate reads a YYYY-MM-DD date in local time. Empty means zero.
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must look like 2006-01-02", s)
	}
	return t, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	t, err := parseDate(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// parseMonth reads YYYY-MM; empty means the current month.
func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if strings.TrimSpace(s) == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("month %q must look like 2006-01", s)
	}
	return t.Year(), t.Month(), nil
}

func walletName(wallets []core.Wallet, id string) string {
	if i := core.FindWallet(wallets, id); i >= 0 {
		return wallets[i].Name
	}
	return id
}

func categoryName(categories []core.Category, id string) string {
	if c, ok := core.FindCategory(categories, id); ok {
		return c.Name
	}
	return id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
