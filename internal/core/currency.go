package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	VEF  Currency = "VEF"
	USD  Currency = "USD"
	USDT Currency = "USDT"
)

// Currency is one of the three denominations a wallet can hold.
type Currency string

// Currencies lists every supported currency in display order.
var Currencies = []Currency{VEF, USD, USDT}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case VEF, USD, USDT:
		return true
	}
	return false
}

func (c Currency) String() string { return string(c) }

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

// Rates is an exchange rate snapshot. BCV is the official VEF per USD rate,
// USDT the parallel-market VEF per USDT rate. A zero rate means unknown.
type Rates struct {
	BCV       decimal.Decimal `json:"bcv"`
	USDT      decimal.Decimal `json:"usdt"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRates builds a snapshot from float rates, the shape price feeds publish.
func NewRates(bcv, usdt float64, ts time.Time) Rates {
	return Rates{
		BCV:       decimal.NewFromFloat(bcv),
		USDT:      decimal.NewFromFloat(usdt),
		Timestamp: ts,
	}
}

// Available reports whether both rates are usable for conversion.
func (r Rates) Available() bool {
	return r.BCV.IsPositive() && r.USDT.IsPositive()
}

// Average returns (bcv+usdt)/2, or zero when either rate is unknown.
func (r Rates) Average() decimal.Decimal {
	if !r.Available() {
		return decimal.Zero
	}
	return r.BCV.Add(r.USDT).Div(decimal.NewFromInt(2))
}

// Stale reports whether the snapshot is older than maxAge at now.
// A snapshot without timestamp is always stale.
func (r Rates) Stale(now time.Time, maxAge time.Duration) bool {
	if r.Timestamp.IsZero() {
		return true
	}
	return now.Sub(r.Timestamp) > maxAge
}

// Convert converts amount between currencies using this snapshot.
func (r Rates) Convert(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	return Convert(amount, from, to, r.BCV, r.USDT)
}

// ConvertPegged converts amount treating USDT as USD.
func (r Rates) ConvertPegged(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	return ConvertPegged(amount, from, to, r.BCV, r.USDT)
}

// vefPerUnit is the conversion table: how many VEF one unit of c is worth.
// USD is valued at the BCV rate and USDT at the parallel rate, so a USDT to
// USD conversion goes through the usdt/bcv cross rate.
func vefPerUnit(c Currency, bcv, usdt decimal.Decimal) decimal.Decimal {
	switch c {
	case VEF:
		return decimal.NewFromInt(1)
	case USD:
		return bcv
	case USDT:
		return usdt
	}
	return decimal.Zero
}

// Convert converts amount from one currency to another. Identical currencies
// never need a rate. Any other pair yields zero when a rate is unknown, so
// display code can call it without guarding.
func Convert(amount decimal.Decimal, from, to Currency, bcv, usdt decimal.Decimal) decimal.Decimal {
	if from == to {
		return amount
	}
	if !bcv.IsPositive() || !usdt.IsPositive() {
		return decimal.Zero
	}
	src := vefPerUnit(from, bcv, usdt)
	dst := vefPerUnit(to, bcv, usdt)
	if src.IsZero() || dst.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(src).Div(dst)
}

// pegged folds USDT onto USD.
func pegged(c Currency) Currency {
	if c == USDT {
		return USD
	}
	return c
}

// ConvertPegged converts using only the direct VEF<->USD path, with USDT
// treated as USD. Budgets and fixed-expense payments compare amounts this way.
func ConvertPegged(amount decimal.Decimal, from, to Currency, bcv, usdt decimal.Decimal) decimal.Decimal {
	from, to = pegged(from), pegged(to)
	if from == to {
		return amount
	}
	return Convert(amount, from, to, bcv, usdt)
}

// NeedsRate reports whether converting between from and to requires a rate.
// With pegged set USDT and USD are interchangeable.
func NeedsRate(from, to Currency, isPegged bool) bool {
	if isPegged {
		return pegged(from) != pegged(to)
	}
	return from != to
}
