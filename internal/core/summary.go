package core

import "github.com/shopspring/decimal"

// FinancialSummary is the consolidated view of all wallets.
// Consolidated totals are expressed in USD.
type FinancialSummary struct {
	ConsolidatedBCV     decimal.Decimal              `json:"consolidatedBcv"`
	ConsolidatedAverage decimal.Decimal              `json:"consolidatedAverage"`
	ByCurrency          map[Currency]decimal.Decimal `json:"byCurrency"`
}

// Summarize groups balances per currency and consolidates them into USD under
// two references: the BCV rate and the average of BCV and USDT. Only the VEF
// leg changes between the two; USDT always goes through the usdt/bcv cross
// rate. When either rate is unknown both consolidated totals are zero.
func Summarize(wallets []Wallet, bcv, usdt decimal.Decimal) FinancialSummary {
	s := FinancialSummary{
		ConsolidatedBCV:     decimal.Zero,
		ConsolidatedAverage: decimal.Zero,
		ByCurrency:          make(map[Currency]decimal.Decimal, len(Currencies)),
	}
	for _, c := range Currencies {
		s.ByCurrency[c] = decimal.Zero
	}
	for _, w := range wallets {
		if !w.Currency.Valid() {
			continue
		}
		s.ByCurrency[w.Currency] = s.ByCurrency[w.Currency].Add(w.Balance)
	}

	if !bcv.IsPositive() || !usdt.IsPositive() {
		return s
	}
	avg := bcv.Add(usdt).Div(decimal.NewFromInt(2))
	usdtInUSD := s.ByCurrency[USDT].Mul(usdt).Div(bcv)
	usd := s.ByCurrency[USD]

	s.ConsolidatedBCV = s.ByCurrency[VEF].Div(bcv).Add(usd).Add(usdtInUSD)
	s.ConsolidatedAverage = s.ByCurrency[VEF].Div(avg).Add(usd).Add(usdtInUSD)
	return s
}

// SummarizeRates is Summarize over a snapshot.
func SummarizeRates(wallets []Wallet, r Rates) FinancialSummary {
	return Summarize(wallets, r.BCV, r.USDT)
}
