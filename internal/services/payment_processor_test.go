package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func expense(id, wallet string, amount string, c core.Currency) core.FixedExpense {
	return core.FixedExpense{
		ID:         id,
		Name:       "Expense " + id,
		Amount:     dec(amount),
		Currency:   c,
		Frequency:  core.Monthly,
		DayOfMonth: 1,
		WalletID:   wallet,
		CategoryID: "bills",
	}
}

func TestPay_SingleExpenseScenario(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	wallets := []core.Wallet{{ID: "W1", Name: "Cash", Balance: dec("100"), Currency: core.USD}}
	e1 := expense("E1", "W1", "50", core.USD)

	due, err := IsDue(e1, now)
	require.NoError(t, err)
	require.True(t, due)

	result := Pay([]core.FixedExpense{e1}, wallets, decimal.Zero, decimal.Zero, now)

	assert.Equal(t, []string{"E1"}, result.PaidIDs)
	assert.Empty(t, result.FailedReasons())
	assertDecimal(t, dec("50"), result.Wallets[0].Balance)
	assertDecimal(t, dec("100"), wallets[0].Balance)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, core.Expense, tx.Type)
	assert.Equal(t, now, tx.Date)
	assert.Equal(t, "W1", tx.WalletID)
	assert.Equal(t, "bills", tx.CategoryID)
	assertDecimal(t, dec("50"), tx.Amount)

	updated := result.ApplyTo([]core.FixedExpense{e1})
	require.NotNil(t, updated[0].LastPaid)
	assert.Equal(t, now, *updated[0].LastPaid)
	assert.Nil(t, e1.LastPaid)
}

func TestPay_PartialFailureIsolation(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	wallets := []core.Wallet{
		{ID: "a", Name: "A", Balance: dec("100"), Currency: core.USD},
		{ID: "b", Name: "B", Balance: dec("10"), Currency: core.USD},
	}
	due := []core.FixedExpense{
		expense("1", "a", "30", core.USD),
		expense("2", "b", "11", core.USD),
		expense("3", "a", "20", core.USD),
	}

	result := NewPaymentProcessor(nil).
		WithIDGenerator(sequentialIDs()).
		Pay(context.Background(), due, wallets, core.Rates{}, now)

	assert.Equal(t, []string{"1", "3"}, result.PaidIDs)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "2", result.Failures[0].ExpenseID)
	assert.Equal(t, ReasonInsufficientFunds, result.Failures[0].Reason)

	assertDecimal(t, dec("50"), result.Wallets[0].Balance)
	assertDecimal(t, dec("10"), result.Wallets[1].Balance)
	assertDecimal(t, dec("50"), result.Debits["a"])
	_, touched := result.Debits["b"]
	assert.False(t, touched)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "tx-1", result.Transactions[0].ID)
	assert.Equal(t, "tx-2", result.Transactions[1].ID)
	assert.Equal(t, "2 paid, 1 failed (Expense 2: insufficient funds)", result.Summary())

	updated := result.ApplyTo(due)
	assert.NotNil(t, updated[0].LastPaid)
	assert.Nil(t, updated[1].LastPaid)
	assert.NotNil(t, updated[2].LastPaid)
}

func TestPay_NoNegativeBalances(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rates := core.NewRates(36.5, 40, now)
	wallets := []core.Wallet{
		{ID: "usd", Name: "USD", Balance: dec("25"), Currency: core.USD},
		{ID: "vef", Name: "VEF", Balance: dec("1000"), Currency: core.VEF},
	}

	p := NewPaymentProcessor(nil)
	for batch := 0; batch < 5; batch++ {
		due := []core.FixedExpense{
			expense(fmt.Sprintf("u%d", batch), "usd", "7", core.USD),
			expense(fmt.Sprintf("v%d", batch), "vef", "10", core.USD),
			expense(fmt.Sprintf("t%d", batch), "usd", "3", core.USDT),
		}
		result := p.Pay(context.Background(), due, wallets, rates, now)
		for _, w := range result.Wallets {
			assert.False(t, w.Balance.IsNegative(), "wallet %s went negative", w.ID)
		}
		for _, f := range result.Failures {
			assert.False(t, result.Paid(f.ExpenseID))
		}
		wallets = result.Wallets
	}

	// Two full rounds (7+3 USD, 365 VEF), then only one more 3 USDT fits.
	assertDecimal(t, dec("2"), wallets[0].Balance)
	assertDecimal(t, dec("270"), wallets[1].Balance)
}

func TestPay_FailureReasons(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	wallets := []core.Wallet{
		{ID: "vef", Name: "VEF", Balance: dec("5000"), Currency: core.VEF},
		{ID: "usd", Name: "USD", Balance: dec("100"), Currency: core.USD},
	}
	categories := []core.Category{{ID: "bills", Name: "Bills", Type: core.Expense}}

	orphan := expense("cat", "usd", "1", core.USD)
	orphan.CategoryID = "gone"
	same := expense("same", "usd", "1", core.USD)

	due := []core.FixedExpense{
		expense("nowallet", "missing", "1", core.USD),
		expense("norate", "vef", "1", core.USD),
		expense("usdt", "usd", "2", core.USDT),
		orphan,
		same,
		same,
	}

	result := NewPaymentProcessor(categories).Pay(context.Background(), due, wallets, core.Rates{}, now)

	reasons := map[string]string{}
	for _, f := range result.Failures {
		reasons[f.ExpenseID] = f.Reason
	}
	assert.Equal(t, ReasonWalletNotFound, reasons["nowallet"])
	assert.Equal(t, ReasonRateUnavailable, reasons["norate"])
	assert.Equal(t, ReasonCategoryNotFound, reasons["cat"])
	assert.Equal(t, ReasonDuplicate, reasons["same"])

	// USDT is pegged to USD, so no rate is needed
	assert.Equal(t, []string{"usdt", "same"}, result.PaidIDs)
	assertDecimal(t, dec("97"), result.Wallets[1].Balance)
	assertDecimal(t, dec("5000"), result.Wallets[0].Balance)
}

func TestPay_ConvertsIntoWalletCurrency(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rates := core.NewRates(40, 50, now)
	wallets := []core.Wallet{
		{ID: "vef", Name: "VEF", Balance: dec("4000"), Currency: core.VEF},
		{ID: "usd", Name: "USD", Balance: dec("100"), Currency: core.USD},
	}
	due := []core.FixedExpense{
		expense("rent", "vef", "50", core.USDT),
		expense("phone", "usd", "400", core.VEF),
	}

	result := NewPaymentProcessor(nil).Pay(context.Background(), due, wallets, rates, now)

	require.Empty(t, result.Failures)
	assertDecimal(t, dec("2000"), result.Wallets[0].Balance)
	assertDecimal(t, dec("90"), result.Wallets[1].Balance)
	assertDecimal(t, dec("2000"), result.Transactions[0].Amount)
	assertDecimal(t, dec("10"), result.Transactions[1].Amount)
}

func TestPay_AmountRoundingToZeroFails(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rates := core.NewRates(36, 40, now)
	wallets := []core.Wallet{{ID: "usd", Name: "USD", Balance: dec("10"), Currency: core.USD}}
	due := []core.FixedExpense{
		expense("tiny", "usd", "0.10", core.VEF),
		expense("fee", "usd", "36", core.VEF),
	}

	result := NewPaymentProcessor(nil).Pay(context.Background(), due, wallets, rates, now)

	assert.Equal(t, []string{"fee"}, result.PaidIDs)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "tiny", result.Failures[0].ExpenseID)
	assert.Equal(t, ReasonAmountTooSmall, result.Failures[0].Reason)

	require.Len(t, result.Transactions, 1)
	for _, tx := range result.Transactions {
		assert.NoError(t, tx.Validate())
	}
	assertDecimal(t, dec("9"), result.Wallets[0].Balance)
	assert.Nil(t, result.ApplyTo(due)[0].LastPaid)
}
