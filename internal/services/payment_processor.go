package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// Failure reasons reported per expense in a payment batch.
const (
	ReasonWalletNotFound    = "wallet not found"
	ReasonInsufficientFunds = "insufficient funds"
	ReasonRateUnavailable   = "exchange rate unavailable"
	ReasonCategoryNotFound  = "category not found"
	ReasonDuplicate         = "already paid in this batch"
	ReasonAmountTooSmall    = "amount rounds to zero in wallet currency"
)

// PaymentFailure describes one expense the batch could not pay.
type PaymentFailure struct {
	ExpenseID   string `json:"expenseId"`
	ExpenseName string `json:"expenseName"`
	Reason      string `json:"reason"`
}

func (f PaymentFailure) String() string {
	return fmt.Sprintf("%s: %s", f.ExpenseName, f.Reason)
}

// PaymentResult is the outcome of one batch. Wallets holds every wallet
// with the successful debits applied; Transactions the expense
// transactions created for them, in payment order. Debits totals what was
// taken from each wallet.
type PaymentResult struct {
	PaidIDs      []string                   `json:"paidIds"`
	Failures     []PaymentFailure           `json:"failures"`
	Transactions []core.Transaction         `json:"transactions"`
	Wallets      []core.Wallet              `json:"wallets"`
	PaidAt       time.Time                  `json:"paidAt"`
	Debits       map[string]decimal.Decimal `json:"debits"`
}

// FailedReasons returns the readable failure list, one line per expense.
func (r PaymentResult) FailedReasons() []string {
	reasons := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		reasons = append(reasons, f.String())
	}
	return reasons
}

// Paid reports whether expenseID was paid by this batch.
func (r PaymentResult) Paid(expenseID string) bool {
	for _, id := range r.PaidIDs {
		if id == expenseID {
			return true
		}
	}
	return false
}

// ApplyTo stamps LastPaid on the expenses this batch paid and returns the
// updated list. Expenses that failed keep their previous LastPaid.
func (r PaymentResult) ApplyTo(expenses []core.FixedExpense) []core.FixedExpense {
	out := make([]core.FixedExpense, len(expenses))
	copy(out, expenses)
	for i := range out {
		if r.Paid(out[i].ID) {
			paidAt := r.PaidAt
			out[i].LastPaid = &paidAt
		}
	}
	return out
}

// Summary is the single line shown to the user once a batch ends.
func (r PaymentResult) Summary() string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("%d paid", len(r.PaidIDs))
	}
	return fmt.Sprintf("%d paid, %d failed (%s)", len(r.PaidIDs), len(r.Failures), strings.Join(r.FailedReasons(), "; "))
}

// PaymentProcessor pays a batch of due fixed expenses from their wallets.
type PaymentProcessor struct {
	categories []core.Category
	newID      func() string
}

// NewPaymentProcessor creates a payment processor. When categories is nil
// the category of each expense is not checked.
func NewPaymentProcessor(categories []core.Category) *PaymentProcessor {
	return &PaymentProcessor{
		categories: categories,
		newID:      core.NewID,
	}
}

// WithIDGenerator replaces the transaction id generator.
func (p *PaymentProcessor) WithIDGenerator(newID func() string) *PaymentProcessor {
	p.newID = newID
	return p
}

// Pay processes due in input order. Each expense either succeeds, debiting
// its wallet and producing one expense transaction dated now, or fails with
// a reason and leaves every wallet untouched. A failure never affects the
// other items. The input wallets slice is not modified.
func (p *PaymentProcessor) Pay(ctx context.Context, due []core.FixedExpense, wallets []core.Wallet, rates core.Rates, now time.Time) PaymentResult {
	result := PaymentResult{
		PaidIDs:      []string{},
		Failures:     []PaymentFailure{},
		Transactions: []core.Transaction{},
		Wallets:      make([]core.Wallet, len(wallets)),
		PaidAt:       now,
		Debits:       make(map[string]decimal.Decimal),
	}
	copy(result.Wallets, wallets)

	seen := make(map[string]bool, len(due))
	for _, e := range due {
		reason := p.payOne(e, &result, rates, now, seen)
		if reason != "" {
			result.Failures = append(result.Failures, PaymentFailure{
				ExpenseID:   e.ID,
				ExpenseName: e.Name,
				Reason:      reason,
			})
			slog.WarnContext(ctx, "Fixed expense not paid",
				"expense_id", e.ID,
				"wallet_id", e.WalletID,
				"reason", reason)
			continue
		}
		seen[e.ID] = true
		result.PaidIDs = append(result.PaidIDs, e.ID)
	}

	slog.InfoContext(ctx, "Payment batch processed",
		"paid", len(result.PaidIDs),
		"failed", len(result.Failures),
		"date", now.Format("2006-01-02"))

	return result
}

// payOne returns an empty reason on success.
func (p *PaymentProcessor) payOne(e core.FixedExpense, result *PaymentResult, rates core.Rates, now time.Time, seen map[string]bool) string {
	if seen[e.ID] {
		return ReasonDuplicate
	}
	if !e.Amount.IsPositive() {
		return core.ErrInvalidAmount.Error()
	}
	if p.categories != nil {
		if _, ok := core.FindCategory(p.categories, e.CategoryID); !ok {
			return ReasonCategoryNotFound
		}
	}

	i := core.FindWallet(result.Wallets, e.WalletID)
	if i < 0 {
		return ReasonWalletNotFound
	}
	wallet := &result.Wallets[i]

	cost := e.Amount
	if core.NeedsRate(e.Currency, wallet.Currency, true) {
		if !rates.Available() {
			return ReasonRateUnavailable
		}
		cost = core.RoundAmount(rates.ConvertPegged(e.Amount, e.Currency, wallet.Currency))
		if !cost.IsPositive() {
			return ReasonAmountTooSmall
		}
	}

	if wallet.Balance.LessThan(cost) {
		return ReasonInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(cost)
	result.Debits[wallet.ID] = result.Debits[wallet.ID].Add(cost)
	result.Transactions = append(result.Transactions, core.Transaction{
		ID:          p.newID(),
		Amount:      cost,
		Description: e.Name,
		Type:        core.Expense,
		Date:        now,
		WalletID:    wallet.ID,
		CategoryID:  e.CategoryID,
	})
	return ""
}

// Pay runs a batch with the bare rate pair and no category check.
func Pay(due []core.FixedExpense, wallets []core.Wallet, bcv, usdt decimal.Decimal, now time.Time) PaymentResult {
	rates := core.Rates{BCV: bcv, USDT: usdt}
	return NewPaymentProcessor(nil).Pay(context.Background(), due, wallets, rates, now)
}
