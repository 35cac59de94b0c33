package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PeriodWindow returns the half-open window [start, end) of the budget
// period containing now, in now's location.
func PeriodWindow(period BudgetPeriod, now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	if period == PeriodYearly {
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// BudgetSpent sums the expense transactions of the budget's category that
// fall inside the current period. Each amount is converted from its wallet
// currency into the budget currency with USDT treated as USD. Transactions
// whose wallet no longer exists are counted as already in budget currency.
func BudgetSpent(b Budget, txs []Transaction, wallets []Wallet, rates Rates, now time.Time) decimal.Decimal {
	start, end := PeriodWindow(b.Period, now)
	currencyOf := make(map[string]Currency, len(wallets))
	for _, w := range wallets {
		currencyOf[w.ID] = w.Currency
	}

	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != Expense || tx.CategoryID != b.CategoryID {
			continue
		}
		if !inWindow(tx.Date, start, end) {
			continue
		}
		from, ok := currencyOf[tx.WalletID]
		if !ok {
			from = b.Currency
		}
		total = total.Add(rates.ConvertPegged(tx.Amount, from, b.Currency))
	}
	return total
}

// GoalProgress sums every transaction linked to goalID. Contributions are
// recorded in the goal currency, so no conversion happens.
func GoalProgress(goalID string, txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	if goalID == "" {
		return total
	}
	for _, tx := range txs {
		if tx.GoalID == goalID {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// BudgetStatus is a budget with its derived spend.
type BudgetStatus struct {
	Budget    Budget          `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

// GoalStatus is a savings goal with its derived progress.
type GoalStatus struct {
	Goal      SavingsGoal     `json:"goal"`
	Saved     decimal.Decimal `json:"saved"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Completed bool            `json:"completed"`
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(1)
}

// EvaluateBudgets derives the status of every budget at now.
func EvaluateBudgets(budgets []Budget, txs []Transaction, wallets []Wallet, rates Rates, now time.Time) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent := RoundAmount(BudgetSpent(b, txs, wallets, rates, now))
		out = append(out, BudgetStatus{
			Budget:    b,
			Spent:     spent,
			Remaining: b.Amount.Sub(spent),
			Percent:   percentOf(spent, b.Amount),
			Exceeded:  spent.GreaterThan(b.Amount),
		})
	}
	return out
}

// EvaluateGoals derives the progress of every goal.
func EvaluateGoals(goals []SavingsGoal, txs []Transaction) []GoalStatus {
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		saved := GoalProgress(g.ID, txs)
		remaining := g.TargetAmount.Sub(saved)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		out = append(out, GoalStatus{
			Goal:      g,
			Saved:     saved,
			Remaining: remaining,
			Percent:   percentOf(saved, g.TargetAmount),
			Completed: saved.GreaterThanOrEqual(g.TargetAmount),
		})
	}
	return out
}
