package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"cartera/internal/amqp"
	"cartera/internal/core"
	"cartera/internal/log"
	"cartera/internal/sheets"
	"cartera/internal/storage"
)

// ErrBatchInFlight is returned when a due check or payment starts while
// a payment batch is running. Ordinary mutations never produce it.
var ErrBatchInFlight = errors.New("a payment batch is already in flight")

// RateSource yields the current snapshot. It must not block indefinitely
// and returns zero rates when nothing is known.
type RateSource interface {
	Current(ctx context.Context) core.Rates
}

// BatchPublisher announces committed payment batches.
type BatchPublisher interface {
	PublishPaymentBatch(ctx context.Context, msg *amqp.PaymentBatchMessage) error
}

// Tracker orchestrates the core rules over persisted state. Every
// operation is one read, compute, write cycle guarded by a single permit.
// Payment batches also raise the batching flag so due checks and other
// batches are turned away instead of queued behind them.
type Tracker struct {
	store     storage.Store
	rates     RateSource
	publisher BatchPublisher
	exporter  sheets.Exporter
	guard     *semaphore.Weighted
	batching  atomic.Bool
	now       func() time.Time
	newID     func() string
	logger    *log.Logger
}

// NewTracker creates a tracker. rates may be nil, in which case every
// cross-currency operation sees zero rates.
func NewTracker(store storage.Store, rates RateSource) *Tracker {
	return &Tracker{
		store:  store,
		rates:  rates,
		guard:  semaphore.NewWeighted(1),
		now:    time.Now,
		newID:  core.NewID,
		logger: log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentTracker}),
	}
}

// WithPublisher sets the payment batch publisher.
func (t *Tracker) WithPublisher(p BatchPublisher) *Tracker {
	t.publisher = p
	return t
}

// WithExporter sets the spreadsheet exporter used by ExportMonth.
func (t *Tracker) WithExporter(e sheets.Exporter) *Tracker {
	t.exporter = e
	return t
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithIDGenerator replaces the id generator used for new entities.
func (t *Tracker) WithIDGenerator(newID func() string) *Tracker {
	t.newID = newID
	return t
}

// WithLogger replaces the tracker logger.
func (t *Tracker) WithLogger(l *log.Logger) *Tracker {
	t.logger = l.WithComponent(log.ComponentTracker)
	return t
}

// Rates returns the current snapshot, zero when no source is configured.
func (t *Tracker) Rates(ctx context.Context) core.Rates {
	if t.rates == nil {
		return core.Rates{}
	}
	return t.rates.Current(ctx)
}

// State loads the persisted state.
func (t *Tracker) State(ctx context.Context) (*storage.State, error) {
	st, err := storage.LoadState(ctx, t.store)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

// lockBatch claims the tracker for a payment batch. The returned func
// releases it.
func (t *Tracker) lockBatch(ctx context.Context) (func(), error) {
	if !t.batching.CompareAndSwap(false, true) {
		return nil, ErrBatchInFlight
	}
	if err := t.guard.Acquire(ctx, 1); err != nil {
		t.batching.Store(false)
		return nil, err
	}
	return func() {
		t.guard.Release(1)
		t.batching.Store(false)
	}, nil
}

// mutate runs fn over freshly loaded state and saves keys when fn
// succeeds. A failing fn leaves the store untouched.
func (t *Tracker) mutate(ctx context.Context, op string, keys []string, fn func(st *storage.State) error) error {
	if err := t.guard.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.guard.Release(1)

	st, err := t.State(ctx)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := storage.SaveState(ctx, t.store, st, keys...); err != nil {
		t.logger.ErrorContext(ctx, "Failed to save state", log.FieldOperation, op, log.FieldError, err)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// DueExpenses lists the fixed expenses due now, in stored order.
// Expenses with an unknown frequency are logged and skipped.
func (t *Tracker) DueExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	if t.batching.Load() {
		return nil, ErrBatchInFlight
	}
	if err := t.guard.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.guard.Release(1)

	st, err := t.State(ctx)
	if err != nil {
		return nil, err
	}
	return t.dueOf(ctx, st.FixedExpenses, t.now()), nil
}

func (t *Tracker) dueOf(ctx context.Context, expenses []core.FixedExpense, now time.Time) []core.FixedExpense {
	due, skipped := DueExpenses(expenses, now)
	for _, err := range skipped {
		t.logger.WarnContext(ctx, "Skipping fixed expense", log.FieldError, err)
	}
	return due
}

// PayDue pays every expense due now as one batch.
func (t *Tracker) PayDue(ctx context.Context) (PaymentResult, error) {
	return t.payBatch(ctx, func(st *storage.State, now time.Time) ([]core.FixedExpense, error) {
		return t.dueOf(ctx, st.FixedExpenses, now), nil
	})
}

// PaySelected pays the named expenses, in the given order, whether or not
// they are due. An unknown id rejects the whole batch.
func (t *Tracker) PaySelected(ctx context.Context, ids []string) (PaymentResult, error) {
	return t.payBatch(ctx, func(st *storage.State, _ time.Time) ([]core.FixedExpense, error) {
		selected := make([]core.FixedExpense, 0, len(ids))
		for _, id := range ids {
			e, ok := findExpense(st.FixedExpenses, id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
			}
			selected = append(selected, e)
		}
		return selected, nil
	})
}

func (t *Tracker) payBatch(ctx context.Context, pick func(*storage.State, time.Time) ([]core.FixedExpense, error)) (PaymentResult, error) {
	unlock, err := t.lockBatch(ctx)
	if err != nil {
		return PaymentResult{}, err
	}
	defer unlock()

	st, err := t.State(ctx)
	if err != nil {
		return PaymentResult{}, err
	}
	now := t.now()
	due, err := pick(st, now)
	if err != nil {
		return PaymentResult{}, err
	}

	rates := t.Rates(ctx)
	result := NewPaymentProcessor(st.Categories).
		WithIDGenerator(t.newID).
		Pay(ctx, due, st.Wallets, rates, now)

	if len(result.PaidIDs) > 0 {
		st.Wallets = result.Wallets
		st.Transactions = append(st.Transactions, result.Transactions...)
		st.FixedExpenses = result.ApplyTo(st.FixedExpenses)
		err := storage.SaveState(ctx, t.store, st,
			storage.KeyWallets, storage.KeyTransactions, storage.KeyFixedExpenses)
		if err != nil {
			t.logger.ErrorContext(ctx, "Failed to commit payment batch",
				log.FieldOperation, log.OpPay, log.FieldError, err)
			return PaymentResult{}, fmt.Errorf("commit payment batch: %w", err)
		}
	}

	t.logger.InfoContext(ctx, "Payment batch committed",
		log.FieldOperation, log.OpPay,
		log.FieldPaid, len(result.PaidIDs),
		log.FieldFailed, len(result.Failures))
	t.publishBatch(ctx, result)
	return result, nil
}

// publishBatch never fails the batch: the payment is already committed.
func (t *Tracker) publishBatch(ctx context.Context, result PaymentResult) {
	if t.publisher == nil || len(result.PaidIDs)+len(result.Failures) == 0 {
		return
	}
	msg := amqp.NewPaymentBatchMessage(t.newID(), result.PaidAt)
	msg.PaidIDs = append(msg.PaidIDs, result.PaidIDs...)
	for _, f := range result.Failures {
		msg.Failures = append(msg.Failures, amqp.PaymentFailure{ExpenseID: f.ExpenseID, Reason: f.Reason})
	}
	for _, tx := range result.Transactions {
		msg.TransactionIDs = append(msg.TransactionIDs, tx.ID)
	}
	if err := t.publisher.PublishPaymentBatch(ctx, msg); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish payment batch",
			log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
}

func findExpense(expenses []core.FixedExpense, id string) (core.FixedExpense, bool) {
	for _, e := range expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.FixedExpense{}, false
}

func findTransaction(txs []core.Transaction, id string) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tracker) checkReferences(st *storage.State, tx core.Transaction) error {
	c, ok := core.FindCategory(st.Categories, tx.CategoryID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrCategoryNotFound, tx.CategoryID)
	}
	if c.ID != core.TransferCategoryID && c.Type != tx.Type {
		return fmt.Errorf("%w: category %s is for %s", core.ErrInvalidTransactionType, c.Name, c.Type)
	}
	if tx.GoalID != "" && !hasGoal(st.SavingsGoals, tx.GoalID) {
		return fmt.Errorf("savings goal not found: %s", tx.GoalID)
	}
	return nil
}

func hasGoal(goals []core.SavingsGoal, id string) bool {
	for _, g := range goals {
		if g.ID == id {
			return true
		}
	}
	return false
}

// AddTransaction books a new income or expense. A missing id or date is
// filled in.
func (t *Tracker) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = t.newID()
	}
	if tx.Date.IsZero() {
		tx.Date = t.now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}

	err := t.mutate(ctx, log.OpCreate, []string{storage.KeyWallets, storage.KeyTransactions}, func(st *storage.State) error {
		if findTransaction(st.Transactions, tx.ID) >= 0 {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}
		if err := t.checkReferences(st, tx); err != nil {
			return err
		}
		wallets, err := core.ApplyTransaction(st.Wallets, tx)
		if err != nil {
			return err
		}
		st.Wallets = wallets
		st.Transactions = append(st.Transactions, tx)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// EditTransaction replaces the stored transaction with the same id.
func (t *Tracker) EditTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	return t.mutate(ctx, log.OpUpdate, []string{storage.KeyWallets, storage.KeyTransactions}, func(st *storage.State) error {
		i := findTransaction(st.Transactions, tx.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", core.ErrTransactionNotFound, tx.ID)
		}
		if err := t.checkReferences(st, tx); err != nil {
			return err
		}
		wallets, err := core.EditTransaction(st.Wallets, st.Transactions[i], tx)
		if err != nil {
			return err
		}
		st.Wallets = wallets
		st.Transactions[i] = tx
		return nil
	})
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (t *Tracker) DeleteTransaction(ctx context.Context, id string) error {
	return t.mutate(ctx, log.OpDelete, []string{storage.KeyWallets, storage.KeyTransactions}, func(st *storage.State) error {
		i := findTransaction(st.Transactions, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", core.ErrTransactionNotFound, id)
		}
		wallets, err := core.ReverseTransaction(st.Wallets, st.Transactions[i])
		if err != nil {
			return err
		}
		st.Wallets = wallets
		st.Transactions = append(st.Transactions[:i], st.Transactions[i+1:]...)
		return nil
	})
}

// Transfer moves amount from one wallet to another and records the move as
// an expense on the source and an income on the destination.
func (t *Tracker) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) ([]core.Transaction, error) {
	var booked []core.Transaction
	err := t.mutate(ctx, log.OpTransfer, []string{storage.KeyWallets, storage.KeyTransactions}, func(st *storage.State) error {
		wallets, credited, err := core.Transfer(st.Wallets, fromID, toID, amount, t.Rates(ctx))
		if err != nil {
			return err
		}
		now := t.now()
		if strings.TrimSpace(description) == "" {
			description = "Transfer"
		}
		booked = []core.Transaction{
			{ID: t.newID(), Amount: amount, Description: description, Type: core.Expense, Date: now, WalletID: fromID, CategoryID: core.TransferCategoryID},
			{ID: t.newID(), Amount: credited, Description: description, Type: core.Income, Date: now, WalletID: toID, CategoryID: core.TransferCategoryID},
		}
		st.Wallets = wallets
		st.Transactions = append(st.Transactions, booked...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.InfoContext(ctx, "Transfer booked",
		log.FieldOperation, log.OpTransfer,
		"from", fromID, "to", toID,
		log.FieldAmount, amount.String())
	return booked, nil
}

// AddWallet creates a wallet.
func (t *Tracker) AddWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if w.ID == "" {
		w.ID = t.newID()
	}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, fmt.Errorf("invalid wallet: %w", err)
	}
	err := t.mutate(ctx, log.OpCreate, []string{storage.KeyWallets}, func(st *storage.State) error {
		if core.FindWallet(st.Wallets, w.ID) >= 0 {
			return fmt.Errorf("wallet %s already exists", w.ID)
		}
		st.Wallets = append(st.Wallets, w)
		return nil
	})
	return w, err
}

// AddFixedExpense registers a recurring expense paid from an existing
// wallet.
func (t *Tracker) AddFixedExpense(ctx context.Context, e core.FixedExpense) (core.FixedExpense, error) {
	if e.ID == "" {
		e.ID = t.newID()
	}
	if err := e.Validate(); err != nil {
		return core.FixedExpense{}, fmt.Errorf("invalid fixed expense: %w", err)
	}
	err := t.mutate(ctx, log.OpCreate, []string{storage.KeyFixedExpenses}, func(st *storage.State) error {
		if core.FindWallet(st.Wallets, e.WalletID) < 0 {
			return fmt.Errorf("%w: %s", core.ErrWalletNotFound, e.WalletID)
		}
		if _, ok := core.FindCategory(st.Categories, e.CategoryID); !ok {
			return fmt.Errorf("%w: %s", core.ErrCategoryNotFound, e.CategoryID)
		}
		st.FixedExpenses = append(st.FixedExpenses, e)
		return nil
	})
	return e, err
}

// DeleteFixedExpense removes a recurring expense. Its past transactions stay.
func (t *Tracker) DeleteFixedExpense(ctx context.Context, id string) error {
	return t.mutate(ctx, log.OpDelete, []string{storage.KeyFixedExpenses}, func(st *storage.State) error {
		for i, e := range st.FixedExpenses {
			if e.ID == id {
				st.FixedExpenses = append(st.FixedExpenses[:i], st.FixedExpenses[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	})
}

// AddCategory creates a category.
func (t *Tracker) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = t.newID()
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("invalid category: %w", err)
	}
	err := t.mutate(ctx, log.OpCreate, []string{storage.KeyCategories}, func(st *storage.State) error {
		if _, ok := core.FindCategory(st.Categories, c.ID); ok {
			return fmt.Errorf("category %s already exists", c.ID)
		}
		st.Categories = append(st.Categories, c)
		return nil
	})
	return c, err
}

// AddBudget creates a budget over an existing expense category.
func (t *Tracker) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = t.newID()
	}
	if b.CreationDate.IsZero() {
		b.CreationDate = t.now()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("invalid budget: %w", err)
	}
	err := t.mutate(ctx, log.OpCreate, []string{storage.KeyBudgets}, func(st *storage.State) error {
		if _, ok := core.FindCategory(st.Categories, b.CategoryID); !ok {
			return fmt.Errorf("%w: %s", core.ErrCategoryNotFound, b.CategoryID)
		}
		st.Budgets = append(st.Budgets, b)
		return nil
	})
	return b, err
}

// AddGoal creates a savings goal.
func (t *Tracker) AddGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.ID == "" {
		g.ID = t.newID()
	}
	if g.CreationDate.IsZero() {
		g.CreationDate = t.now()
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("invalid savings goal: %w", err)
	}
	err := t.mutate(ctx, log.OpCreate, []string{storage.KeySavingsGoals}, func(st *storage.State) error {
		st.SavingsGoals = append(st.SavingsGoals, g)
		return nil
	})
	return g, err
}

// UpdateNotificationSettings validates and stores reminder settings.
func (t *Tracker) UpdateNotificationSettings(ctx context.Context, s core.NotificationSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return t.mutate(ctx, log.OpUpdate, []string{storage.KeyNotificationSettings}, func(st *storage.State) error {
		st.Notifications = s
		return nil
	})
}

// Summary consolidates every wallet with the current rates.
func (t *Tracker) Summary(ctx context.Context) (core.FinancialSummary, core.Rates, error) {
	st, err := t.State(ctx)
	if err != nil {
		return core.FinancialSummary{}, core.Rates{}, err
	}
	rates := t.Rates(ctx)
	return core.SummarizeRates(st.Wallets, rates), rates, nil
}

// Budgets reports spend against every budget for the current period.
func (t *Tracker) Budgets(ctx context.Context) ([]core.BudgetStatus, error) {
	st, err := t.State(ctx)
	if err != nil {
		return nil, err
	}
	return core.EvaluateBudgets(st.Budgets, st.Transactions, st.Wallets, t.Rates(ctx), t.now()), nil
}

// Goals reports progress towards every savings goal.
func (t *Tracker) Goals(ctx context.Context) ([]core.GoalStatus, error) {
	st, err := t.State(ctx)
	if err != nil {
		return nil, err
	}
	return core.EvaluateGoals(st.SavingsGoals, st.Transactions), nil
}
