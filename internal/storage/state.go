package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// State is the typed view of every logical key.
type State struct {
	Wallets       []core.Wallet
	Transactions  []core.Transaction
	FixedExpenses []core.FixedExpense
	Budgets       []core.Budget
	SavingsGoals  []core.SavingsGoal
	Categories    []core.Category
	Rates         core.Rates
	Notifications core.NotificationSettings
}

// NewState returns the state of a fresh installation.
func NewState() *State {
	return &State{
		Wallets:       []core.Wallet{},
		Transactions:  []core.Transaction{},
		FixedExpenses: []core.FixedExpense{},
		Budgets:       []core.Budget{},
		SavingsGoals:  []core.SavingsGoal{},
		Categories:    core.DefaultCategories(),
		Notifications: core.DefaultNotificationSettings(),
	}
}

// LoadState reads every key. Missing keys keep their NewState default;
// malformed documents and entries are dropped and missing fields
// backfilled, so a damaged key never prevents the rest from loading.
func LoadState(ctx context.Context, s Store) (*State, error) {
	st := NewState()
	raw := make(map[string][]byte, len(Keys))
	for _, key := range Keys {
		v, err := s.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		raw[key] = v
	}

	if v := raw[KeyWallets]; v != nil {
		st.Wallets = decodeList(ctx, KeyWallets, v, backfillWallet)
	}
	if v := raw[KeyTransactions]; v != nil {
		st.Transactions = decodeList(ctx, KeyTransactions, v, backfillTransaction)
	}
	if v := raw[KeyFixedExpenses]; v != nil {
		st.FixedExpenses = decodeList(ctx, KeyFixedExpenses, v, backfillFixedExpense)
	}
	if v := raw[KeyBudgets]; v != nil {
		st.Budgets = decodeList(ctx, KeyBudgets, v, backfillBudget)
	}
	if v := raw[KeySavingsGoals]; v != nil {
		st.SavingsGoals = decodeList(ctx, KeySavingsGoals, v, backfillGoal)
	}
	if v := raw[KeyCategories]; v != nil {
		st.Categories = decodeList(ctx, KeyCategories, v, backfillCategory)
	}
	if v := raw[KeyExchangeRates]; v != nil {
		st.Rates = decodeRates(ctx, v)
	}
	if v := raw[KeyNotificationSettings]; v != nil {
		st.Notifications = decodeNotifications(ctx, v)
	}

	return st, nil
}

// Encode marshals the named keys, or every key when none are named.
func (st *State) Encode(keys ...string) (map[string][]byte, error) {
	if len(keys) == 0 {
		keys = Keys
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		var v any
		switch key {
		case KeyWallets:
			v = st.Wallets
		case KeyTransactions:
			v = st.Transactions
		case KeyFixedExpenses:
			v = st.FixedExpenses
		case KeyBudgets:
			v = st.Budgets
		case KeySavingsGoals:
			v = st.SavingsGoals
		case KeyCategories:
			v = st.Categories
		case KeyExchangeRates:
			v = st.Rates
		case KeyNotificationSettings:
			v = st.Notifications
		default:
			return nil, fmt.Errorf("unknown key %q", key)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = b
	}
	return out, nil
}

// SaveState writes the named keys (all when none are named) atomically.
func SaveState(ctx context.Context, s Store, st *State, keys ...string) error {
	entries, err := st.Encode(keys...)
	if err != nil {
		return err
	}
	return s.SaveBatch(ctx, entries)
}

// LoadRates reads only the persisted rate snapshot.
func LoadRates(ctx context.Context, s Store) (core.Rates, error) {
	v, err := s.Load(ctx, KeyExchangeRates)
	if err != nil || v == nil {
		return core.Rates{}, err
	}
	return decodeRates(ctx, v), nil
}

// SaveRates persists a rate snapshot.
func SaveRates(ctx context.Context, s Store, r core.Rates) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode rates: %w", err)
	}
	return s.Save(ctx, KeyExchangeRates, b)
}

// decodeList decodes a JSON array entry by entry. Entries that do not
// decode, or that fix rejects, are dropped.
func decodeList[T any](ctx context.Context, key string, raw []byte, fix func(*T) bool) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.WarnContext(ctx, "Discarding malformed document", "key", key, "error", err)
		return []T{}
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			slog.WarnContext(ctx, "Discarding malformed entry", "key", key, "index", i, "error", err)
			continue
		}
		if !fix(&v) {
			slog.WarnContext(ctx, "Discarding unusable entry", "key", key, "index", i)
			continue
		}
		out = append(out, v)
	}
	return out
}

func backfillID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = core.NewID()
	}
}

func backfillCurrency(c *core.Currency) {
	if parsed, err := core.ParseCurrency(string(*c)); err == nil {
		*c = parsed
		return
	}
	*c = core.USD
}

func backfillWallet(w *core.Wallet) bool {
	backfillID(&w.ID)
	backfillCurrency(&w.Currency)
	if strings.TrimSpace(w.Name) == "" {
		w.Name = string(w.Currency)
	}
	return true
}

func backfillTransaction(t *core.Transaction) bool {
	backfillID(&t.ID)
	if !t.Type.Valid() {
		t.Type = core.Expense
	}
	if t.Amount.IsPositive() && t.WalletID != "" {
		return true
	}
	slog.Warn("Dropping transaction, wallet balances may no longer match the log",
		"transaction_id", t.ID,
		"wallet_id", t.WalletID,
		"type", string(t.Type),
		"amount", t.Amount.String())
	return false
}

func backfillFixedExpense(e *core.FixedExpense) bool {
	backfillID(&e.ID)
	backfillCurrency(&e.Currency)
	if !e.Frequency.Valid() {
		e.Frequency = core.Monthly
	}
	if e.Frequency == core.Monthly {
		if e.DayOfMonth < 1 || e.DayOfMonth > 31 {
			e.DayOfMonth = 1
		}
	} else {
		e.DayOfMonth = 0
	}
	return e.Amount.IsPositive()
}

func backfillBudget(b *core.Budget) bool {
	backfillID(&b.ID)
	backfillCurrency(&b.Currency)
	if !b.Period.Valid() {
		b.Period = core.PeriodMonthly
	}
	return b.Amount.IsPositive()
}

func backfillGoal(g *core.SavingsGoal) bool {
	backfillID(&g.ID)
	backfillCurrency(&g.Currency)
	return g.TargetAmount.IsPositive()
}

func backfillCategory(c *core.Category) bool {
	backfillID(&c.ID)
	if !c.Type.Valid() {
		c.Type = core.Expense
	}
	return true
}

func decodeRates(ctx context.Context, raw []byte) core.Rates {
	var r core.Rates
	if err := json.Unmarshal(raw, &r); err != nil {
		slog.WarnContext(ctx, "Discarding malformed document", "key", KeyExchangeRates, "error", err)
		return core.Rates{}
	}
	if r.BCV.IsNegative() {
		r.BCV = decimal.Zero
	}
	if r.USDT.IsNegative() {
		r.USDT = decimal.Zero
	}
	return r
}

func decodeNotifications(ctx context.Context, raw []byte) core.NotificationSettings {
	settings := core.DefaultNotificationSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		slog.WarnContext(ctx, "Discarding malformed document", "key", KeyNotificationSettings, "error", err)
		return core.DefaultNotificationSettings()
	}
	def := core.DefaultNotificationSettings()
	if settings.ReminderDays < 0 {
		settings.ReminderDays = def.ReminderDays
	}
	if _, _, err := settings.Clock(); err != nil {
		settings.ReminderTime = def.ReminderTime
	}
	return settings
}
