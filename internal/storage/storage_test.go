package storage

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/core"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "cartera.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newSQLiteStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v, err := store.Load(ctx, KeyWallets)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, store.Save(ctx, KeyWallets, []byte(`[1]`)))
			require.NoError(t, store.Save(ctx, KeyWallets, []byte(`[2]`)))

			v, err = store.Load(ctx, KeyWallets)
			require.NoError(t, err)
			assert.JSONEq(t, `[2]`, string(v))
		})
	}
}

func TestStore_SaveBatch(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.SaveBatch(ctx, map[string][]byte{
				KeyWallets:      []byte(`["w"]`),
				KeyTransactions: []byte(`["t"]`),
			})
			require.NoError(t, err)

			for key, want := range map[string]string{KeyWallets: `["w"]`, KeyTransactions: `["t"]`} {
				v, err := store.Load(ctx, key)
				require.NoError(t, err)
				assert.JSONEq(t, want, string(v))
			}
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cartera.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, KeyCategories, []byte(`[]`)))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	v, err := store.Load(ctx, KeyCategories)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	in := []byte(`"a"`)
	require.NoError(t, store.Save(ctx, KeyWallets, in))
	in[1] = 'b'

	out, err := store.Load(ctx, KeyWallets)
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(out))

	require.NoError(t, store.Close())
	_, err = store.Load(ctx, KeyWallets)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestState_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	paid := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

	st := NewState()
	st.Wallets = []core.Wallet{{ID: "w", Name: "Cash", Balance: decimal.RequireFromString("12.34"), Currency: core.VEF}}
	st.FixedExpenses = []core.FixedExpense{{
		ID: "e", Name: "Rent", Amount: decimal.NewFromInt(50), Currency: core.USD,
		Frequency: core.Monthly, DayOfMonth: 5, WalletID: "w", CategoryID: "housing", LastPaid: &paid,
	}}
	st.Rates = core.NewRates(36.5, 40.2, paid)
	st.Notifications = core.NotificationSettings{Enabled: true, ReminderDays: 2, ReminderTime: "08:15"}

	require.NoError(t, SaveState(ctx, store, st))

	loaded, err := LoadState(ctx, store)
	require.NoError(t, err)
	require.Len(t, loaded.Wallets, 1)
	assert.True(t, loaded.Wallets[0].Balance.Equal(decimal.RequireFromString("12.34")))
	require.Len(t, loaded.FixedExpenses, 1)
	assert.True(t, loaded.FixedExpenses[0].LastPaid.Equal(paid))
	assert.True(t, loaded.Rates.BCV.Equal(decimal.RequireFromString("36.5")))
	assert.Equal(t, st.Notifications, loaded.Notifications)
	assert.Equal(t, core.DefaultCategories(), loaded.Categories)

	rates, err := LoadRates(ctx, store)
	require.NoError(t, err)
	assert.True(t, rates.USDT.Equal(decimal.RequireFromString("40.2")))
}

func TestLoadState_Backfill(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	docs := map[string]string{
		KeyWallets: `[
			{"id": "w1", "name": "Cash", "balance": 10, "currency": "usd"},
			{"name": "", "balance": "5"},
			"not an object"
		]`,
		KeyTransactions: `[
			{"id": "t1", "amount": 3, "walletId": "w1", "type": "bogus"},
			{"id": "t2", "amount": 0, "walletId": "w1"},
			{"id": "t3", "amount": 2}
		]`,
		KeyFixedExpenses: `[
			{"id": "e1", "amount": 5, "frequency": "weekly", "dayOfMonth": 9},
			{"id": "e2", "amount": 5, "dayOfMonth": 40}
		]`,
		KeyBudgets:              `{"not": "a list"}`,
		KeyExchangeRates:        `{"bcv": -1, "usdt": "41.5"}`,
		KeyNotificationSettings: `{"enabled": true, "reminderDays": -3, "reminderTime": "99:99"}`,
	}
	for key, doc := range docs {
		require.NoError(t, store.Save(ctx, key, []byte(doc)))
	}

	st, err := LoadState(ctx, store)
	require.NoError(t, err)

	require.Len(t, st.Wallets, 2)
	assert.Equal(t, core.USD, st.Wallets[0].Currency)
	assert.NotEmpty(t, st.Wallets[1].ID)
	assert.Equal(t, core.USD, st.Wallets[1].Currency)
	assert.Equal(t, "USD", st.Wallets[1].Name)

	require.Len(t, st.Transactions, 1)
	assert.Equal(t, core.Expense, st.Transactions[0].Type)

	require.Len(t, st.FixedExpenses, 2)
	assert.Equal(t, 0, st.FixedExpenses[0].DayOfMonth)
	assert.Equal(t, core.Monthly, st.FixedExpenses[1].Frequency)
	assert.Equal(t, 1, st.FixedExpenses[1].DayOfMonth)

	assert.Empty(t, st.Budgets)
	assert.True(t, st.Rates.BCV.IsZero())
	assert.True(t, st.Rates.USDT.Equal(decimal.RequireFromString("41.5")))
	assert.False(t, st.Rates.Available())

	assert.True(t, st.Notifications.Enabled)
	assert.Equal(t, 1, st.Notifications.ReminderDays)
	assert.Equal(t, "09:00", st.Notifications.ReminderTime)
}

func TestLoadState_LogsDroppedTransactions(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, KeyTransactions, []byte(`[
		{"id": "ok", "amount": "3", "walletId": "w1", "type": "expense"},
		{"id": "orphan", "amount": "12.5", "type": "income"}
	]`)))

	st, err := LoadState(ctx, store)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 1)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "transaction_id=orphan")
	assert.Contains(t, out, "amount=12.5")
	assert.Contains(t, out, "type=income")
	assert.NotContains(t, out, "transaction_id=ok")
}
