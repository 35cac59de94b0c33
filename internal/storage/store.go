// Package storage persists tracker state as JSON documents under a fixed
// set of logical keys.
package storage

import (
	"context"
	"errors"
)

// Logical keys under which state is stored.
const (
	KeyWallets              = "wallets"
	KeyTransactions         = "transactions"
	KeyFixedExpenses        = "fixedExpenses"
	KeyBudgets              = "budgets"
	KeySavingsGoals         = "savingsGoals"
	KeyCategories           = "categories"
	KeyExchangeRates        = "exchangeRates"
	KeyNotificationSettings = "notificationSettings"
)

// Keys lists every logical key.
var Keys = []string{
	KeyWallets,
	KeyTransactions,
	KeyFixedExpenses,
	KeyBudgets,
	KeySavingsGoals,
	KeyCategories,
	KeyExchangeRates,
	KeyNotificationSettings,
}

var ErrClosed = errors.New("store closed")

// Store is a flat key-value store of JSON documents. Load returns nil for a
// key that was never saved. SaveBatch writes every entry or none.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	SaveBatch(ctx context.Context, entries map[string][]byte) error
	Close() error
}
