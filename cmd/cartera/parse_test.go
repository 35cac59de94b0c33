package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/core"
	"cartera/internal/notify"
)

func TestParseMonth(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	y, m, err := parseMonth("", now)
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.March, m)

	y, m, err = parseMonth("2024-11", now)
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.November, m)

	_, _, err = parseMonth("11/2024", now)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseOptionalDate("2025-02-28")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 28, d.Day())

	_, err = parseDate("28-02-2025")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	d, err := parseAmount("12,50")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = parseAmount("abc")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	wallets := []core.Wallet{{ID: "w", Name: "Cash"}}
	assert.Equal(t, "Cash", walletName(wallets, "w"))
	assert.Equal(t, "x", walletName(wallets, "x"))
	assert.Equal(t, "Food", categoryName(core.DefaultCategories(), "food"))
	assert.Equal(t, "-", formatDate(nil))
}

func TestParseBalance(t *testing.T) {
	for _, in := range []string{"", "0", "0,00"} {
		d, err := parseBalance(in)
		require.NoError(t, err, in)
		assert.True(t, d.IsZero(), in)
	}
	d, err := parseBalance("10.5")
	require.NoError(t, err)
	assert.Equal(t, "10.5", d.String())

	_, err = parseBalance("-3")
	assert.Error(t, err)
}

func TestPendingReminders(t *testing.T) {
	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	reminders := []notify.Reminder{
		{ExpenseID: "rent", DueDate: due},
		{ExpenseID: "gym", DueDate: due},
		{ExpenseID: "rent", DueDate: due.AddDate(0, 1, 0)},
	}

	assert.Equal(t, reminders, pendingReminders(reminders, nil))

	sent := map[string]bool{reminderKey(reminders[0]): true}
	pending := pendingReminders(reminders, sent)
	require.Len(t, pending, 2)
	assert.Equal(t, "gym", pending[0].ExpenseID)
	assert.Equal(t, "rent@2025-04-15", reminderKey(pending[1]))
}
