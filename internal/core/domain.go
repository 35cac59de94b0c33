package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

const maxNameLength = 200

type (
	Frequency       string
	TransactionType string
	BudgetPeriod    string

	Wallet struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Balance  decimal.Decimal `json:"balance"`
		Currency Currency        `json:"currency"`
	}

	// FixedExpense is a recurring obligation paid from a wallet.
	// DayOfMonth is only meaningful for monthly expenses.
	FixedExpense struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   Currency        `json:"currency"`
		Frequency  Frequency       `json:"frequency"`
		DayOfMonth int             `json:"dayOfMonth,omitempty"`
		WalletID   string          `json:"walletId"`
		CategoryID string          `json:"categoryId"`
		LastPaid   *time.Time      `json:"lastPaid,omitempty"`
		StartDate  *time.Time      `json:"startDate,omitempty"`
		EndDate    *time.Time      `json:"endDate,omitempty"`
	}

	// Transaction amounts are always positive; Type carries the sign.
	// Amount is denominated in the currency of the wallet it belongs to.
	Transaction struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Type        TransactionType `json:"type"`
		Date        time.Time       `json:"date"`
		WalletID    string          `json:"walletId"`
		CategoryID  string          `json:"categoryId"`
		GoalID      string          `json:"goalId,omitempty"`
	}

	Category struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Icon string          `json:"icon"`
		Type TransactionType `json:"type"`
	}

	SavingsGoal struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		Currency     Currency        `json:"currency"`
		CreationDate time.Time       `json:"creationDate"`
		TargetDate   *time.Time      `json:"targetDate,omitempty"`
	}

	Budget struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Amount       decimal.Decimal `json:"amount"`
		Currency     Currency        `json:"currency"`
		Period       BudgetPeriod    `json:"period"`
		CategoryID   string          `json:"categoryId"`
		CreationDate time.Time       `json:"creationDate"`
	}

	// NotificationSettings drive fixed-expense reminders. ReminderTime is
	// a 24h "HH:MM" clock time.
	NotificationSettings struct {
		Enabled      bool   `json:"enabled"`
		ReminderDays int    `json:"reminderDays"`
		ReminderTime string `json:"reminderTime"`
	}
)

// Validation errors.
var (
	ErrEmptyID                = errors.New("empty id")
	ErrEmptyName              = errors.New("empty name")
	ErrNameTooLong            = fmt.Errorf("name too long (max %d characters)", maxNameLength)
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrNegativeBalance        = errors.New("negative balance")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidDayOfMonth      = errors.New("invalid day of month")
	ErrInvalidDateRange       = errors.New("end date must not be before start date")
	ErrMissingWallet          = errors.New("missing wallet")
	ErrMissingCategory        = errors.New("missing category")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidPeriod          = errors.New("invalid budget period")
	ErrMissingDate            = errors.New("missing date")
	ErrInvalidReminder        = errors.New("invalid reminder settings")
)

// Lookup and balance errors.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrExpenseNotFound     = errors.New("fixed expense not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrRatesUnavailable    = errors.New("exchange rates unavailable")
	ErrSameWallet          = errors.New("source and destination wallet are the same")
	ErrAmountTooSmall      = errors.New("amount rounds to zero after conversion")
)

// NewID returns a fresh random identifier for any entity.
func NewID() string {
	return uuid.NewString()
}

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrEmptyID
	}
	if err := validateName(w.Name); err != nil {
		return err
	}
	if !w.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if w.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}

func (e FixedExpense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := validatePositive(e.Amount); err != nil {
		return err
	}
	if !e.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !e.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if e.Frequency == Monthly {
		if e.DayOfMonth < 1 || e.DayOfMonth > 31 {
			return ErrInvalidDayOfMonth
		}
	} else if e.DayOfMonth != 0 {
		return fmt.Errorf("%w: only monthly expenses take a day of month", ErrInvalidDayOfMonth)
	}
	if strings.TrimSpace(e.WalletID) == "" {
		return ErrMissingWallet
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrMissingCategory
	}
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := validatePositive(t.Amount); err != nil {
		return err
	}
	if len(t.Description) > maxNameLength {
		return errors.New("description too long (max 200 characters)")
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(t.WalletID) == "" {
		return ErrMissingWallet
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrMissingCategory
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return ErrInvalidTransactionType
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return ErrEmptyID
	}
	if err := validateName(g.Name); err != nil {
		return err
	}
	if err := validatePositive(g.TargetAmount); err != nil {
		return err
	}
	if !g.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if g.TargetDate != nil && !g.CreationDate.IsZero() && g.TargetDate.Before(g.CreationDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrEmptyID
	}
	if err := validateName(b.Name); err != nil {
		return err
	}
	if err := validatePositive(b.Amount); err != nil {
		return err
	}
	if !b.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrMissingCategory
	}
	return nil
}

// DefaultNotificationSettings is used when nothing was persisted yet.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Enabled: false, ReminderDays: 1, ReminderTime: "09:00"}
}

func (s NotificationSettings) Validate() error {
	if s.ReminderDays < 0 || s.ReminderDays > 31 {
		return fmt.Errorf("%w: reminder days must be between 0 and 31", ErrInvalidReminder)
	}
	if _, _, err := s.Clock(); err != nil {
		return err
	}
	return nil
}

// Clock parses ReminderTime into hour and minute.
func (s NotificationSettings) Clock() (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s.ReminderTime))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reminder time %q", ErrInvalidReminder, s.ReminderTime)
	}
	return t.Hour(), t.Minute(), nil
}

// FindWallet returns the index of the wallet with id, or -1.
func FindWallet(wallets []Wallet, id string) int {
	for i := range wallets {
		if wallets[i].ID == id {
			return i
		}
	}
	return -1
}

// FindCategory reports whether a category with id exists.
func FindCategory(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
