// Package notify turns fixed-expense schedules into reminder requests.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/amqp"
	"cartera/internal/core"
	"cartera/internal/services"
)

// Reminder is one scheduled notification for a fixed expense.
type Reminder struct {
	ExpenseID   string
	ExpenseName string
	Amount      decimal.Decimal
	Currency    core.Currency
	DueDate     time.Time
	FireAt      time.Time
}

// Message converts the reminder into its wire form.
func (r Reminder) Message() *amqp.ReminderMessage {
	return &amqp.ReminderMessage{
		ExpenseID:   r.ExpenseID,
		ExpenseName: r.ExpenseName,
		Amount:      r.Amount,
		Currency:    string(r.Currency),
		DueDate:     r.DueDate,
		FireAt:      r.FireAt,
	}
}

// FireTime is ReminderDays before due at the settings' clock time, but
// never earlier than now.
func FireTime(due time.Time, settings core.NotificationSettings, now time.Time) (time.Time, error) {
	hour, minute, err := settings.Clock()
	if err != nil {
		return time.Time{}, err
	}
	fire := time.Date(due.Year(), due.Month(), due.Day()-settings.ReminderDays, hour, minute, 0, 0, due.Location())
	if fire.Before(now) {
		return now, nil
	}
	return fire, nil
}

// BuildReminders computes one reminder per expense that has an upcoming due
// date. Disabled settings yield no reminders. Expenses whose schedule can't
// be evaluated are skipped and reported in the returned error.
func BuildReminders(expenses []core.FixedExpense, settings core.NotificationSettings, now time.Time) ([]Reminder, error) {
	if !settings.Enabled {
		return nil, nil
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var (
		reminders []Reminder
		errs      []error
	)
	for _, e := range expenses {
		due, ok, err := services.NextDueDate(e, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("expense %s: %w", e.ID, err))
			continue
		}
		if !ok {
			continue
		}
		fire, err := FireTime(due, settings, now)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, Reminder{
			ExpenseID:   e.ID,
			ExpenseName: e.Name,
			Amount:      e.Amount,
			Currency:    e.Currency,
			DueDate:     due,
			FireAt:      fire,
		})
	}
	return reminders, errors.Join(errs...)
}

// Publisher delivers reminder requests to whatever shows notifications.
type Publisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// Scheduler publishes reminders for a set of fixed expenses.
type Scheduler struct {
	publisher Publisher
}

func NewScheduler(publisher Publisher) *Scheduler {
	return &Scheduler{publisher: publisher}
}

// Schedule builds and publishes the reminders, continuing past individual
// publish failures. It returns the reminders that were published.
func (s *Scheduler) Schedule(ctx context.Context, expenses []core.FixedExpense, settings core.NotificationSettings, now time.Time) ([]Reminder, error) {
	reminders, buildErr := BuildReminders(expenses, settings, now)
	if buildErr != nil {
		slog.WarnContext(ctx, "Some reminders could not be computed", "error", buildErr)
	}
	published, err := s.Publish(ctx, reminders)
	return published, errors.Join(err, buildErr)
}

// Publish sends already built reminders, continuing past individual
// failures. It returns the reminders that were published.
func (s *Scheduler) Publish(ctx context.Context, reminders []Reminder) ([]Reminder, error) {
	if len(reminders) == 0 {
		return nil, nil
	}
	if s.publisher == nil {
		return nil, errors.New("no reminder publisher configured")
	}

	published := make([]Reminder, 0, len(reminders))
	var errs []error
	for _, r := range reminders {
		if err := s.publisher.PublishReminder(ctx, r.Message()); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"expense_id", r.ExpenseID,
				"error", err)
			errs = append(errs, fmt.Errorf("expense %s: %w", r.ExpenseID, err))
			continue
		}
		published = append(published, r)
	}

	slog.InfoContext(ctx, "Reminders scheduled",
		"published", len(published),
		"failed", len(errs))

	return published, errors.Join(errs...)
}
