// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for fixed expense dueness checking.
// Each frequency (daily, weekly, biweekly, monthly, yearly) has its own
// strategy; IsDue applies the date-range gate in front of them.

package services

import (
	"fmt"
	"time"

	"cartera/internal/core"
)

// DuenessChecker is the strategy interface for checking if a fixed expense is due.
// Each implementation encapsulates the algorithm for a specific frequency.
type DuenessChecker interface {
	// IsDue returns true if the expense should be paid given the last
	// payment time (zero when never paid) and the current time.
	IsDue(lastPaid, now time.Time, e core.FixedExpense) bool
}

// IntervalChecker is due once a fixed calendar interval has elapsed since
// the last payment. It backs the daily, weekly, biweekly and yearly strategies.
type IntervalChecker struct {
	Years, Days int
}

// IsDue returns true if the interval has fully elapsed since lastPaid.
func (c IntervalChecker) IsDue(lastPaid, now time.Time, _ core.FixedExpense) bool {
	if lastPaid.IsZero() {
		return true
	}
	next := lastPaid.AddDate(c.Years, 0, c.Days)
	return !now.Before(next)
}

// MonthlyChecker implements DuenessChecker for monthly fixed expenses.
type MonthlyChecker struct{}

// IsDue returns true once the configured day of month is reached and nothing
// was paid yet in the current calendar month. The day-of-month gate applies
// to the first payment too.
func (MonthlyChecker) IsDue(lastPaid, now time.Time, e core.FixedExpense) bool {
	if now.Day() < targetDay(now.Year(), now.Month(), e.DayOfMonth, now.Location()) {
		return false
	}
	if lastPaid.IsZero() {
		return true
	}

	lp := lastPaid.In(now.Location())
	if lp.Year() != now.Year() {
		return lp.Year() < now.Year()
	}
	return lp.Month() < now.Month()
}

// targetDay clamps day to the length of the month, so an expense on the 31st
// falls on the last day of shorter months.
func targetDay(year int, month time.Month, day int, loc *time.Location) int {
	lastDayOfMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDayOfMonth {
		return lastDayOfMonth
	}
	if day < 1 {
		return 1
	}
	return day
}

// duenessStrategies maps frequencies to their corresponding checkers.
var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:    IntervalChecker{Days: 1},
	core.Weekly:   IntervalChecker{Days: 7},
	core.Biweekly: IntervalChecker{Days: 14},
	core.Monthly:  MonthlyChecker{},
	core.Yearly:   IntervalChecker{Years: 1},
}

// GetDuenessChecker returns the appropriate dueness checker for a frequency.
// Returns an error if the frequency is not supported.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker allows registering custom dueness checkers for new frequencies.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	duenessStrategies[frequency] = checker
}

// calendarDay truncates t to midnight in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// InDateRange applies the start/end gate. Both bounds are whole calendar
// days in now's location and both are inclusive.
func InDateRange(e core.FixedExpense, now time.Time) bool {
	loc := now.Location()
	today := calendarDay(now, loc)
	if e.StartDate != nil && today.Before(calendarDay(*e.StartDate, loc)) {
		return false
	}
	if e.EndDate != nil && today.After(calendarDay(*e.EndDate, loc)) {
		return false
	}
	return true
}

// IsDue decides whether e is due at now: the date-range gate first, then the
// frequency strategy. now is always supplied by the caller.
func IsDue(e core.FixedExpense, now time.Time) (bool, error) {
	checker, err := GetDuenessChecker(e.Frequency)
	if err != nil {
		return false, err
	}
	if !InDateRange(e, now) {
		return false, nil
	}
	var lastPaid time.Time
	if e.LastPaid != nil {
		lastPaid = *e.LastPaid
	}
	return checker.IsDue(lastPaid, now, e), nil
}

// DueExpenses filters expenses down to the ones due at now, preserving order.
// Expenses with an unknown frequency are skipped and returned in skipped.
func DueExpenses(expenses []core.FixedExpense, now time.Time) (due []core.FixedExpense, skipped []error) {
	for _, e := range expenses {
		ok, err := IsDue(e, now)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("expense %s: %w", e.ID, err))
			continue
		}
		if ok {
			due = append(due, e)
		}
	}
	return due, skipped
}
