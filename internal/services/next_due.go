package services

import (
	"time"

	"cartera/internal/core"
)

// maxScanDays bounds the forward search; every frequency recurs within a year.
const maxScanDays = 370

// NextDueDate returns the first calendar day, starting today, on which e is
// due, at midnight in now's location. ok is false when the expense has
// ended before becoming due again.
func NextDueDate(e core.FixedExpense, now time.Time) (day time.Time, ok bool, err error) {
	if _, err := GetDuenessChecker(e.Frequency); err != nil {
		return time.Time{}, false, err
	}

	loc := now.Location()
	first := calendarDay(now, loc)
	if e.StartDate != nil {
		if start := calendarDay(*e.StartDate, loc); start.After(first) {
			first = start
		}
	}

	for i := 0; i < maxScanDays; i++ {
		d := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
		if e.EndDate != nil && d.After(calendarDay(*e.EndDate, loc)) {
			return time.Time{}, false, nil
		}
		endOfDay := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
		due, err := IsDue(e, endOfDay)
		if err != nil {
			return time.Time{}, false, err
		}
		if due {
			return d, true, nil
		}
	}
	return time.Time{}, false, nil
}
