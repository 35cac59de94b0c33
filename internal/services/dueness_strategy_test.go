package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

func ptrTime(t time.Time) *time.Time { return &t }

func monthlyExpense(day int) core.FixedExpense {
	return core.FixedExpense{
		ID:         "e1",
		Name:       "Rent",
		Amount:     decimal.NewFromInt(50),
		Currency:   core.USD,
		Frequency:  core.Monthly,
		DayOfMonth: day,
		WalletID:   "w1",
		CategoryID: "c1",
	}
}

func TestIntervalChecker_IsDue(t *testing.T) {
	tests := []struct {
		name     string
		checker  IntervalChecker
		lastPaid time.Time
		now      time.Time
		want     bool
	}{
		{
			name:    "never paid - is due",
			checker: IntervalChecker{Days: 1},
			now:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:     "daily, 23h later - not due",
			checker:  IntervalChecker{Days: 1},
			lastPaid: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 16, 11, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "daily, exactly one day later - is due",
			checker:  IntervalChecker{Days: 1},
			lastPaid: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "weekly, six days later - not due",
			checker:  IntervalChecker{Days: 7},
			lastPaid: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 7, 8, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "weekly, seven days later - is due",
			checker:  IntervalChecker{Days: 7},
			lastPaid: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "biweekly, thirteen days later - not due",
			checker:  IntervalChecker{Days: 14},
			lastPaid: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 14, 8, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "biweekly, fourteen days later - is due",
			checker:  IntervalChecker{Days: 14},
			lastPaid: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "yearly, one day short - not due",
			checker:  IntervalChecker{Years: 1},
			lastPaid: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "yearly, anniversary - is due",
			checker:  IntervalChecker{Years: 1},
			lastPaid: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.checker.IsDue(tt.lastPaid, tt.now, core.FixedExpense{})
			if got != tt.want {
				t.Errorf("IntervalChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name     string
		day      int
		lastPaid time.Time
		now      time.Time
		want     bool
	}{
		{
			name: "never paid, before target day - not due",
			day:  10,
			now:  time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "never paid, on target day - is due",
			day:  10,
			now:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name:     "paid this month - not due",
			day:      5,
			lastPaid: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 1, 25, 12, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "new month but before target day - not due",
			day:      15,
			lastPaid: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "new month and on target day - is due",
			day:      15,
			lastPaid: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "target day 31 in February - adjusts to 29",
			day:      31,
			lastPaid: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "paid in December, January of next year - is due",
			day:      1,
			lastPaid: time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "paid later in the same month than target - not due",
			day:      5,
			lastPaid: time.Date(2024, 3, 28, 12, 0, 0, 0, time.UTC),
			now:      time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastPaid, tt.now, monthlyExpense(tt.day))
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDue_MonthlyIdempotent(t *testing.T) {
	e := monthlyExpense(5)
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)

	due, err := IsDue(e, now)
	if err != nil || !due {
		t.Fatalf("IsDue() = %v, %v; want true, nil", due, err)
	}

	e.LastPaid = ptrTime(now)
	for _, later := range []time.Time{now, now.Add(time.Hour), time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC)} {
		due, err = IsDue(e, later)
		if err != nil || due {
			t.Errorf("IsDue(%v) after payment = %v, %v; want false, nil", later, due, err)
		}
	}

	due, _ = IsDue(e, time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))
	if !due {
		t.Error("IsDue() in the next month = false, want true")
	}
}

func TestIsDue_DateRange(t *testing.T) {
	e := core.FixedExpense{ID: "e", Frequency: core.Daily}
	e.StartDate = ptrTime(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC))
	e.EndDate = ptrTime(time.Date(2025, 3, 20, 6, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"day before start", time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC), false},
		{"start day, before start time", time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), true},
		{"inside range", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), true},
		{"end day, after end time", time.Date(2025, 3, 20, 23, 0, 0, 0, time.UTC), true},
		{"day after end", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsDue(e, tt.now)
			if err != nil {
				t.Fatalf("IsDue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueExpenses(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	paidToday := ptrTime(now)

	expenses := []core.FixedExpense{
		{ID: "a", Frequency: core.Daily},
		{ID: "b", Frequency: core.Daily, LastPaid: paidToday},
		{ID: "c", Frequency: core.Monthly, DayOfMonth: 1},
		{ID: "d", Frequency: "hourly"},
		{ID: "e", Frequency: core.Yearly},
	}

	due, skipped := DueExpenses(expenses, now)

	var ids []string
	for _, e := range due {
		ids = append(ids, e.ID)
	}
	want := []string{"a", "c", "e"}
	if len(ids) != len(want) {
		t.Fatalf("DueExpenses() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("DueExpenses()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if len(skipped) != 1 {
		t.Errorf("DueExpenses() skipped = %v, want one error", skipped)
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		wantErr   bool
	}{
		{"daily", core.Daily, false},
		{"weekly", core.Weekly, false},
		{"biweekly", core.Biweekly, false},
		{"monthly", core.Monthly, false},
		{"yearly", core.Yearly, false},
		{"unknown", core.Frequency("quarterly"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, err := GetDuenessChecker(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetDuenessChecker() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && checker == nil {
				t.Error("GetDuenessChecker() returned nil checker")
			}
		})
	}
}

func TestRegisterDuenessChecker(t *testing.T) {
	customFreq := core.Frequency("quarterly")

	RegisterDuenessChecker(customFreq, IntervalChecker{Days: 91})

	checker, err := GetDuenessChecker(customFreq)
	if err != nil {
		t.Errorf("GetDuenessChecker() after register error = %v", err)
	}
	if checker == nil {
		t.Error("GetDuenessChecker() returned nil after registration")
	}

	delete(duenessStrategies, customFreq)
}

func TestNextDueDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	paidMar := monthlyExpense(5)
	paidMar.LastPaid = ptrTime(time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC))

	weekly := core.FixedExpense{ID: "w", Frequency: core.Weekly, LastPaid: ptrTime(time.Date(2025, 3, 8, 20, 0, 0, 0, time.UTC))}

	future := core.FixedExpense{ID: "f", Frequency: core.Daily, StartDate: ptrTime(day(2025, 4, 1))}

	ended := core.FixedExpense{ID: "x", Frequency: core.Weekly, LastPaid: ptrTime(now), EndDate: ptrTime(day(2025, 3, 12))}

	tests := []struct {
		name   string
		e      core.FixedExpense
		want   time.Time
		wantOK bool
	}{
		{"due today", monthlyExpense(1), day(2025, 3, 10), true},
		{"later this month", monthlyExpense(20), day(2025, 3, 20), true},
		{"paid this month", paidMar, day(2025, 4, 5), true},
		{"weekly", weekly, day(2025, 3, 15), true},
		{"not started", future, day(2025, 4, 1), true},
		{"ends first", ended, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextDueDate(tt.e, now)
			if err != nil {
				t.Fatalf("NextDueDate() error = %v", err)
			}
			if ok != tt.wantOK || !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, _, err := NextDueDate(core.FixedExpense{Frequency: "hourly"}, now); err == nil {
		t.Error("NextDueDate() with unknown frequency should fail")
	}
}
