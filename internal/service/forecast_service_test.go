package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/recurrence"
	"github.com/tallyapp/tally-backend/internal/testutil"
)

func newForecastFixture() (*ForecastService, *testutil.MockScheduleRepository) {
	scheduleRepo := testutil.NewMockScheduleRepository()
	return NewForecastService(scheduleRepo), scheduleRepo
}

func addForecastSchedule(repo *testutil.MockScheduleRepository, s *domain.ScheduledTransaction) {
	if s.WorkspaceID == 0 {
		s.WorkspaceID = 1
	}
	if s.RecurrenceValue == 0 {
		s.RecurrenceValue = 1
	}
	s.Enabled = true
	repo.AddSchedule(s)
}

func TestForecast_MonthlyExpenseFillsEveryMonth(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Rent",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("800"),
		NextOccurrence: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Monthly,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i, month := range forecast.Months {
		if !month.Expense.Equal(decimal.RequireFromString("800")) {
			t.Errorf("Month %d: expected expense 800, got %s", i+1, month.Expense)
		}
		if !month.Income.Equal(decimal.Zero) {
			t.Errorf("Month %d: expected income 0, got %s", i+1, month.Income)
		}
	}
}

func TestForecast_WeeklyStartingBeforeTargetYear(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	// First occurrence inside 2025 lands on January 3rd, then every 7 days:
	// five January occurrences.
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Allowance",
		Type:           domain.TransactionTypeIncome,
		Amount:         decimal.RequireFromString("50"),
		NextOccurrence: time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Weekly,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !forecast.Months[0].Income.Equal(decimal.RequireFromString("250")) {
		t.Errorf("Expected January income 250, got %s", forecast.Months[0].Income)
	}
	// February 2025: the 7th, 14th, 21st, 28th.
	if !forecast.Months[1].Income.Equal(decimal.RequireFromString("200")) {
		t.Errorf("Expected February income 200, got %s", forecast.Months[1].Income)
	}
}

func TestForecast_DoesNotMutateTemplates(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	next := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Rent",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("800"),
		NextOccurrence: next,
		Pattern:        recurrence.Monthly,
	})

	first, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := scheduleRepo.Stored(1)
	if !stored.NextOccurrence.Equal(next) {
		t.Errorf("Expected stored next occurrence unchanged at %v, got %v", next, stored.NextOccurrence)
	}
	for i := range first.Months {
		if !first.Months[i].Expense.Equal(second.Months[i].Expense) {
			t.Errorf("Month %d: expected identical runs, got %s and %s", i+1, first.Months[i].Expense, second.Months[i].Expense)
		}
	}
}

func TestForecast_ExcludesTransfers(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	from, to := int32(1), int32(2)
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Savings sweep",
		Type:           domain.TransactionTypeTransfer,
		Amount:         decimal.RequireFromString("300"),
		FromAccountID:  &from,
		ToAccountID:    &to,
		NextOccurrence: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Monthly,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i, month := range forecast.Months {
		if !month.Income.Equal(decimal.Zero) || !month.Expense.Equal(decimal.Zero) {
			t.Errorf("Month %d: expected transfer excluded, got income %s expense %s", i+1, month.Income, month.Expense)
		}
	}
}

func TestForecast_ExcludesDisabledTemplates(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Paused subscription",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("15"),
		NextOccurrence:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 1,
		Enabled:         false,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i, month := range forecast.Months {
		if !month.Expense.Equal(decimal.Zero) {
			t.Errorf("Month %d: expected disabled template excluded, got %s", i+1, month.Expense)
		}
	}
}

func TestForecast_TemplateBeyondTargetYearContributesNothing(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Future bill",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("99"),
		NextOccurrence: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Monthly,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i, month := range forecast.Months {
		if !month.Expense.Equal(decimal.Zero) {
			t.Errorf("Month %d: expected no contribution, got %s", i+1, month.Expense)
		}
	}
}

func TestForecast_NonAdvancingPatternTerminates(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	// An unknown pattern never advances the date; the walk must bail out
	// instead of spinning.
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Broken",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("10"),
		NextOccurrence: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Pattern("BOGUS"),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Forecast(1, 2025); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forecast did not terminate")
	}
}

func TestForecast_DailyTemplateYearTotals(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Coffee",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("3"),
		NextOccurrence: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Daily,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// 31 January days at 3 each.
	if !forecast.Months[0].Expense.Equal(decimal.RequireFromString("93")) {
		t.Errorf("Expected January expense 93, got %s", forecast.Months[0].Expense)
	}
	// 28 February days in 2025.
	if !forecast.Months[1].Expense.Equal(decimal.RequireFromString("84")) {
		t.Errorf("Expected February expense 84, got %s", forecast.Months[1].Expense)
	}
}

func TestForecast_DailyTemplateYearsBehindFillsTargetYear(t *testing.T) {
	svc, scheduleRepo := newForecastFixture()
	// Over 1400 daily advances separate the stored occurrence from 2025;
	// every one of them is fast-forward, none of them accumulation.
	addForecastSchedule(scheduleRepo, &domain.ScheduledTransaction{
		Name:           "Coffee",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("3"),
		NextOccurrence: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Pattern:        recurrence.Daily,
	})

	forecast, err := svc.Forecast(1, 2025)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !forecast.Months[0].Expense.Equal(decimal.RequireFromString("93")) {
		t.Errorf("Expected January expense 93, got %s", forecast.Months[0].Expense)
	}
	if !forecast.Months[11].Expense.Equal(decimal.RequireFromString("93")) {
		t.Errorf("Expected December expense 93, got %s", forecast.Months[11].Expense)
	}
}
