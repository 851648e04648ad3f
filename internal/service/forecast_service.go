package service

import (
	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/recurrence"
)

// MaxForecastOccurrences caps the in-year accumulation loop per template.
// A pattern that stops advancing is already caught by the strictly-increasing
// check; the cap is a second bound so a misconfigured template degrades to an
// incomplete forecast, not an infinite loop.
const MaxForecastOccurrences = 1000

// ForecastService projects scheduled transactions into monthly income and
// expense buckets for one calendar year. It only ever reads templates;
// advancement happens on a local working copy of the occurrence date, so
// forecasting is idempotent and leaves every persisted NextOccurrence
// untouched.
type ForecastService struct {
	scheduleRepo domain.ScheduleRepository
}

// NewForecastService creates a new ForecastService
func NewForecastService(scheduleRepo domain.ScheduleRepository) *ForecastService {
	return &ForecastService{scheduleRepo: scheduleRepo}
}

// Forecast enumerates every occurrence of every enabled template that falls
// inside the target year. Transfers move money between tracked accounts and
// are excluded from the totals.
func (s *ForecastService) Forecast(workspaceID int32, year int) (*domain.Forecast, error) {
	enabledOnly := true
	schedules, err := s.scheduleRepo.ListByWorkspace(workspaceID, &enabledOnly)
	if err != nil {
		return nil, err
	}

	forecast := domain.NewForecast(year)
	for _, schedule := range schedules {
		if schedule.Type == domain.TransactionTypeTransfer {
			continue
		}
		s.accumulate(forecast, schedule, year)
	}
	return forecast, nil
}

func (s *ForecastService) accumulate(forecast *domain.Forecast, schedule *domain.ScheduledTransaction, year int) {
	occurrence := schedule.NextOccurrence
	step := int(schedule.RecurrenceValue)

	// Fast-forward occurrences from earlier years into the target year.
	// Only the strictly-increasing check bounds this phase: a daily template
	// that has not been posted for years still needs thousands of advances
	// to reach the target year, and it must arrive with its full totals
	// intact, not be cut off by the accumulation cap.
	for occurrence.Year() < year {
		next := recurrence.Next(occurrence, schedule.Pattern, step)
		if !next.After(occurrence) {
			return
		}
		occurrence = next
	}

	// Accumulate while inside the target year; the first occurrence past
	// December 31 ends the walk.
	iterations := 0
	for occurrence.Year() == year && iterations < MaxForecastOccurrences {
		month := int(occurrence.Month()) - 1
		switch schedule.Type {
		case domain.TransactionTypeIncome:
			forecast.Months[month].Income = forecast.Months[month].Income.Add(schedule.Amount)
		case domain.TransactionTypeExpense:
			forecast.Months[month].Expense = forecast.Months[month].Expense.Add(schedule.Amount)
		}

		next := recurrence.Next(occurrence, schedule.Pattern, step)
		if !next.After(occurrence) {
			return
		}
		occurrence = next
		iterations++
	}
}
