package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/event"
	"github.com/tallyapp/tally-backend/internal/recurrence"
)

// ScheduleService owns scheduled transaction templates. Posting materializes
// a template into a real transaction through the TransactionService and then
// advances the template; skipping only advances. Templates never touch
// balances themselves.
type ScheduleService struct {
	scheduleRepo domain.ScheduleRepository
	accountRepo  domain.AccountRepository
	transactions *TransactionService
	events       event.Publisher
	now          func() time.Time
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	scheduleRepo domain.ScheduleRepository,
	accountRepo domain.AccountRepository,
	transactions *TransactionService,
	events event.Publisher,
) *ScheduleService {
	if events == nil {
		events = event.NoOpPublisher{}
	}
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		accountRepo:  accountRepo,
		transactions: transactions,
		events:       events,
		now:          time.Now,
	}
}

// ScheduleInput holds the input for creating or updating a schedule
type ScheduleInput struct {
	Name            string
	Type            domain.TransactionType
	Amount          decimal.Decimal
	FromAccountID   *int32
	ToAccountID     *int32
	CategoryID      *int32
	Payee           *string
	Memo            *string
	Tags            []string
	Asset           *string
	Units           *decimal.Decimal
	NextOccurrence  time.Time
	Pattern         recurrence.Pattern
	RecurrenceValue int32
	Enabled         bool
}

func (s *ScheduleService) validate(workspaceID int32, input ScheduleInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxTransactionNameLength {
		return "", domain.ErrNameTooLong
	}
	if input.Amount.IsNegative() {
		return "", domain.ErrInvalidAmount
	}
	if !domain.ValidTransactionTypes[input.Type] {
		return "", domain.ErrInvalidTransactionType
	}
	if !recurrence.Valid(input.Pattern) {
		return "", domain.ErrInvalidPattern
	}
	for _, id := range []*int32{input.FromAccountID, input.ToAccountID} {
		if id == nil {
			continue
		}
		if _, err := s.accountRepo.GetByID(workspaceID, *id); err != nil {
			return "", domain.ErrAccountNotFound
		}
	}
	return name, nil
}

// CreateSchedule creates a new scheduled transaction template
func (s *ScheduleService) CreateSchedule(workspaceID int32, input ScheduleInput) (*domain.ScheduledTransaction, error) {
	name, err := s.validate(workspaceID, input)
	if err != nil {
		return nil, err
	}

	value := input.RecurrenceValue
	if value <= 0 {
		value = 1
	}

	return s.scheduleRepo.Create(&domain.ScheduledTransaction{
		WorkspaceID:     workspaceID,
		Name:            name,
		Type:            input.Type,
		Amount:          input.Amount,
		FromAccountID:   input.FromAccountID,
		ToAccountID:     input.ToAccountID,
		CategoryID:      input.CategoryID,
		Payee:           input.Payee,
		Memo:            input.Memo,
		Tags:            input.Tags,
		Asset:           input.Asset,
		Units:           input.Units,
		NextOccurrence:  input.NextOccurrence,
		Pattern:         input.Pattern,
		RecurrenceValue: value,
		Enabled:         input.Enabled,
	})
}

// UpdateSchedule updates an existing template. A plain persistence write:
// no balance is touched.
func (s *ScheduleService) UpdateSchedule(workspaceID int32, id int32, input ScheduleInput) (*domain.ScheduledTransaction, error) {
	name, err := s.validate(workspaceID, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.scheduleRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	value := input.RecurrenceValue
	if value <= 0 {
		value = 1
	}

	existing.Name = name
	existing.Type = input.Type
	existing.Amount = input.Amount
	existing.FromAccountID = input.FromAccountID
	existing.ToAccountID = input.ToAccountID
	existing.CategoryID = input.CategoryID
	existing.Payee = input.Payee
	existing.Memo = input.Memo
	existing.Tags = input.Tags
	existing.Asset = input.Asset
	existing.Units = input.Units
	existing.NextOccurrence = input.NextOccurrence
	existing.Pattern = input.Pattern
	existing.RecurrenceValue = value
	existing.Enabled = input.Enabled

	return s.scheduleRepo.Update(existing)
}

// DeleteSchedule removes a template. Posted transactions are untouched.
func (s *ScheduleService) DeleteSchedule(workspaceID int32, id int32) error {
	return s.scheduleRepo.Delete(workspaceID, id)
}

// GetScheduleByID retrieves a template by ID
func (s *ScheduleService) GetScheduleByID(workspaceID int32, id int32) (*domain.ScheduledTransaction, error) {
	return s.scheduleRepo.GetByID(workspaceID, id)
}

// ListSchedules retrieves all templates for a workspace
func (s *ScheduleService) ListSchedules(workspaceID int32, enabledOnly *bool) ([]*domain.ScheduledTransaction, error) {
	return s.scheduleRepo.ListByWorkspace(workspaceID, enabledOnly)
}

// ListDue returns enabled templates whose next occurrence falls before
// now + horizon.
func (s *ScheduleService) ListDue(workspaceID int32, horizon time.Duration) ([]*domain.ScheduledTransaction, error) {
	enabledOnly := true
	schedules, err := s.scheduleRepo.ListByWorkspace(workspaceID, &enabledOnly)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(horizon)
	due := make([]*domain.ScheduledTransaction, 0, len(schedules))
	for _, schedule := range schedules {
		if schedule.NextOccurrence.Before(cutoff) {
			due = append(due, schedule)
		}
	}
	return due, nil
}

// Post materializes the template into a real transaction dated at its next
// occurrence, then advances the template one step.
func (s *ScheduleService) Post(workspaceID int32, id int32) (*domain.Transaction, error) {
	schedule, err := s.scheduleRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	// The embedded account references may be stale; re-resolve by identity.
	// A template that names an account which no longer exists must fail
	// rather than silently post with no balance effect.
	for _, accountID := range []*int32{schedule.FromAccountID, schedule.ToAccountID} {
		if accountID == nil {
			continue
		}
		if _, err := s.accountRepo.GetByID(workspaceID, *accountID); err != nil {
			return nil, domain.ErrStaleAccountReference
		}
	}

	occurrence := schedule.NextOccurrence
	tx, err := s.transactions.CreateTransaction(workspaceID, TransactionInput{
		Name:            schedule.Name,
		Type:            schedule.Type,
		Amount:          schedule.Amount,
		FromAccountID:   schedule.FromAccountID,
		ToAccountID:     schedule.ToAccountID,
		CategoryID:      schedule.CategoryID,
		Payee:           schedule.Payee,
		Memo:            schedule.Memo,
		Tags:            schedule.Tags,
		Asset:           schedule.Asset,
		Units:           schedule.Units,
		TransactionDate: &occurrence,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.advance(schedule); err != nil {
		// The template did not move, so the posted transaction must not
		// survive either: a retry would post the same occurrence twice.
		_ = s.transactions.DeleteTransaction(workspaceID, tx.ID)
		return nil, err
	}

	s.events.Publish(workspaceID, event.SchedulePosted(tx))
	return tx, nil
}

// Skip advances the template one step without posting anything. No balance
// is touched.
func (s *ScheduleService) Skip(workspaceID int32, id int32) (*domain.ScheduledTransaction, error) {
	schedule, err := s.scheduleRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.advance(schedule)
	if err != nil {
		return nil, err
	}

	s.events.Publish(workspaceID, event.ScheduleSkipped(updated))
	return updated, nil
}

func (s *ScheduleService) advance(schedule *domain.ScheduledTransaction) (*domain.ScheduledTransaction, error) {
	schedule.NextOccurrence = recurrence.Next(schedule.NextOccurrence, schedule.Pattern, int(schedule.RecurrenceValue))
	return s.scheduleRepo.Update(schedule)
}
