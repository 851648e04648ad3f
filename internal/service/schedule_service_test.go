package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/ledger"
	"github.com/tallyapp/tally-backend/internal/recurrence"
	"github.com/tallyapp/tally-backend/internal/testutil"
)

func newScheduleFixture() (*ScheduleService, *testutil.MockScheduleRepository, *testutil.MockTransactionRepository, *testutil.MockAccountRepository) {
	scheduleRepo := testutil.NewMockScheduleRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	accountRepo := testutil.NewMockAccountRepository()
	transactions := NewTransactionService(transactionRepo, accountRepo, ledger.New(accountRepo), nil)
	svc := NewScheduleService(scheduleRepo, accountRepo, transactions, nil)
	return svc, scheduleRepo, transactionRepo, accountRepo
}

func TestCreateSchedule_Success(t *testing.T) {
	svc, _, _, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)
	next := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	schedule, err := svc.CreateSchedule(1, ScheduleInput{
		Name:           "Rent",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("800"),
		FromAccountID:  &from,
		NextOccurrence: next,
		Pattern:        recurrence.Monthly,
		Enabled:        true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if schedule.ID == 0 {
		t.Error("Expected schedule persisted with an id")
	}
	if schedule.RecurrenceValue != 1 {
		t.Errorf("Expected recurrence value defaulted to 1, got %d", schedule.RecurrenceValue)
	}
	if !schedule.NextOccurrence.Equal(next) {
		t.Errorf("Expected next occurrence %v, got %v", next, schedule.NextOccurrence)
	}
}

func TestCreateSchedule_InvalidPatternRejected(t *testing.T) {
	svc, _, _, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)

	_, err := svc.CreateSchedule(1, ScheduleInput{
		Name:           "Rent",
		Type:           domain.TransactionTypeExpense,
		Amount:         decimal.RequireFromString("800"),
		FromAccountID:  &from,
		NextOccurrence: time.Now(),
		Pattern:        recurrence.Pattern("FORTNIGHTLY"),
		Enabled:        true,
	})
	if !errors.Is(err, domain.ErrInvalidPattern) {
		t.Fatalf("Expected ErrInvalidPattern, got %v", err)
	}
}

func TestPost_CreatesTransactionAndAdvances(t *testing.T) {
	svc, scheduleRepo, transactionRepo, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)
	occurrence := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Rent",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("800"),
		FromAccountID:   &from,
		NextOccurrence:  occurrence,
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 1,
		Enabled:         true,
	})

	tx, err := svc.Post(1, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !tx.TransactionDate.Equal(occurrence) {
		t.Errorf("Expected transaction dated %v, got %v", occurrence, tx.TransactionDate)
	}
	if tx.Name != "Rent" {
		t.Errorf("Expected name 'Rent', got %s", tx.Name)
	}
	if got := accountRepo.Balance(1); !got.Equal(decimal.RequireFromString("200")) {
		t.Errorf("Expected balance 200 after posting, got %s", got)
	}

	stored := scheduleRepo.Stored(1)
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !stored.NextOccurrence.Equal(want) {
		t.Errorf("Expected template advanced to %v, got %v", want, stored.NextOccurrence)
	}
	if len(transactionRepo.Transactions) != 1 {
		t.Errorf("Expected exactly one transaction, got %d", len(transactionRepo.Transactions))
	}
}

func TestSkip_AdvancesWithoutPosting(t *testing.T) {
	svc, scheduleRepo, transactionRepo, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Rent",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("800"),
		FromAccountID:   &from,
		NextOccurrence:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Pattern:         recurrence.Weekly,
		RecurrenceValue: 2,
		Enabled:         true,
	})

	updated, err := svc.Skip(1, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !updated.NextOccurrence.Equal(want) {
		t.Errorf("Expected next occurrence %v, got %v", want, updated.NextOccurrence)
	}
	if got := accountRepo.Balance(1); !got.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected balance untouched at 1000, got %s", got)
	}
	if len(transactionRepo.Transactions) != 0 {
		t.Errorf("Expected no transaction created, got %d", len(transactionRepo.Transactions))
	}
}

func TestPost_StaleAccountReferenceFails(t *testing.T) {
	svc, scheduleRepo, transactionRepo, _ := newScheduleFixture()
	missing := int32(42)
	occurrence := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Rent",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("800"),
		FromAccountID:   &missing,
		NextOccurrence:  occurrence,
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 1,
		Enabled:         true,
	})

	_, err := svc.Post(1, 1)
	if !errors.Is(err, domain.ErrStaleAccountReference) {
		t.Fatalf("Expected ErrStaleAccountReference, got %v", err)
	}

	// The template must not advance past a failed post.
	stored := scheduleRepo.Stored(1)
	if !stored.NextOccurrence.Equal(occurrence) {
		t.Errorf("Expected next occurrence unchanged at %v, got %v", occurrence, stored.NextOccurrence)
	}
	if len(transactionRepo.Transactions) != 0 {
		t.Errorf("Expected no transaction created, got %d", len(transactionRepo.Transactions))
	}
}

func TestPost_UnknownScheduleFails(t *testing.T) {
	svc, _, _, _ := newScheduleFixture()

	_, err := svc.Post(1, 99)
	if !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Fatalf("Expected ErrScheduleNotFound, got %v", err)
	}
}

func TestListDue_FiltersByHorizon(t *testing.T) {
	svc, scheduleRepo, _, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	add := func(id int32, next time.Time, enabled bool) {
		scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
			ID:              id,
			WorkspaceID:     1,
			Name:            "Template",
			Type:            domain.TransactionTypeExpense,
			Amount:          decimal.RequireFromString("10"),
			FromAccountID:   &from,
			NextOccurrence:  next,
			Pattern:         recurrence.Daily,
			RecurrenceValue: 1,
			Enabled:         enabled,
		})
	}
	add(1, now.AddDate(0, 0, -3), true) // overdue
	add(2, now.AddDate(0, 0, 2), true)  // inside horizon
	add(3, now.AddDate(0, 0, 30), true) // beyond horizon
	add(4, now.AddDate(0, 0, -1), false)

	due, err := svc.ListDue(1, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(due) != 2 {
		t.Fatalf("Expected 2 due templates, got %d", len(due))
	}
	for _, s := range due {
		if s.ID == 3 {
			t.Error("Expected template beyond horizon to be excluded")
		}
		if s.ID == 4 {
			t.Error("Expected disabled template to be excluded")
		}
	}
}

func TestUpdateSchedule_ReplacesFields(t *testing.T) {
	svc, scheduleRepo, _, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Old name",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("10"),
		FromAccountID:   &from,
		NextOccurrence:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Pattern:         recurrence.Daily,
		RecurrenceValue: 1,
		Enabled:         true,
	})

	updated, err := svc.UpdateSchedule(1, 1, ScheduleInput{
		Name:            "New name",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("25"),
		FromAccountID:   &from,
		NextOccurrence:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 0,
		Enabled:         false,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if updated.Name != "New name" {
		t.Errorf("Expected name 'New name', got %s", updated.Name)
	}
	if updated.Pattern != recurrence.Monthly {
		t.Errorf("Expected pattern monthly, got %s", updated.Pattern)
	}
	if updated.RecurrenceValue != 1 {
		t.Errorf("Expected recurrence value defaulted to 1, got %d", updated.RecurrenceValue)
	}
	if updated.Enabled {
		t.Error("Expected schedule disabled")
	}
}

func TestDeleteSchedule_LeavesPostedTransactions(t *testing.T) {
	svc, scheduleRepo, transactionRepo, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Rent",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("800"),
		FromAccountID:   &from,
		NextOccurrence:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 1,
		Enabled:         true,
	})

	if _, err := svc.Post(1, 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.DeleteSchedule(1, 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := svc.GetScheduleByID(1, 1); !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Errorf("Expected template gone, got %v", err)
	}
	if len(transactionRepo.Transactions) != 1 {
		t.Errorf("Expected posted transaction to survive, got %d", len(transactionRepo.Transactions))
	}
	if got := accountRepo.Balance(1); !got.Equal(decimal.RequireFromString("200")) {
		t.Errorf("Expected balance 200, got %s", got)
	}
}

func TestPost_AdvanceFailureRemovesPostedTransaction(t *testing.T) {
	svc, scheduleRepo, transactionRepo, accountRepo := newScheduleFixture()
	addAccount(accountRepo, 1, "1000")
	from := int32(1)
	occurrence := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	scheduleRepo.AddSchedule(&domain.ScheduledTransaction{
		WorkspaceID:     1,
		Name:            "Rent",
		Type:            domain.TransactionTypeExpense,
		Amount:          decimal.RequireFromString("800"),
		FromAccountID:   &from,
		NextOccurrence:  occurrence,
		Pattern:         recurrence.Monthly,
		RecurrenceValue: 1,
		Enabled:         true,
	})
	scheduleRepo.UpdateErr = errors.New("connection reset")

	if _, err := svc.Post(1, 1); err == nil {
		t.Fatal("Expected error when the template advance fails")
	}

	// Nothing posted, nothing moved: a retry starts from scratch instead of
	// double-posting the same occurrence.
	if len(transactionRepo.Transactions) != 0 {
		t.Errorf("Expected no surviving transaction, got %d", len(transactionRepo.Transactions))
	}
	if got := accountRepo.Balance(1); !got.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected balance restored to 1000, got %s", got)
	}
	if stored := scheduleRepo.Stored(1); !stored.NextOccurrence.Equal(occurrence) {
		t.Errorf("Expected template still at %v, got %v", occurrence, stored.NextOccurrence)
	}
}
