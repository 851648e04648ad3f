package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/event"
)

// AccountService handles account-related business logic. It never writes a
// balance; that is the ledger's job.
type AccountService struct {
	accountRepo domain.AccountRepository
	events      event.Publisher
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository, events event.Publisher) *AccountService {
	if events == nil {
		events = event.NoOpPublisher{}
	}
	return &AccountService{accountRepo: accountRepo, events: events}
}

// CreateAccountInput holds the input for creating an account
type CreateAccountInput struct {
	Name         string
	AccountType  domain.AccountType
	Currency     string
	StartBalance decimal.Decimal
}

// CreateAccount creates a new account with validation. The start balance is
// the immutable baseline; the running balance begins equal to it.
func (s *AccountService) CreateAccount(workspaceID int32, input CreateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}

	if !domain.ValidAccountTypes[input.AccountType] {
		return nil, domain.ErrInvalidAccountType
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	return s.accountRepo.Create(&domain.Account{
		WorkspaceID:  workspaceID,
		Name:         name,
		AccountType:  input.AccountType,
		Currency:     currency,
		StartBalance: input.StartBalance,
		Balance:      input.StartBalance,
	})
}

// GetAccounts retrieves all accounts for a workspace
func (s *AccountService) GetAccounts(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	return s.accountRepo.GetAllByWorkspace(workspaceID, includeArchived)
}

// GetAccountByID retrieves an account by ID
func (s *AccountService) GetAccountByID(workspaceID int32, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(workspaceID, id)
}

// UpdateAccount updates an account's name
func (s *AccountService) UpdateAccount(workspaceID int32, id int32, name string) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}
	updated, err := s.accountRepo.Update(workspaceID, id, name)
	if err != nil {
		return nil, err
	}

	s.events.Publish(workspaceID, event.AccountUpdated(updated))
	return updated, nil
}

// DeleteAccount soft-deletes an account. Transactions that reference it
// keep their rows; the ledger treats the dangling side as a no-op.
func (s *AccountService) DeleteAccount(workspaceID int32, id int32) error {
	if err := s.accountRepo.SoftDelete(workspaceID, id); err != nil {
		return err
	}

	s.events.Publish(workspaceID, event.AccountDeleted(id))
	return nil
}
