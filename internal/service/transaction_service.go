package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/event"
	"github.com/tallyapp/tally-backend/internal/ledger"
)

// TransactionService orchestrates the transaction lifecycle. It is the only
// component allowed to sequence ledger apply/reverse calls: create applies,
// edit reverses the previously persisted state then applies the new one,
// delete reverses then removes the row.
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
	ledger          *ledger.Ledger
	events          event.Publisher
	now             func() time.Time
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactionRepo domain.TransactionRepository,
	accountRepo domain.AccountRepository,
	ldg *ledger.Ledger,
	events event.Publisher,
) *TransactionService {
	if events == nil {
		events = event.NoOpPublisher{}
	}
	return &TransactionService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		ledger:          ldg,
		events:          events,
		now:             time.Now,
	}
}

// TransactionInput holds the input for creating or updating a transaction
type TransactionInput struct {
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
	TransactionDate *time.Time
}

// validate checks the input and returns the trimmed name. Validation runs
// strictly before any ledger call so a rejected operation leaves every
// balance untouched.
func (s *TransactionService) validate(workspaceID int32, input TransactionInput) (string, error) {
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

	if input.Type == domain.TransactionTypeTransfer &&
		input.FromAccountID != nil && input.ToAccountID != nil &&
		*input.FromAccountID == *input.ToAccountID {
		return "", domain.ErrSameAccountTransfer
	}

	if input.Memo != nil && len(*input.Memo) > domain.MaxTransactionMemoLength {
		return "", domain.ErrMemoTooLong
	}

	// Account references that are set must resolve at save time. A side may
	// be left nil; only dangling ids are rejected here.
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

func (s *TransactionService) build(workspaceID int32, name string, input TransactionInput) *domain.Transaction {
	transactionDate := s.now().UTC()
	if input.TransactionDate != nil {
		transactionDate = *input.TransactionDate
	}

	return &domain.Transaction{
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
		TransactionDate: transactionDate,
		Status:          domain.TransactionStatusCompleted,
	}
}

// CreateTransaction validates, applies the balance effect, and persists a
// new transaction.
func (s *TransactionService) CreateTransaction(workspaceID int32, input TransactionInput) (*domain.Transaction, error) {
	name, err := s.validate(workspaceID, input)
	if err != nil {
		return nil, err
	}

	tx := s.build(workspaceID, name, input)

	var created *domain.Transaction
	err = s.ledger.Exclusive(ledger.AccountIDs(tx), func() error {
		sortOrder, err := s.transactionRepo.NextSortOrder(workspaceID, tx.TransactionDate)
		if err != nil {
			return err
		}
		tx.SortOrder = sortOrder

		if err := s.ledger.Apply(tx); err != nil {
			return err
		}
		created, err = s.transactionRepo.Create(tx)
		if err != nil {
			// Persist failed after the balances moved: undo the effect so
			// the operation leaves no partial state behind.
			_ = s.ledger.Reverse(tx)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(workspaceID, event.TransactionCreated(created))
	return created, nil
}

// UpdateTransaction reconciles an edit: the previously persisted state is
// reversed before the new state is applied, so changes to amount, type, or
// accounts never double-count.
func (s *TransactionService) UpdateTransaction(workspaceID int32, id int32, input TransactionInput) (*domain.Transaction, error) {
	name, err := s.validate(workspaceID, input)
	if err != nil {
		return nil, err
	}

	old, err := s.transactionRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	updated := s.build(workspaceID, name, input)
	updated.ID = id
	updated.SortOrder = old.SortOrder
	updated.ReceiptKey = old.ReceiptKey

	var saved *domain.Transaction
	err = s.ledger.Exclusive(ledger.AccountIDs(old, updated), func() error {
		if err := s.ledger.Reverse(old); err != nil {
			return err
		}
		if err := s.ledger.Apply(updated); err != nil {
			return err
		}
		saved, err = s.transactionRepo.Update(workspaceID, id, updated)
		if err != nil {
			// Roll the balances back to the persisted state.
			_ = s.ledger.Reverse(updated)
			_ = s.ledger.Apply(old)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(workspaceID, event.TransactionUpdated(saved))
	return saved, nil
}

// SaveTransaction creates when id is zero and updates otherwise.
func (s *TransactionService) SaveTransaction(workspaceID int32, id int32, input TransactionInput) (*domain.Transaction, error) {
	if id == 0 {
		return s.CreateTransaction(workspaceID, input)
	}
	return s.UpdateTransaction(workspaceID, id, input)
}

// DeleteTransaction reverses the balance effect and removes the record.
func (s *TransactionService) DeleteTransaction(workspaceID int32, id int32) error {
	old, err := s.transactionRepo.GetByID(workspaceID, id)
	if err != nil {
		return err
	}

	err = s.ledger.Exclusive(ledger.AccountIDs(old), func() error {
		if err := s.ledger.Reverse(old); err != nil {
			return err
		}
		if err := s.transactionRepo.Delete(workspaceID, id); err != nil {
			_ = s.ledger.Apply(old)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(workspaceID, event.TransactionDeleted(old))
	return nil
}

// GetTransactions retrieves transactions with optional filters and pagination
func (s *TransactionService) GetTransactions(workspaceID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	return s.transactionRepo.GetByWorkspace(workspaceID, filters)
}

// GetTransactionByID retrieves a transaction by ID within a workspace
func (s *TransactionService) GetTransactionByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(workspaceID, id)
}
