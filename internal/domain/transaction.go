package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// ValidTransactionTypes is the set of accepted transaction types
var ValidTransactionTypes = map[TransactionType]bool{
	TransactionTypeIncome:   true,
	TransactionTypeExpense:  true,
	TransactionTypeTransfer: true,
}

type TransactionStatus string

const (
	// TransactionStatusCompleted is the only status the save path ever
	// writes; there is no pending or void state.
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is one money movement. FromAccountID carries the outgoing
// side (expense, transfer), ToAccountID the incoming side (income,
// transfer); the side a type does not use stays nil. A nil side on a type
// that would use it is accepted and simply has no balance effect.
type Transaction struct {
	ID              int32             `json:"id"`
	WorkspaceID     int32             `json:"workspaceId"`
	Name            string            `json:"name"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	FromAccountID   *int32            `json:"fromAccountId,omitempty"`
	ToAccountID     *int32            `json:"toAccountId,omitempty"`
	CategoryID      *int32            `json:"categoryId,omitempty"`
	Payee           *string           `json:"payee,omitempty"`
	Memo            *string           `json:"memo,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Asset           *string           `json:"asset,omitempty"`
	Units           *decimal.Decimal  `json:"units,omitempty"`
	TransactionDate time.Time         `json:"transactionDate"`
	SortOrder       int32             `json:"sortOrder"`
	Status          TransactionStatus `json:"status"`
	ReceiptKey      *string           `json:"receiptKey,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type TransactionFilters struct {
	AccountID *int32
	StartDate *time.Time
	EndDate   *time.Time
	Type      *TransactionType
	Page      int32
	PageSize  int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

type TransactionRepository interface {
	Create(transaction *Transaction) (*Transaction, error)
	GetByID(workspaceID int32, id int32) (*Transaction, error)
	GetByWorkspace(workspaceID int32, filters *TransactionFilters) (*PaginatedTransactions, error)
	Update(workspaceID int32, id int32, transaction *Transaction) (*Transaction, error)
	// Delete removes the row; the ledger has already reversed its effect.
	Delete(workspaceID int32, id int32) error
	// NextSortOrder returns the next same-day tie-break value.
	NextSortOrder(workspaceID int32, date time.Time) (int32, error)
	SetReceiptKey(workspaceID int32, id int32, key *string) (*Transaction, error)
}
