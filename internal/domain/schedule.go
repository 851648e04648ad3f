package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/recurrence"
)

// ScheduledTransaction is a template for future transactions. It carries the
// same money fields as Transaction but no status or sort order: the posted
// transaction gets its own. Posting or skipping advances NextOccurrence;
// nothing ever disables or deletes a template automatically.
type ScheduledTransaction struct {
	ID              int32              `json:"id"`
	WorkspaceID     int32              `json:"workspaceId"`
	Name            string             `json:"name"`
	Type            TransactionType    `json:"type"`
	Amount          decimal.Decimal    `json:"amount"`
	FromAccountID   *int32             `json:"fromAccountId,omitempty"`
	ToAccountID     *int32             `json:"toAccountId,omitempty"`
	CategoryID      *int32             `json:"categoryId,omitempty"`
	Payee           *string            `json:"payee,omitempty"`
	Memo            *string            `json:"memo,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Asset           *string            `json:"asset,omitempty"`
	Units           *decimal.Decimal   `json:"units,omitempty"`
	NextOccurrence  time.Time          `json:"nextOccurrence"`
	Pattern         recurrence.Pattern `json:"pattern"`
	RecurrenceValue int32              `json:"recurrenceValue"`
	Enabled         bool               `json:"enabled"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type ScheduleRepository interface {
	Create(schedule *ScheduledTransaction) (*ScheduledTransaction, error)
	GetByID(workspaceID int32, id int32) (*ScheduledTransaction, error)
	ListByWorkspace(workspaceID int32, enabledOnly *bool) ([]*ScheduledTransaction, error)
	Update(schedule *ScheduledTransaction) (*ScheduledTransaction, error)
	Delete(workspaceID int32, id int32) error
}
