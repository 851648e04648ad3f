package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeAsset      AccountType = "asset"
	AccountTypeCreditCard AccountType = "credit_card"
)

// ValidAccountTypes is the set of accepted account types
var ValidAccountTypes = map[AccountType]bool{
	AccountTypeBank:       true,
	AccountTypeCash:       true,
	AccountTypeAsset:      true,
	AccountTypeCreditCard: true,
}

// Account holds a running balance. StartBalance is the immutable baseline
// set at creation; Balance is mutated exclusively by the ledger, so that at
// any quiescent point Balance equals StartBalance plus the signed effect of
// every transaction currently applied against the account.
type Account struct {
	ID           int32           `json:"id"`
	WorkspaceID  int32           `json:"workspaceId"`
	Name         string          `json:"name"`
	AccountType  AccountType     `json:"accountType"`
	Currency     string          `json:"currency"`
	StartBalance decimal.Decimal `json:"startBalance"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	DeletedAt    *time.Time      `json:"deletedAt,omitempty"`
}

type AccountRepository interface {
	Create(account *Account) (*Account, error)
	GetByID(workspaceID int32, id int32) (*Account, error)
	GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*Account, error)
	Update(workspaceID int32, id int32, name string) (*Account, error)
	// UpdateBalance writes a new balance. Callers must hold the ledger's
	// per-account lock; this is a blind write, not a compare-and-swap.
	UpdateBalance(workspaceID int32, id int32, balance decimal.Decimal) (*Account, error)
	SoftDelete(workspaceID int32, id int32) error
}
