// Package ledger owns every account balance mutation. No other component
// may write a balance.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// Ledger applies and reverses the balance effect of transactions. Both
// directions share one signed-entry table, so they cannot drift apart.
type Ledger struct {
	accounts domain.AccountRepository
	locks    *lockTable
}

// New creates a Ledger over the given account store.
func New(accounts domain.AccountRepository) *Ledger {
	return &Ledger{
		accounts: accounts,
		locks:    newLockTable(),
	}
}

// entry is one signed balance effect of a transaction.
type entry struct {
	accountID *int32
	sign      int64
}

// entries returns the signed effects of tx when applied. Reversal negates
// the same table.
func entries(tx *domain.Transaction) []entry {
	switch tx.Type {
	case domain.TransactionTypeExpense:
		return []entry{{tx.FromAccountID, -1}}
	case domain.TransactionTypeIncome:
		return []entry{{tx.ToAccountID, +1}}
	case domain.TransactionTypeTransfer:
		return []entry{
			{tx.FromAccountID, -1},
			{tx.ToAccountID, +1},
		}
	}
	return nil
}

// Apply adds the balance effect of tx to its accounts. The caller must hold
// the relevant account locks via Exclusive.
func (l *Ledger) Apply(tx *domain.Transaction) error {
	return l.mutate(tx, 1)
}

// Reverse undoes the balance effect of tx. It must be called with the
// previously persisted state of the transaction, before any field mutation,
// so edits reconcile as reverse(old) then apply(new).
func (l *Ledger) Reverse(tx *domain.Transaction) error {
	return l.mutate(tx, -1)
}

func (l *Ledger) mutate(tx *domain.Transaction, direction int64) error {
	for _, e := range entries(tx) {
		// A side with no account has no balance effect. A side whose
		// account no longer resolves is likewise a no-op: the counterpart
		// account may have been deleted after the transaction was saved.
		if e.accountID == nil {
			continue
		}
		account, err := l.accounts.GetByID(tx.WorkspaceID, *e.accountID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				continue
			}
			return err
		}
		delta := tx.Amount.Mul(decimal.NewFromInt(e.sign * direction))
		if _, err := l.accounts.UpdateBalance(tx.WorkspaceID, account.ID, account.Balance.Add(delta)); err != nil {
			return err
		}
	}
	return nil
}

// AccountIDs collects the distinct account ids touched by the given
// transactions, for handing to Exclusive.
func AccountIDs(txs ...*domain.Transaction) []int32 {
	seen := make(map[int32]bool)
	var ids []int32
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		for _, id := range []*int32{tx.FromAccountID, tx.ToAccountID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	return ids
}
