package ledger

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/testutil"
)

func int32p(v int32) *int32 { return &v }

func newAccount(repo *testutil.MockAccountRepository, id int32, balance int64) {
	bal := decimal.NewFromInt(balance)
	repo.AddAccount(&domain.Account{
		ID:           id,
		WorkspaceID:  1,
		Name:         "Account",
		AccountType:  domain.AccountTypeBank,
		Currency:     "EUR",
		StartBalance: bal,
		Balance:      bal,
	})
}

func TestApply_Expense(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 1000)
	l := New(accountRepo)

	tx := &domain.Transaction{
		WorkspaceID:   1,
		Type:          domain.TransactionTypeExpense,
		Amount:        decimal.NewFromInt(200),
		FromAccountID: int32p(1),
	}

	if err := l.Apply(tx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !accountRepo.Balance(1).Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected balance 800, got %s", accountRepo.Balance(1))
	}
}

func TestApply_Income(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 1000)
	l := New(accountRepo)

	tx := &domain.Transaction{
		WorkspaceID: 1,
		Type:        domain.TransactionTypeIncome,
		Amount:      decimal.NewFromInt(150),
		ToAccountID: int32p(1),
	}

	if err := l.Apply(tx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !accountRepo.Balance(1).Equal(decimal.NewFromInt(1150)) {
		t.Errorf("Expected balance 1150, got %s", accountRepo.Balance(1))
	}
}

func TestApply_Transfer_BothSides(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 500)
	newAccount(accountRepo, 2, 200)
	l := New(accountRepo)

	tx := &domain.Transaction{
		WorkspaceID:   1,
		Type:          domain.TransactionTypeTransfer,
		Amount:        decimal.NewFromInt(100),
		FromAccountID: int32p(1),
		ToAccountID:   int32p(2),
	}

	if err := l.Apply(tx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !accountRepo.Balance(1).Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected from balance 400, got %s", accountRepo.Balance(1))
	}
	if !accountRepo.Balance(2).Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected to balance 300, got %s", accountRepo.Balance(2))
	}
}

func TestApplyReverse_Identity(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 500)
	newAccount(accountRepo, 2, 200)
	l := New(accountRepo)

	txs := []*domain.Transaction{
		{WorkspaceID: 1, Type: domain.TransactionTypeExpense, Amount: decimal.RequireFromString("33.37"), FromAccountID: int32p(1)},
		{WorkspaceID: 1, Type: domain.TransactionTypeIncome, Amount: decimal.RequireFromString("0.01"), ToAccountID: int32p(2)},
		{WorkspaceID: 1, Type: domain.TransactionTypeTransfer, Amount: decimal.RequireFromString("123.45"), FromAccountID: int32p(1), ToAccountID: int32p(2)},
	}

	for _, tx := range txs {
		before1 := accountRepo.Balance(1)
		before2 := accountRepo.Balance(2)

		if err := l.Apply(tx); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := l.Reverse(tx); err != nil {
			t.Fatalf("reverse: %v", err)
		}

		if !accountRepo.Balance(1).Equal(before1) {
			t.Errorf("account 1: expected %s after reverse, got %s", before1, accountRepo.Balance(1))
		}
		if !accountRepo.Balance(2).Equal(before2) {
			t.Errorf("account 2: expected %s after reverse, got %s", before2, accountRepo.Balance(2))
		}
	}
}

func TestApply_NilAccountSide_NoOp(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 500)
	l := New(accountRepo)

	// Expense without a from account: persisted elsewhere, no balance effect.
	tx := &domain.Transaction{
		WorkspaceID: 1,
		Type:        domain.TransactionTypeExpense,
		Amount:      decimal.NewFromInt(100),
	}
	if err := l.Apply(tx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !accountRepo.Balance(1).Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected balance unchanged, got %s", accountRepo.Balance(1))
	}

	// Transfer whose counterpart account was deleted: only the live side moves.
	tx = &domain.Transaction{
		WorkspaceID:   1,
		Type:          domain.TransactionTypeTransfer,
		Amount:        decimal.NewFromInt(50),
		FromAccountID: int32p(1),
		ToAccountID:   int32p(99),
	}
	if err := l.Apply(tx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !accountRepo.Balance(1).Equal(decimal.NewFromInt(450)) {
		t.Errorf("Expected balance 450, got %s", accountRepo.Balance(1))
	}
}

func TestExclusive_SerializesSameAccount(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 0)
	l := New(accountRepo)

	tx := &domain.Transaction{
		WorkspaceID: 1,
		Type:        domain.TransactionTypeIncome,
		Amount:      decimal.NewFromInt(1),
		ToAccountID: int32p(1),
	}

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = l.Exclusive([]int32{1}, func() error {
					return l.Apply(tx)
				})
			}
		}()
	}
	wg.Wait()

	want := decimal.NewFromInt(workers * perWorker)
	if !accountRepo.Balance(1).Equal(want) {
		t.Errorf("Expected balance %s, got %s (lost update)", want, accountRepo.Balance(1))
	}
}

func TestExclusive_DisjointAccountsDoNotBlock(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	newAccount(accountRepo, 1, 0)
	newAccount(accountRepo, 2, 0)
	l := New(accountRepo)

	// Overlapping id sets locked in opposite order must not deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Exclusive([]int32{1, 2}, func() error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = l.Exclusive([]int32{2, 1}, func() error { return nil })
		}()
	}
	wg.Wait()
}

func TestAccountIDs(t *testing.T) {
	old := &domain.Transaction{FromAccountID: int32p(1), ToAccountID: int32p(2)}
	updated := &domain.Transaction{FromAccountID: int32p(2), ToAccountID: int32p(3)}

	ids := AccountIDs(old, updated, nil)
	if len(ids) != 3 {
		t.Fatalf("Expected 3 distinct ids, got %v", ids)
	}
	seen := map[int32]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []int32{1, 2, 3} {
		if !seen[want] {
			t.Errorf("Expected id %d in %v", want, ids)
		}
	}
}
