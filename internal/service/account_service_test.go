package service

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/event"
	"github.com/tallyapp/tally-backend/internal/ledger"
	"github.com/tallyapp/tally-backend/internal/testutil"
)

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *eventRecorder) Publish(workspaceID int32, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func TestCreateAccount_Success(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	svc := NewAccountService(accountRepo, nil)

	account, err := svc.CreateAccount(1, CreateAccountInput{
		Name:         "  Checking  ",
		AccountType:  domain.AccountTypeBank,
		Currency:     "usd",
		StartBalance: decimal.RequireFromString("1500"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if account.Name != "Checking" {
		t.Errorf("Expected trimmed name 'Checking', got %q", account.Name)
	}
	if account.Currency != "USD" {
		t.Errorf("Expected currency USD, got %s", account.Currency)
	}
	if !account.Balance.Equal(account.StartBalance) {
		t.Errorf("Expected balance to start at %s, got %s", account.StartBalance, account.Balance)
	}
}

func TestCreateAccount_DefaultCurrency(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	svc := NewAccountService(accountRepo, nil)

	account, err := svc.CreateAccount(1, CreateAccountInput{
		Name:        "Wallet",
		AccountType: domain.AccountTypeCash,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if account.Currency != "EUR" {
		t.Errorf("Expected default currency EUR, got %s", account.Currency)
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	svc := NewAccountService(accountRepo, nil)

	if _, err := svc.CreateAccount(1, CreateAccountInput{
		Name:        "   ",
		AccountType: domain.AccountTypeBank,
	}); !errors.Is(err, domain.ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}

	if _, err := svc.CreateAccount(1, CreateAccountInput{
		Name:        strings.Repeat("x", domain.MaxAccountNameLength+1),
		AccountType: domain.AccountTypeBank,
	}); !errors.Is(err, domain.ErrNameTooLong) {
		t.Errorf("Expected ErrNameTooLong, got %v", err)
	}

	if _, err := svc.CreateAccount(1, CreateAccountInput{
		Name:        "Checking",
		AccountType: domain.AccountType("brokerage"),
	}); !errors.Is(err, domain.ErrInvalidAccountType) {
		t.Errorf("Expected ErrInvalidAccountType, got %v", err)
	}
}

func TestDeleteAccount_SoftDeleteLeavesTransactionsIntact(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	ldg := ledger.New(accountRepo)
	accounts := NewAccountService(accountRepo, nil)
	transactions := NewTransactionService(transactionRepo, accountRepo, ldg, nil)

	account, err := accounts.CreateAccount(1, CreateAccountInput{
		Name:         "Checking",
		AccountType:  domain.AccountTypeBank,
		StartBalance: decimal.RequireFromString("1000"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tx, err := transactions.CreateTransaction(1, TransactionInput{
		Name:          "Groceries",
		Type:          domain.TransactionTypeExpense,
		Amount:        decimal.RequireFromString("200"),
		FromAccountID: &account.ID,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := accounts.DeleteAccount(1, account.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := accounts.GetAccountByID(1, account.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("Expected deleted account hidden, got %v", err)
	}

	// The row survives; deleting the transaction afterwards is a no-op on
	// the vanished account side rather than an error.
	if err := transactions.DeleteTransaction(1, tx.ID); err != nil {
		t.Errorf("Expected delete to succeed against archived account, got %v", err)
	}
}

func TestGetAccounts_IncludeArchived(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	svc := NewAccountService(accountRepo, nil)

	a, err := svc.CreateAccount(1, CreateAccountInput{Name: "Active", AccountType: domain.AccountTypeBank})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := svc.CreateAccount(1, CreateAccountInput{Name: "Archived", AccountType: domain.AccountTypeBank})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.DeleteAccount(1, b.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	visible, err := svc.GetAccounts(1, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(visible) != 1 || visible[0].ID != a.ID {
		t.Errorf("Expected only the active account, got %d accounts", len(visible))
	}

	all, err := svc.GetAccounts(1, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected both accounts with archived included, got %d", len(all))
	}
}

func TestUpdateAccount_RenamesOnly(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	svc := NewAccountService(accountRepo, nil)

	account, err := svc.CreateAccount(1, CreateAccountInput{
		Name:         "Checking",
		AccountType:  domain.AccountTypeBank,
		StartBalance: decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	updated, err := svc.UpdateAccount(1, account.ID, "Main checking")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Name != "Main checking" {
		t.Errorf("Expected renamed account, got %s", updated.Name)
	}
	if !updated.Balance.Equal(account.Balance) {
		t.Errorf("Expected balance untouched, got %s", updated.Balance)
	}
}

func TestAccountEvents_PublishedOnRenameAndDelete(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	recorder := &eventRecorder{}
	svc := NewAccountService(accountRepo, recorder)

	account, err := svc.CreateAccount(1, CreateAccountInput{Name: "Checking", AccountType: domain.AccountTypeBank})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := svc.UpdateAccount(1, account.ID, "Main checking"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.DeleteAccount(1, account.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	types := recorder.types()
	if len(types) != 2 || types[0] != "account.updated" || types[1] != "account.deleted" {
		t.Errorf("Expected [account.updated account.deleted], got %v", types)
	}

	// A failed rename publishes nothing.
	if _, err := svc.UpdateAccount(1, account.ID+99, "Ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Expected ErrAccountNotFound, got %v", err)
	}
	if got := len(recorder.types()); got != 2 {
		t.Errorf("Expected no event from failed rename, got %d events", got)
	}
}
