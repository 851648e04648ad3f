// Package testutil provides hand-written mock repositories for service and
// ledger tests.
package testutil

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// MockAccountRepository is a map-backed implementation of
// domain.AccountRepository. It is safe for concurrent use so tests can
// exercise the ledger's locking.
type MockAccountRepository struct {
	mu       sync.Mutex
	Accounts map[int32]*domain.Account
	NextID   int32
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int32]*domain.Account),
		NextID:   1,
	}
}

// AddAccount adds an account to the mock repository (helper for tests)
func (m *MockAccountRepository) AddAccount(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == 0 {
		account.ID = m.NextID
	}
	if account.ID >= m.NextID {
		m.NextID = account.ID + 1
	}
	m.Accounts[account.ID] = account
}

// Create creates a new account
func (m *MockAccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account.ID = m.NextID
	m.NextID++
	account.Balance = account.StartBalance
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.Accounts[account.ID] = account
	return clone(account), nil
}

// GetByID retrieves an account by ID within a workspace
func (m *MockAccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	return clone(account), nil
}

// GetAllByWorkspace retrieves all accounts for a workspace
func (m *MockAccountRepository) GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Account
	for _, account := range m.Accounts {
		if account.WorkspaceID != workspaceID {
			continue
		}
		if account.DeletedAt != nil && !includeArchived {
			continue
		}
		result = append(result, clone(account))
	}
	return result, nil
}

// Update updates an account's name
func (m *MockAccountRepository) Update(workspaceID int32, id int32, name string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	account.Name = name
	account.UpdatedAt = time.Now()
	return clone(account), nil
}

// UpdateBalance writes a new balance
func (m *MockAccountRepository) UpdateBalance(workspaceID int32, id int32, balance decimal.Decimal) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	return clone(account), nil
}

// SoftDelete marks an account deleted
func (m *MockAccountRepository) SoftDelete(workspaceID int32, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return domain.ErrAccountNotFound
	}
	now := time.Now()
	account.DeletedAt = &now
	return nil
}

// Balance returns the current balance of an account (helper for tests)
func (m *MockAccountRepository) Balance(id int32) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.Accounts[id]; ok {
		return account.Balance
	}
	return decimal.Zero
}

func clone(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

// MockTransactionRepository is a map-backed implementation of
// domain.TransactionRepository
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions map[int32]*domain.Transaction
	NextID       int32
	CreateErr    error
	UpdateErr    error
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// Create creates a new transaction
func (m *MockTransactionRepository) Create(tx *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	tx.ID = m.NextID
	m.NextID++
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	m.Transactions[tx.ID] = cloneTx(tx)
	return cloneTx(tx), nil
}

// GetByID retrieves a transaction by ID within a workspace
func (m *MockTransactionRepository) GetByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.WorkspaceID != workspaceID {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTx(tx), nil
}

// GetByWorkspace retrieves transactions with filters and pagination
func (m *MockTransactionRepository) GetByWorkspace(workspaceID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var data []*domain.Transaction
	for _, tx := range m.Transactions {
		if tx.WorkspaceID != workspaceID {
			continue
		}
		data = append(data, cloneTx(tx))
	}
	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       1,
		PageSize:   int32(len(data)),
		TotalItems: int64(len(data)),
		TotalPages: 1,
	}, nil
}

// Update replaces a transaction's fields
func (m *MockTransactionRepository) Update(workspaceID int32, id int32, tx *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	existing, ok := m.Transactions[id]
	if !ok || existing.WorkspaceID != workspaceID {
		return nil, domain.ErrTransactionNotFound
	}
	updated := cloneTx(tx)
	updated.ID = id
	updated.WorkspaceID = workspaceID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	m.Transactions[id] = updated
	return cloneTx(updated), nil
}

// Delete removes a transaction
func (m *MockTransactionRepository) Delete(workspaceID int32, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.WorkspaceID != workspaceID {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

// NextSortOrder returns the next same-day sort order
func (m *MockTransactionRepository) NextSortOrder(workspaceID int32, date time.Time) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int32
	y, mo, d := date.Date()
	for _, tx := range m.Transactions {
		ty, tmo, td := tx.TransactionDate.Date()
		if tx.WorkspaceID == workspaceID && ty == y && tmo == mo && td == d && tx.SortOrder > max {
			max = tx.SortOrder
		}
	}
	return max + 1, nil
}

// SetReceiptKey stores a receipt object key on a transaction
func (m *MockTransactionRepository) SetReceiptKey(workspaceID int32, id int32, key *string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.WorkspaceID != workspaceID {
		return nil, domain.ErrTransactionNotFound
	}
	tx.ReceiptKey = key
	tx.UpdatedAt = time.Now()
	return cloneTx(tx), nil
}

func cloneTx(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// MockScheduleRepository is a map-backed implementation of
// domain.ScheduleRepository
type MockScheduleRepository struct {
	mu        sync.Mutex
	Schedules map[int32]*domain.ScheduledTransaction
	NextID    int32
	UpdateErr error
}

// NewMockScheduleRepository creates a new MockScheduleRepository
func NewMockScheduleRepository() *MockScheduleRepository {
	return &MockScheduleRepository{
		Schedules: make(map[int32]*domain.ScheduledTransaction),
		NextID:    1,
	}
}

// AddSchedule adds a schedule to the mock repository (helper for tests)
func (m *MockScheduleRepository) AddSchedule(s *domain.ScheduledTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.NextID
	}
	if s.ID >= m.NextID {
		m.NextID = s.ID + 1
	}
	m.Schedules[s.ID] = s
}

// Create creates a new schedule
func (m *MockScheduleRepository) Create(s *domain.ScheduledTransaction) (*domain.ScheduledTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.NextID
	m.NextID++
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.Schedules[s.ID] = cloneSchedule(s)
	return cloneSchedule(s), nil
}

// GetByID retrieves a schedule by ID within a workspace
func (m *MockScheduleRepository) GetByID(workspaceID int32, id int32) (*domain.ScheduledTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schedules[id]
	if !ok || s.WorkspaceID != workspaceID {
		return nil, domain.ErrScheduleNotFound
	}
	return cloneSchedule(s), nil
}

// ListByWorkspace retrieves schedules, optionally only enabled ones
func (m *MockScheduleRepository) ListByWorkspace(workspaceID int32, enabledOnly *bool) ([]*domain.ScheduledTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.ScheduledTransaction
	for _, s := range m.Schedules {
		if s.WorkspaceID != workspaceID {
			continue
		}
		if enabledOnly != nil && *enabledOnly && !s.Enabled {
			continue
		}
		result = append(result, cloneSchedule(s))
	}
	return result, nil
}

// Update replaces a schedule
func (m *MockScheduleRepository) Update(s *domain.ScheduledTransaction) (*domain.ScheduledTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	existing, ok := m.Schedules[s.ID]
	if !ok || existing.WorkspaceID != s.WorkspaceID {
		return nil, domain.ErrScheduleNotFound
	}
	updated := cloneSchedule(s)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	m.Schedules[s.ID] = updated
	return cloneSchedule(updated), nil
}

// Delete removes a schedule
func (m *MockScheduleRepository) Delete(workspaceID int32, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schedules[id]
	if !ok || s.WorkspaceID != workspaceID {
		return domain.ErrScheduleNotFound
	}
	delete(m.Schedules, id)
	return nil
}

// Stored returns the persisted state of a schedule (helper for tests)
func (m *MockScheduleRepository) Stored(id int32) *domain.ScheduledTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Schedules[id]; ok {
		return cloneSchedule(s)
	}
	return nil
}

func cloneSchedule(s *domain.ScheduledTransaction) *domain.ScheduledTransaction {
	c := *s
	if s.Tags != nil {
		c.Tags = append([]string(nil), s.Tags...)
	}
	return &c
}

// MockAPITokenRepository is a map-backed implementation of
// domain.APITokenRepository
type MockAPITokenRepository struct {
	mu     sync.Mutex
	Tokens map[uuid.UUID]*domain.APIToken
}

// NewMockAPITokenRepository creates a new MockAPITokenRepository
func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{Tokens: make(map[uuid.UUID]*domain.APIToken)}
}

// Create stores a new token
func (m *MockAPITokenRepository) Create(token *domain.APIToken) (*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	m.Tokens[token.ID] = token
	return token, nil
}

// GetByHash returns a non-revoked token matching the hash
func (m *MockAPITokenRepository) GetByHash(hash string) (*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tokens {
		if t.TokenHash == hash && t.RevokedAt == nil {
			return t, nil
		}
	}
	return nil, domain.ErrAPITokenNotFound
}

// ListByWorkspace returns tokens for a workspace
func (m *MockAPITokenRepository) ListByWorkspace(workspaceID int32) ([]*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.APIToken
	for _, t := range m.Tokens {
		if t.WorkspaceID == workspaceID {
			result = append(result, t)
		}
	}
	return result, nil
}

// Revoke marks a token revoked
func (m *MockAPITokenRepository) Revoke(workspaceID int32, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tokens[id]
	if !ok || t.WorkspaceID != workspaceID || t.RevokedAt != nil {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

// TouchLastUsed records token usage
func (m *MockAPITokenRepository) TouchLastUsed(id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tokens[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}
