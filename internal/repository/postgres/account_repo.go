package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, workspace_id, name, account_type, currency, start_balance, balance, created_at, updated_at, deleted_at`

// Create creates a new account
func (r *AccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	ctx := context.Background()

	startBalance, err := decimalToPgNumeric(account.StartBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid start balance: %w", err)
	}
	balance, err := decimalToPgNumeric(account.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (workspace_id, name, account_type, currency, start_balance, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		account.WorkspaceID, account.Name, string(account.AccountType),
		account.Currency, startBalance, balance,
	)
	return scanAccount(row)
}

// GetByID retrieves an account by ID within a workspace
func (r *AccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL`,
		id, workspaceID,
	)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// GetAllByWorkspace retrieves all accounts for a workspace
func (r *AccountRepository) GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	ctx := context.Background()

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE workspace_id = $1`
	if !includeArchived {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update updates an account's name
func (r *AccountRepository) Update(workspaceID int32, id int32, name string) (*domain.Account, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET name = $3, updated_at = now()
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		id, workspaceID, name,
	)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// UpdateBalance writes a new running balance. Callers serialize access per
// account; this is a blind write.
func (r *AccountRepository) UpdateBalance(workspaceID int32, id int32, balance decimal.Decimal) (*domain.Account, error) {
	ctx := context.Background()

	num, err := decimalToPgNumeric(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET balance = $3, updated_at = now()
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		id, workspaceID, num,
	)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// SoftDelete marks an account deleted without touching its transactions
func (r *AccountRepository) SoftDelete(workspaceID int32, id int32) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL`,
		id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account      domain.Account
		accountType  string
		startBalance pgtype.Numeric
		balance      pgtype.Numeric
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
		deletedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&account.ID, &account.WorkspaceID, &account.Name, &accountType,
		&account.Currency, &startBalance, &balance, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	account.AccountType = domain.AccountType(accountType)
	account.StartBalance = pgNumericToDecimal(startBalance)
	account.Balance = pgNumericToDecimal(balance)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time
	account.DeletedAt = timestampToPtr(deletedAt)
	return &account, nil
}
