package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, workspace_id, name, type, amount, from_account_id, to_account_id,
	category_id, payee, memo, tags, asset, units, transaction_date, sort_order, status,
	receipt_key, created_at, updated_at`

// Create creates a new transaction
func (r *TransactionRepository) Create(tx *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	units, err := decimalPtrToPgNumeric(tx.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid units: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (workspace_id, name, type, amount, from_account_id, to_account_id,
			category_id, payee, memo, tags, asset, units, transaction_date, sort_order, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+transactionColumns,
		tx.WorkspaceID, tx.Name, string(tx.Type), amount,
		int4Ptr(tx.FromAccountID), int4Ptr(tx.ToAccountID), int4Ptr(tx.CategoryID),
		textPtr(tx.Payee), textPtr(tx.Memo), tx.Tags, textPtr(tx.Asset), units,
		tx.TransactionDate, tx.SortOrder, string(tx.Status),
	)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by ID within a workspace
func (r *TransactionRepository) GetByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, err
}

// GetByWorkspace retrieves transactions with filters and pagination
func (r *TransactionRepository) GetByWorkspace(workspaceID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	ctx := context.Background()

	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	where := `WHERE workspace_id = $1`
	args := []any{workspaceID}
	if filters.AccountID != nil {
		args = append(args, *filters.AccountID)
		where += fmt.Sprintf(` AND (from_account_id = $%d OR to_account_id = $%d)`, len(args), len(args))
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		where += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		where += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
	}
	if filters.Type != nil {
		args = append(args, string(*filters.Type))
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}

	var totalItems int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM transactions `+where, args...).Scan(&totalItems); err != nil {
		return nil, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions `+where+`
		ORDER BY transaction_date DESC, sort_order DESC, id DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int32((totalItems + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// Update replaces a transaction's fields
func (r *TransactionRepository) Update(workspaceID int32, id int32, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	units, err := decimalPtrToPgNumeric(tx.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid units: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET name = $3, type = $4, amount = $5, from_account_id = $6, to_account_id = $7,
			category_id = $8, payee = $9, memo = $10, tags = $11, asset = $12, units = $13,
			transaction_date = $14, status = $15, updated_at = now()
		WHERE id = $1 AND workspace_id = $2
		RETURNING `+transactionColumns,
		id, workspaceID, tx.Name, string(tx.Type), amount,
		int4Ptr(tx.FromAccountID), int4Ptr(tx.ToAccountID), int4Ptr(tx.CategoryID),
		textPtr(tx.Payee), textPtr(tx.Memo), tx.Tags, textPtr(tx.Asset), units,
		tx.TransactionDate, string(tx.Status),
	)
	updated, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return updated, err
}

// Delete removes a transaction row
func (r *TransactionRepository) Delete(workspaceID int32, id int32) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM transactions
		WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// NextSortOrder returns the next same-day tie-break value
func (r *TransactionRepository) NextSortOrder(workspaceID int32, date time.Time) (int32, error) {
	ctx := context.Background()

	var next int32
	err := r.pool.QueryRow(ctx, `
		SELECT coalesce(max(sort_order), 0) + 1
		FROM transactions
		WHERE workspace_id = $1 AND transaction_date::date = $2::date`,
		workspaceID, date,
	).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// SetReceiptKey stores (or clears) a receipt object key on a transaction
func (r *TransactionRepository) SetReceiptKey(workspaceID int32, id int32, key *string) (*domain.Transaction, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET receipt_key = $3, updated_at = now()
		WHERE id = $1 AND workspace_id = $2
		RETURNING `+transactionColumns,
		id, workspaceID, textPtr(key),
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx            domain.Transaction
		txType        string
		amount        pgtype.Numeric
		fromAccountID pgtype.Int4
		toAccountID   pgtype.Int4
		categoryID    pgtype.Int4
		payee         pgtype.Text
		memo          pgtype.Text
		asset         pgtype.Text
		units         pgtype.Numeric
		status        string
		receiptKey    pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	err := row.Scan(
		&tx.ID, &tx.WorkspaceID, &tx.Name, &txType, &amount,
		&fromAccountID, &toAccountID, &categoryID, &payee, &memo, &tx.Tags,
		&asset, &units, &tx.TransactionDate, &tx.SortOrder, &status,
		&receiptKey, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(txType)
	tx.Amount = pgNumericToDecimal(amount)
	tx.FromAccountID = int4ToPtr(fromAccountID)
	tx.ToAccountID = int4ToPtr(toAccountID)
	tx.CategoryID = int4ToPtr(categoryID)
	tx.Payee = textToPtr(payee)
	tx.Memo = textToPtr(memo)
	tx.Asset = textToPtr(asset)
	tx.Units = pgNumericPtrToDecimal(units)
	tx.Status = domain.TransactionStatus(status)
	tx.ReceiptKey = textToPtr(receiptKey)
	tx.CreatedAt = createdAt.Time
	tx.UpdatedAt = updatedAt.Time
	return &tx, nil
}
