package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/recurrence"
)

// ScheduleRepository implements domain.ScheduleRepository using PostgreSQL
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = `id, workspace_id, name, type, amount, from_account_id, to_account_id,
	category_id, payee, memo, tags, asset, units, next_occurrence, pattern, recurrence_value,
	enabled, created_at, updated_at`

// Create creates a new scheduled transaction template
func (r *ScheduleRepository) Create(s *domain.ScheduledTransaction) (*domain.ScheduledTransaction, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	units, err := decimalPtrToPgNumeric(s.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid units: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_transactions (workspace_id, name, type, amount, from_account_id,
			to_account_id, category_id, payee, memo, tags, asset, units, next_occurrence,
			pattern, recurrence_value, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+scheduleColumns,
		s.WorkspaceID, s.Name, string(s.Type), amount,
		int4Ptr(s.FromAccountID), int4Ptr(s.ToAccountID), int4Ptr(s.CategoryID),
		textPtr(s.Payee), textPtr(s.Memo), s.Tags, textPtr(s.Asset), units,
		s.NextOccurrence, string(s.Pattern), s.RecurrenceValue, s.Enabled,
	)
	return scanSchedule(row)
}

// GetByID retrieves a template by ID within a workspace
func (r *ScheduleRepository) GetByID(workspaceID int32, id int32) (*domain.ScheduledTransaction, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_transactions
		WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	s, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	return s, err
}

// ListByWorkspace retrieves templates, optionally only enabled ones
func (r *ScheduleRepository) ListByWorkspace(workspaceID int32, enabledOnly *bool) ([]*domain.ScheduledTransaction, error) {
	ctx := context.Background()

	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_transactions
		WHERE workspace_id = $1`
	if enabledOnly != nil && *enabledOnly {
		query += ` AND enabled`
	}
	query += ` ORDER BY next_occurrence, id`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*domain.ScheduledTransaction
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Update replaces a template's fields
func (r *ScheduleRepository) Update(s *domain.ScheduledTransaction) (*domain.ScheduledTransaction, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	units, err := decimalPtrToPgNumeric(s.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid units: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE scheduled_transactions
		SET name = $3, type = $4, amount = $5, from_account_id = $6, to_account_id = $7,
			category_id = $8, payee = $9, memo = $10, tags = $11, asset = $12, units = $13,
			next_occurrence = $14, pattern = $15, recurrence_value = $16, enabled = $17,
			updated_at = now()
		WHERE id = $1 AND workspace_id = $2
		RETURNING `+scheduleColumns,
		s.ID, s.WorkspaceID, s.Name, string(s.Type), amount,
		int4Ptr(s.FromAccountID), int4Ptr(s.ToAccountID), int4Ptr(s.CategoryID),
		textPtr(s.Payee), textPtr(s.Memo), s.Tags, textPtr(s.Asset), units,
		s.NextOccurrence, string(s.Pattern), s.RecurrenceValue, s.Enabled,
	)
	updated, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	return updated, err
}

// Delete removes a template; posted transactions are untouched
func (r *ScheduleRepository) Delete(workspaceID int32, id int32) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_transactions
		WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row pgx.Row) (*domain.ScheduledTransaction, error) {
	var (
		s             domain.ScheduledTransaction
		sType         string
		amount        pgtype.Numeric
		fromAccountID pgtype.Int4
		toAccountID   pgtype.Int4
		categoryID    pgtype.Int4
		payee         pgtype.Text
		memo          pgtype.Text
		asset         pgtype.Text
		units         pgtype.Numeric
		pattern       string
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.WorkspaceID, &s.Name, &sType, &amount,
		&fromAccountID, &toAccountID, &categoryID, &payee, &memo, &s.Tags,
		&asset, &units, &s.NextOccurrence, &pattern, &s.RecurrenceValue,
		&s.Enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Type = domain.TransactionType(sType)
	s.Amount = pgNumericToDecimal(amount)
	s.FromAccountID = int4ToPtr(fromAccountID)
	s.ToAccountID = int4ToPtr(toAccountID)
	s.CategoryID = int4ToPtr(categoryID)
	s.Payee = textToPtr(payee)
	s.Memo = textToPtr(memo)
	s.Asset = textToPtr(asset)
	s.Units = pgNumericPtrToDecimal(units)
	s.Pattern = recurrence.Pattern(pattern)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return &s, nil
}
