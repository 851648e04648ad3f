package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// APITokenRepository implements domain.APITokenRepository using PostgreSQL
type APITokenRepository struct {
	pool *pgxpool.Pool
}

// NewAPITokenRepository creates a new APITokenRepository
func NewAPITokenRepository(pool *pgxpool.Pool) *APITokenRepository {
	return &APITokenRepository{pool: pool}
}

const apiTokenColumns = `id, workspace_id, name, token_hash, last_used_at, created_at, revoked_at`

// Create stores a new token
func (r *APITokenRepository) Create(token *domain.APIToken) (*domain.APIToken, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (id, workspace_id, name, token_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apiTokenColumns,
		uuid.New(), token.WorkspaceID, token.Name, token.TokenHash,
	)
	return scanAPIToken(row)
}

// GetByHash returns a non-revoked token matching the hash
func (r *APITokenRepository) GetByHash(hash string) (*domain.APIToken, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+apiTokenColumns+`
		FROM api_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
	)
	token, err := scanAPIToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPITokenNotFound
	}
	return token, err
}

// ListByWorkspace returns the tokens issued for a workspace
func (r *APITokenRepository) ListByWorkspace(workspaceID int32) ([]*domain.APIToken, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+apiTokenColumns+`
		FROM api_tokens
		WHERE workspace_id = $1
		ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.APIToken
	for rows.Next() {
		token, err := scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Revoke marks a token revoked
func (r *APITokenRepository) Revoke(workspaceID int32, id uuid.UUID) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE api_tokens
		SET revoked_at = now()
		WHERE id = $1 AND workspace_id = $2 AND revoked_at IS NULL`,
		id, workspaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPITokenNotFound
	}
	return nil
}

// TouchLastUsed records token usage, best effort
func (r *APITokenRepository) TouchLastUsed(id uuid.UUID, at time.Time) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		UPDATE api_tokens
		SET last_used_at = $2
		WHERE id = $1`,
		id, at,
	)
	return err
}

func scanAPIToken(row pgx.Row) (*domain.APIToken, error) {
	var (
		token      domain.APIToken
		lastUsedAt pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		revokedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&token.ID, &token.WorkspaceID, &token.Name, &token.TokenHash,
		&lastUsedAt, &createdAt, &revokedAt,
	)
	if err != nil {
		return nil, err
	}
	token.LastUsedAt = timestampToPtr(lastUsedAt)
	token.CreatedAt = createdAt.Time
	token.RevokedAt = timestampToPtr(revokedAt)
	return &token, nil
}
