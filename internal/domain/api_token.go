package domain

import (
	"time"

	"github.com/google/uuid"
)

// APITokenPrefix is the required prefix of every issued token value.
const APITokenPrefix = "tly_"

// APIToken grants a caller access to one workspace. Only the SHA-256 hash
// of the token value is stored.
type APIToken struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID int32      `json:"workspaceId"`
	Name        string     `json:"name"`
	TokenHash   string     `json:"-"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}

type APITokenRepository interface {
	Create(token *APIToken) (*APIToken, error)
	// GetByHash returns a non-revoked token matching the hash.
	GetByHash(hash string) (*APIToken, error)
	ListByWorkspace(workspaceID int32) ([]*APIToken, error)
	Revoke(workspaceID int32, id uuid.UUID) error
	TouchLastUsed(id uuid.UUID, at time.Time) error
}
