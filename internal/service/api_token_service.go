package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// APITokenService issues and validates workspace API tokens. Token values
// are shown once at creation; only their SHA-256 hash is stored.
type APITokenService struct {
	tokenRepo domain.APITokenRepository
	now       func() time.Time
}

// NewAPITokenService creates a new APITokenService
func NewAPITokenService(tokenRepo domain.APITokenRepository) *APITokenService {
	return &APITokenService{
		tokenRepo: tokenRepo,
		now:       time.Now,
	}
}

// CreateToken issues a new token for a workspace and returns the token
// value alongside its record. The value is not recoverable afterwards.
func (s *APITokenService) CreateToken(workspaceID int32, name string) (*domain.APIToken, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", domain.ErrNameRequired
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	value := domain.APITokenPrefix + hex.EncodeToString(raw)

	token, err := s.tokenRepo.Create(&domain.APIToken{
		WorkspaceID: workspaceID,
		Name:        name,
		TokenHash:   hashToken(value),
	})
	if err != nil {
		return nil, "", err
	}
	return token, value, nil
}

// ValidateToken resolves a presented token value to its record and stamps
// last-use. Unknown and revoked tokens both return ErrAPITokenNotFound.
func (s *APITokenService) ValidateToken(ctx context.Context, value string) (*domain.APIToken, error) {
	if !strings.HasPrefix(value, domain.APITokenPrefix) {
		return nil, domain.ErrAPITokenNotFound
	}
	token, err := s.tokenRepo.GetByHash(hashToken(value))
	if err != nil {
		return nil, err
	}
	_ = s.tokenRepo.TouchLastUsed(token.ID, s.now())
	return token, nil
}

// ListTokens returns the tokens issued for a workspace
func (s *APITokenService) ListTokens(workspaceID int32) ([]*domain.APIToken, error) {
	return s.tokenRepo.ListByWorkspace(workspaceID)
}

// RevokeToken revokes a token by id
func (s *APITokenService) RevokeToken(workspaceID int32, id uuid.UUID) error {
	return s.tokenRepo.Revoke(workspaceID, id)
}

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
