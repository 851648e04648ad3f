// Package middleware holds the Echo middleware for authentication and
// per-token rate limiting.
package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyapp/tally-backend/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// WorkspaceIDKey is the context key for the authenticated workspace ID
	WorkspaceIDKey contextKey = "workspace_id"
	// APITokenIDKey is the context key for the API token ID
	APITokenIDKey contextKey = "api_token_id"
)

// APITokenValidator provides API token validation
type APITokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.APIToken, error)
}

// TokenAuthMiddleware authenticates requests with workspace API tokens.
type TokenAuthMiddleware struct {
	validator APITokenValidator
}

// NewTokenAuthMiddleware creates a new TokenAuthMiddleware
func NewTokenAuthMiddleware(validator APITokenValidator) *TokenAuthMiddleware {
	return &TokenAuthMiddleware{validator: validator}
}

// Authenticate returns an Echo middleware that validates bearer tokens
func (m *TokenAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			token := parts[1]
			if !strings.HasPrefix(token, domain.APITokenPrefix) {
				return unauthorizedError(c, "Invalid token format")
			}

			apiToken, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				if err == domain.ErrAPITokenNotFound {
					log.Debug().Msg("API token not found or revoked")
					return unauthorizedError(c, "Invalid or revoked API token")
				}
				log.Error().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Token validation failed")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, WorkspaceIDKey, apiToken.WorkspaceID)
			ctx = context.WithValue(ctx, APITokenIDKey, apiToken.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			log.Debug().
				Int32("workspace_id", apiToken.WorkspaceID).
				Str("token_id", apiToken.ID.String()).
				Msg("API token authentication successful")

			return next(c)
		}
	}
}

// GetWorkspaceID extracts the workspace ID from the context
func GetWorkspaceID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(WorkspaceIDKey).(int32); ok {
		return id
	}
	return 0
}

// GetAPITokenID extracts the API token ID from the context
func GetAPITokenID(c echo.Context) uuid.UUID {
	if id, ok := c.Request().Context().Value(APITokenIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
