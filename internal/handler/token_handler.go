package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/middleware"
	"github.com/tallyapp/tally-backend/internal/service"
)

// TokenHandler handles API token management requests
type TokenHandler struct {
	tokenService *service.APITokenService
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(tokenService *service.APITokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// CreateTokenRequest represents the create token request body
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// CreateTokenResponse carries the one-time token value alongside its record
type CreateTokenResponse struct {
	Token *domain.APIToken `json:"token"`
	Value string           `json:"value"`
}

// CreateToken handles POST /api/v1/tokens
func (h *TokenHandler) CreateToken(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateTokenRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	token, value, err := h.tokenService.CreateToken(workspaceID, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNameRequired) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name is required"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to create API token")
		return NewInternalError(c, "Failed to create API token")
	}

	log.Info().Int32("workspace_id", workspaceID).Str("token_id", token.ID.String()).Msg("API token created")
	return c.JSON(http.StatusCreated, CreateTokenResponse{Token: token, Value: value})
}

// ListTokens handles GET /api/v1/tokens
func (h *TokenHandler) ListTokens(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	tokens, err := h.tokenService.ListTokens(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list API tokens")
		return NewInternalError(c, "Failed to list API tokens")
	}
	return c.JSON(http.StatusOK, tokens)
}

// RevokeToken handles DELETE /api/v1/tokens/:id
func (h *TokenHandler) RevokeToken(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid token ID", nil)
	}

	if err := h.tokenService.RevokeToken(workspaceID, id); err != nil {
		if errors.Is(err, domain.ErrAPITokenNotFound) {
			return NewNotFoundError(c, "API token not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("token_id", id.String()).Msg("Failed to revoke API token")
		return NewInternalError(c, "Failed to revoke API token")
	}

	log.Info().Int32("workspace_id", workspaceID).Str("token_id", id.String()).Msg("API token revoked")
	return c.NoContent(http.StatusNoContent)
}
