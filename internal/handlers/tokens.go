package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/middleware"
	"github.com/agentimages/hoster/internal/services"
)

// TokenHandler handles dashboard CLI-token management endpoints.
type TokenHandler struct {
	tokens *services.TokenService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokens *services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// CreateTokenRequest represents a request to create a new CLI token.
type CreateTokenRequest struct {
	Label string `json:"label"`
}

// CreateTokenResponse includes the token metadata and the plaintext
// value. The plaintext is returned here exactly once and is not
// recoverable afterwards.
type CreateTokenResponse struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	TokenPreview string    `json:"token_preview"`
	CreatedAt    time.Time `json:"created_at"`
	Token        string    `json:"token"`
}

// Create issues a new CLI token for the authenticated user.
// POST /api/tokens
func (h *TokenHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, raw, err := h.tokens.Issue(c.Request.Context(), userID, req.Label)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, CreateTokenResponse{
		ID:           token.ID,
		Label:        token.Label,
		TokenPreview: token.TokenPreview,
		CreatedAt:    token.CreatedAt,
		Token:        raw,
	})
}

// List returns the authenticated user's tokens (preview only, never
// the hash or plaintext). GET /api/tokens
func (h *TokenHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	summaries, err := h.tokens.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": summaries})
}

// Revoke permanently revokes one of the user's tokens. Revoking an
// already-revoked token succeeds as a no-op. DELETE /api/tokens/:id
func (h *TokenHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token id is required"})
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
