package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentimages/hoster/internal/models"
)

const (
	tokenPrefix      = "ghimg_"
	tokenRandomBytes = 24
	previewHead      = 10
	previewTail      = 4
)

// TokenStore persists CLI tokens. Implementations must enforce hash
// uniqueness and make every write durable before returning.
type TokenStore interface {
	Insert(ctx context.Context, token *models.CliToken) error
	GetByHash(ctx context.Context, hash string) (*models.CliToken, error)
	GetByID(ctx context.Context, id string) (*models.CliToken, error)
	ListByUser(ctx context.Context, userID string) ([]*models.CliToken, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

// TokenService manages CLI bearer tokens for users.
type TokenService struct {
	store TokenStore
	now   func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store, now: time.Now}
}

// hashToken returns a hex-encoded SHA-256 hash of the token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// generateTokenValue generates a new random token string: a fixed
// recognizable prefix followed by 48 hex characters.
func generateTokenValue() (string, error) {
	raw := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(raw), nil
}

// tokenPreview derives the non-secret display form of a token: the
// first 10 characters, an ellipsis, and the last 4.
func tokenPreview(token string) string {
	return token[:previewHead] + "..." + token[len(token)-previewTail:]
}

// Issue creates a new CLI token for the given user and returns the
// record and the plaintext value. The plaintext is returned exactly
// once; only its hash and preview are persisted.
func (s *TokenService) Issue(ctx context.Context, userID, label string) (*models.CliToken, string, error) {
	raw, err := generateTokenValue()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	safeLabel := trimmed(label)
	if safeLabel == "" {
		safeLabel = "CLI token " + now.Format("2006-01-02")
	}

	token := &models.CliToken{
		ID:           uuid.New().String(),
		UserID:       userID,
		Label:        safeLabel,
		TokenHash:    hashToken(raw),
		TokenPreview: tokenPreview(raw),
		CreatedAt:    now,
	}

	if err := s.store.Insert(ctx, token); err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	return token, raw, nil
}

// Authenticate resolves a plaintext token to its active record, or
// fails with ErrInvalidToken / ErrRevokedToken. On success the token's
// last-used timestamp is stamped.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (*models.CliToken, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.store.GetByHash(ctx, hashToken(raw))
	if err != nil {
		if err == ErrTokenNotFound {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token.Revoked() {
		return nil, ErrRevokedToken
	}

	now := s.now()
	if err := s.store.MarkUsed(ctx, token.ID, now); err != nil {
		return nil, fmt.Errorf("failed to stamp token usage: %w", err)
	}
	token.LastUsedAt = &now

	return token, nil
}

// Revoke permanently revokes a token owned by requestingUserID.
// Revoking an already-revoked token is a no-op success; revoked tokens
// stay readable in listings.
func (s *TokenService) Revoke(ctx context.Context, tokenID, requestingUserID string) error {
	token, err := s.store.GetByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if token.UserID != requestingUserID {
		return ErrNotTokenOwner
	}
	if token.Revoked() {
		return nil
	}
	return s.store.Revoke(ctx, tokenID, s.now())
}

// ListForUser returns the user's tokens, most recent first. The hash
// never leaves the store; summaries carry the preview only.
func (s *TokenService) ListForUser(ctx context.Context, userID string) ([]models.TokenSummary, error) {
	tokens, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	summaries := make([]models.TokenSummary, 0, len(tokens))
	for _, t := range tokens {
		summaries = append(summaries, models.TokenSummary{
			ID:           t.ID,
			Label:        t.Label,
			TokenPreview: t.TokenPreview,
			CreatedAt:    t.CreatedAt,
			LastUsedAt:   t.LastUsedAt,
			RevokedAt:    t.RevokedAt,
		})
	}

	return summaries, nil
}
