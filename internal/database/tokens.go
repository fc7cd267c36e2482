package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentimages/hoster/internal/models"
	"github.com/agentimages/hoster/internal/services"
)

// TokenStore is the Postgres implementation of services.TokenStore.
type TokenStore struct {
	db *pgxpool.Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *pgxpool.Pool) *TokenStore {
	return &TokenStore{db: db}
}

const tokenColumns = "id, user_id, label, token_hash, token_preview, created_at, last_used_at, revoked_at"

func scanToken(row pgx.Row) (*models.CliToken, error) {
	var t models.CliToken
	err := row.Scan(&t.ID, &t.UserID, &t.Label, &t.TokenHash, &t.TokenPreview, &t.CreatedAt, &t.LastUsedAt, &t.RevokedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert persists a new token. The unique index on token_hash rejects
// hash collisions.
func (s *TokenStore) Insert(ctx context.Context, token *models.CliToken) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO cli_tokens (id, user_id, label, token_hash, token_preview, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		token.ID,
		token.UserID,
		token.Label,
		token.TokenHash,
		token.TokenPreview,
		token.CreatedAt,
	)
	return err
}

// GetByHash looks a token up by its secret's hash.
func (s *TokenStore) GetByHash(ctx context.Context, hash string) (*models.CliToken, error) {
	t, err := scanToken(s.db.QueryRow(ctx,
		"SELECT "+tokenColumns+" FROM cli_tokens WHERE token_hash = $1",
		hash,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, services.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return t, nil
}

// GetByID looks a token up by id.
func (s *TokenStore) GetByID(ctx context.Context, id string) (*models.CliToken, error) {
	t, err := scanToken(s.db.QueryRow(ctx,
		"SELECT "+tokenColumns+" FROM cli_tokens WHERE id = $1",
		id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, services.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return t, nil
}

// ListByUser returns all tokens for a user, newest first.
func (s *TokenStore) ListByUser(ctx context.Context, userID string) ([]*models.CliToken, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+tokenColumns+" FROM cli_tokens WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.CliToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

// MarkUsed stamps last_used_at.
func (s *TokenStore) MarkUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		"UPDATE cli_tokens SET last_used_at = $1 WHERE id = $2",
		at,
		id,
	)
	return err
}

// Revoke stamps revoked_at once; the guard keeps a second revoke from
// moving the timestamp.
func (s *TokenStore) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		"UPDATE cli_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL",
		at,
		id,
	)
	return err
}
