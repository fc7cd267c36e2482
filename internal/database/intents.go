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

// IntentStore is the Postgres implementation of services.IntentStore.
type IntentStore struct {
	db *pgxpool.Pool
}

// NewIntentStore creates a new IntentStore.
func NewIntentStore(db *pgxpool.Pool) *IntentStore {
	return &IntentStore{db: db}
}

// Insert persists a new upload intent with a null consumption stamp.
func (s *IntentStore) Insert(ctx context.Context, intent *models.UploadIntent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO upload_intents
		 (id, token_id, user_id, agent_name, original_file_name, content_type, byte_size, markdown_alt, storage_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		intent.ID,
		intent.TokenID,
		intent.UserID,
		intent.AgentName,
		intent.OriginalFileName,
		intent.ContentType,
		intent.ByteSize,
		intent.MarkdownAlt,
		intent.StorageKey,
		intent.CreatedAt,
	)
	return err
}

// GetByID loads an intent by id.
func (s *IntentStore) GetByID(ctx context.Context, id string) (*models.UploadIntent, error) {
	var in models.UploadIntent
	err := s.db.QueryRow(ctx,
		`SELECT id, token_id, user_id, agent_name, original_file_name, content_type, byte_size, markdown_alt, storage_key, created_at, consumed_at
		 FROM upload_intents WHERE id = $1`,
		id,
	).Scan(&in.ID, &in.TokenID, &in.UserID, &in.AgentName, &in.OriginalFileName, &in.ContentType, &in.ByteSize, &in.MarkdownAlt, &in.StorageKey, &in.CreatedAt, &in.ConsumedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, services.ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to load upload intent: %w", err)
	}
	return &in, nil
}

// Consume stamps consumed_at with a compare-and-set on the null stamp.
// Returns false when another finalize already won; concurrent callers
// racing on the same intent resolve to exactly one success.
func (s *IntentStore) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE upload_intents SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL",
		at,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume upload intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
