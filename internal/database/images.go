package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentimages/hoster/internal/models"
	"github.com/agentimages/hoster/internal/services"
)

// uniqueViolation is the Postgres error code for a unique index hit.
const uniqueViolation = "23505"

// ImageStore is the Postgres implementation of services.ImageStore.
// The images table is append-only; there is no update or delete path.
type ImageStore struct {
	db *pgxpool.Pool
}

// NewImageStore creates a new ImageStore.
func NewImageStore(db *pgxpool.Pool) *ImageStore {
	return &ImageStore{db: db}
}

const imageColumns = "id, image_id, storage_key, uploader_user_id, agent_name, original_file_name, content_type, byte_size, markdown_alt, created_at"

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	err := row.Scan(&img.ID, &img.ImageID, &img.StorageKey, &img.UploaderUserID, &img.AgentName, &img.OriginalFileName, &img.ContentType, &img.ByteSize, &img.MarkdownAlt, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Insert appends a new image record. A collision on the public image
// id surfaces as services.ErrDuplicateImageID so the catalog can retry
// with a fresh identifier.
func (s *ImageStore) Insert(ctx context.Context, image *models.Image) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO images
		 (id, image_id, storage_key, uploader_user_id, agent_name, original_file_name, content_type, byte_size, markdown_alt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		image.ID,
		image.ImageID,
		image.StorageKey,
		image.UploaderUserID,
		image.AgentName,
		image.OriginalFileName,
		image.ContentType,
		image.ByteSize,
		image.MarkdownAlt,
		image.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return services.ErrDuplicateImageID
		}
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

// GetByImageID looks an image up by its public identifier.
func (s *ImageStore) GetByImageID(ctx context.Context, imageID string) (*models.Image, error) {
	img, err := scanImage(s.db.QueryRow(ctx,
		"SELECT "+imageColumns+" FROM images WHERE image_id = $1",
		imageID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, services.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return img, nil
}

// ListByUploader returns a user's images, newest first.
func (s *ImageStore) ListByUploader(ctx context.Context, userID string, limit int) ([]*models.Image, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+imageColumns+" FROM images WHERE uploader_user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	return images, rows.Err()
}
