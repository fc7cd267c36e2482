package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentimages/hoster/internal/markdown"
	"github.com/agentimages/hoster/internal/models"
)

// MaxImageListPage bounds the dashboard listing call.
const MaxImageListPage = 200

// insertAttempts bounds retries on a public image id collision.
const insertAttempts = 3

// ImageStore persists image records. The catalog is append-only;
// Insert must fail with ErrDuplicateImageID on a public id collision.
type ImageStore interface {
	Insert(ctx context.Context, image *models.Image) error
	GetByImageID(ctx context.Context, imageID string) (*models.Image, error)
	ListByUploader(ctx context.Context, userID string, limit int) ([]*models.Image, error)
}

// ImageService is the image catalog: durable, publicly addressable
// records created only by finalizing an upload intent.
type ImageService struct {
	store ImageStore
	now   func() time.Time
}

// NewImageService creates a new ImageService.
func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store, now: time.Now}
}

// InsertImage is the attribute set for a new catalog record.
type InsertImage struct {
	UploaderUserID   string
	StorageKey       string
	AgentName        string
	OriginalFileName string
	ContentType      string
	ByteSize         int64
	MarkdownAlt      string
}

// Insert appends a new image record with a freshly generated public
// identifier. On the astronomically unlikely id collision it retries
// with a new identifier rather than surfacing an error.
func (s *ImageService) Insert(ctx context.Context, in InsertImage) (*models.Image, error) {
	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		image := &models.Image{
			ID:               uuid.New().String(),
			ImageID:          uuid.New().String(),
			StorageKey:       in.StorageKey,
			UploaderUserID:   in.UploaderUserID,
			AgentName:        in.AgentName,
			OriginalFileName: in.OriginalFileName,
			ContentType:      in.ContentType,
			ByteSize:         in.ByteSize,
			MarkdownAlt:      in.MarkdownAlt,
			CreatedAt:        s.now(),
		}

		err := s.store.Insert(ctx, image)
		if err == nil {
			return image, nil
		}
		if err != ErrDuplicateImageID {
			return nil, fmt.Errorf("failed to insert image: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to insert image: %w", lastErr)
}

// PublicPath returns the public URL path for an image id.
func PublicPath(imageID string) string {
	return "/i/" + imageID
}

// ListForUser returns the user's images, most recent first, capped at
// MaxImageListPage, each with its derived public path and markdown.
func (s *ImageService) ListForUser(ctx context.Context, userID string, limit int) ([]models.ImageSummary, error) {
	if limit <= 0 || limit > MaxImageListPage {
		limit = MaxImageListPage
	}

	images, err := s.store.ListByUploader(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	summaries := make([]models.ImageSummary, 0, len(images))
	for _, img := range images {
		path := PublicPath(img.ImageID)
		summaries = append(summaries, models.ImageSummary{
			ID:               img.ID,
			ImageID:          img.ImageID,
			AgentName:        img.AgentName,
			OriginalFileName: img.OriginalFileName,
			ContentType:      img.ContentType,
			ByteSize:         img.ByteSize,
			MarkdownAlt:      img.MarkdownAlt,
			ImagePath:        path,
			Markdown:         markdown.ImageSnippet(img.MarkdownAlt, path),
			CreatedAt:        img.CreatedAt,
		})
	}

	return summaries, nil
}

// GetByPublicID looks up a single image by its public identifier. No
// authentication is involved; images are public once created.
func (s *ImageService) GetByPublicID(ctx context.Context, imageID string) (*models.Image, error) {
	return s.store.GetByImageID(ctx, imageID)
}
