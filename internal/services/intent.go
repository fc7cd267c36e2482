package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentimages/hoster/internal/apperrors"
	"github.com/agentimages/hoster/internal/models"
	"github.com/agentimages/hoster/internal/storage"
)

const (
	// MaxImageBytes caps a single upload at 20 MiB.
	MaxImageBytes = 20 * 1024 * 1024

	// IntentTTL bounds how long an opened intent stays finalizable.
	IntentTTL = 30 * time.Minute

	defaultAlt = "Uploaded image"
)

// IntentStore persists upload intents. Consume must be an atomic
// compare-and-set on the consumption stamp: it returns false when the
// intent was already consumed, so racing finalize calls resolve to
// exactly one winner.
type IntentStore interface {
	Insert(ctx context.Context, intent *models.UploadIntent) error
	GetByID(ctx context.Context, id string) (*models.UploadIntent, error)
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
}

// BlobStore is the external content-storage collaborator: it issues
// single-use write handles and answers metadata lookups. Raw bytes
// never pass through the ledger.
type BlobStore interface {
	PresignedPut(ctx context.Context, key string, expiry time.Duration) (string, error)
	StatObject(ctx context.Context, key string) (*storage.ObjectMetadata, error)
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// IntentService is the upload-intent ledger: it reserves one-time
// upload slots against an authenticated token and promotes completed
// writes into the image catalog.
type IntentService struct {
	tokens *TokenService
	store  IntentStore
	images *ImageService
	blobs  BlobStore
	ttl    time.Duration
	now    func() time.Time
}

// NewIntentService creates a new IntentService.
func NewIntentService(tokens *TokenService, store IntentStore, images *ImageService, blobs BlobStore) *IntentService {
	return &IntentService{
		tokens: tokens,
		store:  store,
		images: images,
		blobs:  blobs,
		ttl:    IntentTTL,
		now:    time.Now,
	}
}

// DeclaredUpload is the metadata a caller declares when opening an
// intent. MarkdownAlt is optional; the others are validated.
type DeclaredUpload struct {
	AgentName        string
	OriginalFileName string
	ContentType      string
	ByteSize         int64
	MarkdownAlt      string
}

// OpenResult is the reservation handed back from Open: the intent id
// plus the single-use write handle for the byte transfer.
type OpenResult struct {
	IntentID   string `json:"intent_id"`
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

// FinalizeResult describes the image record created by Close.
type FinalizeResult struct {
	ImageID     string `json:"image_id"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`
	MarkdownAlt string `json:"markdown_alt"`
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// defaultAltFromFileName strips the extension from the declared file
// name, falling back to a fixed default when that leaves nothing.
func defaultAltFromFileName(fileName string) string {
	alt := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if alt == "" {
		return defaultAlt
	}
	return alt
}

// Open authenticates the token, validates the declared metadata,
// reserves a single-use write handle from the blob store, and persists
// the intent. The handle's expiry matches the intent TTL.
func (s *IntentService) Open(ctx context.Context, rawToken string, decl DeclaredUpload) (*OpenResult, error) {
	token, err := s.tokens.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(decl.ContentType, "image/") {
		return nil, apperrors.Validation("Only image uploads are supported.")
	}
	if decl.ByteSize <= 0 || decl.ByteSize > MaxImageBytes {
		return nil, apperrors.Validation(fmt.Sprintf("Image size must be between 1 byte and %d bytes.", MaxImageBytes))
	}

	agentName := trimmed(decl.AgentName)
	if agentName == "" {
		return nil, apperrors.Validation("Agent name is required.")
	}
	fileName := trimmed(decl.OriginalFileName)
	if fileName == "" {
		return nil, apperrors.Validation("Original file name is required.")
	}

	alt := trimmed(decl.MarkdownAlt)
	if alt == "" {
		alt = defaultAltFromFileName(fileName)
	}

	key := "uploads/" + uuid.New().String()
	uploadURL, err := s.blobs.PresignedPut(ctx, key, s.ttl)
	if err != nil {
		return nil, apperrors.Upstream("Could not reserve an upload slot in storage.", err)
	}

	intent := &models.UploadIntent{
		ID:               uuid.New().String(),
		TokenID:          token.ID,
		UserID:           token.UserID,
		AgentName:        agentName,
		OriginalFileName: fileName,
		ContentType:      decl.ContentType,
		ByteSize:         decl.ByteSize,
		MarkdownAlt:      alt,
		StorageKey:       key,
		CreatedAt:        s.now(),
	}
	if err := s.store.Insert(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist upload intent: %w", err)
	}

	return &OpenResult{
		IntentID:   intent.ID,
		UploadURL:  uploadURL,
		StorageKey: key,
	}, nil
}

// Close re-authenticates the token, verifies the intent is the caller's
// own, unconsumed, and inside its TTL, confirms the blob was actually
// written, and atomically promotes the intent into the image catalog.
// Exactly one Close per intent can succeed.
func (s *IntentService) Close(ctx context.Context, rawToken, intentID, storageKey string) (*FinalizeResult, error) {
	token, err := s.tokens.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	intent, err := s.store.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.TokenID != token.ID {
		return nil, ErrTokenMismatch
	}
	if intent.ConsumedAt != nil {
		return nil, ErrAlreadyConsumed
	}

	now := s.now()
	if now.Sub(intent.CreatedAt) > s.ttl {
		return nil, ErrIntentExpired
	}

	meta, err := s.blobs.StatObject(ctx, storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectMissing) {
			return nil, ErrBlobMissing
		}
		return nil, apperrors.Upstream("Could not verify the uploaded file in storage.", err)
	}

	// Win the consumption race before touching the catalog: the CAS
	// guarantees at-most-once promotion even across processes.
	consumed, err := s.store.Consume(ctx, intent.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume upload intent: %w", err)
	}
	if !consumed {
		return nil, ErrAlreadyConsumed
	}

	image, err := s.images.Insert(ctx, InsertImage{
		UploaderUserID:   intent.UserID,
		StorageKey:       storageKey,
		AgentName:        intent.AgentName,
		OriginalFileName: intent.OriginalFileName,
		ContentType:      intent.ContentType,
		ByteSize:         intent.ByteSize,
		MarkdownAlt:      intent.MarkdownAlt,
	})
	if err != nil {
		return nil, err
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = intent.ContentType
	}

	return &FinalizeResult{
		ImageID:     image.ImageID,
		ContentType: contentType,
		ByteSize:    meta.Size,
		MarkdownAlt: intent.MarkdownAlt,
	}, nil
}
