package services

import (
	"context"
	"time"

	"github.com/agentimages/hoster/internal/apperrors"
)

// downloadURLExpiry bounds the presigned read URL minted per request.
// Nothing longer-lived than one response is ever handed out.
const downloadURLExpiry = 5 * time.Minute

// ResolverService maps a public image identifier to a streamable byte
// source and content metadata for anonymous retrieval.
type ResolverService struct {
	images *ImageService
	blobs  BlobStore
}

// NewResolverService creates a new ResolverService.
func NewResolverService(images *ImageService, blobs BlobStore) *ResolverService {
	return &ResolverService{images: images, blobs: blobs}
}

// Resolved carries everything the public route needs to serve an image.
// DownloadURL is a fresh, time-bounded blob-store reference; the
// internal storage key never leaves the resolver.
type Resolved struct {
	DownloadURL      string
	ContentType      string
	ByteSize         int64
	OriginalFileName string
}

// Resolve looks up the image and mints a fresh download URL. Fails with
// ErrImageNotFound for unknown ids and an upstream error when the blob
// store cannot sign a URL.
func (s *ResolverService) Resolve(ctx context.Context, imageID string) (*Resolved, error) {
	image, err := s.images.GetByPublicID(ctx, imageID)
	if err != nil {
		return nil, err
	}

	downloadURL, err := s.blobs.PresignedGet(ctx, image.StorageKey, downloadURLExpiry)
	if err != nil {
		return nil, apperrors.Upstream("Image is unavailable.", err)
	}

	return &Resolved{
		DownloadURL:      downloadURL,
		ContentType:      image.ContentType,
		ByteSize:         image.ByteSize,
		OriginalFileName: image.OriginalFileName,
	}, nil
}
