package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agentimages/hoster/internal/models"
	"github.com/agentimages/hoster/internal/storage"
)

// In-memory store fakes. Consume mirrors the Postgres compare-and-set
// semantics under a mutex so the concurrency tests exercise the same
// exactly-once guarantee.

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.CliToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]*models.CliToken)}
}

func (s *memTokenStore) Insert(_ context.Context, token *models.CliToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == token.TokenHash {
			return errors.New("token hash collision")
		}
	}
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *memTokenStore) GetByHash(_ context.Context, hash string) (*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (s *memTokenStore) GetByID(_ context.Context, id string) (*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTokenStore) ListByUser(_ context.Context, userID string) ([]*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CliToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memTokenStore) MarkUsed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok {
		stamp := at
		t.LastUsedAt = &stamp
	}
	return nil
}

func (s *memTokenStore) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok && t.RevokedAt == nil {
		stamp := at
		t.RevokedAt = &stamp
	}
	return nil
}

type memIntentStore struct {
	mu      sync.Mutex
	intents map[string]*models.UploadIntent
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{intents: make(map[string]*models.UploadIntent)}
}

func (s *memIntentStore) Insert(_ context.Context, intent *models.UploadIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *intent
	s.intents[intent.ID] = &cp
	return nil
}

func (s *memIntentStore) GetByID(_ context.Context, id string) (*models.UploadIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (s *memIntentStore) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return false, ErrIntentNotFound
	}
	if in.ConsumedAt != nil {
		return false, nil
	}
	stamp := at
	in.ConsumedAt = &stamp
	return true, nil
}

type memImageStore struct {
	mu     sync.Mutex
	images []*models.Image
	// failOnImageID simulates a public-id unique violation.
	failOnImageID map[string]bool
}

func newMemImageStore() *memImageStore {
	return &memImageStore{failOnImageID: make(map[string]bool)}
}

func (s *memImageStore) Insert(_ context.Context, image *models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnImageID[image.ImageID] {
		return ErrDuplicateImageID
	}
	for _, img := range s.images {
		if img.ImageID == image.ImageID {
			return ErrDuplicateImageID
		}
	}
	cp := *image
	s.images = append(s.images, &cp)
	return nil
}

func (s *memImageStore) GetByImageID(_ context.Context, imageID string) (*models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ImageID == imageID {
			cp := *img
			return &cp, nil
		}
	}
	return nil, ErrImageNotFound
}

func (s *memImageStore) ListByUploader(_ context.Context, userID string, limit int) ([]*models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Image
	for _, img := range s.images {
		if img.UploaderUserID == userID {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string]*storage.ObjectMetadata
	putCalls int
	putErr   error
	statErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]*storage.ObjectMetadata)}
}

func (b *fakeBlobStore) write(key, contentType string, size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = &storage.ObjectMetadata{ContentType: contentType, Size: size}
}

func (b *fakeBlobStore) PresignedPut(_ context.Context, key string, _ time.Duration) (string, error) {
	b.mu.Lock()
	b.putCalls++
	b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	return "http://blobs.test/" + key, nil
}

func (b *fakeBlobStore) StatObject(_ context.Context, key string) (*storage.ObjectMetadata, error) {
	if b.statErr != nil {
		return nil, b.statErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	meta, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectMissing
	}
	cp := *meta
	return &cp, nil
}

func (b *fakeBlobStore) PresignedGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://blobs.test/" + key, nil
}
