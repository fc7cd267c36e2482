package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/models"
	"github.com/agentimages/hoster/internal/services"
	"github.com/agentimages/hoster/internal/storage"
)

// Minimal in-memory stores for wiring real services under the HTTP
// handlers, plus an httptest blob server that honors the presigned
// PUT/GET URLs the fake blob store hands out.

type testTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.CliToken
}

func newTestTokenStore() *testTokenStore {
	return &testTokenStore{tokens: make(map[string]*models.CliToken)}
}

func (s *testTokenStore) Insert(_ context.Context, t *models.CliToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *testTokenStore) GetByHash(_ context.Context, hash string) (*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, services.ErrTokenNotFound
}

func (s *testTokenStore) GetByID(_ context.Context, id string) (*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, services.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *testTokenStore) ListByUser(_ context.Context, userID string) ([]*models.CliToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CliToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *testTokenStore) MarkUsed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok {
		stamp := at
		t.LastUsedAt = &stamp
	}
	return nil
}

func (s *testTokenStore) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok && t.RevokedAt == nil {
		stamp := at
		t.RevokedAt = &stamp
	}
	return nil
}

type testIntentStore struct {
	mu      sync.Mutex
	intents map[string]*models.UploadIntent
}

func newTestIntentStore() *testIntentStore {
	return &testIntentStore{intents: make(map[string]*models.UploadIntent)}
}

func (s *testIntentStore) Insert(_ context.Context, in *models.UploadIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *in
	s.intents[in.ID] = &cp
	return nil
}

func (s *testIntentStore) GetByID(_ context.Context, id string) (*models.UploadIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return nil, services.ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (s *testIntentStore) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return false, services.ErrIntentNotFound
	}
	if in.ConsumedAt != nil {
		return false, nil
	}
	stamp := at
	in.ConsumedAt = &stamp
	return true, nil
}

type testImageStore struct {
	mu     sync.Mutex
	images []*models.Image
}

func newTestImageStore() *testImageStore {
	return &testImageStore{}
}

func (s *testImageStore) Insert(_ context.Context, img *models.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.images {
		if existing.ImageID == img.ImageID {
			return services.ErrDuplicateImageID
		}
	}
	cp := *img
	s.images = append(s.images, &cp)
	return nil
}

func (s *testImageStore) GetByImageID(_ context.Context, imageID string) (*models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ImageID == imageID {
			cp := *img
			return &cp, nil
		}
	}
	return nil, services.ErrImageNotFound
}

func (s *testImageStore) ListByUploader(_ context.Context, userID string, limit int) ([]*models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Image
	for _, img := range s.images {
		if img.UploaderUserID == userID {
			cp := *img
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// blobServer emulates the blob store over HTTP: PUT writes an object,
// GET serves it back.
type blobServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	server  *httptest.Server
}

func newBlobServer() *blobServer {
	b := &blobServer{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

func (b *blobServer) handle(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path[1:]
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.objects[key] = data
		b.types[key] = r.Header.Get("Content-Type")
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b.mu.Lock()
		data, ok := b.objects[key]
		contentType := b.types[key]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *blobServer) close() {
	b.server.Close()
}

// PresignedPut and PresignedGet point at the test server; StatObject
// answers from what was actually PUT.
func (b *blobServer) PresignedPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return b.server.URL + "/" + key, nil
}

func (b *blobServer) StatObject(_ context.Context, key string) (*storage.ObjectMetadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectMissing
	}
	return &storage.ObjectMetadata{
		ContentType: b.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (b *blobServer) PresignedGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return b.server.URL + "/" + key, nil
}

// fixture wires real services over the in-memory stores and the blob
// server, plus a router with the public routes.
type fixture struct {
	router   *gin.Engine
	blob     *blobServer
	tokens   *services.TokenService
	images   *services.ImageService
	rawToken string
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)

	blob := newBlobServer()
	tokens := services.NewTokenService(newTestTokenStore())
	images := services.NewImageService(newTestImageStore())
	intents := services.NewIntentService(tokens, newTestIntentStore(), images, blob)
	resolver := services.NewResolverService(images, blob)

	_, raw, err := tokens.Issue(context.Background(), "user-1", "test")
	if err != nil {
		panic(err)
	}

	uploadHandler := NewUploadHandler(intents)
	imageHandler := NewImageHandler(images, resolver)

	router := gin.New()
	router.POST("/api/cli/upload", uploadHandler.Upload)
	router.GET("/i/:imageId", imageHandler.GetPublic)

	return &fixture{
		router:   router,
		blob:     blob,
		tokens:   tokens,
		images:   images,
		rawToken: raw,
	}
}
