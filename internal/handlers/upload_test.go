package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

func multipartUpload(t *testing.T, fileName, contentType string, fileBytes []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if fileName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart failed: %v", err)
		}
		if _, err := part.Write(fileBytes); err != nil {
			t.Fatalf("part write failed: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer close failed: %v", err)
	}

	return &body, writer.FormDataContentType()
}

func doUpload(f *fixture, bearer string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/cli/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Host = "images.example.com"
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUpload_MissingBearer(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "a.png", "image/png", []byte("png"), map[string]string{"agentName": "codex-agent"})
	w := doUpload(f, "", body, ct)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "", "", nil, map[string]string{"agentName": "codex-agent"})
	w := doUpload(f, f.rawToken, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "file") {
		t.Errorf("error should name the missing field: %s", w.Body.String())
	}
}

func TestUpload_MissingAgentName(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "a.png", "image/png", []byte("png"), map[string]string{"agentName": "  "})
	w := doUpload(f, f.rawToken, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpload_NonImageContentType(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "doc.pdf", "application/pdf", []byte("%PDF"), map[string]string{"agentName": "codex-agent"})
	w := doUpload(f, f.rawToken, body, ct)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.blob.objects) != 0 {
		t.Error("rejected uploads must never reach the blob store")
	}
}

func TestUpload_UnknownToken(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "a.png", "image/png", []byte("png"), map[string]string{"agentName": "codex-agent"})
	w := doUpload(f, "ghimg_"+strings.Repeat("0", 48), body, ct)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid token raised by the core, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpload_Success(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	payload := []byte("fake png bytes")
	body, ct := multipartUpload(t, "final render.png", "image/png", payload, map[string]string{
		"agentName": "codex-agent",
		"alt":       `[agent] notes\done`,
	})
	w := doUpload(f, f.rawToken, body, ct)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp.ImageID == "" {
		t.Fatal("expected an image id")
	}
	if resp.AgentName != "codex-agent" {
		t.Errorf("expected agentName echo, got %q", resp.AgentName)
	}

	wantURL := "http://images.example.com/i/" + resp.ImageID
	if resp.ImageURL != wantURL {
		t.Errorf("expected image url %q, got %q", wantURL, resp.ImageURL)
	}
	wantMarkdown := `![\[agent\] notes\\done](` + wantURL + `)`
	if resp.Markdown != wantMarkdown {
		t.Errorf("expected markdown %q, got %q", wantMarkdown, resp.Markdown)
	}

	// The bytes must have landed in the blob store.
	if len(f.blob.objects) != 1 {
		t.Fatalf("expected 1 stored object, got %d", len(f.blob.objects))
	}
	for _, data := range f.blob.objects {
		if !bytes.Equal(data, payload) {
			t.Error("stored bytes differ from the uploaded payload")
		}
	}
}

func TestUpload_ForwardedOrigin(t *testing.T) {
	f := newFixture()
	defer f.blob.close()

	body, ct := multipartUpload(t, "a.png", "image/png", []byte("png"), map[string]string{"agentName": "codex-agent"})
	req := httptest.NewRequest(http.MethodPost, "/api/cli/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+f.rawToken)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "img.public.example")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !strings.HasPrefix(resp.ImageURL, "https://img.public.example/i/") {
		t.Errorf("expected forwarded origin in url, got %q", resp.ImageURL)
	}
}
