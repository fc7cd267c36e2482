package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/logger"
	"github.com/agentimages/hoster/internal/markdown"
	"github.com/agentimages/hoster/internal/middleware"
	"github.com/agentimages/hoster/internal/services"
)

// transferTimeout bounds the byte transfer to the blob store; it has to
// cover a full 20 MiB payload on a slow link.
const transferTimeout = 60 * time.Second

// UploadHandler handles the CLI upload admission endpoint.
type UploadHandler struct {
	intents  *services.IntentService
	transfer *http.Client
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(intents *services.IntentService) *UploadHandler {
	return &UploadHandler{
		intents:  intents,
		transfer: &http.Client{Timeout: transferTimeout},
	}
}

// requestOrigin derives the caller-facing origin, honoring forwarding
// proxy headers so generated URLs survive a reverse proxy.
func requestOrigin(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if c.Request.TLS != nil {
			proto = "https"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}

// UploadResponse is the success payload of POST /api/cli/upload. Field
// names follow the CLI contract.
type UploadResponse struct {
	ImageID   string `json:"imageId"`
	ImageURL  string `json:"imageUrl"`
	Markdown  string `json:"markdown"`
	AgentName string `json:"agentName"`
}

// Upload runs the full admission sequence for one multipart request:
// bearer admission, intent open, byte transfer to the presigned handle,
// and finalize. POST /api/cli/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	rawToken := middleware.BearerToken(c)
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token. Use: Authorization: Bearer <token>"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form field `file` is required."})
		return
	}

	agentName := strings.TrimSpace(c.PostForm("agentName"))
	if agentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form field `agentName` is required."})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image uploads are supported."})
		return
	}

	ctx := c.Request.Context()
	open, err := h.intents.Open(ctx, rawToken, services.DeclaredUpload{
		AgentName:        agentName,
		OriginalFileName: fileHeader.Filename,
		ContentType:      contentType,
		ByteSize:         fileHeader.Size,
		MarkdownAlt:      c.PostForm("alt"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.transferBytes(c, open.UploadURL, fileHeader, contentType); err != nil {
		logger.Warn("storage upload failed", "intent_id", open.IntentID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	finalized, err := h.intents.Close(ctx, rawToken, open.IntentID, open.StorageKey)
	if err != nil {
		writeError(c, err)
		return
	}

	imageURL := requestOrigin(c) + services.PublicPath(finalized.ImageID)

	c.JSON(http.StatusOK, UploadResponse{
		ImageID:   finalized.ImageID,
		ImageURL:  imageURL,
		Markdown:  markdown.ImageSnippet(finalized.MarkdownAlt, imageURL),
		AgentName: agentName,
	})
}

// transferBytes streams the multipart file to the presigned write
// handle. The admission flow never buffers or inspects the bytes.
func (h *UploadHandler) transferBytes(c *gin.Context, uploadURL string, fileHeader *multipart.FileHeader, contentType string) error {
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("could not read the uploaded file: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPut, uploadURL, file)
	if err != nil {
		return fmt.Errorf("could not build the storage upload request: %w", err)
	}
	req.ContentLength = fileHeader.Size
	req.Header.Set("Content-Type", contentType)

	resp, err := h.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
