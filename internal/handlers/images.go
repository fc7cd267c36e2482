package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/logger"
	"github.com/agentimages/hoster/internal/middleware"
	"github.com/agentimages/hoster/internal/services"
)

// downloadTimeout bounds the proxied read from the blob store.
const downloadTimeout = 60 * time.Second

var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFileName restricts a file name to a safe character set before
// it is placed in a Content-Disposition header.
func sanitizeFileName(fileName string) string {
	return unsafeFileNameChars.ReplaceAllString(fileName, "_")
}

// ImageHandler serves public image resolution and the dashboard image
// listing.
type ImageHandler struct {
	images   *services.ImageService
	resolver *services.ResolverService
	download *http.Client
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(images *services.ImageService, resolver *services.ResolverService) *ImageHandler {
	return &ImageHandler{
		images:   images,
		resolver: resolver,
		download: &http.Client{Timeout: downloadTimeout},
	}
}

// GetPublic streams an image to an anonymous reader. Responses are
// immutable-cacheable: a catalog record never changes once created.
// GET /i/:imageId
func (h *ImageHandler) GetPublic(c *gin.Context) {
	imageID := c.Param("imageId")

	resolved, err := h.resolver.Resolve(c.Request.Context(), imageID)
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			c.String(http.StatusNotFound, "Image not found")
			return
		}
		logger.Warn("image resolution failed", "image_id", imageID, "error", err)
		c.String(http.StatusBadGateway, "Image is unavailable")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, resolved.DownloadURL, nil)
	if err != nil {
		c.String(http.StatusBadGateway, "Image is unavailable")
		return
	}
	resp, err := h.download.Do(req)
	if err != nil {
		logger.Warn("image download failed", "image_id", imageID, "error", err)
		c.String(http.StatusBadGateway, "Image is unavailable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.String(http.StatusBadGateway, "Image is unavailable")
		return
	}

	extraHeaders := map[string]string{
		"Content-Disposition": `inline; filename="` + sanitizeFileName(resolved.OriginalFileName) + `"`,
		"Cache-Control":       "public, max-age=31536000, s-maxage=31536000, immutable",
	}
	c.DataFromReader(http.StatusOK, resolved.ByteSize, resolved.ContentType, resp.Body, extraHeaders)
}

// List returns the authenticated user's images, newest first.
// GET /api/images
func (h *ImageHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	summaries, err := h.images.ListForUser(c.Request.Context(), userID, services.MaxImageListPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": summaries})
}
