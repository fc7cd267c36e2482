package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentimages/hoster/internal/apperrors"
	"github.com/agentimages/hoster/internal/services"
)

// writeError maps a core error onto the HTTP surface. AppErrors carry
// their own status, registry lookups map to 404/403, and everything
// else (auth, validation, intent state failures raised mid-protocol)
// surfaces as 400 with a human-readable message.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenNotFound), errors.Is(err, services.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotTokenOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		status, msg := apperrors.StatusFor(err)
		c.JSON(status, gin.H{"error": msg})
	}
}
