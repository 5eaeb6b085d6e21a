package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-scheduler-api/pkg/database"
)

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get(apiKeyContextKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	usage, err := h.Keys.UsageForKey(ctx, apiKey.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	var totalRequests, totalShifts, totalStaff int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalShifts += int64(u.TotalShifts)
		totalStaff += int64(u.TotalStaff)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests": totalRequests,
			"shifts":   totalShifts,
			"staff":    totalStaff,
		},
	})
}
