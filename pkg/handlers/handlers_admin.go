package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/pkg/auth"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
)

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.Keys.FindUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.internalError(c, err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:       key,
		Name:      req.Name,
		RateLimit: req.RateLimit,
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Keys.CreateAPIKey(ctx, &apiKey); err != nil {
		h.internalError(c, err)
		return
	}

	h.Logger.Info("api key issued", zap.String("name", req.Name), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	keys, err := h.Keys.ListAPIKeys(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Keys.DeleteAPIKey(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}

	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Keys.UpdateKeyLimit(ctx, id, req.RateLimit); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	usage, err := h.Keys.UsageForKey(ctx, id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

func keyID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return 0, false
	}
	return uint(id), true
}
