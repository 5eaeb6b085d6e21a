package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/auth"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
	"github.com/arnavshah/care-scheduler-api/pkg/models"
	"github.com/arnavshah/care-scheduler-api/pkg/scheduler"
)

// CareStore is the resident, staff, shift and task storage used by the care routes
type CareStore interface {
	Ping(ctx context.Context) ([]string, error)
	CreateResident(ctx context.Context, resident *models.Resident) error
	ListResidents(ctx context.Context) ([]models.Resident, error)
	CreateStaff(ctx context.Context, staff *models.Staff) error
	ListStaff(ctx context.Context) ([]models.Staff, error)
	CreateShift(ctx context.Context, shift *models.Shift) error
	ListShifts(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error)
	CreateTask(ctx context.Context, task *models.CareTask) error
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.CareTask, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (*models.CareTask, error)
}

// KeyStore is the admin user, API key and usage storage
type KeyStore interface {
	FindUser(ctx context.Context, username string) (*database.MasterUser, error)
	FindOrCreateAPIKey(ctx context.Context, key, name string) (*database.APIKey, error)
	CreateAPIKey(ctx context.Context, key *database.APIKey) error
	ListAPIKeys(ctx context.Context) ([]database.APIKey, error)
	DeleteAPIKey(ctx context.Context, id uint) error
	UpdateKeyLimit(ctx context.Context, id uint, limit int) error
	RecordUsage(ctx context.Context, keyID uint, shiftCount, staffCount int) error
	UsageForKey(ctx context.Context, keyID uint) ([]database.APIUsage, error)
}

// Assigner runs auto-assign passes against the store
type Assigner interface {
	AutoAssign(ctx context.Context, req assignment.Request) (*assignment.Result, error)
}

// Handler contains dependencies for the route handlers
type Handler struct {
	Store    CareStore
	Keys     KeyStore
	Auth     *auth.Service
	Assigner Assigner
	Planner  *scheduler.Planner
	Logger   *zap.Logger

	// RequestTimeout bounds the storage work of one request. Zero means no limit.
	RequestTimeout time.Duration
}

const apiKeyContextKey = "apiKey"

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key, loads its record and enforces the daily limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		ctx, cancel := h.requestContext(c)
		defer cancel()

		apiKey, err := h.Keys.FindOrCreateAPIKey(ctx, key, userID)
		if err != nil {
			h.internalError(c, err)
			c.Abort()
			return
		}

		if apiKey.RateLimit > 0 {
			usage, err := h.Keys.UsageForKey(ctx, apiKey.ID)
			if err != nil {
				h.internalError(c, err)
				c.Abort()
				return
			}
			today := time.Now().Format(models.DateLayout)
			if len(usage) > 0 && usage[0].Date == today && usage[0].RequestCount >= apiKey.RateLimit {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily rate limit exceeded"})
				return
			}
		}

		c.Set(apiKeyContextKey, apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// RecordUsage adds the request to the calling key's usage for today.
// Requests without an API key are not recorded.
func (h *Handler) RecordUsage(c *gin.Context, shiftCount, staffCount int) {
	apiKey, ok := c.Get(apiKeyContextKey)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Keys.RecordUsage(ctx, apiKey.(*database.APIKey).ID, shiftCount, staffCount); err != nil {
		h.Logger.Warn("failed to record usage", zap.Error(err))
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
}

// writeError maps service and storage errors onto status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, assignment.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.Logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
