package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// Version is reported by the banner route
const Version = "1.0.0"

// RouterOptions controls route protection
type RouterOptions struct {
	// RequireAPIKey puts the care and assignment routes behind HMAC API keys
	RequireAPIKey bool
}

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}
	if err := models.RegisterValidations(v); err != nil {
		return nil, fmt.Errorf("failed to register validations: %w", err)
	}

	r := gin.New()
	r.Use(RequestLogger(h.Logger), Recovery(h.Logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Care Scheduler API",
			"version": Version,
		})
	})
	r.GET("/health", h.Health)

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	care := r.Group("/")
	if opts.RequireAPIKey {
		care.Use(h.APIKeyMiddleware())
	}
	{
		care.POST("/residents", h.CreateResident)
		care.GET("/residents", h.ListResidents)
		care.POST("/staff", h.CreateStaff)
		care.GET("/staff", h.ListStaff)
		care.POST("/shifts", h.CreateShift)
		care.GET("/shifts", h.ListShifts)
		care.POST("/tasks", h.CreateTask)
		care.GET("/tasks", h.ListTasks)
		care.PATCH("/tasks/:id/status", h.UpdateTaskStatus)

		care.POST("/assign/auto", h.AutoAssign)
		care.POST("/assign/plan", h.PlanSnapshot)
		care.POST("/assign/validate", h.ValidateSnapshot)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/usage", h.GetMyUsage)
	}

	return r, nil
}

// RequestLogger logs one line per request through zap
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Recovery turns panics into 500 responses and logs them
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("panic recovered", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
