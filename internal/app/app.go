package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/care-scheduler-api/internal/config"
	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/auth"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
	"github.com/arnavshah/care-scheduler-api/pkg/handlers"
	"github.com/arnavshah/care-scheduler-api/pkg/scheduler"
)

// App holds the wired server components
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Repository *database.Repository
	Auth       *auth.Service
	Assignment *assignment.Service
	Handler    http.Handler
}

// OpenDatabase connects to the configured database and migrates it
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	return database.InitDB(database.Options{URL: cfg.DatabaseURL, Path: cfg.DataPath, LogLevel: level})
}

// NewPlanner builds the planner the configuration asks for
func NewPlanner(cfg *config.Config, log *zap.Logger) *scheduler.Planner {
	planner := scheduler.NewPlanner()
	planner.EnforceWeeklyCap = cfg.EnforceWeeklyCap
	planner.Logger = log.Named("planner")
	return planner
}

// Build opens the database, makes sure an admin exists and assembles the HTTP handler
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	gin.SetMode(cfg.GinMode)

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	repo := database.NewRepository(db)

	authService := auth.NewService(cfg.JWTSecret, cfg.APIMasterSecret)
	if err := authService.EnsureAdminExists(ctx, repo, cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
		return nil, fmt.Errorf("failed to ensure admin user: %w", err)
	}

	planner := NewPlanner(cfg, log)
	assigner := assignment.NewService(repo, planner, log.Named("assignment"))

	h := &handlers.Handler{
		Store:          repo,
		Keys:           repo,
		Auth:           authService,
		Assigner:       assigner,
		Planner:        planner,
		Logger:         log.Named("http"),
		RequestTimeout: cfg.RequestTimeout,
	}
	router, err := handlers.NewRouter(h, handlers.RouterOptions{RequireAPIKey: cfg.RequireAPIKey})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Repository: repo,
		Auth:       authService,
		Assignment: assigner,
		Handler:    cors.AllowAll().Handler(router),
	}, nil
}

// Close releases the database connection
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
