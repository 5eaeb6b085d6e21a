package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/internal/app"
	"github.com/arnavshah/care-scheduler-api/internal/config"
	"github.com/arnavshah/care-scheduler-api/internal/logging"
)

var (
	h       http.Handler
	initErr error
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		initErr = err
		return
	}

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build app", zap.Error(err))
		initErr = err
		return
	}
	h = a.Handler
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, r *http.Request) {
	if initErr != nil {
		http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}
