package main

import (
	"context"
	"fmt"
	"os"

	"github.com/SscSPs/loan_ledger/internal/bootstrap"
	"github.com/SscSPs/loan_ledger/internal/handlers"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	deps, cleanup, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(log), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	if err := handlers.RegisterRoutes(r, cfg, deps.Services, deps.Calendar); err != nil {
		return err
	}

	log.Info("Server starting", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
	return r.Run(":" + cfg.Port)
}
