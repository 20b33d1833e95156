package handlers

import (
	"fmt"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	calendar *clock.Calendar,
) error {
	corsConfig := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.ActorHeader, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return setupAPIV1Routes(r, cfg, services, calendar)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	calendar *clock.Calendar,
) error {
	limiter, err := middleware.NewMemoryLimiter(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to build rate limiter: %w", err)
	}

	v1 := r.Group("/api/v1", middleware.ActorMiddleware(), middleware.RateLimit(limiter))

	registerOrderRoutes(v1, services.Lifecycle)
	registerLedgerRoutes(v1, services.Lifecycle)
	registerHistoryRoutes(v1, services.History, calendar)
	registerReconciliationRoutes(v1, services.Reconciliation)
	return nil
}
