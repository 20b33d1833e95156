package bootstrap

import (
	"context"
	"fmt"

	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/lock"
	"github.com/SscSPs/loan_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/loan_ledger/internal/repositories/memory"
	"github.com/SscSPs/loan_ledger/pkg/database"
	"go.uber.org/zap"
)

// Dependencies are the wired services of one process.
type Dependencies struct {
	Services *portssvc.ServiceContainer
	Calendar *clock.Calendar
}

// Build opens the configured stores and the repair locker and wires the services.
// The returned cleanup closes whatever was opened.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var repos portsrepo.RepositoryProvider
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("Using in-memory storage; data is lost on exit.")
		repos = memory.NewRepositoryProvider()
	default:
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck, log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		closers = append(closers, func() { database.ClosePgxPool(pool, log) })

		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		repos = pgsql.NewRepositoryProvider(pool)
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddress != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		locker = lock.NewRedisLocker(rdb)
		log.Info("Repair lock backed by Redis", zap.String("address", cfg.RedisAddress))
	}

	calendar := clock.NewCalendar(clock.System(), cfg.BusinessLocation)
	return &Dependencies{
		Services: services.NewServiceContainer(cfg, repos, calendar, locker),
		Calendar: calendar,
	}, cleanup, nil
}
