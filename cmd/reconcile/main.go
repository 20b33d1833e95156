// Command reconcile audits or repairs the aggregate counters and the order replicas
// for a range of business days.
//
//	reconcile --from 2024-03-01 --to 2024-03-31 [--group NORTH] [--repair] [--policy unconditional] [--epsilon 0.01]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/bootstrap"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitDrift = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		params dto.ReconcileParams
		repair bool
	)
	flags := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	flags.StringVar(&params.From, "from", "", "first business day, YYYY-MM-DD (required)")
	flags.StringVar(&params.To, "to", "", "last business day, YYYY-MM-DD (defaults to --from)")
	flags.StringVar(&params.OwnershipGroup, "group", "", "limit to one ownership group")
	flags.BoolVar(&repair, "repair", false, "apply corrections instead of only reporting")
	flags.String("policy", "", "override REPAIR_POLICY (strict|unconditional)")
	flags.String("epsilon", "", "override RECONCILE_EPSILON")
	flags.String("storage", "", "override STORAGE_DRIVER (pgsql|memory)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return exitError
	}
	if params.To == "" {
		params.To = params.From
	}

	// flags that were set win over the environment
	for key, name := range map[string]string{
		"REPAIR_POLICY":     "policy",
		"RECONCILE_EPSILON": "epsilon",
		"STORAGE_DRIVER":    "storage",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to bind --%s: %v\n", name, err)
			return exitError
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitError
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return exitError
	}
	defer func() { _ = log.Sync() }()

	req, err := params.ToRequest()
	if err != nil {
		log.Error("Invalid range", zap.Error(err))
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to wire dependencies", zap.Error(err))
		return exitError
	}
	defer cleanup()

	var report any
	var drift error
	if repair {
		res, err := deps.Services.Reconciliation.Repair(ctx, req)
		if err != nil {
			log.Error("Repair failed", zap.Error(err))
			return exitError
		}
		log.Info("Repair finished",
			zap.Int("corrected", len(res.Corrected)),
			zap.Int("manual_review", len(res.ManualReview)),
			zap.Int("partitions_fixed", res.PartitionsFixed),
		)
		report = res
		if len(res.ManualReview) > 0 {
			drift = fmt.Errorf("%w: %d corrections need manual review", apperrors.ErrDriftDetected, len(res.ManualReview))
		}
	} else {
		res, err := deps.Services.Reconciliation.Audit(ctx, req)
		if err != nil {
			log.Error("Audit failed", zap.Error(err))
			return exitError
		}
		report = res
		drift = res.Drift()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error("Failed to write report", zap.Error(err))
		return exitError
	}

	if errors.Is(drift, apperrors.ErrDriftDetected) {
		log.Warn("Drift remains", zap.Error(drift))
		return exitDrift
	}
	return exitOK
}
