package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
)

// ReconciliationSvcFacade recomputes aggregates from the ledger and the order store.
type ReconciliationSvcFacade interface {
	// Audit diffs stored counters and replicas against recomputed values. It never writes.
	Audit(ctx context.Context, req domain.ReconcileRequest) (*domain.AuditReport, error)

	// Repair audits and applies corrective deltas under the reconciliation lock.
	Repair(ctx context.Context, req domain.ReconcileRequest) (*domain.RepairReport, error)
}
