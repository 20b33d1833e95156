package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/lock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	orderScanPageSize      = 500
	maxReconcileDays       = 366
	defaultScanConcurrency = 4
)

// reconciliationService recomputes counters from the ledger and the order store and rebuilds
// partition replicas from the order store.
type reconciliationService struct {
	BaseService
	orderRepo     portsrepo.OrderRepositoryFacade
	partitionRepo portsrepo.PartitionRepositoryFacade
	ledger        portssvc.LedgerSvcFacade
	counters      portssvc.CounterSvcFacade
	calendar      *clock.Calendar
	locker        lock.Locker
	lockTTL       time.Duration
	epsilon       decimal.Decimal
	policy        domain.RepairPolicy

	scanConcurrency int
}

// ReconciliationServiceOption is a function that configures a reconciliationService
type ReconciliationServiceOption func(*reconciliationService)

// WithEpsilon sets the absolute tolerance below which differences are ignored.
func WithEpsilon(epsilon decimal.Decimal) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.epsilon = epsilon.Abs()
	}
}

// WithRepairPolicy sets how repair treats corrections to a negative total.
func WithRepairPolicy(policy domain.RepairPolicy) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.policy = policy
	}
}

// WithLocker sets the lock used to serialize repairs.
func WithLocker(locker lock.Locker, ttl time.Duration) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithScanConcurrency bounds how many partitions an audit scans at once.
func WithScanConcurrency(n int) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		if n > 0 {
			s.scanConcurrency = n
		}
	}
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	orderRepo portsrepo.OrderRepositoryFacade,
	partitionRepo portsrepo.PartitionRepositoryFacade,
	ledger portssvc.LedgerSvcFacade,
	counters portssvc.CounterSvcFacade,
	calendar *clock.Calendar,
	options ...ReconciliationServiceOption,
) portssvc.ReconciliationSvcFacade {
	s := &reconciliationService{
		orderRepo:     orderRepo,
		partitionRepo: partitionRepo,
		ledger:        ledger,
		counters:      counters,
		calendar:      calendar,
		locker:        lock.NewLocalLocker(),
		lockTTL:       5 * time.Minute,
		epsilon:       decimal.NewFromFloat(0.01),
		policy:        domain.RepairStrict,

		scanConcurrency: defaultScanConcurrency,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// auditState carries what an audit read so repair can act on it without re-reading.
type auditState struct {
	report *domain.AuditReport
	orders map[string]domain.Order
}

func (s *reconciliationService) Audit(ctx context.Context, req domain.ReconcileRequest) (*domain.AuditReport, error) {
	state, err := s.audit(ctx, req)
	if err != nil {
		return nil, err
	}
	return state.report, nil
}

func (s *reconciliationService) audit(ctx context.Context, req domain.ReconcileRequest) (*auditState, error) {
	from, to, err := validateRange(req)
	if err != nil {
		return nil, err
	}

	report := &domain.AuditReport{
		From:          from,
		To:            to,
		Group:         req.Group,
		Discrepancies: make([]domain.CounterDiscrepancy, 0),
		Partitions:    make([]domain.PartitionDrift, 0),
	}

	expected, err := s.expectedRows(ctx, req.Group, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range expected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stored, err := s.counters.GetCounter(ctx, row.Scope)
		if err != nil {
			return nil, err
		}
		for _, field := range domain.CounterFields {
			want, audited := row.Values[field]
			if !audited {
				continue
			}
			ok, err := s.counters.SupportsField(ctx, field)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			have := stored.Values.Get(field)
			diff := want.Sub(have)
			if diff.Abs().LessThanOrEqual(s.epsilon) {
				continue
			}
			report.Discrepancies = append(report.Discrepancies, domain.CounterDiscrepancy{
				Scope:      row.Scope,
				Field:      field,
				Expected:   want,
				Stored:     have,
				Difference: diff,
				Status:     domain.DiscrepancyOpen,
			})
		}
		report.RowsChecked++
	}

	orders, err := s.loadOrders(ctx, req.Group)
	if err != nil {
		return nil, err
	}
	if report.Partitions, err = s.partitionDrift(ctx, orders, req.Group); err != nil {
		return nil, err
	}

	report.GeneratedAt = s.calendar.Now()
	s.LogInfo(ctx, "Reconciliation audit finished",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("rows_checked", report.RowsChecked),
		zap.Int("counter_discrepancies", len(report.Discrepancies)),
		zap.Int("partition_drifts", len(report.Partitions)))
	return &auditState{report: report, orders: orders}, nil
}

func validateRange(req domain.ReconcileRequest) (time.Time, time.Time, error) {
	if req.From.IsZero() || req.To.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: reconciliation requires a date range", apperrors.ErrValidation)
	}
	from, to := domain.TruncateToDate(req.From), domain.TruncateToDate(req.To)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date range ends before it starts", apperrors.ErrValidation)
	}
	if to.Sub(from) > maxReconcileDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date range exceeds %d days", apperrors.ErrValidation, maxReconcileDays)
	}
	return from, to, nil
}

// expectedRows recomputes every audited counter row. Global and group rows carry state,
// ledger and volume fields over all time; daily rows carry ledger and volume fields only.
func (s *reconciliationService) expectedRows(ctx context.Context, group *string, from, to time.Time) ([]domain.CounterRow, error) {
	orderTotals, err := s.orderRepo.AggregateOrders(ctx, domain.OrderAggregateFilter{OwnershipGroup: group})
	if err != nil {
		return nil, err
	}
	incomeTotals, err := s.ledger.AggregateIncome(ctx, domain.IncomeFilter{OwnershipGroup: group})
	if err != nil {
		return nil, err
	}

	groups, err := s.auditedGroups(ctx, group, orderTotals, incomeTotals)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.CounterRow, 0)
	if group == nil {
		rows = append(rows, domain.CounterRow{
			Scope:  domain.GlobalScope(),
			Values: balanceValues(orderTotals, incomeTotals),
		})
	}
	for _, g := range groups {
		rows = append(rows, domain.CounterRow{
			Scope:  domain.GroupScope(g),
			Values: balanceValues(filterOrderTotals(orderTotals, g, nil), filterIncomeTotals(incomeTotals, g, nil)),
		})
	}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		d := day
		for _, g := range groups {
			rows = append(rows, domain.CounterRow{
				Scope:  domain.DailyScope(d, g),
				Values: flowValues(filterOrderTotals(orderTotals, g, &d), filterIncomeTotals(incomeTotals, g, &d)),
			})
		}
		if group == nil {
			rows = append(rows, domain.CounterRow{
				Scope:  domain.DailyScope(d, ""),
				Values: flowValues(filterOrderTotals(orderTotals, "", &d), filterIncomeTotals(incomeTotals, "", &d)),
			})
		}
	}
	return rows, nil
}

// auditedGroups unions the groups seen in orders, the ledger and the stored group rows so that
// a counter row with no source data left is still audited down to zero.
func (s *reconciliationService) auditedGroups(ctx context.Context, group *string, orders []domain.OrderTotals, income []domain.IncomeTotals) ([]string, error) {
	if group != nil {
		return []string{*group}, nil
	}
	seen := make(map[string]bool)
	for _, t := range orders {
		seen[t.OwnershipGroup] = true
	}
	for _, t := range income {
		seen[t.OwnershipGroup] = true
	}
	stored, err := s.counters.QueryCounters(ctx, domain.CounterQuery{Kind: domain.ScopeGroup})
	if err != nil {
		return nil, err
	}
	for _, row := range stored.Rows {
		seen[row.Scope.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func balanceValues(orders []domain.OrderTotals, income []domain.IncomeTotals) domain.CounterValues {
	return domain.ExpectedStateValues(orders).
		Merge(domain.ExpectedLedgerValues(income)).
		Merge(domain.ExpectedVolumeValues(orders))
}

func flowValues(orders []domain.OrderTotals, income []domain.IncomeTotals) domain.CounterValues {
	return domain.ExpectedLedgerValues(income).Merge(domain.ExpectedVolumeValues(orders))
}

// filterOrderTotals keeps the buckets of group ("" for all) issued on day (nil for any day).
func filterOrderTotals(totals []domain.OrderTotals, group string, day *time.Time) []domain.OrderTotals {
	out := make([]domain.OrderTotals, 0, len(totals))
	for _, t := range totals {
		if group != "" && t.OwnershipGroup != group {
			continue
		}
		if day != nil && !domain.TruncateToDate(t.IssueDate).Equal(*day) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// filterIncomeTotals keeps the buckets of group ("" for all) dated day (nil for any day).
func filterIncomeTotals(totals []domain.IncomeTotals, group string, day *time.Time) []domain.IncomeTotals {
	out := make([]domain.IncomeTotals, 0, len(totals))
	for _, t := range totals {
		if group != "" && t.OwnershipGroup != group {
			continue
		}
		if day != nil && !domain.TruncateToDate(t.Date).Equal(*day) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// loadOrders pages through the order store. Rows that change mid-scan are read as they are.
func (s *reconciliationService) loadOrders(ctx context.Context, group *string) (map[string]domain.Order, error) {
	orders := make(map[string]domain.Order)
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := s.orderRepo.ListOrdersAfter(ctx, after, group, orderScanPageSize)
		if err != nil {
			return nil, err
		}
		for _, o := range page {
			orders[o.OrderID] = o
		}
		if len(page) < orderScanPageSize {
			return orders, nil
		}
		after = page[len(page)-1].OrderID
	}
}

func (s *reconciliationService) partitionDrift(ctx context.Context, orders map[string]domain.Order, group *string) ([]domain.PartitionDrift, error) {
	type partitionCheck struct {
		ref      domain.PartitionRef
		expected map[string]bool
		rows     []domain.Order
	}

	checks := make([]*partitionCheck, 0)
	for _, dim := range domain.PartitionDimensions {
		expected := make(map[string]map[string]bool)
		for id, o := range orders {
			key := domain.SanitizePartitionKey(o.PartitionValue(dim))
			if expected[key] == nil {
				expected[key] = make(map[string]bool)
			}
			expected[key][id] = true
		}

		keys, err := s.partitionRepo.ListPartitionKeys(ctx, dim)
		if err != nil {
			return nil, err
		}
		for key := range expected {
			keys = append(keys, key)
		}
		for _, key := range uniqueSorted(keys) {
			checks = append(checks, &partitionCheck{
				ref:      domain.PartitionRef{Dimension: dim, Key: key},
				expected: expected[key],
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanConcurrency)
	for _, check := range checks {
		check := check
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := s.partitionRepo.ScanPartition(gctx, check.ref)
			if err != nil {
				return err
			}
			check.rows = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	drifts := make([]domain.PartitionDrift, 0)
	for _, check := range checks {
		present := make(map[string]bool, len(check.rows))
		for _, row := range check.rows {
			if group != nil && row.OwnershipGroup != *group {
				continue
			}
			present[row.OrderID] = true
			switch {
			case !check.expected[row.OrderID]:
				drifts = append(drifts, domain.PartitionDrift{Partition: check.ref, OrderID: row.OrderID, Kind: domain.DriftStale})
			case !sameReplica(row, orders[row.OrderID]):
				drifts = append(drifts, domain.PartitionDrift{Partition: check.ref, OrderID: row.OrderID, Kind: domain.DriftOutdated})
			}
		}
		missing := make([]string, 0)
		for id := range check.expected {
			if !present[id] {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		for _, id := range missing {
			drifts = append(drifts, domain.PartitionDrift{Partition: check.ref, OrderID: id, Kind: domain.DriftMissing})
		}
	}
	return drifts, nil
}

// sameReplica compares the business columns of a replica row with its order.
func sameReplica(replica, order domain.Order) bool {
	return replica.ChatID == order.ChatID &&
		replica.OwnershipGroup == order.OwnershipGroup &&
		replica.IssueDate.Equal(order.IssueDate) &&
		replica.WeekdayBucket == order.WeekdayBucket &&
		replica.CustomerClass == order.CustomerClass &&
		replica.IssuedAmount.Equal(order.IssuedAmount) &&
		replica.Amount.Equal(order.Amount) &&
		replica.State == order.State
}

func uniqueSorted(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func (s *reconciliationService) Repair(ctx context.Context, req domain.ReconcileRequest) (*domain.RepairReport, error) {
	lockKey := "reconcile:all"
	if req.Group != nil {
		lockKey = "reconcile:" + *req.Group
	}
	held, err := s.locker.Obtain(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("obtain %s: %w", lockKey, err)
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			s.LogWarn(ctx, "Failed to release reconciliation lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	state, err := s.audit(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &domain.RepairReport{
		Audit:        *state.report,
		Corrected:    make([]domain.CounterDiscrepancy, 0),
		ManualReview: make([]domain.CounterDiscrepancy, 0),
		Policy:       s.policy,
	}

	for i := range report.Audit.Discrepancies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d := &report.Audit.Discrepancies[i]
		if reason := s.refuse(*d); reason != "" {
			d.Status = domain.DiscrepancyManualReview
			d.Reason = reason
			report.ManualReview = append(report.ManualReview, *d)
			s.LogWarn(ctx, "Counter correction needs manual review",
				zap.String("scope", d.Scope.Key()),
				zap.String("field", string(d.Field)),
				zap.String("expected", d.Expected.String()),
				zap.String("reason", reason))
			continue
		}
		if err := s.correct(ctx, *d); err != nil {
			return report, err
		}
		d.Status = domain.DiscrepancyCorrected
		report.Corrected = append(report.Corrected, *d)
	}

	for i := range report.Audit.Partitions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		drift := &report.Audit.Partitions[i]
		if err := s.fixPartition(ctx, *drift, state.orders); err != nil {
			return report, err
		}
		drift.Fixed = true
		report.PartitionsFixed++
	}

	s.LogInfo(ctx, "Reconciliation repair finished",
		zap.Int("corrected", len(report.Corrected)),
		zap.Int("manual_review", len(report.ManualReview)),
		zap.Int("partitions_fixed", report.PartitionsFixed),
		zap.String("policy", string(s.policy)))
	return report, nil
}

// refuse returns why a correction must not be applied under the configured policy.
func (s *reconciliationService) refuse(d domain.CounterDiscrepancy) string {
	if s.policy == domain.RepairUnconditional {
		return ""
	}
	if !d.Field.MayBeNegative() && d.Expected.IsNegative() {
		return "correction would leave a negative total"
	}
	return ""
}

// correct applies expected minus stored through the counter update primitives.
func (s *reconciliationService) correct(ctx context.Context, d domain.CounterDiscrepancy) error {
	switch d.Scope.Kind {
	case domain.ScopeGlobal:
		return s.counters.AddGlobal(ctx, d.Field, d.Difference)
	case domain.ScopeGroup:
		return s.counters.AddGroup(ctx, d.Scope.Group, d.Field, d.Difference)
	case domain.ScopeDaily:
		return s.counters.AddDaily(ctx, d.Scope.Date, d.Scope.Group, d.Field, d.Difference)
	}
	return fmt.Errorf("%w: unknown counter scope %q", apperrors.ErrValidation, d.Scope.Kind)
}

func (s *reconciliationService) fixPartition(ctx context.Context, drift domain.PartitionDrift, orders map[string]domain.Order) error {
	if drift.Kind == domain.DriftStale {
		return s.partitionRepo.DeletePartitionRow(ctx, drift.Partition, drift.OrderID)
	}
	order, ok := orders[drift.OrderID]
	if !ok {
		return fmt.Errorf("%w: order %s vanished during repair", apperrors.ErrConcurrentModification, drift.OrderID)
	}
	return s.partitionRepo.UpsertPartitionRow(ctx, drift.Partition, order)
}
