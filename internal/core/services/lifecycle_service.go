package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Operation names reported in OperationError.Operation.
const (
	opCreateOrder      = "create_order"
	opTransitionState  = "transition_state"
	opRecordInterest   = "record_interest"
	opReducePrincipal  = "reduce_principal"
	opRecordAdjustment = "record_adjustment"
)

// lifecycleService runs every order mutation as a sequential pipeline:
// order store, partition replicas, ledger, counters, history.
type lifecycleService struct {
	orderMutator
	history  portssvc.HistorySvcFacade
	calendar *clock.Calendar
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	orderRepo portsrepo.OrderRepositoryFacade,
	partitions portssvc.PartitionSvcFacade,
	ledger portssvc.LedgerSvcFacade,
	counters portssvc.CounterSvcFacade,
	history portssvc.HistorySvcFacade,
	calendar *clock.Calendar,
) portssvc.LifecycleSvcFacade {
	return &lifecycleService{
		orderMutator: orderMutator{
			orderRepo:  orderRepo,
			partitions: partitions,
			ledger:     ledger,
			counters:   counters,
		},
		history:  history,
		calendar: calendar,
	}
}

var _ portssvc.LifecycleSvcFacade = (*lifecycleService)(nil)

func (s *lifecycleService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, actorID string) (*domain.Order, error) {
	p := newPipeline(opCreateOrder, req.OrderID)

	order, err := s.newOrder(req, actorID)
	if err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}
	p.orderID = order.OrderID

	if err := s.insertOrder(ctx, p, order); err != nil {
		return nil, p.fail(ctx, stepOrderWrite, err)
	}

	mutation := domain.CounterMutation{Date: order.IssueDate, Group: order.OwnershipGroup, Deltas: domain.CreationDeltas(order)}
	if err := s.applyCounters(ctx, p, mutation); err != nil {
		return nil, p.fail(ctx, stepCounters, err)
	}

	amount := order.Amount
	s.recordHistory(ctx, actorID, order.ChatID, domain.OperationPayload{
		Kind:      domain.OpOrderCreated,
		OrderID:   order.OrderID,
		ToState:   order.State,
		NewAmount: &amount,
		Counters:  nonZeroMutation(mutation),
	})

	s.LogInfo(ctx, "Order created",
		zap.String("order_id", order.OrderID),
		zap.String("group", order.OwnershipGroup),
		zap.String("amount", order.Amount.String()))
	return &order, nil
}

func (s *lifecycleService) newOrder(req dto.CreateOrderRequest, actorID string) (domain.Order, error) {
	if err := validateRequest(req); err != nil {
		return domain.Order{}, err
	}
	orderID, err := domain.NormalizeOrderID(req.OrderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return domain.Order{}, err
	}
	issueDate, err := domain.ParseBusinessDate(req.IssueDate)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: issueDate must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	if !req.CustomerClass.IsValid() {
		return domain.Order{}, fmt.Errorf("%w: unknown customer class %q", apperrors.ErrValidation, req.CustomerClass)
	}

	now := s.calendar.Now()
	return domain.Order{
		OrderID:        orderID,
		ChatID:         strings.TrimSpace(req.ChatID),
		OwnershipGroup: domain.NormalizeGroup(req.OwnershipGroup),
		IssueDate:      issueDate,
		WeekdayBucket:  domain.WeekdayBucketOf(issueDate),
		CustomerClass:  req.CustomerClass,
		IssuedAmount:   req.Amount,
		Amount:         req.Amount,
		State:          domain.StateNormal,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}, nil
}

func (s *lifecycleService) TransitionState(ctx context.Context, orderID string, target domain.OrderState, actorID string) (*domain.Order, error) {
	p := newPipeline(opTransitionState, orderID)
	if !target.IsValid() {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: unknown state %q", apperrors.ErrValidation, target))
	}
	order, err := s.loadMutableOrder(ctx, p, orderID, "transition to "+string(target))
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.State, target) {
		return nil, p.fail(ctx, stepValidate, &apperrors.StateConflictError{
			OrderID:   order.OrderID,
			Current:   string(order.State),
			Attempted: "transition to " + string(target),
			Reason:    "allowed from " + joinStates(domain.AllowedSources(target)),
		})
	}
	effect, err := domain.TransitionDeltas(order.State, target, order.Amount)
	if err != nil {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: %v", apperrors.ErrStateConflict, err))
	}

	now := s.calendar.Now()
	today := s.calendar.BusinessDate(now)
	updated := *order
	updated.State = target
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = actorID
	if err := s.updateOrder(ctx, p, *order, updated); err != nil {
		return nil, p.fail(ctx, stepOrderWrite, err)
	}

	payload := domain.OperationPayload{
		Kind:       domain.OperationTypeForTransition(target),
		OrderID:    order.OrderID,
		FromState:  order.State,
		ToState:    target,
		PrevAmount: &order.Amount,
		NewAmount:  &updated.Amount,
	}
	if effect.Income != "" {
		record, err := s.recordIncome(ctx, p, domain.NewIncomeRecord{
			Date:      today.Format(domain.DateLayout),
			Type:      effect.Income,
			Amount:    order.Amount,
			Order:     &updated,
			CreatedBy: actorID,
		})
		if err != nil {
			return nil, p.fail(ctx, stepLedger, err)
		}
		payload.IncomeRecordID = record.ID
		payload.IncomeAmount = &record.Amount
	}

	mutation := domain.CounterMutation{Date: today, Group: order.OwnershipGroup, Deltas: effect.Deltas}
	if err := s.applyCounters(ctx, p, mutation); err != nil {
		return nil, p.fail(ctx, stepCounters, err)
	}
	payload.Counters = nonZeroMutation(mutation)
	s.recordHistory(ctx, actorID, order.ChatID, payload)

	s.LogInfo(ctx, "Order state changed",
		zap.String("order_id", order.OrderID),
		zap.String("from", string(order.State)),
		zap.String("to", string(target)))
	return &updated, nil
}

func (s *lifecycleService) RecordInterest(ctx context.Context, orderID string, amount decimal.Decimal, actorID string) (*domain.IncomeRecord, error) {
	p := newPipeline(opRecordInterest, orderID)
	if err := requirePositive("amount", amount); err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}
	order, err := s.loadMutableOrder(ctx, p, orderID, "record interest")
	if err != nil {
		return nil, err
	}

	now := s.calendar.Now()
	today := s.calendar.BusinessDate(now)

	// Touch the row so a concurrent close is detected; nothing to compensate.
	touched := *order
	touched.LastUpdatedAt = now
	touched.LastUpdatedBy = actorID
	if err := s.orderRepo.UpdateOrder(ctx, touched, order.State, order.Amount); err != nil {
		return nil, p.fail(ctx, stepOrderWrite, err)
	}

	record, err := s.recordIncome(ctx, p, domain.NewIncomeRecord{
		Date:      today.Format(domain.DateLayout),
		Type:      domain.IncomeInterest,
		Amount:    amount,
		Order:     &touched,
		CreatedBy: actorID,
	})
	if err != nil {
		return nil, p.fail(ctx, stepLedger, err)
	}

	mutation := domain.CounterMutation{Date: today, Group: order.OwnershipGroup, Deltas: domain.IncomeDeltas(domain.IncomeInterest, amount)}
	if err := s.applyCounters(ctx, p, mutation); err != nil {
		return nil, p.fail(ctx, stepCounters, err)
	}

	s.recordHistory(ctx, actorID, order.ChatID, domain.OperationPayload{
		Kind:           domain.OpInterestRecorded,
		OrderID:        order.OrderID,
		FromState:      order.State,
		ToState:        order.State,
		PrevAmount:     &order.Amount,
		NewAmount:      &order.Amount,
		IncomeRecordID: record.ID,
		IncomeAmount:   &record.Amount,
		Counters:       nonZeroMutation(mutation),
	})
	return record, nil
}

func (s *lifecycleService) ReducePrincipal(ctx context.Context, orderID string, amount decimal.Decimal, actorID string) (*domain.IncomeRecord, error) {
	p := newPipeline(opReducePrincipal, orderID)
	if err := requirePositive("amount", amount); err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}
	order, err := s.loadMutableOrder(ctx, p, orderID, "reduce principal")
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(order.Amount) {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: reduction %s exceeds outstanding amount %s",
			apperrors.ErrValidation, amount, order.Amount))
	}

	now := s.calendar.Now()
	today := s.calendar.BusinessDate(now)
	updated := *order
	updated.Amount = order.Amount.Sub(amount)
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = actorID
	if err := s.updateOrder(ctx, p, *order, updated); err != nil {
		return nil, p.fail(ctx, stepOrderWrite, err)
	}

	record, err := s.recordIncome(ctx, p, domain.NewIncomeRecord{
		Date:      today.Format(domain.DateLayout),
		Type:      domain.IncomePrincipalReduction,
		Amount:    amount,
		Order:     &updated,
		CreatedBy: actorID,
	})
	if err != nil {
		return nil, p.fail(ctx, stepLedger, err)
	}

	mutation := domain.CounterMutation{Date: today, Group: order.OwnershipGroup, Deltas: domain.PrincipalReductionDeltas(order.State, amount)}
	if err := s.applyCounters(ctx, p, mutation); err != nil {
		return nil, p.fail(ctx, stepCounters, err)
	}

	s.recordHistory(ctx, actorID, order.ChatID, domain.OperationPayload{
		Kind:           domain.OpPrincipalReduced,
		OrderID:        order.OrderID,
		FromState:      order.State,
		ToState:        order.State,
		PrevAmount:     &order.Amount,
		NewAmount:      &updated.Amount,
		IncomeRecordID: record.ID,
		IncomeAmount:   &record.Amount,
		Counters:       nonZeroMutation(mutation),
	})
	return record, nil
}

func (s *lifecycleService) RecordAdjustment(ctx context.Context, req dto.RecordAdjustmentRequest, actorID string) (*domain.IncomeRecord, error) {
	p := newPipeline(opRecordAdjustment, "")
	if err := validateRequest(req); err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}
	if req.Amount.IsZero() {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: adjustment amount must be non-zero", apperrors.ErrValidation))
	}
	if err := requireCents("amount", req.Amount); err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}

	today := s.calendar.Today()
	group := domain.NormalizeGroup(req.OwnershipGroup)
	record, err := s.recordIncome(ctx, p, domain.NewIncomeRecord{
		Date:           today.Format(domain.DateLayout),
		Type:           domain.IncomeAdjustment,
		Amount:         req.Amount,
		OwnershipGroup: group,
		Note:           req.Note,
		CreatedBy:      actorID,
	})
	if err != nil {
		return nil, p.fail(ctx, stepLedger, err)
	}

	mutation := domain.CounterMutation{Date: today, Group: group, Deltas: domain.IncomeDeltas(domain.IncomeAdjustment, req.Amount)}
	if err := s.applyCounters(ctx, p, mutation); err != nil {
		return nil, p.fail(ctx, stepCounters, err)
	}

	s.recordHistory(ctx, actorID, strings.TrimSpace(req.ChatID), domain.OperationPayload{
		Kind:           domain.OpAdjustmentRecorded,
		IncomeRecordID: record.ID,
		IncomeAmount:   &record.Amount,
		Counters:       nonZeroMutation(mutation),
		Note:           req.Note,
	})
	return record, nil
}

func (s *lifecycleService) UndoLast(ctx context.Context, actorID string, chatID string) (*domain.HistoryEntry, error) {
	return s.history.UndoLast(ctx, actorID, chatID)
}

// loadMutableOrder re-reads the order and rejects archived ones.
func (s *lifecycleService) loadMutableOrder(ctx context.Context, p *pipeline, rawID string, attempted string) (*domain.Order, error) {
	orderID, err := domain.NormalizeOrderID(rawID)
	if err != nil {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
	}
	p.orderID = orderID

	order, err := s.orderRepo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, p.fail(ctx, stepValidate, err)
	}
	if order.IsArchived() {
		return nil, p.fail(ctx, stepValidate, &apperrors.StateConflictError{
			OrderID:   order.OrderID,
			Current:   string(order.State),
			Attempted: attempted,
			Reason:    "order is archived",
		})
	}
	return order, nil
}

// recordHistory never fails the operation; an unrecorded operation just cannot be undone.
func (s *lifecycleService) recordHistory(ctx context.Context, actorID, chatID string, payload domain.OperationPayload) {
	if _, err := s.history.Record(ctx, actorID, chatID, payload); err != nil {
		s.LogError(ctx, err, "Failed to record operation history; operation will not be undoable",
			zap.String("operation_type", string(payload.Kind)),
			zap.String("order_id", payload.OrderID),
			zap.String("step", stepHistory))
	}
}

func nonZeroMutation(m domain.CounterMutation) *domain.CounterMutation {
	m.Deltas = m.NonZero()
	return &m
}

func joinStates(states []domain.OrderState) string {
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = string(st)
	}
	if len(names) == 0 {
		return "no state"
	}
	return strings.Join(names, ", ")
}

func (s *lifecycleService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	id, err := domain.NormalizeOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return s.orderRepo.FindOrderByID(ctx, id)
}

// SearchOrders reads a partition replica when the criteria name a partitioned dimension and
// falls back to the order store otherwise or when the replica read fails.
func (s *lifecycleService) SearchOrders(ctx context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, error) {
	orders, used, err := s.partitions.Search(ctx, criteria)
	if used && err == nil {
		return orders, nil
	}
	if err != nil {
		s.LogWarn(ctx, "Partition search failed, scanning order store", zap.Error(err))
	}
	return s.orderRepo.SearchOrders(ctx, criteria)
}

func (s *lifecycleService) GetCounters(ctx context.Context, query domain.CounterQuery) (*domain.CounterReport, error) {
	return s.counters.QueryCounters(ctx, query)
}

func (s *lifecycleService) GetIncomeRecords(ctx context.Context, filter domain.IncomeFilter, limit int, nextToken *string) ([]domain.IncomeRecord, *string, error) {
	return s.ledger.ListIncomeRecords(ctx, filter, limit, nextToken)
}
