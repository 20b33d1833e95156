package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	opUndo = "undo"

	// DefaultUndoDailyLimit is the number of consecutive undos an actor gets per business day.
	DefaultUndoDailyLimit = 3
)

// reversalFunc inverts one kind of operation. It reports failures through p.fail.
type reversalFunc func(ctx context.Context, s *historyService, p *pipeline, entry domain.HistoryEntry, actorID string) error

// reversals is the closed set of undoable operation kinds.
var reversals = map[domain.OperationType]reversalFunc{
	domain.OpOrderCreated:       reverseOrderCreation,
	domain.OpStateChanged:       reverseOrderChange,
	domain.OpOrderCompleted:     reverseOrderChange,
	domain.OpBreachCompleted:    reverseOrderChange,
	domain.OpPrincipalReduced:   reverseOrderChange,
	domain.OpInterestRecorded:   reverseIncomeOnly,
	domain.OpAdjustmentRecorded: reverseIncomeOnly,
}

// historyService records operations and reverses them on request.
type historyService struct {
	orderMutator
	historyRepo portsrepo.HistoryRepositoryFacade
	calendar    *clock.Calendar
	undoLimit   int
}

// HistoryServiceOption is a function that configures a historyService
type HistoryServiceOption func(*historyService)

// WithUndoDailyLimit sets how many consecutive undos an actor may perform per business day.
func WithUndoDailyLimit(limit int) HistoryServiceOption {
	return func(s *historyService) {
		if limit > 0 {
			s.undoLimit = limit
		}
	}
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(
	historyRepo portsrepo.HistoryRepositoryFacade,
	orderRepo portsrepo.OrderRepositoryFacade,
	partitions portssvc.PartitionSvcFacade,
	ledger portssvc.LedgerSvcFacade,
	counters portssvc.CounterSvcFacade,
	calendar *clock.Calendar,
	options ...HistoryServiceOption,
) portssvc.HistorySvcFacade {
	s := &historyService{
		orderMutator: orderMutator{
			orderRepo:  orderRepo,
			partitions: partitions,
			ledger:     ledger,
			counters:   counters,
		},
		historyRepo: historyRepo,
		calendar:    calendar,
		undoLimit:   DefaultUndoDailyLimit,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

var _ portssvc.HistorySvcFacade = (*historyService)(nil)

func (s *historyService) Record(ctx context.Context, actorID string, chatID string, payload domain.OperationPayload) (string, error) {
	if !payload.Kind.IsUndoable() && payload.Kind != domain.OpUndo {
		return "", fmt.Errorf("%w: unknown operation type %q", apperrors.ErrValidation, payload.Kind)
	}
	now := s.calendar.Now()
	entry := domain.HistoryEntry{
		ID:            uuid.NewString(),
		ActorID:       actorID,
		ChatID:        chatID,
		OperationType: payload.Kind,
		Payload:       payload,
		BusinessDate:  s.calendar.BusinessDate(now),
		CreatedAt:     now,
	}
	if err := s.historyRepo.SaveHistoryEntry(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *historyService) GetLast(ctx context.Context, actorID string, chatID string, businessDate time.Time) (*domain.HistoryEntry, error) {
	entries, err := s.List(ctx, actorID, chatID, businessDate)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].IsLive() {
			return &entries[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("undoable operation for actor", actorID)
}

func (s *historyService) List(ctx context.Context, actorID string, chatID string, businessDate time.Time) ([]domain.HistoryEntry, error) {
	return s.historyRepo.ListHistoryEntries(ctx, actorID, chatID, domain.TruncateToDate(businessDate))
}

func (s *historyService) Undo(ctx context.Context, entryID string, actorID string) (*domain.HistoryEntry, error) {
	p := newPipeline(opUndo, "")
	entry, err := s.historyRepo.FindHistoryEntryByID(ctx, entryID)
	if err != nil {
		return nil, p.fail(ctx, stepLookupEntry, err)
	}
	p.orderID = entry.Payload.OrderID
	if err := s.checkUndoLimit(ctx, actorID); err != nil {
		return nil, p.fail(ctx, stepLimitCheck, err)
	}
	return s.undoEntry(ctx, p, *entry, actorID)
}

func (s *historyService) UndoLast(ctx context.Context, actorID string, chatID string) (*domain.HistoryEntry, error) {
	p := newPipeline(opUndo, "")
	if err := s.checkUndoLimit(ctx, actorID); err != nil {
		return nil, p.fail(ctx, stepLimitCheck, err)
	}
	entry, err := s.GetLast(ctx, actorID, chatID, s.calendar.Today())
	if err != nil {
		return nil, p.fail(ctx, stepLookupEntry, err)
	}
	p.orderID = entry.Payload.OrderID
	return s.undoEntry(ctx, p, *entry, actorID)
}

// checkUndoLimit counts the undos at the head of the actor's day across every chat.
func (s *historyService) checkUndoLimit(ctx context.Context, actorID string) error {
	entries, err := s.historyRepo.ListHistoryEntries(ctx, actorID, "", s.calendar.Today())
	if err != nil {
		return err
	}
	if domain.ConsecutiveUndos(entries) >= s.undoLimit {
		return &apperrors.UndoLimitError{ActorID: actorID, Limit: s.undoLimit}
	}
	return nil
}

func (s *historyService) undoEntry(ctx context.Context, p *pipeline, entry domain.HistoryEntry, actorID string) (*domain.HistoryEntry, error) {
	switch {
	case entry.ActorID != actorID:
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: entry %s belongs to another actor", apperrors.ErrNotUndoable, entry.ID))
	case entry.IsUndone:
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: entry %s is already undone", apperrors.ErrNotUndoable, entry.ID))
	}
	reverse, ok := reversals[entry.OperationType]
	if !ok {
		return nil, p.fail(ctx, stepValidate, fmt.Errorf("%w: %s entries cannot be undone", apperrors.ErrNotUndoable, entry.OperationType))
	}

	if err := reverse(ctx, s, p, entry, actorID); err != nil {
		return nil, err
	}

	now := s.calendar.Now()
	if err := s.historyRepo.MarkHistoryEntryUndone(ctx, entry.ID, now); err != nil {
		s.LogError(ctx, err, "Reversal applied but history entry was not flagged", zap.String("entry_id", entry.ID))
		return nil, &apperrors.OperationError{
			Operation: opUndo,
			OrderID:   p.orderID,
			Step:      stepMarkUndone,
			Outcome:   apperrors.OutcomeRepair,
			Err:       fmt.Errorf("%w: entry %s was reversed but not flagged: %w", apperrors.ErrRepairRequired, entry.ID, err),
		}
	}

	undo := undoEntryFor(entry, actorID, s.calendar.BusinessDate(now), now)
	if err := s.historyRepo.SaveHistoryEntry(ctx, undo); err != nil {
		s.LogError(ctx, err, "Reversal applied but undo entry was not recorded", zap.String("undone_entry_id", entry.ID))
		return nil, &apperrors.OperationError{
			Operation: opUndo,
			OrderID:   p.orderID,
			Step:      stepHistory,
			Outcome:   apperrors.OutcomeRepair,
			Err:       fmt.Errorf("%w: entry %s was reversed but the undo was not recorded: %w", apperrors.ErrRepairRequired, entry.ID, err),
		}
	}
	s.LogInfo(ctx, "Operation undone",
		zap.String("entry_id", entry.ID),
		zap.String("operation_type", string(entry.OperationType)),
		zap.String("order_id", entry.Payload.OrderID))
	return &undo, nil
}

func undoEntryFor(entry domain.HistoryEntry, actorID string, businessDate, now time.Time) domain.HistoryEntry {
	original := entry.Payload
	payload := domain.OperationPayload{
		Kind:           domain.OpUndo,
		OrderID:        original.OrderID,
		FromState:      original.ToState,
		ToState:        original.FromState,
		PrevAmount:     original.NewAmount,
		NewAmount:      original.PrevAmount,
		IncomeRecordID: original.IncomeRecordID,
		IncomeAmount:   original.IncomeAmount,
		UndoneEntryID:  entry.ID,
	}
	if original.Counters != nil {
		negated := original.Counters.Negate()
		payload.Counters = &negated
	}
	undoneID := entry.ID
	return domain.HistoryEntry{
		ID:            uuid.NewString(),
		ActorID:       actorID,
		ChatID:        entry.ChatID,
		OperationType: domain.OpUndo,
		Payload:       payload,
		BusinessDate:  businessDate,
		CreatedAt:     now,
		UndoOf:        &undoneID,
	}
}

// verifyOrder loads the order and checks it still has the state and amount the operation left.
func (s *historyService) verifyOrder(ctx context.Context, payload domain.OperationPayload) (*domain.Order, error) {
	if payload.OrderID == "" || payload.NewAmount == nil {
		return nil, fmt.Errorf("%w: history payload lacks the order post-state", apperrors.ErrNotUndoable)
	}
	order, err := s.orderRepo.FindOrderByID(ctx, payload.OrderID)
	if err != nil {
		return nil, err
	}
	if order.State != payload.ToState || !order.Amount.Equal(*payload.NewAmount) {
		return nil, &apperrors.StateConflictError{
			OrderID:   order.OrderID,
			Current:   string(order.State),
			Attempted: "undo of " + string(payload.Kind),
			Reason:    "order changed after the operation",
		}
	}
	return order, nil
}

// checkChatFree refuses to re-open an order while its chat already has another active order.
func (s *historyService) checkChatFree(ctx context.Context, order domain.Order) error {
	if order.ChatID == "" {
		return nil
	}
	active, err := s.orderRepo.FindActiveOrderByChatID(ctx, order.ChatID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &apperrors.StateConflictError{
		OrderID:   order.OrderID,
		Current:   string(order.State),
		Attempted: "re-open",
		Reason:    "chat " + order.ChatID + " already has active order " + active.OrderID,
	}
}

func (s *historyService) negateCounters(ctx context.Context, p *pipeline, payload domain.OperationPayload) error {
	if payload.Counters == nil {
		return nil
	}
	return s.applyCounters(ctx, p, payload.Counters.Negate())
}

func reverseOrderCreation(ctx context.Context, s *historyService, p *pipeline, entry domain.HistoryEntry, _ string) error {
	order, err := s.verifyOrder(ctx, entry.Payload)
	if err != nil {
		return p.fail(ctx, stepVerifyTarget, err)
	}
	if err := s.deleteOrder(ctx, p, *order); err != nil {
		return p.fail(ctx, stepOrderWrite, err)
	}
	if err := s.negateCounters(ctx, p, entry.Payload); err != nil {
		return p.fail(ctx, stepCounters, err)
	}
	return nil
}

// reverseOrderChange restores the pre-operation state and amount. Re-opening a terminal order
// is only possible here.
func reverseOrderChange(ctx context.Context, s *historyService, p *pipeline, entry domain.HistoryEntry, actorID string) error {
	payload := entry.Payload
	if payload.PrevAmount == nil || !payload.FromState.IsValid() {
		return p.fail(ctx, stepValidate, fmt.Errorf("%w: history payload lacks the order pre-state", apperrors.ErrNotUndoable))
	}
	order, err := s.verifyOrder(ctx, payload)
	if err != nil {
		return p.fail(ctx, stepVerifyTarget, err)
	}
	if order.IsArchived() && !payload.FromState.IsTerminal() {
		if err := s.checkChatFree(ctx, *order); err != nil {
			return p.fail(ctx, stepVerifyTarget, err)
		}
	}

	reverted := *order
	reverted.State = payload.FromState
	reverted.Amount = *payload.PrevAmount
	reverted.LastUpdatedAt = s.calendar.Now()
	reverted.LastUpdatedBy = actorID
	if err := s.updateOrder(ctx, p, *order, reverted); err != nil {
		return p.fail(ctx, stepOrderWrite, err)
	}
	if err := s.negateCounters(ctx, p, payload); err != nil {
		return p.fail(ctx, stepCounters, err)
	}
	// The ledger reversal cannot itself be compensated, so it runs last.
	if payload.IncomeRecordID != "" {
		if err := s.ledger.Reverse(ctx, payload.IncomeRecordID, actorID); err != nil {
			return p.fail(ctx, stepLedger, err)
		}
	}
	return nil
}

func reverseIncomeOnly(ctx context.Context, s *historyService, p *pipeline, entry domain.HistoryEntry, actorID string) error {
	payload := entry.Payload
	if payload.IncomeRecordID == "" {
		return p.fail(ctx, stepValidate, fmt.Errorf("%w: history payload lacks the income record", apperrors.ErrNotUndoable))
	}
	record, err := s.ledger.GetIncomeRecord(ctx, payload.IncomeRecordID)
	if err != nil {
		return p.fail(ctx, stepVerifyTarget, err)
	}
	if record.IsReversed {
		return p.fail(ctx, stepVerifyTarget, &apperrors.StateConflictError{
			OrderID:   payload.OrderID,
			Current:   "reversed",
			Attempted: "undo of " + string(payload.Kind),
			Reason:    "income record " + record.ID + " is already reversed",
		})
	}

	if err := s.negateCounters(ctx, p, payload); err != nil {
		return p.fail(ctx, stepCounters, err)
	}
	if err := s.ledger.Reverse(ctx, record.ID, actorID); err != nil {
		if errors.Is(err, apperrors.ErrStateConflict) {
			s.LogWarn(ctx, "Income record reversed concurrently", zap.String("record_id", record.ID))
		}
		return p.fail(ctx, stepLedger, err)
	}
	return nil
}
