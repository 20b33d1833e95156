package memory

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/loan_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// OrderRepository keeps orders in a map guarded by a RWMutex. Reads return copies.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository creates an empty in-memory order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

var _ portsrepo.OrderRepositoryFacade = (*OrderRepository)(nil)

func (r *OrderRepository) FindOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperrors.NewNotFoundError("order", orderID)
	}
	return &o, nil
}

func (r *OrderRepository) FindActiveOrderByChatID(_ context.Context, chatID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.ChatID == chatID && !o.IsArchived() {
			found := o
			return &found, nil
		}
	}
	return nil, apperrors.NewNotFoundError("active order for chat", chatID)
}

func (r *OrderRepository) SearchOrders(_ context.Context, criteria domain.OrderSearchCriteria) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, o := range r.orders {
		if criteria.Matches(o) {
			result = append(result, o)
		}
	}
	domain.SortOrdersNewestFirst(result)
	if criteria.Limit > 0 && len(result) > criteria.Limit {
		result = result[:criteria.Limit]
	}
	return result, nil
}

func (r *OrderRepository) ListOrdersAfter(_ context.Context, afterOrderID string, group *string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for id, o := range r.orders {
		if id <= afterOrderID {
			continue
		}
		if group != nil && o.OwnershipGroup != *group {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type orderTotalsKey struct {
	group string
	state domain.OrderState
	class domain.CustomerClass
	date  time.Time
}

func (r *OrderRepository) AggregateOrders(_ context.Context, filter domain.OrderAggregateFilter) ([]domain.OrderTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	buckets := make(map[orderTotalsKey]*domain.OrderTotals)
	keys := make([]orderTotalsKey, 0)
	for _, o := range r.orders {
		if filter.OwnershipGroup != nil && o.OwnershipGroup != *filter.OwnershipGroup {
			continue
		}
		if filter.IssuedFrom != nil && o.IssueDate.Before(*filter.IssuedFrom) {
			continue
		}
		if filter.IssuedTo != nil && o.IssueDate.After(*filter.IssuedTo) {
			continue
		}
		k := orderTotalsKey{group: o.OwnershipGroup, state: o.State, class: o.CustomerClass, date: o.IssueDate}
		t, ok := buckets[k]
		if !ok {
			t = &domain.OrderTotals{
				OwnershipGroup: o.OwnershipGroup,
				State:          o.State,
				CustomerClass:  o.CustomerClass,
				IssueDate:      o.IssueDate,
				Amount:         decimal.Zero,
				IssuedAmount:   decimal.Zero,
			}
			buckets[k] = t
			keys = append(keys, k)
		}
		t.Amount = t.Amount.Add(o.Amount)
		t.IssuedAmount = t.IssuedAmount.Add(o.IssuedAmount)
		t.Count++
	}

	result := make([]domain.OrderTotals, 0, len(keys))
	for _, k := range keys {
		result = append(result, *buckets[k])
	}
	return result, nil
}

func (r *OrderRepository) SaveOrder(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.OrderID]; exists {
		return apperrors.NewAppError(http.StatusConflict, "order "+order.OrderID+" already exists", apperrors.ErrDuplicate)
	}
	if err := r.checkChatLocked(order); err != nil {
		return err
	}
	r.orders[order.OrderID] = order
	return nil
}

func (r *OrderRepository) UpdateOrder(_ context.Context, order domain.Order, expectedState domain.OrderState, expectedAmount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(order.OrderID, expectedState, expectedAmount, string(order.State)); err != nil {
		return err
	}
	if err := r.checkChatLocked(order); err != nil {
		return err
	}
	r.orders[order.OrderID] = order
	return nil
}

func (r *OrderRepository) DeleteOrder(_ context.Context, orderID string, expectedState domain.OrderState, expectedAmount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(orderID, expectedState, expectedAmount, "delete"); err != nil {
		return err
	}
	delete(r.orders, orderID)
	return nil
}

func (r *OrderRepository) checkLocked(orderID string, expectedState domain.OrderState, expectedAmount decimal.Decimal, attempted string) error {
	current, ok := r.orders[orderID]
	if !ok {
		return apperrors.NewNotFoundError("order", orderID)
	}
	if current.State != expectedState || !current.Amount.Equal(expectedAmount) {
		return apperrors.NewConcurrentModificationError(orderID, string(current.State), attempted)
	}
	return nil
}

// checkChatLocked mirrors the orders_active_chat_idx partial unique index: one active order per chat.
func (r *OrderRepository) checkChatLocked(order domain.Order) error {
	if order.ChatID == "" || order.IsArchived() {
		return nil
	}
	for _, o := range r.orders {
		if o.OrderID != order.OrderID && o.ChatID == order.ChatID && !o.IsArchived() {
			return apperrors.NewAppError(http.StatusConflict, "chat "+order.ChatID+" already has active order "+o.OrderID, apperrors.ErrDuplicate)
		}
	}
	return nil
}
