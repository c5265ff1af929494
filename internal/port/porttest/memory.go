// Package porttest provides in-memory implementations of the store ports for tests.
package porttest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"github.com/samber/lo"
)

// OrderRepository keeps orders in a map and mimics the revision checks of the Postgres store.
type OrderRepository struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]domain.Order
	sequence []uuid.UUID
	failures map[string]error
	now      func() time.Time
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   make(map[uuid.UUID]domain.Order),
		failures: make(map[string]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Fail makes every following call of method return err until cleared with a nil err.
func (r *OrderRepository) Fail(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.failures, method)
		return
	}
	r.failures[method] = err
}

// Put stores order as-is, bypassing validation. Useful to seed frozen orders.
func (r *OrderRepository) Put(order domain.Order) domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Revision == 0 {
		order.Revision = 1
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now()
		order.UpdatedAt = order.CreatedAt
	}
	if _, ok := r.orders[order.ID]; !ok {
		r.sequence = append(r.sequence, order.ID)
	}
	r.orders[order.ID] = order.Clone()

	return order.Clone()
}

func (r *OrderRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.orders)
}

func (r *OrderRepository) GetOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["GetOrder"]; err != nil {
		return domain.Order{}, err
	}

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("q.GetOrder: %w", port.ErrOrderNotFound)
	}
	return order.Clone(), nil
}

func (r *OrderRepository) SearchOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["SearchOrders"]; err != nil {
		return nil, err
	}

	var result []domain.Order
	for _, id := range r.sequence {
		order := r.orders[id]
		if len(filter.IDs) > 0 && !lo.Contains(filter.IDs, order.ID) {
			continue
		}
		if len(filter.OwnerIDs) > 0 && !lo.Contains(filter.OwnerIDs, order.OwnerID) {
			continue
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, order.Status) {
			continue
		}
		if tr := filter.CreatedAt; tr != nil {
			if tr.After != nil && !order.CreatedAt.After(*tr.After) {
				continue
			}
			if tr.Before != nil && !order.CreatedAt.Before(*tr.Before) {
				continue
			}
		}
		result = append(result, order.Clone())
	}

	return result, nil
}

func (r *OrderRepository) ListOrders(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["ListOrders"]; err != nil {
		return nil, err
	}

	return lo.Map(r.sequence, func(id uuid.UUID, _ int) domain.Order {
		return r.orders[id].Clone()
	}), nil
}

func (r *OrderRepository) InsertOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["InsertOrder"]; err != nil {
		return order, err
	}
	if len(order.Items) == 0 {
		return order, fmt.Errorf("no items in order")
	}

	order.ID = uuid.New()
	order.Revision = 1
	order.CreatedAt = r.now()
	order.UpdatedAt = order.CreatedAt

	r.orders[order.ID] = order.Clone()
	r.sequence = append(r.sequence, order.ID)

	return order.Clone(), nil
}

func (r *OrderRepository) UpdateOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["UpdateOrder"]; err != nil {
		return order, err
	}
	if len(order.Items) == 0 {
		return order, fmt.Errorf("no items in order")
	}

	stored, ok := r.orders[order.ID]
	if !ok {
		return order, fmt.Errorf("q.UpdateOrder: %w", port.ErrOrderNotFound)
	}
	if stored.Revision != order.Revision {
		return order, fmt.Errorf("q.UpdateOrder: %w", port.ErrRevisionConflict)
	}

	order.Revision++
	order.CreatedAt = stored.CreatedAt
	order.UpdatedAt = r.now()
	r.orders[order.ID] = order.Clone()

	return order.Clone(), nil
}

func (r *OrderRepository) DeleteOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failures["DeleteOrder"]; err != nil {
		return false, err
	}

	if _, ok := r.orders[orderID]; !ok {
		return false, nil
	}

	delete(r.orders, orderID)
	r.sequence = slices.DeleteFunc(r.sequence, func(id uuid.UUID) bool {
		return id == orderID
	})

	return true, nil
}

// ItemRepository is an in-memory catalog.
type ItemRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Item
	order []uuid.UUID
	err   error
}

func NewItemRepository(items ...domain.Item) *ItemRepository {
	r := &ItemRepository{items: make(map[uuid.UUID]domain.Item)}
	for _, item := range items {
		r.Put(item)
	}
	return r
}

func (r *ItemRepository) Put(item domain.Item) domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.items[item.ID]; !ok {
		r.order = append(r.order, item.ID)
	}
	r.items[item.ID] = item

	return item
}

func (r *ItemRepository) Remove(itemID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, itemID)
	r.order = slices.DeleteFunc(r.order, func(id uuid.UUID) bool {
		return id == itemID
	})
}

// Fail makes every following call return err; nil clears it.
func (r *ItemRepository) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

func (r *ItemRepository) FindItem(_ context.Context, itemID uuid.UUID) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return domain.Item{}, r.err
	}

	item, ok := r.items[itemID]
	if !ok {
		return domain.Item{}, fmt.Errorf("q.GetItem: %w", port.ErrItemNotFound)
	}
	return item, nil
}

func (r *ItemRepository) InsertItem(_ context.Context, item domain.Item) (domain.Item, error) {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()

	if err != nil {
		return item, err
	}
	return r.Put(item), nil
}

func (r *ItemRepository) ListItems(_ context.Context) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	return lo.Map(r.order, func(id uuid.UUID, _ int) domain.Item {
		return r.items[id]
	}), nil
}
