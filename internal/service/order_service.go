package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"go.uber.org/zap"
)

// OperationRecorder counts order operations by outcome.
type OperationRecorder interface {
	RecordOrderOperation(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOrderOperation(string, string) {}

// AddItemRequest is the input of AddOrCreate. OrderID is uuid.Nil when the
// caller does not point at an existing order.
type AddItemRequest struct {
	ItemID        uuid.UUID
	Quantity      int
	OrderID       uuid.UUID
	PostalAddress string
}

// RemoveItemResult carries the updated order, or Deleted when removing the
// last line item deleted the whole order.
type RemoveItemResult struct {
	Order   domain.Order
	Deleted bool
}

// OrderService owns the order lifecycle: creating and merging carts,
// removing items, editing the address, confirming and deleting orders.
type OrderService struct {
	orders   port.OrderRepository
	items    port.ItemCatalog
	locker   port.Locker
	events   port.OrderEventPublisher
	recorder OperationRecorder
	logger   *zap.Logger
}

type Option func(*OrderService)

func WithLocker(locker port.Locker) Option {
	return func(s *OrderService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func WithEventPublisher(publisher port.OrderEventPublisher) Option {
	return func(s *OrderService) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

func WithRecorder(recorder OperationRecorder) Option {
	return func(s *OrderService) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewOrderService(orders port.OrderRepository, items port.ItemCatalog, opts ...Option) (*OrderService, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders repository is nil")
	}
	if items == nil {
		return nil, fmt.Errorf("item catalog is nil")
	}

	s := &OrderService{
		orders:   orders,
		items:    items,
		locker:   port.NopLocker{},
		events:   port.NopPublisher{},
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// AddOrCreate puts quantity units of an item into the caller's open order,
// or opens a new order when there is none to merge into.
func (s *OrderService) AddOrCreate(ctx context.Context, identity domain.Identity, req AddItemRequest) (_ domain.Order, err error) {
	defer s.record("add_or_create", &err)

	if !identity.IsAuthenticated() {
		return domain.Order{}, ErrUnauthorized
	}
	if req.ItemID == uuid.Nil {
		return domain.Order{}, newValidationError("itemId", "is required")
	}
	if req.Quantity <= 0 {
		return domain.Order{}, newValidationError("quantity", "must be greater than zero")
	}
	if req.Quantity > domain.MaxItemQuantity {
		return domain.Order{}, newValidationError("quantity", "is too large")
	}

	item, err := s.findItem(ctx, req.ItemID)
	if err != nil {
		return domain.Order{}, err
	}

	var found *domain.Order
	if req.OrderID != uuid.Nil {
		unlock, err := s.lock(ctx, req.OrderID)
		if err != nil {
			return domain.Order{}, err
		}
		defer unlock()

		orders, err := s.orders.SearchOrders(ctx, domain.OrderFilter{
			IDs:      []uuid.UUID{req.OrderID},
			OwnerIDs: []string{identity.UserID},
		})
		if err != nil {
			return domain.Order{}, storageError("orders.SearchOrders", err)
		}
		if len(orders) > 0 {
			found = &orders[0]
		}
	}

	switch decision := domain.DecideAdd(found, identity.UserID).(type) {
	case domain.MergeInto:
		order := decision.Order
		if err := order.MergeItem(item.ID, req.Quantity, item.Price); err != nil {
			if errors.Is(err, domain.ErrQuantityTooLarge) {
				return domain.Order{}, newValidationError("quantity", "is too large")
			}
			return domain.Order{}, newValidationError("itemId", err.Error())
		}

		saved, err := s.save(ctx, order)
		if err != nil {
			return domain.Order{}, err
		}

		s.logger.Info("item merged into order",
			zap.Stringer("order_id", saved.ID),
			zap.String("user_id", identity.UserID),
			zap.Stringer("item_id", item.ID),
			zap.Int("quantity", req.Quantity),
		)
		return saved, nil

	default:
		postalAddress := strings.TrimSpace(req.PostalAddress)
		if postalAddress == "" {
			return domain.Order{}, newValidationError("postalAddress", "is required")
		}

		order := domain.NewOrder(identity.UserID, item.ID, req.Quantity, item.Price, postalAddress)

		created, err := s.orders.InsertOrder(ctx, order)
		if err != nil {
			return domain.Order{}, storageError("orders.InsertOrder", err)
		}

		s.logger.Info("order created",
			zap.Stringer("order_id", created.ID),
			zap.String("user_id", identity.UserID),
			zap.Stringer("item_id", item.ID),
			zap.Int("quantity", req.Quantity),
		)
		return created, nil
	}
}

// RemoveItem takes one unit of itemID out of an open order. An order left
// without line items is deleted.
func (s *OrderService) RemoveItem(ctx context.Context, identity domain.Identity, orderID, itemID uuid.UUID) (_ RemoveItemResult, err error) {
	defer s.record("remove_item", &err)

	if !identity.IsAuthenticated() {
		return RemoveItemResult{}, ErrUnauthorized
	}
	if orderID == uuid.Nil {
		return RemoveItemResult{}, newValidationError("orderId", "is required")
	}
	if itemID == uuid.Nil {
		return RemoveItemResult{}, newValidationError("itemId", "is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return RemoveItemResult{}, err
	}
	defer unlock()

	order, err := s.findMutable(ctx, identity.UserID, orderID)
	if err != nil {
		return RemoveItemResult{}, err
	}

	if order.ItemIndex(itemID) < 0 {
		return RemoveItemResult{}, ErrItemNotInOrder
	}

	item, err := s.findItem(ctx, itemID)
	if err != nil {
		return RemoveItemResult{}, err
	}

	if err := order.RemoveUnit(itemID, item.Price); err != nil {
		if errors.Is(err, domain.ErrItemNotInOrder) {
			return RemoveItemResult{}, ErrItemNotInOrder
		}
		return RemoveItemResult{}, newValidationError("itemId", err.Error())
	}

	if order.IsEmpty() {
		if _, err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
			return RemoveItemResult{}, storageError("orders.DeleteOrder", err)
		}

		s.logger.Info("order deleted as it has no items left",
			zap.Stringer("order_id", order.ID),
			zap.String("user_id", identity.UserID),
		)
		return RemoveItemResult{Order: order, Deleted: true}, nil
	}

	saved, err := s.save(ctx, order)
	if err != nil {
		return RemoveItemResult{}, err
	}

	s.logger.Info("item removed from order",
		zap.Stringer("order_id", saved.ID),
		zap.String("user_id", identity.UserID),
		zap.Stringer("item_id", itemID),
	)
	return RemoveItemResult{Order: saved}, nil
}

func (s *OrderService) EditPostalAddress(ctx context.Context, identity domain.Identity, orderID uuid.UUID, postalAddress string) (_ domain.Order, err error) {
	defer s.record("edit_postal_address", &err)

	if !identity.IsAuthenticated() {
		return domain.Order{}, ErrUnauthorized
	}
	postalAddress = strings.TrimSpace(postalAddress)
	if postalAddress == "" {
		return domain.Order{}, newValidationError("postalAddress", "is required")
	}
	if orderID == uuid.Nil {
		return domain.Order{}, newValidationError("orderId", "is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	defer unlock()

	order, err := s.findMutable(ctx, identity.UserID, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order.PostalAddress = postalAddress

	saved, err := s.save(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("postal address edited",
		zap.Stringer("order_id", saved.ID),
		zap.String("user_id", identity.UserID),
	)
	return saved, nil
}

// ConfirmOrder moves an open order to pending, which freezes its contents,
// and hands it over to fulfillment.
func (s *OrderService) ConfirmOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (_ domain.Order, err error) {
	defer s.record("confirm", &err)

	if !identity.IsAuthenticated() {
		return domain.Order{}, ErrUnauthorized
	}
	if orderID == uuid.Nil {
		return domain.Order{}, newValidationError("orderId", "is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	defer unlock()

	order, err := s.findMutable(ctx, identity.UserID, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusPending

	saved, err := s.save(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	logger := s.logger.With(
		zap.Stringer("order_id", saved.ID),
		zap.String("user_id", identity.UserID),
	)
	logger.Info("order confirmed")

	// the confirmation stands even if fulfillment is not notified
	if err := s.events.PublishOrderConfirmed(ctx, saved); err != nil {
		logger.Error("order confirmed event not published", zap.Error(err))
		s.recorder.RecordOrderOperation("confirm_publish", "publish_failed")
	}

	return saved, nil
}

// DeleteOrder removes the order whatever its owner or status and succeeds
// even when nothing matched.
func (s *OrderService) DeleteOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (err error) {
	defer s.record("delete", &err)

	if !identity.IsAuthenticated() {
		return ErrUnauthorized
	}
	if orderID == uuid.Nil {
		return newValidationError("orderId", "is required")
	}

	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	deleted, err := s.orders.DeleteOrder(ctx, orderID)
	if err != nil {
		return storageError("orders.DeleteOrder", err)
	}

	s.logger.Info("order deleted",
		zap.Stringer("order_id", orderID),
		zap.String("user_id", identity.UserID),
		zap.Bool("existed", deleted),
	)
	return nil
}

// GetOrder returns the order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (_ domain.Order, err error) {
	defer s.record("get", &err)

	if !identity.IsAuthenticated() {
		return domain.Order{}, ErrUnauthorized
	}
	if orderID == uuid.Nil {
		return domain.Order{}, newValidationError("orderId", "is required")
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, port.ErrOrderNotFound) {
			return domain.Order{}, ErrNotFound
		}
		return domain.Order{}, storageError("orders.GetOrder", err)
	}

	if !order.IsOwnedBy(identity.UserID) && !identity.IsAdmin() {
		return domain.Order{}, ErrForbidden
	}

	return order, nil
}

func (s *OrderService) ListOwnOrders(ctx context.Context, identity domain.Identity) (_ []domain.Order, err error) {
	defer s.record("list_own", &err)

	if !identity.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	orders, err := s.orders.SearchOrders(ctx, domain.OrderFilter{OwnerIDs: []string{identity.UserID}})
	if err != nil {
		return nil, storageError("orders.SearchOrders", err)
	}

	return orders, nil
}

// ListAllOrders is open to any authenticated caller.
func (s *OrderService) ListAllOrders(ctx context.Context, identity domain.Identity) (_ []domain.Order, err error) {
	defer s.record("list_all", &err)

	if !identity.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, storageError("orders.ListOrders", err)
	}

	return orders, nil
}

func (s *OrderService) findItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	item, err := s.items.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, port.ErrItemNotFound) {
			return domain.Item{}, ErrItemNotFound
		}
		return domain.Item{}, storageError("items.FindItem", err)
	}
	return item, nil
}

// findMutable looks up an order of userID that is still in status none.
func (s *OrderService) findMutable(ctx context.Context, userID string, orderID uuid.UUID) (domain.Order, error) {
	orders, err := s.orders.SearchOrders(ctx, domain.OrderFilter{
		IDs:      []uuid.UUID{orderID},
		OwnerIDs: []string{userID},
		Statuses: []domain.OrderStatus{domain.OrderStatusNone},
	})
	if err != nil {
		return domain.Order{}, storageError("orders.SearchOrders", err)
	}
	if len(orders) == 0 {
		return domain.Order{}, ErrNotFoundOrLocked
	}
	return orders[0], nil
}

func (s *OrderService) save(ctx context.Context, order domain.Order) (domain.Order, error) {
	saved, err := s.orders.UpdateOrder(ctx, order)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrRevisionConflict):
			return domain.Order{}, fmt.Errorf("%w: %w", ErrConflict, err)
		case errors.Is(err, port.ErrOrderNotFound):
			return domain.Order{}, ErrNotFoundOrLocked
		}
		return domain.Order{}, storageError("orders.UpdateOrder", err)
	}
	return saved, nil
}

func (s *OrderService) lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	release, err := s.locker.Lock(ctx, "order:"+orderID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}

	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("order lock not released", zap.Stringer("order_id", orderID), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) record(operation string, errp *error) {
	s.recorder.RecordOrderOperation(operation, Outcome(*errp))
}

// Outcome classifies err into a short label used in logs and metrics.
func Outcome(err error) string {
	var (
		validationErr *ValidationError
		storageErr    *StorageError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrItemNotInOrder):
		return "item_not_in_order"
	case errors.Is(err, ErrNotFoundOrLocked):
		return "not_found_or_locked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.As(err, &storageErr):
		return "storage_error"
	}
	return "error"
}
