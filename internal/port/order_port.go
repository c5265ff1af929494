package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrRevisionConflict = errors.New("order revision conflict")
)

// OrderRepository is the order store.
type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	// InsertOrder assigns ID, Revision and timestamps and returns the stored order.
	InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// UpdateOrder replaces the stored order when its revision still equals
	// order.Revision, otherwise it fails with ErrRevisionConflict.
	UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// DeleteOrder reports whether a row was removed.
	DeleteOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}
