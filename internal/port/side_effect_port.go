package port

import (
	"context"

	"github.com/nikolayk812/ordermgr/internal/domain"
)

// Locker serializes mutations of a single order.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// OrderEventPublisher hands confirmed orders to fulfillment.
type OrderEventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, order domain.Order) error
}

type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderConfirmed(context.Context, domain.Order) error {
	return nil
}
