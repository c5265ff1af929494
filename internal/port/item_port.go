package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
)

var ErrItemNotFound = errors.New("item not found")

type ItemCatalog interface {
	FindItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error)
}

type ItemRepository interface {
	ItemCatalog

	InsertItem(ctx context.Context, item domain.Item) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
}
