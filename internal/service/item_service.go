package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// items.price_amount is NUMERIC(12, 2)
var maxItemPrice = decimal.New(1, 10)

type NewItemRequest struct {
	Name         string
	Price        domain.Money
	Availability domain.ItemAvailability
}

// ItemService manages the catalog. Only admins may add items.
type ItemService struct {
	items  port.ItemRepository
	logger *zap.Logger
}

func NewItemService(items port.ItemRepository, logger *zap.Logger) (*ItemService, error) {
	if items == nil {
		return nil, fmt.Errorf("items repository is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ItemService{items: items, logger: logger}, nil
}

func (s *ItemService) CreateItem(ctx context.Context, identity domain.Identity, req NewItemRequest) (domain.Item, error) {
	if !identity.IsAuthenticated() {
		return domain.Item{}, ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return domain.Item{}, ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Item{}, newValidationError("name", "is required")
	}
	if req.Price.IsNegative() {
		return domain.Item{}, newValidationError("price", "must not be negative")
	}
	if req.Price.HasSubunits() {
		return domain.Item{}, newValidationError("price", "must have at most 2 decimal places")
	}
	if req.Price.Amount.GreaterThanOrEqual(maxItemPrice) {
		return domain.Item{}, newValidationError("price", "is too large")
	}

	availability := req.Availability
	if availability == "" {
		availability = domain.ItemAvailable
	}
	if _, err := domain.ToItemAvailability(string(availability)); err != nil {
		return domain.Item{}, newValidationError("availability", err.Error())
	}

	item, err := s.items.InsertItem(ctx, domain.Item{
		Name:         name,
		Price:        req.Price,
		Availability: availability,
	})
	if err != nil {
		return domain.Item{}, storageError("items.InsertItem", err)
	}

	s.logger.Info("catalog item created",
		zap.Stringer("item_id", item.ID),
		zap.String("user_id", identity.UserID),
		zap.Stringer("price", item.Price),
	)
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, identity domain.Identity, itemID uuid.UUID) (domain.Item, error) {
	if !identity.IsAuthenticated() {
		return domain.Item{}, ErrUnauthorized
	}

	item, err := s.items.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, port.ErrItemNotFound) {
			return domain.Item{}, ErrItemNotFound
		}
		return domain.Item{}, storageError("items.FindItem", err)
	}

	return item, nil
}

func (s *ItemService) ListItems(ctx context.Context, identity domain.Identity) ([]domain.Item, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, storageError("items.ListItems", err)
	}

	return items, nil
}
