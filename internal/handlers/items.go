package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/service"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type ItemService interface {
	CreateItem(ctx context.Context, identity domain.Identity, req service.NewItemRequest) (domain.Item, error)
	GetItem(ctx context.Context, identity domain.Identity, itemID uuid.UUID) (domain.Item, error)
	ListItems(ctx context.Context, identity domain.Identity) ([]domain.Item, error)
}

type createItemRequest struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
}

// ItemHandlers serves the catalog. Prices without a currency are taken in
// the catalog currency.
type ItemHandlers struct {
	items    ItemService
	currency currency.Unit
}

func NewItemHandlers(items ItemService, catalogCurrency currency.Unit) *ItemHandlers {
	return &ItemHandlers{items: items, currency: catalogCurrency}
}

func (h *ItemHandlers) Routes(r chi.Router) {
	r.Get("/", h.listItems)
	r.Post("/", h.createItem)
	r.Get("/{itemID}", h.getItem)
}

func (h *ItemHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createItemRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadRequest(ctx, w, "body", err.Error())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil {
		writeBadRequest(ctx, w, "price", "price must be a decimal number")
		return
	}

	unit := h.currency
	if raw := strings.TrimSpace(body.Currency); raw != "" {
		unit, err = currency.ParseISO(strings.ToUpper(raw))
		if err != nil {
			writeBadRequest(ctx, w, "currency", "currency must be an ISO 4217 code")
			return
		}
	}

	item, err := h.items.CreateItem(ctx, identity(ctx), service.NewItemRequest{
		Name:         body.Name,
		Price:        domain.Money{Amount: amount, Currency: unit},
		Availability: domain.ItemAvailability(strings.TrimSpace(body.Availability)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildItemPayload(item))
}

func (h *ItemHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "itemID")))
	if err != nil {
		writeBadRequest(ctx, w, "itemId", "itemId must be a valid uuid")
		return
	}

	item, err := h.items.GetItem(ctx, identity(ctx), itemID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildItemPayload(item))
}

func (h *ItemHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListItems(ctx, identity(ctx))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, itemListResponse{Items: lo.Map(items, func(item domain.Item, _ int) itemPayload {
		return buildItemPayload(item)
	})})
}
