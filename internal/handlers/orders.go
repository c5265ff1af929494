package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/auth"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/service"
	"github.com/samber/lo"
)

// OrderService is the order lifecycle as seen by the HTTP layer.
type OrderService interface {
	AddOrCreate(ctx context.Context, identity domain.Identity, req service.AddItemRequest) (domain.Order, error)
	RemoveItem(ctx context.Context, identity domain.Identity, orderID, itemID uuid.UUID) (service.RemoveItemResult, error)
	EditPostalAddress(ctx context.Context, identity domain.Identity, orderID uuid.UUID, postalAddress string) (domain.Order, error)
	ConfirmOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (domain.Order, error)
	DeleteOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) error
	GetOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (domain.Order, error)
	ListOwnOrders(ctx context.Context, identity domain.Identity) ([]domain.Order, error)
	ListAllOrders(ctx context.Context, identity domain.Identity) ([]domain.Order, error)
}

type addItemRequest struct {
	ItemID        string `json:"itemId"`
	Quantity      int    `json:"quantity"`
	OrderID       string `json:"orderId"`
	PostalAddress string `json:"postalAddress"`
}

type removeItemRequest struct {
	ItemID string `json:"itemId"`
}

type postalAddressRequest struct {
	PostalAddress string `json:"postalAddress"`
}

type OrderHandlers struct {
	orders OrderService
}

func NewOrderHandlers(orders OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Get("/", h.listAllOrders)
	r.Post("/", h.addOrCreate)
	r.Get("/mine", h.listOwnOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Delete("/{orderID}", h.deleteOrder)
	r.Post("/{orderID}/remove-item", h.removeItem)
	r.Patch("/{orderID}/postal-address", h.editPostalAddress)
	r.Post("/{orderID}/confirm", h.confirmOrder)
}

func (h *OrderHandlers) addOrCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body addItemRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadRequest(ctx, w, "body", err.Error())
		return
	}

	itemID, err := parseOptionalUUID(body.ItemID)
	if err != nil {
		writeBadRequest(ctx, w, "itemId", "itemId must be a valid uuid")
		return
	}
	orderID, err := parseOptionalUUID(body.OrderID)
	if err != nil {
		writeBadRequest(ctx, w, "orderId", "orderId must be a valid uuid")
		return
	}

	order, err := h.orders.AddOrCreate(ctx, identity(ctx), service.AddItemRequest{
		ItemID:        itemID,
		Quantity:      body.Quantity,
		OrderID:       orderID,
		PostalAddress: body.PostalAddress,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if orderID != uuid.Nil && order.ID == orderID {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, buildOrderPayload(order))
}

func (h *OrderHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var body removeItemRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadRequest(ctx, w, "body", err.Error())
		return
	}
	itemID, err := parseOptionalUUID(body.ItemID)
	if err != nil {
		writeBadRequest(ctx, w, "itemId", "itemId must be a valid uuid")
		return
	}

	result, err := h.orders.RemoveItem(ctx, identity(ctx), orderID, itemID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	if result.Deleted {
		httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Order deleted as it has no items left", Deleted: true})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(result.Order))
}

func (h *OrderHandlers) editPostalAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var body postalAddressRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadRequest(ctx, w, "body", err.Error())
		return
	}

	order, err := h.orders.EditPostalAddress(ctx, identity(ctx), orderID, body.PostalAddress)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) confirmOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.ConfirmOrder(ctx, identity(ctx), orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(ctx, identity(ctx), orderID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, identity(ctx), orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.ListOwnOrders(ctx, identity(ctx))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderListResponse{Orders: lo.Map(orders, toOrderPayload)})
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.ListAllOrders(ctx, identity(ctx))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderListResponse{Orders: lo.Map(orders, toOrderPayload)})
}

func toOrderPayload(order domain.Order, _ int) orderPayload {
	return buildOrderPayload(order)
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderID")))
	if err != nil {
		writeBadRequest(r.Context(), w, "orderId", "orderId must be a valid uuid")
		return uuid.Nil, false
	}
	return orderID, true
}

// identity is the caller set by auth.RequireAuth; the zero value is rejected
// by the services as unauthenticated.
func identity(ctx context.Context) domain.Identity {
	id, _ := auth.IdentityFromContext(ctx)
	return id
}
