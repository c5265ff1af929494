package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/samber/lo"
)

const maxBodySize = 16 * 1024

type orderPayload struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"ownerId"`
	Items         []orderItemPayload `json:"items"`
	Status        domain.OrderStatus `json:"status"`
	PostalAddress string             `json:"postalAddress"`
	TotalPrice    string             `json:"totalPrice"`
	Currency      string             `json:"currency"`
	Revision      int64              `json:"revision"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}

type orderItemPayload struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type itemPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
	CreatedAt    string `json:"createdAt"`
}

type orderListResponse struct {
	Orders []orderPayload `json:"orders"`
}

type itemListResponse struct {
	Items []itemPayload `json:"items"`
}

type messageResponse struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	return orderPayload{
		ID:      order.ID.String(),
		OwnerID: order.OwnerID,
		Items: lo.Map(order.Items, func(item domain.OrderItem, _ int) orderItemPayload {
			return orderItemPayload{ItemID: item.ItemID.String(), Quantity: item.Quantity}
		}),
		Status:        order.Status,
		PostalAddress: order.PostalAddress,
		TotalPrice:    order.TotalPrice.Amount.StringFixed(2),
		Currency:      order.TotalPrice.Currency.String(),
		Revision:      order.Revision,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
}

func buildItemPayload(item domain.Item) itemPayload {
	return itemPayload{
		ID:           item.ID.String(),
		Name:         item.Name,
		Price:        item.Price.Amount.StringFixed(2),
		Currency:     item.Price.Currency.String(),
		Availability: string(item.Availability),
		CreatedAt:    formatTime(item.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("request body is not valid json")
	}
	return nil
}

// parseOptionalUUID returns uuid.Nil for an empty value.
func parseOptionalUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
