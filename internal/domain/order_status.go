package domain

import (
	"errors"
	"fmt"
)

// OrderStatus is a closed set; the zero value is OrderStatusNone.
type OrderStatus uint8

// remember to add new statuses to the orderStatusNames table
const (
	OrderStatusNone OrderStatus = iota
	OrderStatusPending
	OrderStatusConfirmed
	OrderStatusProcessing
	OrderStatusShipped
	OrderStatusDelivered
	OrderStatusCancelled
)

var orderStatusNames = [...]string{
	OrderStatusNone:       "none",
	OrderStatusPending:    "pending",
	OrderStatusConfirmed:  "confirmed",
	OrderStatusProcessing: "processing",
	OrderStatusShipped:    "shipped",
	OrderStatusDelivered:  "delivered",
	OrderStatusCancelled:  "cancelled",
}

var errInvalidOrderStatus = errors.New("invalid order status")

func (s OrderStatus) String() string {
	if int(s) < len(orderStatusNames) {
		return orderStatusNames[s]
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

func ToOrderStatus(s string) (OrderStatus, error) {
	for status, name := range orderStatusNames {
		if name == s {
			return OrderStatus(status), nil
		}
	}

	return OrderStatusNone, errInvalidOrderStatus
}

func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, 0, len(orderStatusNames))
	for status := range orderStatusNames {
		result = append(result, OrderStatus(status))
	}
	return result
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(orderStatusNames) {
		return nil, errInvalidOrderStatus
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	status, err := ToOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}
