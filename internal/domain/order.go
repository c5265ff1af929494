package domain

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MaxItemQuantity bounds a single line item; order_items.quantity is an INT.
const MaxItemQuantity = math.MaxInt32

type Order struct {
	ID            uuid.UUID
	OwnerID       string
	Items         []OrderItem
	Status        OrderStatus
	PostalAddress string
	TotalPrice    Money

	// Revision is compared-and-swapped by the store on every save.
	Revision int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ItemID   uuid.UUID
	Quantity int
}

// Clone returns a copy that shares no line items with o.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// IsMutable reports whether items and address may still change.
func (o Order) IsMutable() bool {
	return o.Status == OrderStatusNone
}

func (o Order) IsOwnedBy(userID string) bool {
	return userID != "" && o.OwnerID == userID
}

// ItemIndex returns the position of itemID in Items or -1.
func (o Order) ItemIndex(itemID uuid.UUID) int {
	for i, item := range o.Items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

// NewOrder builds an unsaved order holding a single line item.
func NewOrder(ownerID string, itemID uuid.UUID, quantity int, unitPrice Money, postalAddress string) Order {
	return Order{
		OwnerID:       ownerID,
		Items:         []OrderItem{{ItemID: itemID, Quantity: quantity}},
		Status:        OrderStatusNone,
		PostalAddress: postalAddress,
		TotalPrice:    unitPrice.Times(quantity),
	}
}

// MergeItem adds quantity units of itemID, merging into an existing line item
// when present. The total grows by unitPrice*quantity.
// A line item may not exceed MaxItemQuantity units.
func (o *Order) MergeItem(itemID uuid.UUID, quantity int, unitPrice Money) error {
	idx := o.ItemIndex(itemID)

	current := 0
	if idx > -1 {
		current = o.Items[idx].Quantity
	}
	if quantity > MaxItemQuantity-current {
		return ErrQuantityTooLarge
	}

	total, err := o.TotalPrice.Add(unitPrice.Times(quantity))
	if err != nil {
		return err
	}

	if idx > -1 {
		o.Items[idx].Quantity += quantity
	} else {
		o.Items = append(o.Items, OrderItem{ItemID: itemID, Quantity: quantity})
	}
	o.TotalPrice = total

	return nil
}

// RemoveUnit takes one unit of itemID out of the order. A line item with more
// than one unit is decremented and the total reduced by unitPrice; the last
// unit drops the whole line item and leaves the total untouched.
// The total is floored at zero.
func (o *Order) RemoveUnit(itemID uuid.UUID, unitPrice Money) error {
	idx := o.ItemIndex(itemID)
	if idx < 0 {
		return ErrItemNotInOrder
	}

	if o.Items[idx].Quantity > 1 {
		total, err := o.TotalPrice.Sub(unitPrice)
		if err != nil {
			return err
		}
		if total.IsNegative() {
			total = ZeroMoney(total.Currency)
		}
		o.Items[idx].Quantity--
		o.TotalPrice = total
		return nil
	}

	o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
	return nil
}

func (o Order) IsEmpty() bool {
	return len(o.Items) == 0
}
