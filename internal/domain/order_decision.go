package domain

// AddDecision is the outcome of DecideAdd: either CreateNew or MergeInto.
type AddDecision interface {
	isAddDecision()
}

// CreateNew means a fresh order has to be created for the caller.
type CreateNew struct{}

// MergeInto means the item goes into the existing open order.
type MergeInto struct {
	Order Order
}

func (CreateNew) isAddDecision() {}
func (MergeInto) isAddDecision() {}

// DecideAdd picks between appending to found and opening a new order.
// found is the order matched by (orderID, userID), nil when there is none.
func DecideAdd(found *Order, userID string) AddDecision {
	if found == nil || !found.IsOwnedBy(userID) || !found.IsMutable() {
		return CreateNew{}
	}
	return MergeInto{Order: found.Clone()}
}
