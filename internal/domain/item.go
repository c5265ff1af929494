package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ItemAvailability string

// remember to add new values to the validItemAvailabilities map
const (
	ItemAvailable    ItemAvailability = "available"
	ItemNotAvailable ItemAvailability = "not-available"
)

var validItemAvailabilities = map[ItemAvailability]struct{}{
	ItemAvailable:    {},
	ItemNotAvailable: {},
}

func ToItemAvailability(s string) (ItemAvailability, error) {
	availability := ItemAvailability(s)
	if _, ok := validItemAvailabilities[availability]; ok {
		return availability, nil
	}

	return "", errors.New("invalid item availability")
}

// Item is a catalog entry. Its price is read at the moment an order changes.
type Item struct {
	ID           uuid.UUID
	Name         string
	Price        Money
	Availability ItemAvailability

	CreatedAt time.Time
}
