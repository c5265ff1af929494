package domain

import "errors"

var (
	ErrItemNotInOrder   = errors.New("item not found in order")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrQuantityTooLarge = errors.New("quantity too large")
)
