package domain

import "errors"

var (
	// ErrNotFound is returned when the ledger has no record for an item or
	// (item, warehouse) pair. It is never treated as zero stock.
	ErrNotFound = errors.New("stock record not found")

	// ErrInvalidItem is returned by Item.Validate and catalog loaders.
	ErrInvalidItem = errors.New("invalid item")

	// ErrInvalidQuantity is returned for negative on-hand / on-order values.
	ErrInvalidQuantity = errors.New("invalid quantity")
)
