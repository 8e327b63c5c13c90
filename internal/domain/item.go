package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ItemKind tags the restocking variant an item follows.
type ItemKind int

const (
	KindPlain ItemKind = iota
	KindSeasonal
)

var itemKindLabels = map[ItemKind]string{
	KindPlain:    "plain",
	KindSeasonal: "seasonal",
}

var itemKindCodes = map[string]ItemKind{
	"plain":    KindPlain,
	"seasonal": KindSeasonal,
}

// String returns the label stored for a kind.
func (k ItemKind) String() string {
	if label, ok := itemKindLabels[k]; ok {
		return label
	}
	return "unknown"
}

// ParseItemKind returns the kind for a given label (case-insensitive).
func ParseItemKind(label string) (ItemKind, bool) {
	kind, ok := itemKindCodes[strings.ToLower(strings.TrimSpace(label))]
	return kind, ok
}

// WarehouseTarget is the desired on-hand level of an item at one location.
type WarehouseTarget struct {
	Warehouse Warehouse `json:"warehouse"`
	Target    int       `json:"target"`
}

// Item is a catalog entry. Items are built by catalog setup and never
// mutated by the planner.
//
// A single-location item uses Target and is evaluated at Home. When
// WarehouseTargets is non-empty the item is evaluated once per listed
// warehouse and Target is ignored.
type Item struct {
	SKU              string            `json:"sku"`
	Kind             ItemKind          `json:"kind"`
	Season           Season            `json:"season,omitempty"`
	Target           int               `json:"target,omitempty"`
	WarehouseTargets []WarehouseTarget `json:"warehouse_targets,omitempty"`
	Restricted       bool              `json:"restricted"`
	LotSize          int               `json:"lot_size"`
}

// NewPlainItem builds a single-location plain item.
func NewPlainItem(sku string, target int, restricted bool, lotSize int) Item {
	return Item{
		SKU:        sku,
		Kind:       KindPlain,
		Target:     target,
		Restricted: restricted,
		LotSize:    lotSize,
	}
}

// NewSeasonalItem builds a single-location seasonal item.
func NewSeasonalItem(sku string, target int, season Season, restricted bool, lotSize int) Item {
	return Item{
		SKU:        sku,
		Kind:       KindSeasonal,
		Season:     season,
		Target:     target,
		Restricted: restricted,
		LotSize:    lotSize,
	}
}

// WithWarehouses returns a copy of the item that is stocked per warehouse.
func (i Item) WithWarehouses(targets ...WarehouseTarget) Item {
	i.WarehouseTargets = append([]WarehouseTarget(nil), targets...)
	return i
}

// MultiWarehouse reports whether the item declares per-warehouse targets.
func (i Item) MultiWarehouse() bool {
	return len(i.WarehouseTargets) > 0
}

// Locations returns the (warehouse, target) pairs the item is evaluated at.
// Warehouse names are normalized with ParseWarehouse.
func (i Item) Locations() []WarehouseTarget {
	if !i.MultiWarehouse() {
		return []WarehouseTarget{{Warehouse: Home, Target: i.Target}}
	}
	out := make([]WarehouseTarget, len(i.WarehouseTargets))
	for idx, loc := range i.WarehouseTargets {
		out[idx] = WarehouseTarget{Warehouse: ParseWarehouse(string(loc.Warehouse)), Target: loc.Target}
	}
	return out
}

// Equal reports whether two items carry the same fields, including the
// per-warehouse targets in order.
func (i Item) Equal(other Item) bool {
	return i.SKU == other.SKU &&
		i.Kind == other.Kind &&
		i.Season == other.Season &&
		i.Target == other.Target &&
		i.Restricted == other.Restricted &&
		i.LotSize == other.LotSize &&
		slices.Equal(i.Locations(), other.Locations())
}

// Validate checks the invariants catalog setup must uphold.
func (i Item) Validate() error {
	if strings.TrimSpace(i.SKU) == "" {
		return fmt.Errorf("%w: empty sku", ErrInvalidItem)
	}
	if i.LotSize < 1 {
		return fmt.Errorf("%w: %s: lot size must be at least 1, got %d", ErrInvalidItem, i.SKU, i.LotSize)
	}

	switch i.Kind {
	case KindPlain:
		if i.Season != SeasonNone {
			return fmt.Errorf("%w: %s: plain item cannot carry a season", ErrInvalidItem, i.SKU)
		}
	case KindSeasonal:
		if i.Season == SeasonNone {
			return fmt.Errorf("%w: %s: seasonal item needs a season", ErrInvalidItem, i.SKU)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidItem, i.SKU, int(i.Kind))
	}

	if !i.MultiWarehouse() {
		if i.Target < 0 {
			return fmt.Errorf("%w: %s: negative target %d", ErrInvalidItem, i.SKU, i.Target)
		}
		return nil
	}

	seen := make(map[Warehouse]struct{}, len(i.WarehouseTargets))
	for _, loc := range i.Locations() {
		if loc.Target < 0 {
			return fmt.Errorf("%w: %s@%s: negative target %d", ErrInvalidItem, i.SKU, loc.Warehouse, loc.Target)
		}
		if _, dup := seen[loc.Warehouse]; dup {
			return fmt.Errorf("%w: %s: warehouse %s listed twice", ErrInvalidItem, i.SKU, loc.Warehouse)
		}
		seen[loc.Warehouse] = struct{}{}
	}
	return nil
}
