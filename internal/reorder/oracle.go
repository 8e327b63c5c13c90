package reorder

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
)

// StockOracle is the inventory ledger the planner reads from. Implementations
// must return an error wrapping domain.ErrNotFound for unknown records.
type StockOracle interface {
	// StockItems lists the stocked catalog in a stable order.
	StockItems(ctx context.Context) ([]domain.Item, error)

	// OnHand returns the units physically present at a warehouse.
	OnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error)

	// OnOrder returns the units already ordered for a warehouse.
	OnOrder(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error)

	// SetRequiredOnHand changes the nominal stock level of an item at a warehouse.
	SetRequiredOnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse, newTarget int) error
}

// MarketOracle answers sales and calendar questions.
type MarketOracle interface {
	OnSale(ctx context.Context, item domain.Item) (bool, error)
	SeasonFor(ctx context.Context, date time.Time) (domain.Season, error)
}
