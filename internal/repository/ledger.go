// internal/repository/ledger.go
package repository

import (
	"context"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
)

// StockWriter records on-hand / on-order figures from a snapshot.
type StockWriter interface {
	SetStock(ctx context.Context, level domain.StockLevel) error
}

// Ledger is the inventory store: the planner's stock oracle plus the writes
// catalog setup and snapshot import need.
type Ledger interface {
	reorder.StockOracle
	StockWriter

	// UpsertItem creates or replaces a catalog entry, keeping its position
	// when it already exists.
	UpsertItem(ctx context.Context, item domain.Item) error

	// Items is StockItems under a name that reads better outside the planner.
	Items(ctx context.Context) ([]domain.Item, error)
}
