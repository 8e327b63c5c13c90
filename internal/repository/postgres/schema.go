package postgres

import (
	"context"
	"fmt"
)

// schemaStatements creates the ledger tables. The DDL sticks to types both
// PostgreSQL and SQLite accept.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		sku             TEXT PRIMARY KEY,
		sort_index      INTEGER NOT NULL,
		kind            TEXT NOT NULL,
		season          TEXT NOT NULL DEFAULT '',
		restricted      BOOLEAN NOT NULL DEFAULT FALSE,
		lot_size        INTEGER NOT NULL DEFAULT 1,
		multi_warehouse BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
		sku              TEXT NOT NULL REFERENCES catalog_items (sku) ON DELETE CASCADE,
		warehouse        TEXT NOT NULL,
		slot             INTEGER NOT NULL DEFAULT 0,
		required_on_hand INTEGER NOT NULL,
		on_hand          INTEGER NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
		on_order         INTEGER NOT NULL DEFAULT 0 CHECK (on_order >= 0),
		updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (sku, warehouse)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_items_sort ON catalog_items (sort_index)`,
}

// EnsureSchema creates the ledger tables when they are missing.
func (r *LedgerRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating ledger schema: %w", err)
		}
	}
	return nil
}
