package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/jmoiron/sqlx"
)

type itemRow struct {
	SKU            string `db:"sku"`
	Kind           string `db:"kind"`
	Season         string `db:"season"`
	Restricted     bool   `db:"restricted"`
	LotSize        int    `db:"lot_size"`
	MultiWarehouse bool   `db:"multi_warehouse"`
}

type targetRow struct {
	SKU            string `db:"sku"`
	Warehouse      string `db:"warehouse"`
	RequiredOnHand int    `db:"required_on_hand"`
}

// LedgerRepository stores the catalog and stock levels in SQL tables.
// Queries use ? placeholders and are rebound for the connected driver.
type LedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) StockItems(ctx context.Context) ([]domain.Item, error) {
	var rows []itemRow
	query := r.db.Rebind(`
		SELECT sku, kind, season, restricted, lot_size, multi_warehouse
		FROM catalog_items
		ORDER BY sort_index, sku
	`)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error listing catalog items: %w", err)
	}

	var targets []targetRow
	query = r.db.Rebind(`
		SELECT sku, warehouse, required_on_hand
		FROM stock_levels
		ORDER BY sku, slot, warehouse
	`)
	if err := r.db.SelectContext(ctx, &targets, query); err != nil {
		return nil, fmt.Errorf("error listing stock targets: %w", err)
	}

	bySKU := make(map[string][]domain.WarehouseTarget, len(rows))
	for _, t := range targets {
		bySKU[t.SKU] = append(bySKU[t.SKU], domain.WarehouseTarget{
			Warehouse: domain.ParseWarehouse(t.Warehouse),
			Target:    t.RequiredOnHand,
		})
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem(bySKU[row.SKU])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *LedgerRepository) Items(ctx context.Context) ([]domain.Item, error) {
	return r.StockItems(ctx)
}

func (row itemRow) toItem(targets []domain.WarehouseTarget) (domain.Item, error) {
	kind, ok := domain.ParseItemKind(row.Kind)
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %s: unknown kind %q", domain.ErrInvalidItem, row.SKU, row.Kind)
	}
	season, err := domain.ParseSeason(row.Season)
	if err != nil {
		return domain.Item{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidItem, row.SKU, err)
	}

	item := domain.Item{
		SKU:        row.SKU,
		Kind:       kind,
		Season:     season,
		Restricted: row.Restricted,
		LotSize:    row.LotSize,
	}

	if row.MultiWarehouse {
		if len(targets) == 0 {
			return domain.Item{}, fmt.Errorf("%s has no warehouse targets: %w", row.SKU, domain.ErrNotFound)
		}
		item.WarehouseTargets = targets
		return item, nil
	}

	for _, t := range targets {
		if t.Warehouse == domain.Home {
			item.Target = t.Target
			return item, nil
		}
	}
	return domain.Item{}, fmt.Errorf("%s@%s target: %w", row.SKU, domain.Home, domain.ErrNotFound)
}

func (r *LedgerRepository) OnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	return r.stockColumn(ctx, "on_hand", item.SKU, warehouse)
}

func (r *LedgerRepository) OnOrder(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	return r.stockColumn(ctx, "on_order", item.SKU, warehouse)
}

// stockColumn reads one quantity column. column is always a constant from
// this file, never user input.
func (r *LedgerRepository) stockColumn(ctx context.Context, column, sku string, warehouse domain.Warehouse) (int, error) {
	query := r.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM stock_levels
		WHERE sku = ? AND warehouse = ?
	`, column))

	var value int
	err := r.db.GetContext(ctx, &value, query, sku, domain.ParseWarehouse(string(warehouse)).String())
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s@%s: %w", sku, warehouse, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("error reading %s for %s@%s: %w", column, sku, warehouse, err)
	}
	return value, nil
}

func (r *LedgerRepository) SetRequiredOnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse, newTarget int) error {
	if newTarget < 0 {
		return fmt.Errorf("%w: required on-hand %d", domain.ErrInvalidQuantity, newTarget)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE stock_levels
			SET required_on_hand = ?, updated_at = CURRENT_TIMESTAMP
			WHERE sku = ? AND warehouse = ?
		`), newTarget, item.SKU, domain.ParseWarehouse(string(warehouse)).String())
		if err != nil {
			return fmt.Errorf("error updating required on-hand for %s@%s: %w", item.SKU, warehouse, err)
		}
		return expectRow(res, item.SKU, warehouse)
	})
}

func (r *LedgerRepository) SetStock(ctx context.Context, level domain.StockLevel) error {
	if level.OnHand < 0 || level.OnOrder < 0 {
		return fmt.Errorf("%w: %s@%s on_hand=%d on_order=%d", domain.ErrInvalidQuantity, level.SKU, level.Warehouse, level.OnHand, level.OnOrder)
	}

	warehouse := domain.ParseWarehouse(string(level.Warehouse))
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE stock_levels
		SET on_hand = ?, on_order = ?, updated_at = CURRENT_TIMESTAMP
		WHERE sku = ? AND warehouse = ?
	`), level.OnHand, level.OnOrder, level.SKU, warehouse.String())
	if err != nil {
		return fmt.Errorf("error updating stock for %s@%s: %w", level.SKU, warehouse, err)
	}
	return expectRow(res, level.SKU, warehouse)
}

func (r *LedgerRepository) UpsertItem(ctx context.Context, item domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO catalog_items (sku, sort_index, kind, season, restricted, lot_size, multi_warehouse)
			VALUES (?, (SELECT COALESCE(MAX(sort_index), 0) + 1 FROM catalog_items), ?, ?, ?, ?, ?)
			ON CONFLICT (sku)
			DO UPDATE SET
				kind = excluded.kind,
				season = excluded.season,
				restricted = excluded.restricted,
				lot_size = excluded.lot_size,
				multi_warehouse = excluded.multi_warehouse,
				updated_at = CURRENT_TIMESTAMP
		`), item.SKU, item.Kind.String(), item.Season.String(), item.Restricted, item.LotSize, item.MultiWarehouse())
		if err != nil {
			return fmt.Errorf("failed to upsert catalog item %s: %w", item.SKU, err)
		}

		locations := item.Locations()
		warehouses := make([]string, 0, len(locations))
		for slot, loc := range locations {
			warehouse := domain.ParseWarehouse(string(loc.Warehouse)).String()
			warehouses = append(warehouses, warehouse)

			_, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO stock_levels (sku, warehouse, slot, required_on_hand)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (sku, warehouse)
				DO UPDATE SET
					slot = excluded.slot,
					required_on_hand = excluded.required_on_hand,
					updated_at = CURRENT_TIMESTAMP
			`), item.SKU, warehouse, slot, loc.Target)
			if err != nil {
				return fmt.Errorf("failed to upsert stock level %s@%s: %w", item.SKU, warehouse, err)
			}
		}

		query, args, err := sqlx.In(`DELETE FROM stock_levels WHERE sku = ? AND warehouse NOT IN (?)`, item.SKU, warehouses)
		if err != nil {
			return fmt.Errorf("failed to build stale warehouse cleanup: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to remove stale warehouses for %s: %w", item.SKU, err)
		}
		return nil
	})
}

func expectRow(res sql.Result, sku string, warehouse domain.Warehouse) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s@%s: %w", sku, warehouse, domain.ErrNotFound)
	}
	return nil
}

var _ repository.Ledger = (*LedgerRepository)(nil)
