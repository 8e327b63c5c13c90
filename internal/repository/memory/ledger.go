package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
)

type key struct {
	sku       string
	warehouse domain.Warehouse
}

type record struct {
	required int
	onHand   int
	onOrder  int
}

// Ledger keeps the catalog and stock levels in memory. Required on-hand
// updates are reflected in the items returned by later StockItems calls.
type Ledger struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]domain.Item
	records map[key]*record
}

func NewLedger() *Ledger {
	return &Ledger{
		items:   make(map[string]domain.Item),
		records: make(map[key]*record),
	}
}

func (l *Ledger) UpsertItem(ctx context.Context, item domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.items[item.SKU]; !exists {
		l.order = append(l.order, item.SKU)
	}
	l.items[item.SKU] = item

	for _, loc := range item.Locations() {
		k := key{item.SKU, domain.ParseWarehouse(string(loc.Warehouse))}
		rec, ok := l.records[k]
		if !ok {
			rec = &record{}
			l.records[k] = rec
		}
		rec.required = loc.Target
	}
	return nil
}

func (l *Ledger) SetStock(ctx context.Context, level domain.StockLevel) error {
	if level.OnHand < 0 || level.OnOrder < 0 {
		return fmt.Errorf("%w: %s@%s on_hand=%d on_order=%d", domain.ErrInvalidQuantity, level.SKU, level.Warehouse, level.OnHand, level.OnOrder)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key{level.SKU, domain.ParseWarehouse(string(level.Warehouse))}]
	if !ok {
		return fmt.Errorf("%s@%s: %w", level.SKU, level.Warehouse, domain.ErrNotFound)
	}
	rec.onHand = level.OnHand
	rec.onOrder = level.OnOrder
	return nil
}

func (l *Ledger) StockItems(ctx context.Context) ([]domain.Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]domain.Item, 0, len(l.order))
	for _, sku := range l.order {
		items = append(items, l.withCurrentTargets(l.items[sku]))
	}
	return items, nil
}

func (l *Ledger) Items(ctx context.Context) ([]domain.Item, error) {
	return l.StockItems(ctx)
}

// withCurrentTargets copies item with its targets replaced by the ledger's
// required on-hand values.
func (l *Ledger) withCurrentTargets(item domain.Item) domain.Item {
	if !item.MultiWarehouse() {
		if rec, ok := l.records[key{item.SKU, domain.Home}]; ok {
			item.Target = rec.required
		}
		return item
	}
	targets := item.Locations()
	for i := range targets {
		if rec, ok := l.records[key{item.SKU, targets[i].Warehouse}]; ok {
			targets[i].Target = rec.required
		}
	}
	item.WarehouseTargets = targets
	return item
}

func (l *Ledger) get(item domain.Item, warehouse domain.Warehouse) (*record, error) {
	rec, ok := l.records[key{item.SKU, domain.ParseWarehouse(string(warehouse))}]
	if !ok {
		return nil, fmt.Errorf("%s@%s: %w", item.SKU, warehouse, domain.ErrNotFound)
	}
	return rec, nil
}

func (l *Ledger) OnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, err := l.get(item, warehouse)
	if err != nil {
		return 0, err
	}
	return rec.onHand, nil
}

func (l *Ledger) OnOrder(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, err := l.get(item, warehouse)
	if err != nil {
		return 0, err
	}
	return rec.onOrder, nil
}

func (l *Ledger) SetRequiredOnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse, newTarget int) error {
	if newTarget < 0 {
		return fmt.Errorf("%w: required on-hand %d", domain.ErrInvalidQuantity, newTarget)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.get(item, warehouse)
	if err != nil {
		return err
	}
	rec.required = newTarget
	return nil
}

var _ repository.Ledger = (*Ledger)(nil)
