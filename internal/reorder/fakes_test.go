package reorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
)

type stockKey struct {
	sku       string
	warehouse domain.Warehouse
}

type stockRecord struct {
	onHand  int
	onOrder int
}

type requiredUpdate struct {
	sku       string
	warehouse domain.Warehouse
	target    int
}

// fakeStock is an in-test ledger. It is safe for concurrent use so the
// partitioned planner can be exercised against it.
type fakeStock struct {
	mu           sync.Mutex
	items        []domain.Item
	records      map[stockKey]stockRecord
	updates      []requiredUpdate
	onOrderCalls int
	listErr      error
	onHandErr    error
	onOrderErr   error
	setErr       error
}

func newFakeStock() *fakeStock {
	return &fakeStock{records: make(map[stockKey]stockRecord)}
}

// stock adds an item at home with the given on-hand and on-order figures.
func (f *fakeStock) stock(item domain.Item, onHand, onOrder int) *fakeStock {
	f.items = append(f.items, item)
	f.records[stockKey{item.SKU, domain.Home}] = stockRecord{onHand: onHand, onOrder: onOrder}
	return f
}

func (f *fakeStock) at(sku string, warehouse domain.Warehouse, onHand, onOrder int) *fakeStock {
	f.records[stockKey{sku, warehouse}] = stockRecord{onHand: onHand, onOrder: onOrder}
	return f
}

func (f *fakeStock) StockItems(ctx context.Context) ([]domain.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Item(nil), f.items...), nil
}

func (f *fakeStock) lookup(item domain.Item, warehouse domain.Warehouse) (stockRecord, error) {
	rec, ok := f.records[stockKey{item.SKU, warehouse}]
	if !ok {
		return stockRecord{}, fmt.Errorf("%s@%s: %w", item.SKU, warehouse, domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeStock) OnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onHandErr != nil {
		return 0, f.onHandErr
	}
	rec, err := f.lookup(item, warehouse)
	return rec.onHand, err
}

func (f *fakeStock) OnOrder(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onOrderCalls++
	if f.onOrderErr != nil {
		return 0, f.onOrderErr
	}
	rec, err := f.lookup(item, warehouse)
	return rec.onOrder, err
}

func (f *fakeStock) SetRequiredOnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse, newTarget int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.updates = append(f.updates, requiredUpdate{sku: item.SKU, warehouse: warehouse, target: newTarget})
	return nil
}

type fakeMarket struct {
	onSale  map[string]bool
	season  domain.Season
	saleErr error
}

func (m *fakeMarket) OnSale(ctx context.Context, item domain.Item) (bool, error) {
	if m.saleErr != nil {
		return false, m.saleErr
	}
	return m.onSale[item.SKU], nil
}

func (m *fakeMarket) SeasonFor(ctx context.Context, date time.Time) (domain.Season, error) {
	return m.season, nil
}

func quietMarket() *fakeMarket {
	return &fakeMarket{onSale: map[string]bool{}, season: domain.Spring}
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}
