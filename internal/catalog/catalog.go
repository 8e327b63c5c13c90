// Package catalog loads item definitions and optional starting stock from
// YAML files.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"gopkg.in/yaml.v3"
)

// File is a parsed catalog: the items in declared order plus any stock
// levels given inline.
type File struct {
	Items []domain.Item
	Stock []domain.StockLevel
}

// Store is the subset of a ledger needed to apply a catalog.
type Store interface {
	UpsertItem(ctx context.Context, item domain.Item) error
	SetStock(ctx context.Context, level domain.StockLevel) error
}

type document struct {
	Items []itemEntry `yaml:"items"`
}

type itemEntry struct {
	SKU        string           `yaml:"sku"`
	Target     int              `yaml:"target"`
	LotSize    *int             `yaml:"lot_size"`
	Restricted bool             `yaml:"restricted"`
	Season     string           `yaml:"season"`
	OnHand     *int             `yaml:"on_hand"`
	OnOrder    *int             `yaml:"on_order"`
	Warehouses []warehouseEntry `yaml:"warehouses"`
}

type warehouseEntry struct {
	Name    string `yaml:"name"`
	Target  int    `yaml:"target"`
	OnHand  *int   `yaml:"on_hand"`
	OnOrder *int   `yaml:"on_order"`
}

// Load reads and parses a catalog file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Parse decodes a catalog document. Unknown keys are rejected and every item
// is validated.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	file := &File{
		Items: make([]domain.Item, 0, len(doc.Items)),
		Stock: make([]domain.StockLevel, 0),
	}
	seen := make(map[string]int, len(doc.Items))
	for i, entry := range doc.Items {
		item, stock, err := entry.toItem()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if prev, dup := seen[item.SKU]; dup {
			return nil, fmt.Errorf("item %d: %w: sku %s already declared by item %d", i+1, domain.ErrInvalidItem, item.SKU, prev)
		}
		seen[item.SKU] = i + 1
		file.Items = append(file.Items, item)
		file.Stock = append(file.Stock, stock...)
	}
	return file, nil
}

func (e itemEntry) toItem() (domain.Item, []domain.StockLevel, error) {
	season, err := domain.ParseSeason(e.Season)
	if err != nil {
		return domain.Item{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidItem, e.SKU, err)
	}

	lotSize := 1
	if e.LotSize != nil {
		lotSize = *e.LotSize
	}

	var item domain.Item
	if season != domain.SeasonNone {
		item = domain.NewSeasonalItem(e.SKU, e.Target, season, e.Restricted, lotSize)
	} else {
		item = domain.NewPlainItem(e.SKU, e.Target, e.Restricted, lotSize)
	}

	var stock []domain.StockLevel
	if len(e.Warehouses) == 0 {
		if level, ok := stockLevel(e.SKU, domain.Home, e.OnHand, e.OnOrder); ok {
			stock = append(stock, level)
		}
	} else {
		if e.OnHand != nil || e.OnOrder != nil {
			return domain.Item{}, nil, fmt.Errorf("%w: %s: on_hand/on_order belong to the warehouse entries", domain.ErrInvalidItem, e.SKU)
		}
		targets := make([]domain.WarehouseTarget, 0, len(e.Warehouses))
		for _, w := range e.Warehouses {
			warehouse := domain.ParseWarehouse(w.Name)
			targets = append(targets, domain.WarehouseTarget{Warehouse: warehouse, Target: w.Target})
			if level, ok := stockLevel(e.SKU, warehouse, w.OnHand, w.OnOrder); ok {
				stock = append(stock, level)
			}
		}
		item = item.WithWarehouses(targets...)
	}

	if err := item.Validate(); err != nil {
		return domain.Item{}, nil, err
	}
	for _, level := range stock {
		if level.OnHand < 0 || level.OnOrder < 0 {
			return domain.Item{}, nil, fmt.Errorf("%w: %s@%s", domain.ErrInvalidQuantity, level.SKU, level.Warehouse)
		}
	}
	return item, stock, nil
}

func stockLevel(sku string, warehouse domain.Warehouse, onHand, onOrder *int) (domain.StockLevel, bool) {
	if onHand == nil && onOrder == nil {
		return domain.StockLevel{}, false
	}
	level := domain.StockLevel{SKU: sku, Warehouse: warehouse}
	if onHand != nil {
		level.OnHand = *onHand
	}
	if onOrder != nil {
		level.OnOrder = *onOrder
	}
	return level, true
}

// Apply upserts every item and then writes the inline stock levels. It stops
// at the first failure.
func Apply(ctx context.Context, store Store, file *File) error {
	for _, item := range file.Items {
		if err := store.UpsertItem(ctx, item); err != nil {
			return fmt.Errorf("upsert %s: %w", item.SKU, err)
		}
	}
	for _, level := range file.Stock {
		if err := store.SetStock(ctx, level); err != nil {
			return fmt.Errorf("set stock %s@%s: %w", level.SKU, level.Warehouse, err)
		}
	}
	return nil
}
