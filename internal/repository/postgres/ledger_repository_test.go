package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/market"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// newTestRepository runs the repository against an in-memory SQLite database.
// The queries are written with ? placeholders, so sqlx only has to be told
// how the sqlite driver binds.
func newTestRepository(t *testing.T) *LedgerRepository {
	t.Helper()
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a single connection keeps every statement on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewLedgerRepository(Wrap(db))
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func mustUpsert(t *testing.T, repo *LedgerRepository, item domain.Item, levels ...domain.StockLevel) {
	t.Helper()
	ctx := context.Background()
	if err := repo.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem(%s): %v", item.SKU, err)
	}
	for _, level := range levels {
		if err := repo.SetStock(ctx, level); err != nil {
			t.Fatalf("SetStock(%s@%s): %v", level.SKU, level.Warehouse, err)
		}
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestStockItemsRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	mustUpsert(t, repo, domain.NewSeasonalItem("parka", 12, domain.Winter, true, 4))
	mustUpsert(t, repo, domain.NewPlainItem("gloves", 0, false, 1).WithWarehouses(
		domain.WarehouseTarget{Warehouse: "south", Target: 3},
		domain.WarehouseTarget{Warehouse: domain.Home, Target: 8},
	))

	items, err := repo.StockItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	parka := items[0]
	if parka.SKU != "parka" || parka.Kind != domain.KindSeasonal || parka.Season != domain.Winter {
		t.Fatalf("unexpected parka %+v", parka)
	}
	if !parka.Restricted || parka.LotSize != 4 || parka.Target != 12 || parka.MultiWarehouse() {
		t.Fatalf("unexpected parka fields %+v", parka)
	}

	gloves := items[1]
	if !gloves.MultiWarehouse() || len(gloves.WarehouseTargets) != 2 {
		t.Fatalf("expected two warehouse targets, got %+v", gloves.WarehouseTargets)
	}
	// declared order is kept, not alphabetical
	if gloves.WarehouseTargets[0].Warehouse != "south" || gloves.WarehouseTargets[1].Warehouse != domain.Home {
		t.Fatalf("unexpected warehouse order %+v", gloves.WarehouseTargets)
	}
}

func TestUpsertKeepsPositionAndDropsStaleWarehouses(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	mustUpsert(t, repo, domain.NewPlainItem("b", 1, false, 1).WithWarehouses(
		domain.WarehouseTarget{Warehouse: domain.Home, Target: 1},
		domain.WarehouseTarget{Warehouse: "east", Target: 2},
	))
	mustUpsert(t, repo, domain.NewPlainItem("a", 1, false, 1))
	mustUpsert(t, repo, domain.NewPlainItem("b", 0, false, 2).WithWarehouses(
		domain.WarehouseTarget{Warehouse: domain.Home, Target: 5},
	))

	items, err := repo.Items(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].SKU != "b" || items[1].SKU != "a" {
		t.Fatalf("unexpected order %s, %s", items[0].SKU, items[1].SKU)
	}
	if got := items[0].WarehouseTargets; len(got) != 1 || got[0].Target != 5 {
		t.Fatalf("expected only the home target, got %+v", got)
	}
	if _, err := repo.OnHand(ctx, items[0], "east"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected east record removed, got %v", err)
	}
}

func TestStockQuantities(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	item := domain.NewPlainItem("rope", 10, false, 1)
	mustUpsert(t, repo, item, domain.StockLevel{SKU: "rope", OnHand: 4, OnOrder: 2})

	onHand, err := repo.OnHand(ctx, item, domain.Home)
	if err != nil || onHand != 4 {
		t.Fatalf("OnHand = %d, %v", onHand, err)
	}
	onOrder, err := repo.OnOrder(ctx, item, "HOME")
	if err != nil || onOrder != 2 {
		t.Fatalf("OnOrder = %d, %v", onOrder, err)
	}
}

func TestUnknownRecordsAreNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	ghost := domain.NewPlainItem("ghost", 1, false, 1)

	if _, err := repo.OnHand(ctx, ghost, domain.Home); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("OnHand: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.OnOrder(ctx, ghost, domain.Home); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("OnOrder: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetRequiredOnHand(ctx, ghost, domain.Home, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetRequiredOnHand: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetStock(ctx, domain.StockLevel{SKU: "ghost"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetStock: expected ErrNotFound, got %v", err)
	}
}

func TestRejectsInvalidInput(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertItem(ctx, domain.NewSeasonalItem("kite", 3, domain.SeasonNone, false, 1)); !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}

	item := domain.NewPlainItem("tent", 3, false, 1)
	mustUpsert(t, repo, item)
	if err := repo.SetStock(ctx, domain.StockLevel{SKU: "tent", OnOrder: -2}); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := repo.SetRequiredOnHand(ctx, item, domain.Home, -1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestRepositoryDrivesPlanner(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	mustUpsert(t, repo, domain.NewPlainItem("saw", 10, false, 1),
		domain.StockLevel{SKU: "saw", OnHand: 0})
	mustUpsert(t, repo, domain.NewPlainItem("nails", 20, false, 5),
		domain.StockLevel{SKU: "nails", OnHand: 3, OnOrder: 4})

	planner := reorder.NewPlanner(repo, market.NewOracle(market.NewCalendar(market.North), nil))
	today := time.Date(2024, time.May, 9, 0, 0, 0, 0, time.UTC)

	result, err := planner.Run(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %+v", result.Orders)
	}
	if result.Orders[0].Item.SKU != "saw" || result.Orders[0].Quantity != 10 {
		t.Fatalf("unexpected saw order %+v", result.Orders[0])
	}
	// deficit 13 rounds up to 15 in lots of 5
	if result.Orders[1].Item.SKU != "nails" || result.Orders[1].Quantity != 15 {
		t.Fatalf("unexpected nails order %+v", result.Orders[1])
	}
	if len(result.Escalations) != 1 || result.Escalations[0].To != 11 {
		t.Fatalf("expected saw escalation to 11, got %+v", result.Escalations)
	}

	items, err := repo.StockItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Target != 11 {
		t.Fatalf("expected persisted target 11, got %d", items[0].Target)
	}
}
