package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/market"
	"github.com/andresuchdata/autopo-reorder/internal/metrics"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository/memory"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

type memoryPromotions struct {
	mu   sync.Mutex
	skus map[string]struct{}
}

func newMemoryPromotions(skus ...string) *memoryPromotions {
	p := &memoryPromotions{skus: make(map[string]struct{})}
	for _, sku := range skus {
		p.skus[sku] = struct{}{}
	}
	return p
}

func (p *memoryPromotions) IsOnSale(ctx context.Context, sku string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.skus[sku]
	return ok, nil
}

func (p *memoryPromotions) MarkOnSale(ctx context.Context, sku string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skus[sku] = struct{}{}
	return nil
}

func (p *memoryPromotions) ClearSale(ctx context.Context, sku string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.skus, sku)
	return nil
}

func (p *memoryPromotions) ListOnSale(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.skus))
	for sku := range p.skus {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out, nil
}

func (p *memoryPromotions) Close() error { return nil }

type fakeStorage struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, 0)
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	return os.WriteFile(destPath, f.objects[key], 0o644)
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

var today = time.Date(2024, time.July, 9, 0, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) *memory.Ledger {
	t.Helper()
	ctx := context.Background()
	l := memory.NewLedger()
	items := []struct {
		item  domain.Item
		level domain.StockLevel
	}{
		{domain.NewPlainItem("rope", 10, false, 1), domain.StockLevel{SKU: "rope", OnHand: 0}},
		{domain.NewSeasonalItem("sunscreen", 7, domain.Summer, false, 1), domain.StockLevel{SKU: "sunscreen", OnHand: 2}},
		{domain.NewPlainItem("tent", 5, false, 1), domain.StockLevel{SKU: "tent", OnHand: 9}},
	}
	for _, it := range items {
		if err := l.UpsertItem(ctx, it.item); err != nil {
			t.Fatal(err)
		}
		if err := l.SetStock(ctx, it.level); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestPlanReport(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewReorderService(newLedger(t), newMemoryPromotions("sunscreen"), market.NewCalendar(market.North), reorder.DefaultParams(),
		WithMetrics(metrics.NewRecorder(reg)))

	report, err := svc.Plan(context.Background(), today, PlanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.RunID == "" || report.Date != "2024-07-09" {
		t.Fatalf("unexpected report header %+v", report)
	}
	if report.Evaluated != 3 {
		t.Fatalf("expected 3 evaluations, got %d", report.Evaluated)
	}
	// rope: 10; sunscreen in season and on sale: max(27, 14) - 2 = 25
	if len(report.Orders) != 2 || report.Orders[0].Quantity != 10 || report.Orders[1].Quantity != 25 {
		t.Fatalf("unexpected orders %+v", report.Orders)
	}
	if report.TotalUnits != 35 {
		t.Fatalf("expected 35 units, got %d", report.TotalUnits)
	}
	if len(report.Escalations) != 1 || report.Escalations[0].SKU != "rope" {
		t.Fatalf("unexpected escalations %+v", report.Escalations)
	}
	if report.ExportKey != "" {
		t.Fatalf("no export was requested, got key %q", report.ExportKey)
	}
}

func TestPlanRunIDsAreUnique(t *testing.T) {
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams())
	first, err := svc.Plan(context.Background(), today, PlanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Plan(context.Background(), today, PlanOptions{Partitions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}
}

func TestPlanExportToStorage(t *testing.T) {
	store := &fakeStorage{}
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams(), WithStorage(store))

	report, err := svc.Plan(context.Background(), today, PlanOptions{Export: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.ExportKey != storage.PlanKey(today, report.RunID) {
		t.Fatalf("unexpected export key %q", report.ExportKey)
	}
	data := string(store.objects[report.ExportKey])
	if !strings.HasPrefix(data, "sku,warehouse,quantity\nrope,home,10\n") {
		t.Fatalf("unexpected export body %q", data)
	}
}

func TestPlanExportToDirectory(t *testing.T) {
	dir := t.TempDir()
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams(), WithExportDir(dir))

	report, err := svc.Plan(context.Background(), today, PlanOptions{Export: true})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(report.ExportKey) != filepath.Join(dir, "plans", "2024-07-09") {
		t.Fatalf("unexpected export path %q", report.ExportKey)
	}
	if _, err := os.Stat(report.ExportKey); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestPlanExportFailures(t *testing.T) {
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams())
	if _, err := svc.Plan(context.Background(), today, PlanOptions{Export: true}); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}

	uploadErr := errors.New("bucket gone")
	svc = NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams(),
		WithStorage(&fakeStorage{err: uploadErr}))
	if _, err := svc.Plan(context.Background(), today, PlanOptions{Export: true}); !errors.Is(err, uploadErr) {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestPlanPropagatesLedgerErrors(t *testing.T) {
	l := memory.NewLedger()
	ctx := context.Background()
	if err := l.UpsertItem(ctx, domain.NewPlainItem("rope", 10, false, 1)); err != nil {
		t.Fatal(err)
	}
	planner := reorder.NewPlanner(&missingStock{Ledger: l}, market.NewOracle(market.NewCalendar(market.North), nil))
	svc := NewReorderService(l, nil, market.NewCalendar(market.North), reorder.DefaultParams())
	svc.planner = planner

	if _, err := svc.Plan(ctx, today, PlanOptions{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// missingStock loses every on-hand record.
type missingStock struct {
	*memory.Ledger
}

func (m *missingStock) OnHand(ctx context.Context, item domain.Item, warehouse domain.Warehouse) (int, error) {
	return 0, domain.ErrNotFound
}

func TestPromotions(t *testing.T) {
	promos := newMemoryPromotions()
	svc := NewReorderService(newLedger(t), promos, market.NewCalendar(market.North), reorder.DefaultParams())
	ctx := context.Background()

	if _, err := svc.StartPromotion(ctx, "tent"); err != nil {
		t.Fatal(err)
	}
	list, err := svc.Promotions(ctx)
	if err != nil || len(list) != 1 || list[0].SKU != "tent" || !list[0].OnSale {
		t.Fatalf("unexpected promotions %+v (%v)", list, err)
	}

	// tent now targets 25 and has 9 on hand
	report, err := svc.Plan(ctx, today, PlanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	last := report.Orders[len(report.Orders)-1]
	if last.Item.SKU != "tent" || last.Quantity != 16 {
		t.Fatalf("expected tent order of 16, got %+v", last)
	}

	if _, err := svc.EndPromotion(ctx, "tent"); err != nil {
		t.Fatal(err)
	}
	if list, _ := svc.Promotions(ctx); len(list) != 0 {
		t.Fatalf("expected no promotions, got %+v", list)
	}

	if _, err := svc.StartPromotion(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sku, got %v", err)
	}
}

func TestItems(t *testing.T) {
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams())
	items, err := svc.Items(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].SKU != "rope" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestPromotionsWithoutCacheStillApplyToPlans(t *testing.T) {
	svc := NewReorderService(newLedger(t), nil, market.NewCalendar(market.North), reorder.DefaultParams())
	ctx := context.Background()

	if _, err := svc.StartPromotion(ctx, "tent"); err != nil {
		t.Fatal(err)
	}
	report, err := svc.Plan(ctx, today, PlanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	last := report.Orders[len(report.Orders)-1]
	if last.Item.SKU != "tent" || last.Quantity != 16 {
		t.Fatalf("expected tent order of 16, got %+v", last)
	}
}
