package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/cache"
	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/export"
	"github.com/andresuchdata/autopo-reorder/internal/market"
	"github.com/andresuchdata/autopo-reorder/internal/metrics"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrExportUnavailable is returned when an export is requested but neither
// object storage nor an export directory is configured.
var ErrExportUnavailable = errors.New("plan export is not configured")

// PlanOptions tune a single planning run.
type PlanOptions struct {
	Export bool
	// Partitions overrides the service default when positive.
	Partitions int
}

type ReorderService struct {
	ledger     repository.Ledger
	promotions cache.PromotionStore
	planner    *reorder.Planner
	storage    storage.ObjectStorage
	metrics    *metrics.Recorder
	exportDir  string
	partitions int
}

// Option customizes a ReorderService.
type Option func(*ReorderService)

func WithStorage(store storage.ObjectStorage) Option {
	return func(s *ReorderService) { s.storage = store }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *ReorderService) { s.metrics = recorder }
}

// WithExportDir writes exports to a local directory when no object storage is set.
func WithExportDir(dir string) Option {
	return func(s *ReorderService) { s.exportDir = dir }
}

func WithPartitions(n int) Option {
	return func(s *ReorderService) { s.partitions = n }
}

func NewReorderService(ledger repository.Ledger, promotions cache.PromotionStore, calendar market.Calendar, params reorder.Params, opts ...Option) *ReorderService {
	if promotions == nil {
		promotions = cache.NewMemoryPromotionStore()
	}
	s := &ReorderService{
		ledger:     ledger,
		promotions: promotions,
		partitions: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.planner = reorder.NewPlanner(
		ledger,
		market.NewOracle(calendar, promotions),
		reorder.WithPolicy(reorder.NewPolicy(params)),
		reorder.WithLogger(log.Logger),
	)
	return s
}

// Plan runs the planner for today and optionally exports the orders.
func (s *ReorderService) Plan(ctx context.Context, today time.Time, opts PlanOptions) (*domain.PlanReport, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := log.With().Str("run_id", runID).Str("date", today.Format(domain.DateLayout)).Logger()

	if opts.Export && s.storage == nil && s.exportDir == "" {
		return nil, ErrExportUnavailable
	}

	partitions := s.partitions
	if opts.Partitions > 0 {
		partitions = opts.Partitions
	}

	logger.Info().Int("partitions", partitions).Msg("reorder plan started")
	result, err := s.planner.RunConcurrent(ctx, today, partitions)
	if err != nil {
		s.observeFailure(started)
		logger.Error().Err(err).Msg("reorder plan failed")
		return nil, fmt.Errorf("reorder plan %s: %w", runID, err)
	}

	report := &domain.PlanReport{
		RunID:       runID,
		Date:        today.Format(domain.DateLayout),
		Orders:      result.Orders,
		Escalations: result.Escalations,
		Evaluated:   result.Evaluated,
		StartedAt:   started,
	}
	for _, order := range result.Orders {
		report.TotalUnits += order.Quantity
	}

	if opts.Export {
		key, err := s.export(ctx, today, runID, result.Orders)
		if err != nil {
			s.observeFailure(started)
			logger.Error().Err(err).Msg("reorder plan export failed")
			return nil, err
		}
		report.ExportKey = key
	}

	elapsed := time.Since(started)
	report.Duration = elapsed.String()
	if s.metrics != nil {
		s.metrics.ObserveSuccess(result.Orders, len(result.Escalations), elapsed)
	}

	logger.Info().
		Int("evaluated", result.Evaluated).
		Int("orders", len(result.Orders)).
		Int("units", report.TotalUnits).
		Int("escalations", len(result.Escalations)).
		Dur("duration", elapsed).
		Msg("reorder plan finished")
	return report, nil
}

func (s *ReorderService) observeFailure(started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(time.Since(started))
	}
}

func (s *ReorderService) export(ctx context.Context, today time.Time, runID string, orders []domain.Order) (string, error) {
	data, err := export.CSV(orders)
	if err != nil {
		return "", fmt.Errorf("failed to render plan: %w", err)
	}
	key := storage.PlanKey(today, runID)

	if s.storage != nil {
		if err := s.storage.UploadObject(ctx, key, data); err != nil {
			return "", fmt.Errorf("failed to upload plan: %w", err)
		}
		return key, nil
	}

	path := filepath.Join(s.exportDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed writing %s: %w", path, err)
	}
	return path, nil
}

// Items lists the catalog with the current required on-hand targets.
func (s *ReorderService) Items(ctx context.Context) ([]domain.Item, error) {
	return s.ledger.Items(ctx)
}

// Promotions lists the SKUs currently on sale.
func (s *ReorderService) Promotions(ctx context.Context) ([]domain.Promotion, error) {
	skus, err := s.promotions.ListOnSale(ctx)
	if err != nil {
		return nil, err
	}
	promotions := make([]domain.Promotion, 0, len(skus))
	for _, sku := range skus {
		promotions = append(promotions, domain.Promotion{SKU: sku, OnSale: true})
	}
	return promotions, nil
}

// StartPromotion flags a catalog item as discounted.
func (s *ReorderService) StartPromotion(ctx context.Context, sku string) (*domain.Promotion, error) {
	if err := s.requireItem(ctx, sku); err != nil {
		return nil, err
	}
	if err := s.promotions.MarkOnSale(ctx, sku); err != nil {
		return nil, err
	}
	log.Info().Str("sku", sku).Msg("promotion started")
	return &domain.Promotion{SKU: sku, OnSale: true}, nil
}

// EndPromotion clears the discount flag of a catalog item.
func (s *ReorderService) EndPromotion(ctx context.Context, sku string) (*domain.Promotion, error) {
	if err := s.requireItem(ctx, sku); err != nil {
		return nil, err
	}
	if err := s.promotions.ClearSale(ctx, sku); err != nil {
		return nil, err
	}
	log.Info().Str("sku", sku).Msg("promotion ended")
	return &domain.Promotion{SKU: sku, OnSale: false}, nil
}

func (s *ReorderService) requireItem(ctx context.Context, sku string) error {
	items, err := s.ledger.Items(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.SKU == sku {
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", sku, domain.ErrNotFound)
}
