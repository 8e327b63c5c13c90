package reorder

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Result is the full outcome of a planning run.
type Result struct {
	Orders      []domain.Order
	Escalations []domain.Escalation
	// Evaluated counts the (item, warehouse) pairs the policy ran on.
	Evaluated int
}

func newResult() *Result {
	return &Result{
		Orders:      make([]domain.Order, 0),
		Escalations: make([]domain.Escalation, 0),
	}
}

// Planner applies the policy to every stocked item and collects the orders.
type Planner struct {
	stock  StockOracle
	market MarketOracle
	policy *Policy
	logger zerolog.Logger
}

// PlannerOption customizes a Planner.
type PlannerOption func(*Planner)

// WithPolicy replaces the default policy.
func WithPolicy(policy *Policy) PlannerOption {
	return func(p *Planner) {
		if policy != nil {
			p.policy = policy
		}
	}
}

// WithLogger sets the logger used for escalation traces.
func WithLogger(logger zerolog.Logger) PlannerOption {
	return func(p *Planner) {
		p.logger = logger
	}
}

// NewPlanner creates a planner over the given oracles.
func NewPlanner(stock StockOracle, market MarketOracle, opts ...PlannerOption) *Planner {
	p := &Planner{
		stock:  stock,
		market: market,
		policy: NewPolicy(DefaultParams()),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan returns the non-zero orders for today, in catalog order.
func (p *Planner) Plan(ctx context.Context, today time.Time) ([]domain.Order, error) {
	res, err := p.Run(ctx, today)
	if err != nil {
		return nil, err
	}
	return res.Orders, nil
}

// Run evaluates the whole catalog sequentially. Any oracle error aborts the
// run and no partial result is returned.
func (p *Planner) Run(ctx context.Context, today time.Time) (*Result, error) {
	items, err := p.stock.StockItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	return p.evaluate(ctx, today, items)
}

// RunConcurrent splits the catalog into contiguous, disjoint partitions and
// evaluates them in parallel. Each partition is evaluated sequentially and the
// merged result keeps catalog order. Safety depends on the stock oracle
// serializing reads and writes per item.
func (p *Planner) RunConcurrent(ctx context.Context, today time.Time, partitions int) (*Result, error) {
	if partitions <= 1 {
		return p.Run(ctx, today)
	}

	items, err := p.stock.StockItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	chunks := partition(items, partitions)
	if len(chunks) <= 1 {
		return p.evaluate(ctx, today, items)
	}

	results := make([]*Result, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := p.evaluate(gctx, today, chunk)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newResult()
	for _, res := range results {
		merged.Orders = append(merged.Orders, res.Orders...)
		merged.Escalations = append(merged.Escalations, res.Escalations...)
		merged.Evaluated += res.Evaluated
	}
	return merged, nil
}

func (p *Planner) evaluate(ctx context.Context, today time.Time, items []domain.Item) (*Result, error) {
	res := newResult()
	for _, item := range items {
		for _, loc := range item.Locations() {
			decision, err := p.policy.Decide(ctx, today, item, loc, p.stock, p.market)
			if err != nil {
				return nil, err
			}
			res.Evaluated++

			if esc := decision.Escalation; esc != nil {
				if err := p.stock.SetRequiredOnHand(ctx, item, esc.Warehouse, esc.To); err != nil {
					return nil, fmt.Errorf("raise required on-hand for %s@%s: %w", esc.SKU, esc.Warehouse, err)
				}
				p.logger.Debug().
					Str("sku", esc.SKU).
					Str("warehouse", esc.Warehouse.String()).
					Int("from", esc.From).
					Int("to", esc.To).
					Msg("stockout: required on-hand raised")
				res.Escalations = append(res.Escalations, *esc)
			}

			if decision.Order.Quantity > 0 {
				res.Orders = append(res.Orders, decision.Order)
			}
		}
	}
	return res, nil
}

// partition splits items into at most n contiguous chunks of near-equal size.
func partition(items []domain.Item, n int) [][]domain.Item {
	if len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}
	size := (len(items) + n - 1) / n
	chunks := make([][]domain.Item, 0, n)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
